package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/ledger"
)

// lockNotAvailable is the SQLSTATE raised when lock_timeout expires.
const lockNotAvailable = "55P03"

// PostgresRepository stores wallets in PostgreSQL using row-level locks for
// mutations.
type PostgresRepository struct {
	db       *pgxpool.Pool
	recorder *ledger.PostgresRecorder
	lockWait time.Duration
}

// NewPostgresRepository builds a repository backed by PostgreSQL. Ledger
// entries produced by mutations are written through recorder inside the same
// transaction. A non-positive lockWait falls back to the default.
func NewPostgresRepository(db *pgxpool.Pool, recorder *ledger.PostgresRecorder, lockWait time.Duration) *PostgresRepository {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &PostgresRepository{db: db, recorder: recorder, lockWait: lockWait}
}

const walletColumns = `id, owner_id, owner_kind, currency_code, balance::text, reserved_balance::text, status, created_at, updated_at`

// Create inserts a wallet record. The unique (owner_id, owner_kind,
// currency_code) index backs the one-wallet-per-currency invariant.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	_, err := r.db.Exec(ctx, `INSERT INTO wallets
        (id, owner_id, owner_kind, currency_code, balance, reserved_balance, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)`,
		w.ID, w.OwnerID, string(w.OwnerKind), w.CurrencyCode,
		w.Balance.String(), w.ReservedBalance.String(), w.Status, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// Get fetches the wallet for an (owner, kind, currency) key.
func (r *PostgresRepository) Get(ctx context.Context, ownerID string, kind OwnerKind, currencyCode string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE owner_id = $1 AND owner_kind = $2 AND currency_code = $3`, ownerID, string(kind), currencyCode)
	return scanWallet(row)
}

// GetByID fetches a wallet by identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

// ListByOwner returns the owner's wallets ordered by balance descending.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, kind OwnerKind) ([]Wallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE owner_id = $1 AND owner_kind = $2 ORDER BY balance DESC, currency_code`, ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Mutate locks the wallets with SELECT ... FOR UPDATE in ascending id order,
// applies fn and commits balances plus ledger entries in one transaction. A
// local lock_timeout bounds the wait; hitting it surfaces as the retryable
// ErrConcurrentModification.
func (r *PostgresRepository) Mutate(ctx context.Context, ids []string, fn MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)
	ordered = dedupe(ordered)

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockWait.Milliseconds())); err != nil {
		return err
	}

	byID := make(map[string]*Wallet, len(ordered))
	for _, id := range ordered {
		row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
		w, err := scanWallet(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
				return ErrConcurrentModification
			}
			return err
		}
		cp := w
		byID[id] = &cp
	}

	snapshot := make([]*Wallet, len(ids))
	for i, id := range ids {
		snapshot[i] = byID[id]
	}

	entries, err := fn(snapshot)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, w := range byID {
		w.UpdatedAt = now
		if _, err := tx.Exec(ctx, `UPDATE wallets
            SET balance = $1::numeric, reserved_balance = $2::numeric, status = $3, updated_at = $4
            WHERE id = $5`,
			w.Balance.String(), w.ReservedBalance.String(), w.Status, w.UpdatedAt, w.ID); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := r.recorder.AppendInTx(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	var kind, balance, reserved string
	err := row.Scan(&w.ID, &w.OwnerID, &kind, &w.CurrencyCode, &balance, &reserved, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.OwnerKind = OwnerKind(kind)
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return Wallet{}, err
	}
	if w.ReservedBalance, err = decimal.NewFromString(reserved); err != nil {
		return Wallet{}, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
