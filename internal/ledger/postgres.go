package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRecorder persists ledger entries in PostgreSQL. Rows are append-only.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder constructs a Postgres-backed recorder.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

const insertEntrySQL = `INSERT INTO ledger_entries
    (id, transaction_id, wallet_id, owner_id, owner_kind, counterparty_wallet_id,
     type, attribute, request_amount, payable, available_balance, status, remark, created_at)
    VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9::numeric, $10::numeric, $11::numeric, $12, $13, $14)`

// Append inserts a single entry.
func (r *PostgresRecorder) Append(ctx context.Context, entry Entry) error {
	_, err := r.db.Exec(ctx, insertEntrySQL, entryArgs(entry)...)
	return err
}

// AppendInTx inserts an entry inside the caller's transaction so balance
// mutations and their ledger records commit together.
func (r *PostgresRecorder) AppendInTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	_, err := tx.Exec(ctx, insertEntrySQL, entryArgs(entry)...)
	return err
}

func entryArgs(entry Entry) []any {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return []any{
		entry.ID, entry.TransactionID, entry.WalletID, entry.OwnerID, entry.OwnerKind,
		entry.CounterpartyWalletID, entry.Type, entry.Attribute,
		entry.RequestAmount.String(), entry.Payable.String(), entry.AvailableBalance.String(),
		entry.Status, entry.Remark, entry.CreatedAt,
	}
}

// List returns matching entries newest first with the overall match count.
func (r *PostgresRecorder) List(ctx context.Context, filter Filter, page, limit int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	where, args := filterClause(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, transaction_id, wallet_id, owner_id, owner_kind,
        COALESCE(counterparty_wallet_id, ''), type, attribute,
        request_amount::text, payable::text, available_balance::text, status, remark, created_at
        FROM ledger_entries` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, (page-1)*limit, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var reqAmount, payable, available string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WalletID, &e.OwnerID, &e.OwnerKind,
			&e.CounterpartyWalletID, &e.Type, &e.Attribute,
			&reqAmount, &payable, &available, &e.Status, &e.Remark, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if e.RequestAmount, err = decimal.NewFromString(reqAmount); err != nil {
			return nil, 0, err
		}
		if e.Payable, err = decimal.NewFromString(payable); err != nil {
			return nil, 0, err
		}
		if e.AvailableBalance, err = decimal.NewFromString(available); err != nil {
			return nil, 0, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Sum aggregates request amounts over the filtered entries.
func (r *PostgresRecorder) Sum(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	where, args := filterClause(filter)
	var sum string
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(request_amount), 0)::text FROM ledger_entries`+where, args...).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func filterClause(filter Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("transaction_id", filter.TransactionID)
	add("wallet_id", filter.WalletID)
	add("owner_id", filter.OwnerID)
	add("owner_kind", filter.OwnerKind)
	add("type", filter.Type)
	add("attribute", filter.Attribute)
	add("status", filter.Status)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
