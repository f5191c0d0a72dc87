package approval

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresRepository stores enterprise wallets and approval requests in
// PostgreSQL. Signer sets, chain lists and the per-chain balance map are kept
// as JSONB columns.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateWallet(ctx context.Context, w EnterpriseWallet) error {
	chains, signers, balances, err := walletJSON(w)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO enterprise_wallets
        (id, owner_id, wallet_name, supported_chains, primary_chain_id, required_signatures,
         total_signers, signer_addresses, balances, status, last_activity_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		w.ID, w.OwnerID, w.WalletName, chains, w.PrimaryChainID, w.RequiredSignatures,
		w.TotalSigners, signers, balances, w.Status, w.LastActivityAt.UTC(), w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrWalletExists
	}
	return err
}

const walletColumns = `id, owner_id, wallet_name, supported_chains, primary_chain_id,
    required_signatures, total_signers, signer_addresses, balances, status,
    last_activity_at, created_at, updated_at`

func (r *PostgresRepository) GetWallet(ctx context.Context, id string) (EnterpriseWallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM enterprise_wallets WHERE id = $1`, id)
	return scanEnterpriseWallet(row)
}

func (r *PostgresRepository) ListWallets(ctx context.Context, ownerID string) ([]EnterpriseWallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+walletColumns+` FROM enterprise_wallets
        WHERE owner_id = $1 ORDER BY wallet_name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnterpriseWallet
	for rows.Next() {
		w, err := scanEnterpriseWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateWallet(ctx context.Context, w EnterpriseWallet) error {
	chains, signers, balances, err := walletJSON(w)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE enterprise_wallets
        SET supported_chains = $1, primary_chain_id = $2, required_signatures = $3,
            total_signers = $4, signer_addresses = $5, balances = $6, status = $7,
            last_activity_at = $8, updated_at = $9
        WHERE id = $10`,
		chains, w.PrimaryChainID, w.RequiredSignatures, w.TotalSigners, signers, balances,
		w.Status, w.LastActivityAt.UTC(), time.Now().UTC(), w.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateRequest(ctx context.Context, req Request) error {
	approved, rejected, err := requestJSON(req)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO approval_requests
        (id, wallet_id, transaction_reference, transaction_hash, transaction_type, amount,
         currency_code, chain_id, to_address, required_approvals, approved_by, rejected_by,
         status, description, executed_at, expires_at, created_at, updated_at, version)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		req.ID, req.WalletID, req.TransactionReference, req.TransactionHash, req.TransactionType,
		req.Amount.String(), req.CurrencyCode, req.ChainID, req.ToAddress, req.RequiredApprovals,
		approved, rejected, req.Status, req.Description, req.ExecutedAt, req.ExpiresAt.UTC(),
		req.CreatedAt.UTC(), req.UpdatedAt.UTC(), req.Version)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateReference
	}
	return err
}

const requestColumns = `id, wallet_id, transaction_reference, COALESCE(transaction_hash, ''),
    transaction_type, amount::text, currency_code, chain_id, COALESCE(to_address, ''),
    required_approvals, approved_by, rejected_by, status, COALESCE(description, ''),
    executed_at, expires_at, created_at, updated_at, version`

func (r *PostgresRepository) GetRequest(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM approval_requests WHERE id = $1`, id)
	return scanRequest(row)
}

func (r *PostgresRepository) ListRequests(ctx context.Context, walletID, status string) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE 1=1`
	var args []any
	if walletID != "" {
		args = append(args, walletID)
		query += ` AND wallet_id = $1`
	}
	if status != "" {
		args = append(args, status)
		if len(args) == 1 {
			query += ` AND status = $1`
		} else {
			query += ` AND status = $2`
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (r *PostgresRepository) UpdateRequest(ctx context.Context, req Request) error {
	approved, rejected, err := requestJSON(req)
	if err != nil {
		return err
	}
	// The version predicate rejects writes racing another signer; whoever
	// commits first wins and the loser re-reads.
	tag, err := r.db.Exec(ctx, `UPDATE approval_requests
        SET transaction_hash = NULLIF($1, ''), approved_by = $2, rejected_by = $3,
            status = $4, executed_at = $5, updated_at = $6, version = version + 1
        WHERE id = $7 AND version = $8`,
		req.TransactionHash, approved, rejected, req.Status, req.ExecutedAt, time.Now().UTC(), req.ID, req.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM approval_requests WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrStaleRequest
		}
		return ErrRequestNotFound
	}
	return nil
}

func (r *PostgresRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]Request, error) {
	rows, err := r.db.Query(ctx, `SELECT `+requestColumns+` FROM approval_requests
        WHERE status = 'pending' AND expires_at <= $1`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func walletJSON(w EnterpriseWallet) (chains, signers, balances []byte, err error) {
	if chains, err = json.Marshal(w.SupportedChains); err != nil {
		return nil, nil, nil, err
	}
	if signers, err = json.Marshal(w.SignerAddresses); err != nil {
		return nil, nil, nil, err
	}
	if balances, err = json.Marshal(w.Balances); err != nil {
		return nil, nil, nil, err
	}
	return chains, signers, balances, nil
}

func requestJSON(req Request) (approved, rejected []byte, err error) {
	if approved, err = json.Marshal(req.ApprovedBy); err != nil {
		return nil, nil, err
	}
	if rejected, err = json.Marshal(req.RejectedBy); err != nil {
		return nil, nil, err
	}
	return approved, rejected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnterpriseWallet(row rowScanner) (EnterpriseWallet, error) {
	var w EnterpriseWallet
	var chains, signers, balances []byte
	err := row.Scan(&w.ID, &w.OwnerID, &w.WalletName, &chains, &w.PrimaryChainID,
		&w.RequiredSignatures, &w.TotalSigners, &signers, &balances, &w.Status,
		&w.LastActivityAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EnterpriseWallet{}, ErrWalletNotFound
		}
		return EnterpriseWallet{}, err
	}
	if err := json.Unmarshal(chains, &w.SupportedChains); err != nil {
		return EnterpriseWallet{}, err
	}
	if err := json.Unmarshal(signers, &w.SignerAddresses); err != nil {
		return EnterpriseWallet{}, err
	}
	if err := json.Unmarshal(balances, &w.Balances); err != nil {
		return EnterpriseWallet{}, err
	}
	return w, nil
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	var amount string
	var approved, rejected []byte
	err := row.Scan(&req.ID, &req.WalletID, &req.TransactionReference, &req.TransactionHash,
		&req.TransactionType, &amount, &req.CurrencyCode, &req.ChainID, &req.ToAddress,
		&req.RequiredApprovals, &approved, &rejected, &req.Status, &req.Description,
		&req.ExecutedAt, &req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt, &req.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, err
	}
	if req.Amount, err = decimal.NewFromString(amount); err != nil {
		return Request{}, err
	}
	if err := json.Unmarshal(approved, &req.ApprovedBy); err != nil {
		return Request{}, err
	}
	if err := json.Unmarshal(rejected, &req.RejectedBy); err != nil {
		return Request{}, err
	}
	return req, nil
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
