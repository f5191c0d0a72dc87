package currency

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository loads the currency table.
type Repository interface {
	List(ctx context.Context) ([]Currency, error)
}

// PostgresRepository reads currencies from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every currency row ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]Currency, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name, symbol, type, rate::text, enabled, is_default, COALESCE(flag, '')
        FROM currencies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Currency
	for rows.Next() {
		var cur Currency
		var rate string
		if err := rows.Scan(&cur.Code, &cur.Name, &cur.Symbol, &cur.Type, &rate, &cur.Enabled, &cur.Default, &cur.Flag); err != nil {
			return nil, err
		}
		cur.Rate, err = decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("currency %s: bad rate %q: %w", cur.Code, rate, err)
		}
		out = append(out, cur)
	}
	return out, rows.Err()
}
