package currency

import (
	"context"

	"github.com/shopspring/decimal"
)

type staticRepository struct {
	currencies []Currency
}

// NewStaticRepository constructs an in-memory repository over a fixed currency
// set, used by tests and dev mode.
func NewStaticRepository(currencies []Currency) Repository {
	return &staticRepository{currencies: currencies}
}

func (r *staticRepository) List(_ context.Context) ([]Currency, error) {
	out := make([]Currency, len(r.currencies))
	copy(out, r.currencies)
	return out, nil
}

// DefaultSet returns the built-in currency table used when no database is
// configured: the Fiat24 fiat set plus two crypto assets, USD as base.
func DefaultSet() []Currency {
	rate := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return []Currency{
		{Code: "USD", Name: "US Dollar", Symbol: "$", Type: TypeFiat, Rate: rate("1"), Enabled: true, Default: true, Flag: "us"},
		{Code: "EUR", Name: "Euro", Symbol: "€", Type: TypeFiat, Rate: rate("0.9"), Enabled: true, Flag: "eu"},
		{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF", Type: TypeFiat, Rate: rate("0.88"), Enabled: true, Flag: "ch"},
		{Code: "CNH", Name: "Offshore Yuan", Symbol: "¥", Type: TypeFiat, Rate: rate("0.14"), Enabled: true, Flag: "cn"},
		{Code: "BTC", Name: "Bitcoin", Symbol: "₿", Type: TypeCrypto, Rate: rate("64000"), Enabled: true},
		{Code: "ETH", Name: "Ethereum", Symbol: "Ξ", Type: TypeCrypto, Rate: rate("3200"), Enabled: true},
	}
}
