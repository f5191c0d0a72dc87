package currency

import "github.com/shopspring/decimal"

// Type distinguishes fiat currencies from crypto assets.
type Type string

const (
	TypeFiat   Type = "fiat"
	TypeCrypto Type = "crypto"
)

// Currency describes one supported currency. Rates are expressed relative to
// the platform base currency, which carries rate 1. The table is read-only to
// this service; admin tooling maintains it elsewhere.
type Currency struct {
	Code    string
	Name    string
	Symbol  string
	Type    Type
	Rate    decimal.Decimal
	Enabled bool
	Default bool
	Flag    string
}
