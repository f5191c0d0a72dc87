package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerKind identifies which role holds a wallet.
type OwnerKind string

const (
	KindUser       OwnerKind = "user"
	KindAgent      OwnerKind = "agent"
	KindMerchant   OwnerKind = "merchant"
	KindEnterprise OwnerKind = "enterprise"
)

// Wallet statuses. Inactive wallets reject every mutation.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Precision constants: balances are stored at 8 decimal places and displayed
// at 2, following the platform convention.
const (
	StoragePrecision = 8
	DisplayPrecision = 2
)

// Wallet is a per-owner, per-currency balance record. A portion of the
// balance may be reserved for pending operations; only the remainder is
// spendable.
type Wallet struct {
	ID              string
	OwnerID         string
	OwnerKind       OwnerKind
	CurrencyCode    string
	Balance         decimal.Decimal
	ReservedBalance decimal.Decimal
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Available returns the spendable balance: balance minus reserved.
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.ReservedBalance)
}

// Active reports whether the wallet accepts mutations.
func (w Wallet) Active() bool {
	return w.Status == StatusActive
}
