package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/ledger"
)

// MutateFunc receives exclusively locked, freshly read wallets in the same
// order as the requested ids. It may mutate them in place and return ledger
// entries to persist atomically with the balance changes. Returning an error
// rolls everything back.
type MutateFunc func(wallets []*Wallet) ([]ledger.Entry, error)

// Repository persists wallets. Implementations enforce the one wallet per
// (owner, kind, currency) invariant and provide ordered, bounded-wait
// exclusive locking for mutations.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, ownerID string, kind OwnerKind, currencyCode string) (Wallet, error)
	GetByID(ctx context.Context, id string) (Wallet, error)
	// ListByOwner returns the owner's wallets ordered by balance descending.
	ListByOwner(ctx context.Context, ownerID string, kind OwnerKind) ([]Wallet, error)
	// Mutate locks the given wallets in ascending id order, re-reads their
	// authoritative state, applies fn and persists the result atomically.
	// Lock acquisition waits a bounded time; on timeout it fails with
	// ErrConcurrentModification and no side effects.
	Mutate(ctx context.Context, ids []string, fn MutateFunc) error
}

// ApplyCredit adds amount to the wallet balance. It is a pure balance
// primitive: callers run it inside a Mutate scope and record their own
// ledger entries.
func ApplyCredit(w *Wallet, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !w.Active() {
		return ErrInactive
	}
	w.Balance = w.Balance.Add(amount).Round(StoragePrecision)
	return nil
}

// ApplyDebit subtracts amount from the wallet balance, guarding the
// available-balance invariant.
func ApplyDebit(w *Wallet, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !w.Active() {
		return ErrInactive
	}
	if w.Available().LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount).Round(StoragePrecision)
	return nil
}

// ApplyReserve earmarks amount out of the available balance.
func ApplyReserve(w *Wallet, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !w.Active() {
		return ErrInactive
	}
	if w.Available().LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.ReservedBalance = w.ReservedBalance.Add(amount).Round(StoragePrecision)
	return nil
}

// ApplyRelease returns reserved funds to the available balance, clamping the
// reservation at zero so over-releasing is harmless.
func ApplyRelease(w *Wallet, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !w.Active() {
		return ErrInactive
	}
	next := w.ReservedBalance.Sub(amount)
	if next.Sign() < 0 {
		next = decimal.Zero
	}
	w.ReservedBalance = next.Round(StoragePrecision)
	return nil
}
