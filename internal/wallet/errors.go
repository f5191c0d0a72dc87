package wallet

import "errors"

var (
	// ErrInvalidAmount occurs when a mutation amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrNotFound indicates no wallet exists for the requested key.
	ErrNotFound = errors.New("wallet not found")

	// ErrExists indicates the (owner, kind, currency) slot is already taken.
	ErrExists = errors.New("wallet already exists")

	// ErrInactive indicates the wallet is disabled and rejects mutations.
	ErrInactive = errors.New("wallet is inactive")

	// ErrInsufficientFunds occurs when the available balance cannot cover a
	// debit or reservation.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrConcurrentModification is returned when a wallet lock cannot be
	// acquired within the bounded wait. The operation is safe to retry.
	ErrConcurrentModification = errors.New("wallet is locked by a concurrent operation")
)
