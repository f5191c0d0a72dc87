package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/ledger"
)

// Store exposes the wallet balance primitives. Each operation runs inside a
// single-wallet lock scope; the multi-wallet transfer path lives in the
// transfer package and drives the repository directly.
type Store struct {
	repo Repository
}

// NewStore builds a wallet store over the repository.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Repo exposes the underlying repository to collaborating services.
func (s *Store) Repo() Repository {
	return s.repo
}

// CreateWallet provisions an empty active wallet for the owner and currency.
func (s *Store) CreateWallet(ctx context.Context, ownerID string, kind OwnerKind, currencyCode string) (Wallet, error) {
	now := time.Now().UTC()
	w := Wallet{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		OwnerKind:       kind,
		CurrencyCode:    currencyCode,
		Balance:         decimal.Zero,
		ReservedBalance: decimal.Zero,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Get returns the wallet for an (owner, kind, currency) key.
func (s *Store) Get(ctx context.Context, ownerID string, kind OwnerKind, currencyCode string) (Wallet, error) {
	return s.repo.Get(ctx, ownerID, kind, currencyCode)
}

// ListAll returns the owner's wallets ordered by balance descending.
func (s *Store) ListAll(ctx context.Context, ownerID string, kind OwnerKind) ([]Wallet, error) {
	return s.repo.ListByOwner(ctx, ownerID, kind)
}

// Credit adds funds to a wallet and records an add-money ledger entry.
func (s *Store) Credit(ctx context.Context, walletID string, amount decimal.Decimal, remark string) (Wallet, error) {
	return s.mutateOne(ctx, walletID, func(w *Wallet) (ledger.Entry, error) {
		if err := ApplyCredit(w, amount); err != nil {
			return ledger.Entry{}, err
		}
		return s.entryFor(w, amount, ledger.TypeAddMoney, ledger.AttributeReceive, remark), nil
	})
}

// Debit removes funds from a wallet and records a withdraw ledger entry.
func (s *Store) Debit(ctx context.Context, walletID string, amount decimal.Decimal, remark string) (Wallet, error) {
	return s.mutateOne(ctx, walletID, func(w *Wallet) (ledger.Entry, error) {
		if err := ApplyDebit(w, amount); err != nil {
			return ledger.Entry{}, err
		}
		return s.entryFor(w, amount, ledger.TypeWithdraw, ledger.AttributeSend, remark), nil
	})
}

// Reserve earmarks part of the available balance for a pending operation.
// Reservations move no funds, so no ledger entry is written.
func (s *Store) Reserve(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, error) {
	return s.mutateOne(ctx, walletID, func(w *Wallet) (ledger.Entry, error) {
		return ledger.Entry{}, ApplyReserve(w, amount)
	})
}

// Release returns reserved funds to the available balance, clamping at zero.
func (s *Store) Release(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, error) {
	return s.mutateOne(ctx, walletID, func(w *Wallet) (ledger.Entry, error) {
		return ledger.Entry{}, ApplyRelease(w, amount)
	})
}

func (s *Store) mutateOne(ctx context.Context, walletID string, op func(w *Wallet) (ledger.Entry, error)) (Wallet, error) {
	var updated Wallet
	err := s.repo.Mutate(ctx, []string{walletID}, func(ws []*Wallet) ([]ledger.Entry, error) {
		entry, err := op(ws[0])
		if err != nil {
			return nil, err
		}
		updated = *ws[0]
		if entry.WalletID == "" {
			return nil, nil
		}
		return []ledger.Entry{entry}, nil
	})
	if err != nil {
		return Wallet{}, err
	}
	return updated, nil
}

func (s *Store) entryFor(w *Wallet, amount decimal.Decimal, entryType, attribute, remark string) ledger.Entry {
	return ledger.Entry{
		ID:               uuid.NewString(),
		TransactionID:    uuid.NewString(),
		WalletID:         w.ID,
		OwnerID:          w.OwnerID,
		OwnerKind:        string(w.OwnerKind),
		Type:             entryType,
		Attribute:        attribute,
		RequestAmount:    amount.Round(StoragePrecision),
		Payable:          amount.Round(StoragePrecision),
		AvailableBalance: w.Available(),
		Status:           ledger.StatusSuccess,
		Remark:           remark,
		CreatedAt:        time.Now().UTC(),
	}
}
