package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/ledger"
)

func newTestStore(t *testing.T) (*Store, ledger.Recorder) {
	t.Helper()
	recorder := ledger.NewInMemory()
	return NewStore(NewMemoryRepository(recorder, 0)), recorder
}

func TestCreateWalletEnforcesUniqueness(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateWallet(ctx, "alice", KindUser, "USD"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateWallet(ctx, "alice", KindUser, "USD"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	// Same currency under a different kind is a distinct wallet.
	if _, err := store.CreateWallet(ctx, "alice", KindMerchant, "USD"); err != nil {
		t.Fatalf("create merchant wallet: %v", err)
	}
}

func TestCreditAndDebitWriteLedgerEntries(t *testing.T) {
	store, recorder := newTestStore(t)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w, err = store.Credit(ctx, w.ID, decimal.NewFromInt(250), "top up")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected balance 250, got %s", w.Balance)
	}
	w, err = store.Debit(ctx, w.ID, decimal.NewFromInt(100), "cash out")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected balance 150, got %s", w.Balance)
	}

	entries, total, err := recorder.List(ctx, ledger.Filter{WalletID: w.ID}, 1, 10)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", total)
	}
	// Newest first.
	if entries[0].Type != ledger.TypeWithdraw || entries[1].Type != ledger.TypeAddMoney {
		t.Fatalf("unexpected entry types: %s, %s", entries[0].Type, entries[1].Type)
	}
}

func TestDebitGuardsAvailableBalance(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = store.Credit(ctx, w.ID, decimal.NewFromInt(100), ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err = store.Reserve(ctx, w.ID, decimal.NewFromInt(70)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// Balance is 100 but only 30 is available.
	if _, err = store.Debit(ctx, w.ID, decimal.NewFromInt(50), ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err = store.Debit(ctx, w.ID, decimal.NewFromInt(30), ""); err != nil {
		t.Fatalf("debit within available: %v", err)
	}
}

func TestOverDebitLeavesBalanceUnchanged(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = store.Credit(ctx, w.ID, decimal.NewFromInt(50), ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	over, _ := decimal.NewFromString("50.01")
	if _, err := store.Debit(ctx, w.ID, over, ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	got, err := store.Get(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("failed debit must not move funds, balance is %s", got.Balance)
	}
}

func TestReserveAndRelease(t *testing.T) {
	store, recorder := newTestStore(t)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = store.Credit(ctx, w.ID, decimal.NewFromInt(100), ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	w, err = store.Reserve(ctx, w.ID, decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !w.ReservedBalance.Equal(decimal.NewFromInt(40)) || !w.Available().Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected 40 reserved / 60 available, got %s / %s", w.ReservedBalance, w.Available())
	}

	if _, err := store.Reserve(ctx, w.ID, decimal.NewFromInt(61)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds reserving past available, got %v", err)
	}

	// Releasing more than is reserved clamps at zero.
	w, err = store.Release(ctx, w.ID, decimal.NewFromInt(55))
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !w.ReservedBalance.IsZero() {
		t.Fatalf("expected reservation clamped to zero, got %s", w.ReservedBalance)
	}

	// Reservations never touch the ledger.
	_, total, err := recorder.List(ctx, ledger.Filter{WalletID: w.ID}, 1, 10)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected only the credit entry, got %d", total)
	}
}

func TestMutationsRejectInactiveWallets(t *testing.T) {
	recorder := ledger.NewInMemory()
	repo := NewMemoryRepository(recorder, 0)
	store := NewStore(repo)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = store.Credit(ctx, w.ID, decimal.NewFromInt(10), ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err = repo.Mutate(ctx, []string{w.ID}, func(ws []*Wallet) ([]ledger.Entry, error) {
		ws[0].Status = StatusInactive
		return nil, nil
	})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := store.Credit(ctx, w.ID, decimal.NewFromInt(1), ""); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive on credit, got %v", err)
	}
	if _, err := store.Debit(ctx, w.ID, decimal.NewFromInt(1), ""); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive on debit, got %v", err)
	}
}

func TestMutateRollsBackOnError(t *testing.T) {
	recorder := ledger.NewInMemory()
	repo := NewMemoryRepository(recorder, 0)
	store := NewStore(repo)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = store.Credit(ctx, w.ID, decimal.NewFromInt(10), ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	boom := errors.New("boom")
	err = repo.Mutate(ctx, []string{w.ID}, func(ws []*Wallet) ([]ledger.Entry, error) {
		ws[0].Balance = decimal.NewFromInt(999)
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	got, err := repo.GetByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("mutation must roll back, balance is %s", got.Balance)
	}
}

func TestMutateKeepsBalancesWhenRecorderFails(t *testing.T) {
	recorder := ledger.NewInMemory()
	repo := NewMemoryRepository(recorder, 0)
	store := NewStore(repo)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err = store.Credit(ctx, w.ID, decimal.NewFromInt(100), ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// Occupy an entry id so the mutation's append collides.
	if err := recorder.Append(ctx, ledger.Entry{ID: "taken"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	err = repo.Mutate(ctx, []string{w.ID}, func(ws []*Wallet) ([]ledger.Entry, error) {
		if err := ApplyDebit(ws[0], decimal.NewFromInt(40)); err != nil {
			return nil, err
		}
		return []ledger.Entry{{ID: "taken", WalletID: ws[0].ID}}, nil
	})
	if !errors.Is(err, ledger.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	got, err := repo.GetByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance must not move when recording fails, got %s", got.Balance)
	}
}

func TestMutateHonorsConfiguredLockWait(t *testing.T) {
	recorder := ledger.NewInMemory()
	repo := NewMemoryRepository(recorder, 25*time.Millisecond)
	store := NewStore(repo)
	ctx := context.Background()

	w, err := store.CreateWallet(ctx, "alice", KindUser, "USD")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- repo.Mutate(ctx, []string{w.ID}, func([]*Wallet) ([]ledger.Entry, error) {
			close(holding)
			<-release
			return nil, nil
		})
	}()
	<-holding

	start := time.Now()
	err = repo.Mutate(ctx, []string{w.ID}, func([]*Wallet) ([]ledger.Entry, error) { return nil, nil })
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("lock wait not bounded by configuration, waited %s", waited)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holding mutation: %v", err)
	}
}
