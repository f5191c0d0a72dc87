package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/currency"
	"github.com/chibank/wallet-core/internal/ledger"
)

func newTestQuery(t *testing.T) (*QueryService, *Store) {
	t.Helper()
	registry, err := currency.NewRegistry(context.Background(), currency.NewStaticRepository(currency.DefaultSet()))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	recorder := ledger.NewInMemory()
	repo := NewMemoryRepository(recorder, 0)
	return NewQueryService(repo, registry, recorder), NewStore(repo)
}

func seedWallet(t *testing.T, store *Store, ownerID string, kind OwnerKind, code string, amount int64) Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := store.CreateWallet(ctx, ownerID, kind, code)
	if err != nil {
		t.Fatalf("create %s wallet: %v", code, err)
	}
	if amount > 0 {
		if w, err = store.Credit(ctx, w.ID, decimal.NewFromInt(amount), "seed"); err != nil {
			t.Fatalf("fund %s wallet: %v", code, err)
		}
	}
	return w
}

func TestTotalBalanceConvertsToBase(t *testing.T) {
	queries, store := newTestQuery(t)
	ctx := context.Background()
	seedWallet(t, store, "alice", KindUser, "USD", 100)
	seedWallet(t, store, "alice", KindUser, "EUR", 100)
	seedWallet(t, store, "alice", KindUser, "BTC", 0)

	total, err := queries.TotalBalance(ctx, "alice", KindUser)
	if err != nil {
		t.Fatalf("total balance: %v", err)
	}
	// 100 USD at rate 1 plus 100 EUR at rate 0.9.
	want, _ := decimal.NewFromString("190.00")
	if !total.Total.Equal(want) {
		t.Fatalf("expected %s, got %s", want, total.Total)
	}
	if total.Currency != "USD" {
		t.Fatalf("expected USD base, got %s", total.Currency)
	}
	if total.WalletCount != 3 {
		t.Fatalf("expected 3 wallets, got %d", total.WalletCount)
	}
}

func TestListWalletsByCurrencyType(t *testing.T) {
	queries, store := newTestQuery(t)
	ctx := context.Background()
	seedWallet(t, store, "alice", KindUser, "USD", 10)
	seedWallet(t, store, "alice", KindUser, "EUR", 5)
	seedWallet(t, store, "alice", KindUser, "BTC", 1)

	fiat, err := queries.ListWalletsByCurrencyType(ctx, "alice", KindUser, currency.TypeFiat)
	if err != nil {
		t.Fatalf("list fiat: %v", err)
	}
	if len(fiat) != 2 {
		t.Fatalf("expected 2 fiat wallets, got %d", len(fiat))
	}
	crypto, err := queries.ListWalletsByCurrencyType(ctx, "alice", KindUser, currency.TypeCrypto)
	if err != nil {
		t.Fatalf("list crypto: %v", err)
	}
	if len(crypto) != 1 || crypto[0].CurrencyCode != "BTC" {
		t.Fatalf("expected one BTC wallet, got %+v", crypto)
	}
}

func TestStatistics(t *testing.T) {
	queries, store := newTestQuery(t)
	ctx := context.Background()
	usd := seedWallet(t, store, "alice", KindUser, "USD", 200)
	seedWallet(t, store, "alice", KindUser, "BTC", 1)
	seedWallet(t, store, "alice", KindUser, "ETH", 0)

	if _, err := store.Debit(ctx, usd.ID, decimal.NewFromInt(50), "cash out"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	stats, err := queries.Statistics(ctx, "alice", KindUser)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalWallets != 3 || stats.FiatWallets != 1 || stats.CryptoWallets != 2 {
		t.Fatalf("unexpected wallet counts: %+v", stats)
	}
	if stats.CryptoWalletsWithBalance != 1 {
		t.Fatalf("expected 1 funded crypto wallet, got %d", stats.CryptoWalletsWithBalance)
	}
	if !stats.TotalAddMoney.Equal(decimal.NewFromInt(201)) {
		t.Fatalf("expected add-money total 201, got %s", stats.TotalAddMoney)
	}
	if !stats.TotalWithdraw.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected withdraw total 50, got %s", stats.TotalWithdraw)
	}
	// 150 USD at rate 1 plus 1 BTC at rate 64000.
	want, _ := decimal.NewFromString("64150.00")
	if !stats.TotalBalance.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, stats.TotalBalance)
	}
}

func TestHistoryPagination(t *testing.T) {
	queries, store := newTestQuery(t)
	ctx := context.Background()
	w := seedWallet(t, store, "alice", KindUser, "USD", 1)
	for i := 0; i < 24; i++ {
		if _, err := store.Credit(ctx, w.ID, decimal.NewFromInt(1), "top up"); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	page, err := queries.History(ctx, "alice", KindUser, "", "", 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Pagination.Total != 25 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}
	if !page.Pagination.HasMore {
		t.Fatalf("page 1 of 3 should report more")
	}
	if len(page.Entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(page.Entries))
	}

	last, err := queries.History(ctx, "alice", KindUser, "", "", 3, 10)
	if err != nil {
		t.Fatalf("history page 3: %v", err)
	}
	if len(last.Entries) != 5 || last.Pagination.HasMore {
		t.Fatalf("expected final short page, got %d entries, has_more=%v", len(last.Entries), last.Pagination.HasMore)
	}

	beyond, err := queries.History(ctx, "alice", KindUser, "", "", 4, 10)
	if err != nil {
		t.Fatalf("history page 4: %v", err)
	}
	if len(beyond.Entries) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(beyond.Entries))
	}
}

func TestHistoryCurrencyFilter(t *testing.T) {
	queries, store := newTestQuery(t)
	ctx := context.Background()
	seedWallet(t, store, "alice", KindUser, "USD", 5)
	seedWallet(t, store, "alice", KindUser, "EUR", 7)

	page, err := queries.History(ctx, "alice", KindUser, "EUR", "", 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Fatalf("expected 1 EUR entry, got %d", page.Pagination.Total)
	}

	// An unknown currency degrades to the unfiltered history.
	page, err = queries.History(ctx, "alice", KindUser, "XXX", "", 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Pagination.Total != 2 {
		t.Fatalf("expected unfiltered history, got %d", page.Pagination.Total)
	}
}

func TestFormatWalletUnknownCurrency(t *testing.T) {
	queries, _ := newTestQuery(t)

	now := time.Now().UTC()
	view := queries.FormatWallet(Wallet{
		ID:           "w-1",
		CurrencyCode: "XXX",
		Balance:      decimal.NewFromInt(12),
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if view.CurrencyCode != "N/A" || view.CurrencyName != "N/A" {
		t.Fatalf("expected placeholder currency, got %+v", view)
	}
	if !view.Rate.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected fallback rate 1, got %s", view.Rate)
	}
}
