package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/currency"
	"github.com/chibank/wallet-core/internal/ledger"
)

// View is the wallet representation served to clients. Missing currency rows
// degrade to placeholder values instead of failing the response.
type View struct {
	ID               string          `json:"id"`
	CurrencyCode     string          `json:"currency_code"`
	CurrencyName     string          `json:"currency_name"`
	CurrencySymbol   string          `json:"currency_symbol"`
	CurrencyType     string          `json:"currency_type"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	ReservedBalance  decimal.Decimal `json:"reserved_balance"`
	FormattedBalance string          `json:"formatted_balance"`
	Status           string          `json:"status"`
	Rate             decimal.Decimal `json:"rate"`
	Flag             string          `json:"flag,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TotalBalance aggregates every wallet of an owner into the base currency.
type TotalBalance struct {
	Total       decimal.Decimal `json:"total_balance"`
	Currency    string          `json:"currency"`
	WalletCount int             `json:"wallet_count"`
}

// Statistics summarizes an owner's wallets and settled ledger activity.
type Statistics struct {
	TotalWallets             int             `json:"total_wallets"`
	FiatWallets              int             `json:"fiat_wallets"`
	CryptoWallets            int             `json:"crypto_wallets"`
	ActiveWallets            int             `json:"active_wallets"`
	InactiveWallets          int             `json:"inactive_wallets"`
	TotalBalance             decimal.Decimal `json:"total_balance"`
	BaseCurrency             string          `json:"base_currency"`
	FiatBalance              decimal.Decimal `json:"fiat_balance"`
	CryptoWalletsWithBalance int             `json:"crypto_wallets_with_balance"`
	TotalAddMoney            decimal.Decimal `json:"total_add_money"`
	TotalWithdraw            decimal.Decimal `json:"total_withdraw"`
	TotalSent                decimal.Decimal `json:"total_sent"`
	TotalReceived            decimal.Decimal `json:"total_received"`
}

// Pagination carries (page, limit) result metadata.
type Pagination struct {
	Total       int  `json:"total"`
	PerPage     int  `json:"per_page"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	HasMore     bool `json:"has_more"`
}

// HistoryPage is one page of an owner's transaction history.
type HistoryPage struct {
	Entries    []ledger.Entry `json:"transactions"`
	Pagination Pagination     `json:"pagination"`
}

// QueryService is the read side: balance aggregation, statistics, formatted
// wallet views and paginated history. It never mutates state.
type QueryService struct {
	repo       Repository
	currencies *currency.Registry
	recorder   ledger.Recorder
}

// NewQueryService builds the read-side service.
func NewQueryService(repo Repository, currencies *currency.Registry, recorder ledger.Recorder) *QueryService {
	return &QueryService{repo: repo, currencies: currencies, recorder: recorder}
}

// ListWallets returns formatted views of all the owner's wallets, ordered by
// balance descending.
func (q *QueryService) ListWallets(ctx context.Context, ownerID string, kind OwnerKind) ([]View, error) {
	wallets, err := q.repo.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return nil, err
	}
	views := make([]View, len(wallets))
	for i, w := range wallets {
		views[i] = q.FormatWallet(w)
	}
	return views, nil
}

// ListWalletsByCurrencyType filters the owner's wallets to one currency type.
func (q *QueryService) ListWalletsByCurrencyType(ctx context.Context, ownerID string, kind OwnerKind, t currency.Type) ([]View, error) {
	wallets, err := q.repo.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return nil, err
	}
	var views []View
	for _, w := range wallets {
		cur, err := q.currencies.Resolve(w.CurrencyCode)
		if err != nil || cur.Type != t {
			continue
		}
		views = append(views, q.FormatWallet(w))
	}
	return views, nil
}

// TotalBalance sums every wallet converted to the base currency, rounded to 2
// decimals. Wallets with an unknown currency contribute nothing.
func (q *QueryService) TotalBalance(ctx context.Context, ownerID string, kind OwnerKind) (TotalBalance, error) {
	wallets, err := q.repo.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return TotalBalance{}, err
	}

	total := decimal.Zero
	for _, w := range wallets {
		cur, err := q.currencies.Resolve(w.CurrencyCode)
		if err != nil {
			continue
		}
		total = total.Add(w.Balance.Mul(cur.Rate))
	}
	return TotalBalance{
		Total:       total.Round(DisplayPrecision),
		Currency:    q.currencies.Default().Code,
		WalletCount: len(wallets),
	}, nil
}

// Statistics computes wallet counts plus settled movement totals from the
// ledger.
func (q *QueryService) Statistics(ctx context.Context, ownerID string, kind OwnerKind) (Statistics, error) {
	wallets, err := q.repo.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalWallets: len(wallets),
		BaseCurrency: q.currencies.Default().Code,
		FiatBalance:  decimal.Zero,
	}
	total := decimal.Zero
	for _, w := range wallets {
		if w.Active() {
			stats.ActiveWallets++
		} else {
			stats.InactiveWallets++
		}
		cur, err := q.currencies.Resolve(w.CurrencyCode)
		if err != nil {
			continue
		}
		total = total.Add(w.Balance.Mul(cur.Rate))
		switch cur.Type {
		case currency.TypeFiat:
			stats.FiatWallets++
			stats.FiatBalance = stats.FiatBalance.Add(w.Balance)
		case currency.TypeCrypto:
			stats.CryptoWallets++
			if w.Balance.Sign() > 0 {
				stats.CryptoWalletsWithBalance++
			}
		}
	}
	stats.TotalBalance = total.Round(DisplayPrecision)

	base := ledger.Filter{OwnerID: ownerID, OwnerKind: string(kind), Status: ledger.StatusSuccess}
	sums := []struct {
		dst    *decimal.Decimal
		filter ledger.Filter
	}{
		{&stats.TotalAddMoney, ledger.Filter{OwnerID: base.OwnerID, OwnerKind: base.OwnerKind, Status: base.Status, Type: ledger.TypeAddMoney}},
		{&stats.TotalWithdraw, ledger.Filter{OwnerID: base.OwnerID, OwnerKind: base.OwnerKind, Status: base.Status, Type: ledger.TypeWithdraw}},
		{&stats.TotalSent, ledger.Filter{OwnerID: base.OwnerID, OwnerKind: base.OwnerKind, Status: base.Status, Type: ledger.TypeTransfer, Attribute: ledger.AttributeSend}},
		{&stats.TotalReceived, ledger.Filter{OwnerID: base.OwnerID, OwnerKind: base.OwnerKind, Status: base.Status, Type: ledger.TypeTransfer, Attribute: ledger.AttributeReceive}},
	}
	for _, s := range sums {
		v, err := q.recorder.Sum(ctx, s.filter)
		if err != nil {
			return Statistics{}, err
		}
		*s.dst = v.Round(DisplayPrecision)
	}
	return stats, nil
}

// History returns one page of the owner's ledger history, optionally filtered
// by currency (via the wallet for that currency) and entry type.
func (q *QueryService) History(ctx context.Context, ownerID string, kind OwnerKind, currencyCode, entryType string, page, limit int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := ledger.Filter{OwnerID: ownerID, OwnerKind: string(kind), Type: entryType}
	if currencyCode != "" {
		// An unknown currency just yields an unfiltered page, mirroring the
		// tolerant read-path behavior.
		if w, err := q.repo.Get(ctx, ownerID, kind, currencyCode); err == nil {
			filter.WalletID = w.ID
		}
	}

	entries, total, err := q.recorder.List(ctx, filter, page, limit)
	if err != nil {
		return HistoryPage{}, err
	}
	totalPages := (total + limit - 1) / limit
	return HistoryPage{
		Entries: entries,
		Pagination: Pagination{
			Total:       total,
			PerPage:     limit,
			CurrentPage: page,
			TotalPages:  totalPages,
			HasMore:     page*limit < total,
		},
	}, nil
}

// FormatWallet renders a wallet view, substituting defaults when the currency
// row is missing.
func (q *QueryService) FormatWallet(w Wallet) View {
	view := View{
		ID:               w.ID,
		CurrencyCode:     "N/A",
		CurrencyName:     "N/A",
		CurrencySymbol:   "",
		CurrencyType:     string(currency.TypeFiat),
		Balance:          w.Balance.Round(StoragePrecision),
		AvailableBalance: w.Available().Round(StoragePrecision),
		ReservedBalance:  w.ReservedBalance.Round(StoragePrecision),
		Status:           w.Status,
		Rate:             decimal.NewFromInt(1),
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
	code := ""
	if cur, err := q.currencies.Resolve(w.CurrencyCode); err == nil {
		view.CurrencyCode = cur.Code
		view.CurrencyName = cur.Name
		view.CurrencySymbol = cur.Symbol
		view.CurrencyType = string(cur.Type)
		view.Rate = cur.Rate
		view.Flag = cur.Flag
		code = cur.Code
	}
	view.FormattedBalance = fmt.Sprintf("%s %s", w.Balance.StringFixed(DisplayPrecision), code)
	return view
}
