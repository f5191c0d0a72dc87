package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chibank/wallet-core/internal/currency"
	"github.com/chibank/wallet-core/internal/ledger"
	"github.com/chibank/wallet-core/internal/notification"
	"github.com/chibank/wallet-core/internal/wallet"
)

// Input identifies both sides of a movement by (owner, kind, currency). Same
// owner on both sides is an internal wallet-to-wallet conversion; different
// owners is a cross-owner payment.
type Input struct {
	FromOwnerID   string
	FromOwnerKind wallet.OwnerKind
	FromCurrency  string
	ToOwnerID     string
	ToOwnerKind   wallet.OwnerKind
	ToCurrency    string
	Amount        decimal.Decimal
	// Reference, when supplied by the caller, becomes the transaction id so
	// double submits can be deduplicated downstream. The engine itself does
	// not deduplicate.
	Reference string
	Remark    string
}

// Leg describes one side of a completed transfer.
type Leg struct {
	WalletID     string          `json:"wallet_id"`
	CurrencyCode string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	NewBalance   decimal.Decimal `json:"new_balance"`
}

// Result reports a completed transfer, amounts rounded to 8 decimals.
type Result struct {
	TransactionID  string          `json:"transaction_id"`
	From           Leg             `json:"from_wallet"`
	To             Leg             `json:"to_wallet"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// Engine performs atomic, possibly cross-currency transfers between two
// wallets of the same or different owners.
type Engine struct {
	repo       wallet.Repository
	currencies *currency.Registry
	notifier   notification.Notifier
}

// NewEngine constructs the transfer engine.
func NewEngine(repo wallet.Repository, currencies *currency.Registry, notifier notification.Notifier) *Engine {
	return &Engine{repo: repo, currencies: currencies, notifier: notifier}
}

// Transfer validates, locks both wallets in a fixed order, converts the
// amount and moves the funds, emitting a SEND and a RECEIVE ledger entry that
// share one transaction id. Any failure after locking rolls the whole
// operation back.
func (e *Engine) Transfer(ctx context.Context, input Input) (Result, error) {
	if input.Amount.Sign() <= 0 {
		return Result{}, wallet.ErrInvalidAmount
	}

	fromCur, err := e.currencies.Resolve(input.FromCurrency)
	if err != nil {
		return Result{}, err
	}
	toCur, err := e.currencies.Resolve(input.ToCurrency)
	if err != nil {
		return Result{}, err
	}

	fromWallet, err := e.repo.Get(ctx, input.FromOwnerID, input.FromOwnerKind, fromCur.Code)
	if err != nil {
		return Result{}, err
	}
	toWallet, err := e.repo.Get(ctx, input.ToOwnerID, input.ToOwnerKind, toCur.Code)
	if err != nil {
		return Result{}, err
	}
	if fromWallet.ID == toWallet.ID {
		return Result{}, wallet.ErrInvalidAmount
	}
	if !fromWallet.Active() || !toWallet.Active() {
		return Result{}, wallet.ErrInactive
	}

	// Optimistic pre-check for a fast user-facing error. The authoritative
	// check happens again under the locks.
	if fromWallet.Available().LessThan(input.Amount) {
		return Result{}, wallet.ErrInsufficientFunds
	}

	rate := decimal.NewFromInt(1)
	converted := input.Amount
	if fromCur.Code != toCur.Code {
		rate = fromCur.Rate.Div(toCur.Rate)
		converted = input.Amount.Mul(rate).Round(wallet.StoragePrecision)
	}

	trxID := input.Reference
	if trxID == "" {
		trxID = uuid.NewString()
	}

	var result Result
	err = e.repo.Mutate(ctx, []string{fromWallet.ID, toWallet.ID}, func(ws []*wallet.Wallet) ([]ledger.Entry, error) {
		from, to := ws[0], ws[1]

		if err := wallet.ApplyDebit(from, input.Amount); err != nil {
			return nil, err
		}
		if err := wallet.ApplyCredit(to, converted); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		remark := input.Remark
		if remark == "" {
			remark = fmt.Sprintf("Transfer %s %s to %s wallet", input.Amount.StringFixed(wallet.DisplayPrecision), fromCur.Code, toCur.Code)
		}

		entries := []ledger.Entry{
			{
				ID:                   uuid.NewString(),
				TransactionID:        trxID,
				WalletID:             from.ID,
				OwnerID:              from.OwnerID,
				OwnerKind:            string(from.OwnerKind),
				CounterpartyWalletID: to.ID,
				Type:                 ledger.TypeTransfer,
				Attribute:            ledger.AttributeSend,
				RequestAmount:        input.Amount.Round(wallet.StoragePrecision),
				Payable:              input.Amount.Round(wallet.StoragePrecision),
				AvailableBalance:     from.Available(),
				Status:               ledger.StatusSuccess,
				Remark:               remark,
				CreatedAt:            now,
			},
			{
				ID:                   uuid.NewString(),
				TransactionID:        trxID,
				WalletID:             to.ID,
				OwnerID:              to.OwnerID,
				OwnerKind:            string(to.OwnerKind),
				CounterpartyWalletID: from.ID,
				Type:                 ledger.TypeTransfer,
				Attribute:            ledger.AttributeReceive,
				RequestAmount:        converted,
				Payable:              converted,
				AvailableBalance:     to.Available(),
				Status:               ledger.StatusSuccess,
				Remark:               remark,
				CreatedAt:            now,
			},
		}

		result = Result{
			TransactionID: trxID,
			From: Leg{
				WalletID:     from.ID,
				CurrencyCode: fromCur.Code,
				Amount:       input.Amount.Round(wallet.StoragePrecision),
				NewBalance:   from.Balance.Round(wallet.StoragePrecision),
			},
			To: Leg{
				WalletID:     to.ID,
				CurrencyCode: toCur.Code,
				Amount:       converted,
				NewBalance:   to.Balance.Round(wallet.StoragePrecision),
			},
			ConversionRate: rate.Round(wallet.StoragePrecision),
			CompletedAt:    now,
		}
		return entries, nil
	})
	if err != nil {
		return Result{}, err
	}

	if e.notifier != nil {
		_ = e.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWalletTransfer,
			Destination: input.ToOwnerID,
			Body: fmt.Sprintf("You received %s %s from wallet %s",
				result.To.Amount.StringFixed(wallet.DisplayPrecision), result.To.CurrencyCode, result.From.WalletID),
		})
	}

	return result, nil
}
