package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDuplicateEntry indicates an entry with the same id was already recorded.
var ErrDuplicateEntry = errors.New("ledger entry already recorded")

// Entry types mirror the transaction kinds of the surrounding platform.
const (
	TypeAddMoney = "add_money"
	TypeWithdraw = "withdraw"
	TypeTransfer = "transfer_money"
	TypePayment  = "payment"
)

// Attributes mark which side of a movement an entry records.
const (
	AttributeSend    = "send"
	AttributeReceive = "receive"
)

// Entry statuses. Entries are otherwise immutable; the originating flow may
// later promote pending to success, which is the only permitted update.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
)

// Entry is one immutable record of a balance-affecting event.
type Entry struct {
	ID                   string
	TransactionID        string
	WalletID             string
	OwnerID              string
	OwnerKind            string
	CounterpartyWalletID string
	Type                 string
	Attribute            string
	RequestAmount        decimal.Decimal
	Payable              decimal.Decimal
	AvailableBalance     decimal.Decimal
	Status               string
	Remark               string
	CreatedAt            time.Time
}

// Filter narrows listing and aggregation queries. Zero fields match everything.
type Filter struct {
	TransactionID string
	WalletID      string
	OwnerID       string
	OwnerKind     string
	Type          string
	Attribute     string
	Status        string
}

// Matches reports whether the entry satisfies the filter.
func (f Filter) Matches(e Entry) bool {
	if f.TransactionID != "" && e.TransactionID != f.TransactionID {
		return false
	}
	if f.WalletID != "" && e.WalletID != f.WalletID {
		return false
	}
	if f.OwnerID != "" && e.OwnerID != f.OwnerID {
		return false
	}
	if f.OwnerKind != "" && e.OwnerKind != f.OwnerKind {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Attribute != "" && e.Attribute != f.Attribute {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}

// Recorder appends and reads immutable transaction records. List returns
// entries newest first together with the total match count; Sum aggregates
// request amounts for statistics.
type Recorder interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter, page, limit int) ([]Entry, int, error)
	Sum(ctx context.Context, filter Filter) (decimal.Decimal, error)
}
