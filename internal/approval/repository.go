package approval

import (
	"context"
	"time"
)

// Repository persists enterprise wallets and their approval requests.
// Requests are keyed by a unique transaction reference.
type Repository interface {
	CreateWallet(ctx context.Context, w EnterpriseWallet) error
	GetWallet(ctx context.Context, id string) (EnterpriseWallet, error)
	ListWallets(ctx context.Context, ownerID string) ([]EnterpriseWallet, error)
	UpdateWallet(ctx context.Context, w EnterpriseWallet) error

	CreateRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, walletID, status string) ([]Request, error)
	// UpdateRequest writes r only when r.Version still matches the stored
	// row, returning ErrStaleRequest otherwise.
	UpdateRequest(ctx context.Context, r Request) error
	// ListExpiredPending returns pending requests whose expiry is at or
	// before now, for the background sweep.
	ListExpiredPending(ctx context.Context, now time.Time) ([]Request, error)
}
