package approval

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	wallets  map[string]EnterpriseWallet
	requests map[string]Request
	byRef    map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests and dev
// mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		wallets:  make(map[string]EnterpriseWallet),
		requests: make(map[string]Request),
		byRef:    make(map[string]string),
	}
}

func (r *memoryRepository) CreateWallet(_ context.Context, w EnterpriseWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.WalletName == w.WalletName {
			return ErrWalletExists
		}
	}
	r.wallets[w.ID] = w
	return nil
}

func (r *memoryRepository) GetWallet(_ context.Context, id string) (EnterpriseWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return EnterpriseWallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (r *memoryRepository) ListWallets(_ context.Context, ownerID string) ([]EnterpriseWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []EnterpriseWallet
	for _, w := range r.wallets {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletName < out[j].WalletName })
	return out, nil
}

func (r *memoryRepository) UpdateWallet(_ context.Context, w EnterpriseWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.ID]; !ok {
		return ErrWalletNotFound
	}
	r.wallets[w.ID] = w
	return nil
}

func (r *memoryRepository) CreateRequest(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byRef[req.TransactionReference]; taken {
		return ErrDuplicateReference
	}
	r.requests[req.ID] = req
	r.byRef[req.TransactionReference] = req.ID
	return nil
}

func (r *memoryRepository) GetRequest(_ context.Context, id string) (Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	return req, nil
}

func (r *memoryRepository) ListRequests(_ context.Context, walletID, status string) ([]Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Request
	for _, req := range r.requests {
		if walletID != "" && req.WalletID != walletID {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) UpdateRequest(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok {
		return ErrRequestNotFound
	}
	// A write carrying a stale version lost the race against another signer.
	if stored.Version != req.Version {
		return ErrStaleRequest
	}
	req.Version++
	r.requests[req.ID] = req
	return nil
}

func (r *memoryRepository) ListExpiredPending(_ context.Context, now time.Time) ([]Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Request
	for _, req := range r.requests {
		if req.Status == StatusPending && req.IsExpired(now) {
			out = append(out, req)
		}
	}
	return out, nil
}
