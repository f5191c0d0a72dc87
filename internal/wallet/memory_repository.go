package wallet

import (
	"context"
	"sort"
	"time"

	"github.com/chibank/wallet-core/internal/ledger"
)

const defaultLockWait = 2 * time.Second

type memoryRepository struct {
	// mu guards the maps; per-wallet locks serialize mutations.
	mu       chan struct{}
	wallets  map[string]Wallet
	locks    map[string]chan struct{}
	recorder ledger.Recorder
	lockWait time.Duration
}

// NewMemoryRepository constructs an in-memory repository for tests and dev
// mode. Ledger entries returned by mutations are appended to recorder.
// A non-positive lockWait falls back to the default.
func NewMemoryRepository(recorder ledger.Recorder, lockWait time.Duration) Repository {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	r := &memoryRepository{
		mu:       make(chan struct{}, 1),
		wallets:  make(map[string]Wallet),
		locks:    make(map[string]chan struct{}),
		recorder: recorder,
		lockWait: lockWait,
	}
	return r
}

func (r *memoryRepository) lockMaps() { r.mu <- struct{}{} }

func (r *memoryRepository) unlockMaps() { <-r.mu }

func (r *memoryRepository) Create(_ context.Context, w Wallet) error {
	r.lockMaps()
	defer r.unlockMaps()

	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.OwnerKind == w.OwnerKind && existing.CurrencyCode == w.CurrencyCode {
			return ErrExists
		}
	}
	if _, taken := r.wallets[w.ID]; taken {
		return ErrExists
	}
	r.wallets[w.ID] = w
	r.locks[w.ID] = make(chan struct{}, 1)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, ownerID string, kind OwnerKind, currencyCode string) (Wallet, error) {
	r.lockMaps()
	defer r.unlockMaps()

	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.OwnerKind == kind && w.CurrencyCode == currencyCode {
			return w, nil
		}
	}
	return Wallet{}, ErrNotFound
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (Wallet, error) {
	r.lockMaps()
	defer r.unlockMaps()

	w, ok := r.wallets[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerID string, kind OwnerKind) ([]Wallet, error) {
	r.lockMaps()
	defer r.unlockMaps()

	var out []Wallet
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.OwnerKind == kind {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Balance.Cmp(out[j].Balance); c != 0 {
			return c > 0
		}
		return out[i].CurrencyCode < out[j].CurrencyCode
	})
	return out, nil
}

func (r *memoryRepository) Mutate(ctx context.Context, ids []string, fn MutateFunc) error {
	// Aborting is free until the first lock is taken.
	if err := ctx.Err(); err != nil {
		return err
	}

	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)
	ordered = dedupe(ordered)

	r.lockMaps()
	lockChans := make([]chan struct{}, 0, len(ordered))
	for _, id := range ordered {
		lc, ok := r.locks[id]
		if !ok {
			r.unlockMaps()
			return ErrNotFound
		}
		lockChans = append(lockChans, lc)
	}
	r.unlockMaps()

	// Locks are taken in ascending id order with a bounded wait so symmetric
	// concurrent transfers cannot deadlock or hang.
	deadline := time.NewTimer(r.lockWait)
	defer deadline.Stop()
	acquired := 0
	for _, lc := range lockChans {
		select {
		case lc <- struct{}{}:
			acquired++
		case <-deadline.C:
			for i := 0; i < acquired; i++ {
				<-lockChans[i]
			}
			return ErrConcurrentModification
		}
	}
	defer func() {
		for _, lc := range lockChans {
			<-lc
		}
	}()

	// Re-read authoritative state under the wallet locks. fn sees wallets in
	// the caller's requested order regardless of lock order.
	r.lockMaps()
	byID := make(map[string]*Wallet, len(ordered))
	for _, id := range ordered {
		w := r.wallets[id]
		cp := w
		byID[id] = &cp
	}
	r.unlockMaps()

	snapshot := make([]*Wallet, len(ids))
	for i, id := range ids {
		snapshot[i] = byID[id]
	}

	entries, err := fn(snapshot)
	if err != nil {
		return err
	}

	// Record entries before publishing balances so a recorder failure leaves
	// the wallets untouched, matching the transactional Postgres path.
	for _, entry := range entries {
		if err := r.recorder.Append(ctx, entry); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	r.lockMaps()
	for _, w := range snapshot {
		w.UpdatedAt = now
		r.wallets[w.ID] = *w
	}
	r.unlockMaps()
	return nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, id := range sorted {
		if i == 0 || sorted[i-1] != id {
			out = append(out, id)
		}
	}
	return out
}
