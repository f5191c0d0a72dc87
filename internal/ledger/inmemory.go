package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inMemoryRecorder struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]struct{}
}

// NewInMemory creates a concurrency-safe in-memory recorder used by tests and
// dev mode.
func NewInMemory() Recorder {
	return &inMemoryRecorder{byID: make(map[string]struct{})}
}

func (r *inMemoryRecorder) Append(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if _, exists := r.byID[entry.ID]; exists {
		return ErrDuplicateEntry
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.byID[entry.ID] = struct{}{}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *inMemoryRecorder) List(_ context.Context, filter Filter, page, limit int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Newest first: entries are appended in order, so walk backwards.
	var matched []Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filter.Matches(r.entries[i]) {
			matched = append(matched, r.entries[i])
		}
	}

	total := len(matched)
	skip := (page - 1) * limit
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	out := make([]Entry, end-skip)
	copy(out, matched[skip:end])
	return out, total, nil
}

func (r *inMemoryRecorder) Sum(_ context.Context, filter Filter) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, e := range r.entries {
		if filter.Matches(e) {
			total = total.Add(e.RequestAmount)
		}
	}
	return total, nil
}
