package currency

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound indicates the requested currency code is unknown or disabled.
var ErrNotFound = errors.New("currency not found")

// Registry is a read-only snapshot of the supported currencies. Exactly one
// enabled currency must be marked default; anything else is a configuration
// fault and construction fails.
type Registry struct {
	repo Repository

	mu      sync.RWMutex
	byCode  map[string]Currency
	def     Currency
}

// NewRegistry loads the currency table and validates the default invariant.
func NewRegistry(ctx context.Context, repo Repository) (*Registry, error) {
	r := &Registry{repo: repo}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload refreshes the snapshot from the repository.
func (r *Registry) Reload(ctx context.Context) error {
	currencies, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load currencies: %w", err)
	}

	byCode := make(map[string]Currency, len(currencies))
	var defaults []Currency
	for _, cur := range currencies {
		// Rates divide during conversion, so a non-positive rate can never
		// be served.
		if cur.Enabled && cur.Rate.Sign() <= 0 {
			return fmt.Errorf("currency %s has non-positive rate %s", cur.Code, cur.Rate)
		}
		byCode[strings.ToUpper(cur.Code)] = cur
		if cur.Default && cur.Enabled {
			defaults = append(defaults, cur)
		}
	}
	if len(defaults) != 1 {
		return fmt.Errorf("expected exactly one default currency, found %d", len(defaults))
	}

	r.mu.Lock()
	r.byCode = byCode
	r.def = defaults[0]
	r.mu.Unlock()
	return nil
}

// Resolve returns the enabled currency for the given code. Codes are matched
// case-insensitively.
func (r *Registry) Resolve(code string) (Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur, ok := r.byCode[strings.ToUpper(code)]
	if !ok || !cur.Enabled {
		return Currency{}, ErrNotFound
	}
	return cur, nil
}

// ListEnabled returns enabled currencies ordered by name. An empty type
// returns all of them.
func (r *Registry) ListEnabled(t Type) []Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Currency
	for _, cur := range r.byCode {
		if !cur.Enabled {
			continue
		}
		if t != "" && cur.Type != t {
			continue
		}
		out = append(out, cur)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns the base currency.
func (r *Registry) Default() Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}
