package pricing

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory RateRepository for tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	Minute []MinutePricing
}

func (r *MemoryRepo) Add(p MinutePricing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Minute = append(r.Minute, p)
}

func (r *MemoryRepo) FindMinutePricing(_ context.Context, accountID string, at time.Time) (MinutePricing, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Prefer the most recent effective pricing row.
	var best MinutePricing
	found := false
	for _, p := range r.Minute {
		if p.AccountID != accountID || !p.activeAt(at) {
			continue
		}
		if !found || p.EffectiveFrom.After(best.EffectiveFrom) {
			best = p
			found = true
		}
	}
	return best, found, nil
}
