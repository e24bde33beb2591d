package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"outreach-dialer/internal/leads"
)

type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: map[string]Call{}}
}

func (r *MemoryRepo) Create(_ context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[c.CallID] = c
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, callID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Complete(_ context.Context, callID string, in Completion) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, false, ErrNotFound
	}
	if c.Status == CallStatusCompleted {
		return c, false, nil
	}
	at := in.At
	c.Status = CallStatusCompleted
	if !c.Corrected {
		c.Outcome = in.Outcome
	}
	c.ProviderOutcome = in.ProviderOutcome
	c.DurationSeconds = in.DurationSeconds
	c.CostMinor = in.CostMinor
	c.CompletedAt = &at
	c.UpdatedAt = at
	r.calls[callID] = c
	return c, true, nil
}

func (r *MemoryRepo) Correct(_ context.Context, callID string, outcome leads.Status) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return Call{}, ErrNotFound
	}
	c.Outcome = outcome
	c.Corrected = true
	c.UpdatedAt = time.Now().UTC()
	r.calls[callID] = c
	return c, nil
}

func (r *MemoryRepo) MarkReset(_ context.Context, accountID string, leadIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range leadIDs {
		want[id] = true
	}
	n := 0
	for id, c := range r.calls {
		if c.AccountID == accountID && c.Status == CallStatusDispatched && want[c.LeadID] {
			c.Status = CallStatusReset
			c.Outcome = leads.StatusNoAnswer
			r.calls[id] = c
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ListByAccount(_ context.Context, accountID string, from, to time.Time) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.AccountID != accountID {
			continue
		}
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
