package leads

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a Repository for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	sources map[string]Source
	leads   map[string]Lead
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		sources: map[string]Source{},
		leads:   map[string]Lead{},
		now:     time.Now,
	}
}

func (r *MemoryRepo) PutSource(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.ID] = s
}

func (r *MemoryRepo) PutLead(l Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = r.now()
	}
	r.leads[l.ID] = l
}

func (r *MemoryRepo) ListSources(_ context.Context, accountID string) ([]Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Source
	for _, s := range r.sources {
		if s.AccountID == accountID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListBySources(_ context.Context, accountID string, sourceIDs []string) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		want[id] = true
	}
	var out []Lead
	for _, l := range r.leads {
		if l.AccountID == accountID && want[l.SourceID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, accountID, leadID string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok || l.AccountID != accountID {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) Claim(_ context.Context, accountID, leadID string, from Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok || l.AccountID != accountID || l.Status != from {
		return false, nil
	}
	l.Status = StatusCallingInProgress
	l.UpdatedAt = r.now()
	r.leads[leadID] = l
	return true, nil
}

func (r *MemoryRepo) Release(_ context.Context, accountID, leadID string, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok || l.AccountID != accountID || l.Status != StatusCallingInProgress {
		return false, nil
	}
	l.Status = to
	l.UpdatedAt = r.now()
	r.leads[leadID] = l
	return true, nil
}

func (r *MemoryRepo) RecordAttempt(_ context.Context, accountID, leadID, day string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok || l.AccountID != accountID {
		return Lead{}, ErrNotFound
	}
	l.TotalCallsMade++
	l.CallAttemptsToday = l.AttemptsOn(day) + 1
	l.LastAttemptDate = day
	l.UpdatedAt = r.now()
	r.leads[leadID] = l
	return l, nil
}

func (r *MemoryRepo) SetOutcome(_ context.Context, accountID, leadID string, status Status, outcome string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok || l.AccountID != accountID {
		return Lead{}, ErrNotFound
	}
	l.Status = status
	l.LastOutcome = outcome
	l.UpdatedAt = r.now()
	r.leads[leadID] = l
	return l, nil
}

func (r *MemoryRepo) SetOutcomeAfterReset(_ context.Context, accountID, leadID string, status Status, outcome string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[leadID]
	if !ok || l.AccountID != accountID || l.Status != StatusNoAnswer || l.LastOutcome != OutcomeResetCleanup {
		return false, nil
	}
	l.Status = status
	l.LastOutcome = outcome
	l.UpdatedAt = r.now()
	r.leads[leadID] = l
	return true, nil
}

func (r *MemoryRepo) ReleaseStuck(_ context.Context, accountID, outcome string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, l := range r.leads {
		if l.AccountID != accountID || l.Status != StatusCallingInProgress {
			continue
		}
		l.Status = StatusNoAnswer
		l.LastOutcome = outcome
		l.UpdatedAt = r.now()
		r.leads[id] = l
		ids = append(ids, id)
	}
	return ids, nil
}
