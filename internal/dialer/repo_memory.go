package dialer

import (
	"context"
	"slices"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{states: map[string]State{}}
}

func clone(s State) State {
	s.Schedule.Days = slices.Clone(s.Schedule.Days)
	s.Origins = slices.Clone(s.Origins)
	if s.Override.StartedAt != nil {
		t := *s.Override.StartedAt
		s.Override.StartedAt = &t
	}
	return s
}

func (r *MemoryRepo) Get(_ context.Context, accountID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[accountID]
	if !ok {
		return State{}, ErrNotFound
	}
	return clone(s), nil
}

func (r *MemoryRepo) CreateIfAbsent(_ context.Context, s State) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[s.AccountID]; ok {
		return false, nil
	}
	r.states[s.AccountID] = clone(s)
	return true, nil
}

func (r *MemoryRepo) Save(_ context.Context, s State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.states[s.AccountID]; ok {
		s.TodaySpendMinor = prev.TodaySpendMinor
		s.SpendDay = prev.SpendDay
	}
	r.states[s.AccountID] = clone(s)
	return nil
}

func (r *MemoryRepo) AccrueSpend(_ context.Context, accountID, day string, amountMinor int64) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[accountID]
	if !ok {
		return State{}, ErrNotFound
	}
	if s.SpendDay != day {
		s.TodaySpendMinor = 0
		s.SpendDay = day
	}
	s.TodaySpendMinor += amountMinor
	r.states[accountID] = s
	return clone(s), nil
}

func (r *MemoryRepo) ClearCurrentCall(_ context.Context, accountID, callID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[accountID]
	if !ok || callID == "" || s.CurrentCallID != callID {
		return false, nil
	}
	s.CurrentCallID = ""
	s.CurrentLeadID = ""
	r.states[accountID] = s
	return true, nil
}

func (r *MemoryRepo) ResetIfDirty(_ context.Context, accountID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[accountID]
	if !ok || s.Clean() {
		return false, nil
	}
	s.resetShape()
	r.states[accountID] = s
	return true, nil
}

func (r *MemoryRepo) ListAutoStart(_ context.Context) ([]State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, s := range r.states {
		if s.AutoStartEnabled {
			out = append(out, clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}
