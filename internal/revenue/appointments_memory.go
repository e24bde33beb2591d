package revenue

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryAppointments struct {
	mu    sync.Mutex
	items map[string]Appointment
}

func NewMemoryAppointments() *MemoryAppointments {
	return &MemoryAppointments{items: map[string]Appointment{}}
}

func (r *MemoryAppointments) Get(_ context.Context, accountID, id string) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.AccountID != accountID {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryAppointments) Create(_ context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = a
	return nil
}

func (r *MemoryAppointments) Update(_ context.Context, a Appointment, prev time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[a.ID]
	if !ok || !cur.UpdatedAt.Equal(prev) {
		return false, nil
	}
	r.items[a.ID] = a
	return true, nil
}

func (r *MemoryAppointments) ListByAccount(_ context.Context, accountID string, limit int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.items {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.After(out[j].ScheduledFor) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
