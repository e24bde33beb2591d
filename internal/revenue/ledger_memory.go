package revenue

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryLedger struct {
	mu      sync.Mutex
	entries map[[2]string]LedgerEntry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: map[[2]string]LedgerEntry{}}
}

func (l *MemoryLedger) Add(_ context.Context, accountID, day string, delta int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := [2]string{accountID, day}
	e := l.entries[k]
	e.AccountID, e.Day = accountID, day
	e.AmountMinor += delta
	e.UpdatedAt = time.Now().UTC()
	l.entries[k] = e
	return e.AmountMinor, nil
}

func (l *MemoryLedger) Get(_ context.Context, accountID, day string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[[2]string{accountID, day}].AmountMinor, nil
}

func (l *MemoryLedger) Range(_ context.Context, accountID, from, to string) ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LedgerEntry
	for k, e := range l.entries {
		if k[0] == accountID && k[1] >= from && k[1] <= to {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}
