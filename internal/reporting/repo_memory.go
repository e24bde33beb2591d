package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/wallet"
)

// MemoryRepo is an in-memory Repository for tests. Reads are account-scoped.
type MemoryRepo struct {
	mu sync.Mutex

	Calls        []calls.Call
	Transactions []wallet.Transaction
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *MemoryRepo) ListCalls(_ context.Context, accountID string, from, to time.Time) ([]calls.Call, error) {
	if accountID == "" {
		return nil, errors.New("account_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Call, 0)
	for _, c := range r.Calls {
		if c.AccountID == accountID && inWindow(c.CreatedAt, from, to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListTransactions(_ context.Context, accountID string, from, to time.Time) ([]wallet.Transaction, error) {
	if accountID == "" {
		return nil, errors.New("account_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wallet.Transaction, 0)
	for _, t := range r.Transactions {
		if t.AccountID == accountID && inWindow(t.CreatedAt, from, to) {
			out = append(out, t)
		}
	}
	return out, nil
}
