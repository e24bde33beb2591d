package wallet

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	balances map[string]Balance
	txns     []Transaction
	keys     map[string]bool
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{balances: map[string]Balance{}, keys: map[string]bool{}}
}

func (r *MemoryRepo) Put(b Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[b.AccountID] = b
}

func (r *MemoryRepo) Get(_ context.Context, accountID string) (Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) CreateIfAbsent(_ context.Context, b Balance) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[b.AccountID]; ok {
		return false, nil
	}
	r.balances[b.AccountID] = b
	return true, nil
}

func (r *MemoryRepo) Post(_ context.Context, t Transaction) (Balance, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := t.AccountID + "|" + t.IdempotencyKey
	if r.keys[k] {
		return r.balances[t.AccountID], false, nil
	}
	b, ok := r.balances[t.AccountID]
	if !ok {
		b = DefaultBalance(t.AccountID, t.CreatedAt)
		b.Currency = t.Currency
	}
	b.BalanceMinor += t.AmountMinor
	b.UpdatedAt = t.CreatedAt
	r.balances[t.AccountID] = b
	r.txns = append(r.txns, t)
	r.keys[k] = true
	return b, true, nil
}

func (r *MemoryRepo) UpdateAutoRefill(_ context.Context, accountID string, s AutoRefillSettings) (Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	b.AutoRefillEnabled = s.Enabled
	b.AutoRefillAmountMinor = s.AmountMinor
	b.AutoRefillThresholdMinor = s.ThresholdMinor
	b.Instrument = s.Instrument
	b.RefillFailedAt = nil
	r.balances[accountID] = b
	return b, nil
}

func (r *MemoryRepo) SetRefillFailure(_ context.Context, accountID string, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[accountID]
	if !ok {
		return ErrNotFound
	}
	b.RefillFailedAt = at
	r.balances[accountID] = b
	return nil
}

func (r *MemoryRepo) ListTransactions(_ context.Context, accountID string, limit int) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, t := range r.txns {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
