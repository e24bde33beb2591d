package wallet

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("balance not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository persists balances and their transaction log.
type Repository interface {
	Get(ctx context.Context, accountID string) (Balance, error)

	// CreateIfAbsent inserts b unless a balance already exists. It never
	// overwrites and reports whether a row was created.
	CreateIfAbsent(ctx context.Context, b Balance) (bool, error)

	// Post appends t and applies t.AmountMinor to the balance atomically.
	// A repeated idempotency key returns the current balance and applied=false.
	Post(ctx context.Context, t Transaction) (b Balance, applied bool, err error)

	// UpdateAutoRefill also clears RefillFailedAt.
	UpdateAutoRefill(ctx context.Context, accountID string, s AutoRefillSettings) (Balance, error)

	// SetRefillFailure stores at as RefillFailedAt; nil clears it.
	SetRefillFailure(ctx context.Context, accountID string, at *time.Time) error

	ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)
}
