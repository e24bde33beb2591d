package dialer

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("dialer state not found")

// StateRepository persists AccountDialerState.
//
// Save writes every field except the spend counter; spend only moves through
// AccrueSpend so a concurrent callback is never overwritten by a stale read.
type StateRepository interface {
	Get(ctx context.Context, accountID string) (State, error)
	CreateIfAbsent(ctx context.Context, s State) (bool, error)
	Save(ctx context.Context, s State) error

	// AccrueSpend adds amount to the spend of day, restarting the counter when
	// the stored spend_day is an earlier day.
	AccrueSpend(ctx context.Context, accountID, day string, amountMinor int64) (State, error)

	// ClearCurrentCall clears the call pointers only while they still point at callID.
	ClearCurrentCall(ctx context.Context, accountID, callID string) (bool, error)

	// ResetIfDirty forces the stopped shape (pointers, queue and override
	// cleared). It writes nothing when the state already has that shape.
	ResetIfDirty(ctx context.Context, accountID string) (bool, error)

	ListAutoStart(ctx context.Context) ([]State, error)
}
