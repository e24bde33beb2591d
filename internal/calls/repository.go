package calls

import (
	"context"
	"errors"
	"time"

	"outreach-dialer/internal/leads"
)

var ErrNotFound = errors.New("call not found")

type Repository interface {
	Create(ctx context.Context, c Call) error
	Get(ctx context.Context, callID string) (Call, error)

	// Complete records the provider outcome. first is false when the call was
	// already completed (a redelivered callback); the stored row is returned unchanged.
	// An outcome set by Correct is kept.
	Complete(ctx context.Context, callID string, in Completion) (c Call, first bool, err error)

	// Correct overwrites the recorded outcome after the fact.
	Correct(ctx context.Context, callID string, outcome leads.Status) (Call, error)

	// MarkReset moves the account's dispatched calls for leadIDs to reset.
	MarkReset(ctx context.Context, accountID string, leadIDs []string) (int, error)

	ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]Call, error)
}
