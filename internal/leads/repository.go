package leads

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("lead not found")

// Repository is the lead store used by the filter, the dialer and recovery.
// Every write is a single-row or single-statement conditional update.
type Repository interface {
	Reader

	Get(ctx context.Context, accountID, leadID string) (Lead, error)

	// Claim moves a lead from `from` to calling_in_progress. false means the
	// lead was no longer in `from` (claimed or changed concurrently).
	Claim(ctx context.Context, accountID, leadID string, from Status) (bool, error)

	// Release undoes a Claim when dispatch failed. Only applies while the lead
	// is still calling_in_progress.
	Release(ctx context.Context, accountID, leadID string, to Status) (bool, error)

	// RecordAttempt bumps total_calls_made and the day-scoped attempt counter.
	RecordAttempt(ctx context.Context, accountID, leadID, day string) (Lead, error)

	// SetOutcome writes a reported or corrected status.
	SetOutcome(ctx context.Context, accountID, leadID string, status Status, outcome string) (Lead, error)

	// SetOutcomeAfterReset writes a late provider outcome only while the lead
	// still carries the reset_cleanup marker ReleaseStuck left on it. false
	// means the lead moved on (claimed again, corrected or re-dialed).
	SetOutcomeAfterReset(ctx context.Context, accountID, leadID string, status Status, outcome string) (bool, error)

	// ReleaseStuck moves every calling_in_progress lead of the account to
	// no_answer with the given outcome tag and returns the released ids.
	ReleaseStuck(ctx context.Context, accountID, outcome string) ([]string, error)
}
