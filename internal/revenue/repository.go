package revenue

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("appointment not found")

type AppointmentRepository interface {
	Get(ctx context.Context, accountID, id string) (Appointment, error)
	Create(ctx context.Context, a Appointment) error
	// Update writes a only while the stored row still has updated_at == prev.
	// false means someone else changed the appointment first.
	Update(ctx context.Context, a Appointment, prev time.Time) (bool, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Appointment, error)
}

// LedgerStore keeps per-account, per-day revenue totals.
//
// Add is an atomic increment that returns the new total; stores never do a
// read-modify-write from the application.
type LedgerStore interface {
	Add(ctx context.Context, accountID, day string, deltaMinor int64) (int64, error)
	Get(ctx context.Context, accountID, day string) (int64, error)
	// Range returns entries with from <= day <= to, ordered by day.
	Range(ctx context.Context, accountID, from, to string) ([]LedgerEntry, error)
}
