package calls

import (
	"context"
	"testing"
	"time"

	"outreach-dialer/internal/leads"
)

func TestMemoryRepo_CompleteOnlyOnce(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_ = r.Create(ctx, Call{CallID: "c1", AccountID: "a1", LeadID: "l1", Status: CallStatusDispatched, CreatedAt: at})

	c, first, err := r.Complete(ctx, "c1", Completion{Outcome: leads.StatusNoAnswer, DurationSeconds: 0, At: at})
	if err != nil || !first {
		t.Fatalf("expected first completion, got %v %v", first, err)
	}
	if c.Status != CallStatusCompleted || c.CompletedAt == nil {
		t.Fatalf("unexpected call %+v", c)
	}

	c, first, err = r.Complete(ctx, "c1", Completion{Outcome: leads.StatusAppointmentBooked, DurationSeconds: 90, At: at})
	if err != nil || first {
		t.Fatalf("expected repeat completion to be ignored, got %v %v", first, err)
	}
	if c.Outcome != leads.StatusNoAnswer {
		t.Fatalf("stored outcome must not change on redelivery, got %q", c.Outcome)
	}
}

func TestMemoryRepo_MarkResetOnlyDispatched(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	_ = r.Create(ctx, Call{CallID: "c1", AccountID: "a1", LeadID: "l1", Status: CallStatusDispatched})
	_ = r.Create(ctx, Call{CallID: "c2", AccountID: "a1", LeadID: "l2", Status: CallStatusCompleted})

	n, err := r.MarkReset(ctx, "a1", []string{"l1", "l2"})
	if err != nil || n != 1 {
		t.Fatalf("expected one reset, got %d %v", n, err)
	}
	n, _ = r.MarkReset(ctx, "a1", []string{"l1", "l2"})
	if n != 0 {
		t.Fatalf("second reset should be a no-op, got %d", n)
	}
}
