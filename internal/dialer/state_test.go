package dialer

import (
	"testing"
	"time"

	"outreach-dialer/internal/dayclock"
)

func TestCanTransition_Exhaustive(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			got := from.CanTransition(to)
			want := to != StatusIdle && !(from == StatusRunning && to == StatusRunning)
			if got != want {
				t.Fatalf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
		if from.CanTransition("bogus") {
			t.Fatalf("%s -> bogus must be rejected", from)
		}
	}
	if SessionStatus("bogus").CanTransition(StatusStopped) {
		t.Fatalf("unknown status must not transition")
	}
}

func TestSchedule_Matches(t *testing.T) {
	s := Schedule{Days: []time.Weekday{time.Monday, time.Wednesday}, StartMinute: 9 * 60, EndMinute: 17 * 60}
	cases := []struct {
		clock dayclock.Clock
		want  bool
	}{
		{dayclock.Clock{Weekday: time.Monday, Minute: 9 * 60}, true},
		{dayclock.Clock{Weekday: time.Monday, Minute: 17 * 60}, false},
		{dayclock.Clock{Weekday: time.Monday, Minute: 8*60 + 59}, false},
		{dayclock.Clock{Weekday: time.Tuesday, Minute: 10 * 60}, false},
	}
	for _, c := range cases {
		if got := s.Matches(c.clock); got != c.want {
			t.Fatalf("Matches(%+v) = %v, want %v", c.clock, got, c.want)
		}
	}

	allDay := Schedule{Days: []time.Weekday{time.Sunday}}
	if !allDay.Matches(dayclock.Clock{Weekday: time.Sunday, Minute: 23*60 + 59}) {
		t.Fatalf("end 0 should cover the whole day")
	}
}

func TestMemoryRepo_AccrueSpendRestartsOnNewDay(t *testing.T) {
	r := NewMemoryRepo()
	ctx := t.Context()
	_, _ = r.CreateIfAbsent(ctx, DefaultState("a", time.Now()))

	_, _ = r.AccrueSpend(ctx, "a", "2026-03-10", 30)
	st, _ := r.AccrueSpend(ctx, "a", "2026-03-10", 20)
	if st.TodaySpendMinor != 50 {
		t.Fatalf("expected 50, got %d", st.TodaySpendMinor)
	}
	st, _ = r.AccrueSpend(ctx, "a", "2026-03-11", 5)
	if st.TodaySpendMinor != 5 || st.SpendDay != "2026-03-11" {
		t.Fatalf("expected restart on new day, got %+v", st)
	}

	// Save never rewinds the counter.
	stale := DefaultState("a", time.Now())
	_ = r.Save(ctx, stale)
	st, _ = r.Get(ctx, "a")
	if st.TodaySpendMinor != 5 {
		t.Fatalf("Save overwrote spend: %d", st.TodaySpendMinor)
	}
}
