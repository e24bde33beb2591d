package telephony

import (
	"testing"

	"outreach-dialer/internal/leads"
)

func TestDefaultOutcomeMap(t *testing.T) {
	m := DefaultOutcomeMap()
	cases := map[string]leads.Status{
		"booked":          leads.StatusAppointmentBooked,
		"NO_ANSWER":       leads.StatusNoAnswer,
		" declined ":      leads.StatusNotInterested,
		"human_requested": leads.StatusLiveTransfer,
		"mystery":         leads.StatusUnclassified,
	}
	for in, want := range cases {
		if got := m.Map(in); got != want {
			t.Fatalf("Map(%q) = %q, want %q", in, got, want)
		}
	}
	for k, v := range m.Outcomes {
		if !v.Valid() || v == leads.StatusCallingInProgress {
			t.Fatalf("outcome %q maps to unusable status %q", k, v)
		}
	}
}

func TestParseOutcomeMap_Overrides(t *testing.T) {
	raw := []byte(`
outcomes:
  Dnc_Requested: not_eligible
  booked: potential_appointment
fallback: needs_review
`)
	m, err := parseOutcomeMap(DefaultOutcomeMap(), raw)
	if err != nil {
		t.Fatalf("parseOutcomeMap: %v", err)
	}
	if m.Map("dnc_requested") != leads.StatusNotEligible {
		t.Fatalf("expected added key")
	}
	if m.Map("booked") != leads.StatusPotentialAppointment {
		t.Fatalf("expected overridden key")
	}
	if m.Map("whatever") != leads.StatusNeedsReview {
		t.Fatalf("expected overridden fallback")
	}
}

func TestParseOutcomeMap_RejectsInFlightStatus(t *testing.T) {
	raw := []byte("outcomes:\n  ringing: calling_in_progress\n")
	if _, err := parseOutcomeMap(DefaultOutcomeMap(), raw); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := parseOutcomeMap(DefaultOutcomeMap(), []byte("fallback: bogus\n")); err == nil {
		t.Fatalf("expected error for unknown fallback")
	}
}

func TestLoadOutcomeMap_EmptyPathIsDefault(t *testing.T) {
	m, err := LoadOutcomeMap("")
	if err != nil {
		t.Fatalf("LoadOutcomeMap: %v", err)
	}
	if m.Map("busy") != leads.StatusNoAnswer {
		t.Fatalf("expected defaults")
	}
}
