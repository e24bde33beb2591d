package telephony

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"outreach-dialer/internal/leads"
)

// OutcomeMap translates the provider's outcome vocabulary into lead statuses.
// Keys are matched case-insensitively. Unknown outcomes map to Fallback.
type OutcomeMap struct {
	Outcomes map[string]leads.Status `yaml:"outcomes"`
	Fallback leads.Status            `yaml:"fallback"`
}

func DefaultOutcomeMap() OutcomeMap {
	return OutcomeMap{
		Outcomes: map[string]leads.Status{
			"booked":                leads.StatusAppointmentBooked,
			"appointment_booked":    leads.StatusAppointmentBooked,
			"no_answer":             leads.StatusNoAnswer,
			"voicemail":             leads.StatusNoAnswer,
			"busy":                  leads.StatusNoAnswer,
			"failed":                leads.StatusNoAnswer,
			"declined":              leads.StatusNotInterested,
			"not_interested":        leads.StatusNotInterested,
			"transfer":              leads.StatusLiveTransfer,
			"human_requested":       leads.StatusLiveTransfer,
			"callback":              leads.StatusCallbackLater,
			"callback_requested":    leads.StatusCallbackLater,
			"potential_appointment": leads.StatusPotentialAppointment,
			"needs_review":          leads.StatusNeedsReview,
			"not_eligible":          leads.StatusNotEligible,
			"wrong_number":          leads.StatusNotEligible,
		},
		Fallback: leads.StatusUnclassified,
	}
}

// Map returns the lead status for a provider outcome.
func (m OutcomeMap) Map(outcome string) leads.Status {
	if s, ok := m.Outcomes[strings.ToLower(strings.TrimSpace(outcome))]; ok {
		return s
	}
	return m.Fallback
}

// LoadOutcomeMap reads a YAML file and layers it over the defaults.
// An empty path returns the defaults.
func LoadOutcomeMap(path string) (OutcomeMap, error) {
	m := DefaultOutcomeMap()
	if path == "" {
		return m, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return OutcomeMap{}, fmt.Errorf("read outcome map: %w", err)
	}
	return parseOutcomeMap(m, raw)
}

func parseOutcomeMap(base OutcomeMap, raw []byte) (OutcomeMap, error) {
	var file OutcomeMap
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return OutcomeMap{}, fmt.Errorf("parse outcome map: %w", err)
	}
	for k, v := range file.Outcomes {
		if !v.Valid() || v == leads.StatusCallingInProgress {
			return OutcomeMap{}, fmt.Errorf("outcome %q maps to unusable status %q", k, v)
		}
		base.Outcomes[strings.ToLower(k)] = v
	}
	if file.Fallback != "" {
		if !file.Fallback.Valid() || file.Fallback == leads.StatusCallingInProgress {
			return OutcomeMap{}, fmt.Errorf("fallback maps to unusable status %q", file.Fallback)
		}
		base.Fallback = file.Fallback
	}
	return base, nil
}
