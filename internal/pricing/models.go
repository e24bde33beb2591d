package pricing

import "time"

// Amounts are minor units (cents) using int64.

// MinutePricing is an account's outbound calling rate.
type MinutePricing struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`

	// RatePerMinuteMinor is charged per billable minute, prorated by the increment.
	RatePerMinuteMinor int64 `json:"rate_per_minute_minor"`

	// BillingIncrementSeconds (e.g., 60 for per-minute, 1 for per-second billing).
	BillingIncrementSeconds int `json:"billing_increment_seconds"`

	// MinimumBillableSeconds applies only to answered calls (duration > 0).
	MinimumBillableSeconds int `json:"minimum_billable_seconds"`

	// EstimatedMinutesPerCall converts a daily call limit into a spend budget.
	EstimatedMinutesPerCall int `json:"estimated_minutes_per_call"`

	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`

	Status PricingStatus `json:"status"`
}

func (p MinutePricing) activeAt(at time.Time) bool {
	if p.Status != PricingStatusActive {
		return false
	}
	if at.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || at.Before(*p.EffectiveTo)
}

type PricingStatus string

const (
	PricingStatusActive   PricingStatus = "active"
	PricingStatusInactive PricingStatus = "inactive"
)
