package reporting

import (
	"time"

	"outreach-dialer/internal/leads"
)

// SummaryRequest selects one account over [From, To).
// Revenue uses the account-local days covering the window.
type SummaryRequest struct {
	AccountID string    `json:"account_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

type CallsSummary struct {
	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	InFlightCalls   int `json:"in_flight_calls"`
	ResetCalls      int `json:"reset_calls"`
	BypassedCalls   int `json:"budget_bypassed_calls"`
	CorrectedCalls  int `json:"corrected_calls"`
	BookedOutcomes  int `json:"appointments_booked"`
	TransferOutcome int `json:"live_transfers"`

	Outcomes map[leads.Status]int `json:"outcomes"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// SpendSummary is derived from the balance transaction log, never from call rows.
type SpendSummary struct {
	Currency         string `json:"currency"`
	CallChargesMinor int64  `json:"call_charges_minor"`
	RefillsMinor     int64  `json:"refills_minor"`
	AdjustmentsMinor int64  `json:"adjustments_minor"`
	NetDeltaMinor    int64  `json:"net_delta_minor"`
}

type RevenueSummary struct {
	FromDay    string       `json:"from_day"`
	ToDay      string       `json:"to_day"`
	TotalMinor int64        `json:"total_minor"`
	Days       []DayRevenue `json:"days"`
}

type DayRevenue struct {
	Day         string `json:"day"`
	AmountMinor int64  `json:"amount_minor"`
}

type Summary struct {
	AccountID string         `json:"account_id"`
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	Calls     CallsSummary   `json:"calls"`
	Spend     SpendSummary   `json:"spend"`
	Revenue   RevenueSummary `json:"revenue"`

	// BookingRate is appointments booked per completed call.
	BookingRate float64 `json:"booking_rate"`
	// CostPerBookingMinor is zero when nothing was booked.
	CostPerBookingMinor int64 `json:"cost_per_booking_minor"`
}
