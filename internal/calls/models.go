package calls

import (
	"time"

	"outreach-dialer/internal/leads"
)

// Call is one outbound attempt placed with the voice provider.
// CallID is the provider's identifier, returned synchronously on dispatch.
//
// Money invariant reminder: the charge for a call lives in the balance
// transaction log with external_ref = call_id, not on this row.
type Call struct {
	CallID    string `json:"call_id"`
	AccountID string `json:"account_id"`
	LeadID    string `json:"lead_id"`
	AgentID   string `json:"agent_id,omitempty"`

	From string `json:"from"`
	To   string `json:"to"`

	Status CallStatus `json:"status"`

	// Outcome is the lead status the call resolved to (after mapping or correction).
	Outcome         leads.Status `json:"outcome,omitempty"`
	ProviderOutcome string       `json:"provider_outcome,omitempty"`
	// Corrected is set when an operator overrode the reported outcome.
	Corrected bool `json:"corrected"`

	DurationSeconds int   `json:"duration_seconds"`
	CostMinor       int64 `json:"cost_minor"`
	// BudgetBypassed marks attempts admitted by an override batch.
	BudgetBypassed bool `json:"budget_bypassed"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type CallStatus string

const (
	CallStatusDispatched CallStatus = "dispatched"
	CallStatusCompleted  CallStatus = "completed"
	// CallStatusReset marks an attempt cleared by stuck-state recovery before its callback arrived.
	CallStatusReset CallStatus = "reset"
)

// Completion is what the provider reported for a call.
type Completion struct {
	Outcome         leads.Status
	ProviderOutcome string
	DurationSeconds int
	CostMinor       int64
	At              time.Time
}
