package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - account_id is required for tenancy isolation.
// - audit writes are best-effort; callers log failures and carry on.
type Event struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	Type EventType `json:"type" db:"type"`

	// Actor is the authenticated subject, or "system" for sweeps and callbacks.
	Actor     string `json:"actor,omitempty" db:"actor"`
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	LeadID string `json:"lead_id,omitempty" db:"lead_id"`
	CallID string `json:"call_id,omitempty" db:"call_id"`

	Message string `json:"message,omitempty" db:"message"`
	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCommand           EventType = "command"
	EventTypeOverride          EventType = "override"
	EventTypeResetCleanup      EventType = "reset_cleanup"
	EventTypeOutcomeCorrection EventType = "outcome_correction"
	EventTypeRefill            EventType = "refill"
	EventTypeAutoStart         EventType = "auto_start"
	EventTypeRevenue           EventType = "revenue"
)

const ActorSystem = "system"
