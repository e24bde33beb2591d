package dialer

import (
	"time"

	"outreach-dialer/internal/dayclock"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/routing"
)

// SessionStatus is the account-level dialing status.
type SessionStatus string

const (
	StatusIdle          SessionStatus = "idle"
	StatusRunning       SessionStatus = "running"
	StatusPausedBudget  SessionStatus = "paused-budget"
	StatusPausedBalance SessionStatus = "paused-balance"
	StatusNoLeads       SessionStatus = "no-leads"
	StatusStopped       SessionStatus = "stopped"
)

func AllStatuses() []SessionStatus {
	return []SessionStatus{StatusIdle, StatusRunning, StatusPausedBudget, StatusPausedBalance, StatusNoLeads, StatusStopped}
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusPausedBudget, StatusPausedBalance, StatusNoLeads, StatusStopped:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows s -> to.
// idle is only ever the initial status; running cannot be re-entered while running.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	if !to.Valid() || to == StatusIdle {
		return false
	}
	switch s {
	case StatusIdle, StatusPausedBudget, StatusPausedBalance, StatusNoLeads, StatusStopped:
		return true
	case StatusRunning:
		return to != StatusRunning
	}
	return false
}

// Schedule is an auto-start window in the account's own timezone.
type Schedule struct {
	Days []time.Weekday `json:"days" validate:"dive,min=0,max=6"`
	// StartMinute and EndMinute are minutes after local midnight. EndMinute 0 means "until midnight".
	StartMinute int    `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute   int    `json:"end_minute" validate:"min=0,max=1440"`
	Timezone    string `json:"timezone"`
}

// Matches reports whether the local clock falls inside the window.
func (s Schedule) Matches(c dayclock.Clock) bool {
	dayOK := false
	for _, d := range s.Days {
		if d == c.Weekday {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}
	end := s.EndMinute
	if end == 0 {
		end = 24 * 60
	}
	return c.Minute >= s.StartMinute && c.Minute < end
}

// Override is an operator-authorized batch of attempts that bypass the budget gate.
type Override struct {
	Active         bool       `json:"active"`
	LeadsRemaining int        `json:"leads_remaining"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// Remaining returns the attempts left in an active batch.
func (o Override) Remaining() int {
	if !o.Active || o.LeadsRemaining < 0 {
		return 0
	}
	return o.LeadsRemaining
}

// State is one account's dialer state.
//
// CurrentCallID is an advisory marker for the call in flight. TodaySpendMinor
// only counts when SpendDay equals the canonical day.
type State struct {
	AccountID     string        `json:"account_id"`
	Status        SessionStatus `json:"status"`
	CurrentCallID string        `json:"current_call_id,omitempty"`
	CurrentLeadID string        `json:"current_lead_id,omitempty"`
	QueueLength   int           `json:"queue_length"`

	DailyCallLimit int      `json:"daily_call_limit"`
	Schedule       Schedule `json:"schedule"`
	Override       Override `json:"override"`

	AutoStartEnabled bool                     `json:"auto_start_enabled"`
	TargetLeadCount  int                      `json:"target_lead_count"`
	AgentID          string                   `json:"agent_id,omitempty"`
	Origins          []routing.WeightedOrigin `json:"origins"`
	Ordering         leads.Ordering           `json:"ordering"`

	TodaySpendMinor int64  `json:"today_spend_minor"`
	SpendDay        string `json:"spend_day,omitempty"`

	LastReason string    `json:"last_reason,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	DefaultDailyCallLimit  = 100
	DefaultTargetLeadCount = 50

	MaxStartLimit    = 500
	MaxOverrideLeads = 100
)

func DefaultState(accountID string, now time.Time) State {
	return State{
		AccountID:       accountID,
		Status:          StatusIdle,
		DailyCallLimit:  DefaultDailyCallLimit,
		TargetLeadCount: DefaultTargetLeadCount,
		Ordering:        leads.OrderFreshFirst,
		UpdatedAt:       now,
	}
}

// Clean reports whether the state already has the shape Reset produces.
func (s State) Clean() bool {
	return s.Status == StatusStopped && s.CurrentCallID == "" && s.CurrentLeadID == "" &&
		s.QueueLength == 0 && !s.Override.Active && s.Override.LeadsRemaining == 0
}

// resetShape clears everything Reset and EmergencyStop clear.
func (s *State) resetShape() {
	s.Status = StatusStopped
	s.CurrentCallID = ""
	s.CurrentLeadID = ""
	s.QueueLength = 0
	s.Override = Override{}
}
