package leads

import (
	"errors"
	"time"
)

// MaxTotalCalls is the lifetime attempt cap. A lead at or above it is never callable again.
const MaxTotalCalls = 20

// Status is the closed set of lead states.
type Status string

const (
	StatusNew                  Status = "new"
	StatusCallingInProgress    Status = "calling_in_progress"
	StatusNoAnswer             Status = "no_answer"
	StatusCallbackLater        Status = "callback_later"
	StatusUnclassified         Status = "unclassified"
	StatusPotentialAppointment Status = "potential_appointment"
	StatusNeedsReview          Status = "needs_review"
	StatusNotInterested        Status = "not_interested"
	StatusAppointmentBooked    Status = "appointment_booked"
	StatusLiveTransfer         Status = "live_transfer"
	StatusNotEligible          Status = "not_eligible"
)

// AllStatuses lists every Status. Tests check each one is classified.
func AllStatuses() []Status {
	return []Status{
		StatusNew,
		StatusCallingInProgress,
		StatusNoAnswer,
		StatusCallbackLater,
		StatusUnclassified,
		StatusPotentialAppointment,
		StatusNeedsReview,
		StatusNotInterested,
		StatusAppointmentBooked,
		StatusLiveTransfer,
		StatusNotEligible,
	}
}

type statusClass int

const (
	classUnknown statusClass = iota
	classCallable
	classInFlight
	classTerminal
)

func (s Status) class() statusClass {
	switch s {
	case StatusNew, StatusNoAnswer, StatusCallbackLater, StatusUnclassified,
		StatusPotentialAppointment, StatusNeedsReview:
		return classCallable
	case StatusCallingInProgress:
		return classInFlight
	case StatusNotInterested, StatusAppointmentBooked, StatusLiveTransfer, StatusNotEligible:
		return classTerminal
	default:
		return classUnknown
	}
}

func (s Status) Valid() bool { return s.class() != classUnknown }

// Callable reports whether the status admits a new attempt.
func (s Status) Callable() bool { return s.class() == classCallable }

func (s Status) Terminal() bool { return s.class() == classTerminal }

// RetryableSameDay is true for statuses exempt from the once-per-day rule.
func (s Status) RetryableSameDay() bool { return s == StatusNeedsReview }

var ErrUnknownStatus = errors.New("unknown lead status")

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", ErrUnknownStatus
	}
	return s, nil
}

// OutcomeResetCleanup tags leads released by the recovery procedure.
const OutcomeResetCleanup = "reset_cleanup"

type Lead struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	SourceID          string    `json:"source_id"`
	Name              string    `json:"name,omitempty"`
	Phone             string    `json:"phone"`
	Qualified         bool      `json:"qualified"`
	Status            Status    `json:"status"`
	TotalCallsMade    int       `json:"total_calls_made"`
	CallAttemptsToday int       `json:"call_attempts_today"`
	LastAttemptDate   string    `json:"last_attempt_date,omitempty"`
	LastOutcome       string    `json:"last_outcome,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AttemptsOn returns the attempts made on day. The stored counter only
// counts when last_attempt_date is that day.
func (l Lead) AttemptsOn(day string) int {
	if l.LastAttemptDate != day {
		return 0
	}
	return l.CallAttemptsToday
}

func (l Lead) AttemptedOn(day string) bool { return l.LastAttemptDate == day }

func (l Lead) CapReached() bool { return l.TotalCallsMade >= MaxTotalCalls }

// Source is a lead list (an imported sheet). Only active sources feed the dialer.
type Source struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
