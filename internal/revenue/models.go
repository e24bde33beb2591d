package revenue

import (
	"errors"
	"time"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusSold        AppointmentStatus = "sold"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusCancelled   AppointmentStatus = "cancelled"
)

var ErrUnknownStatus = errors.New("unknown appointment status")

func ParseStatus(v string) (AppointmentStatus, error) {
	switch s := AppointmentStatus(v); s {
	case StatusScheduled, StatusRescheduled, StatusCompleted, StatusSold, StatusNoShow, StatusCancelled:
		return s, nil
	}
	return "", ErrUnknownStatus
}

// Appointment is a booked meeting that may end in a sale.
//
// SoldDay is the account-local day the sale was recorded under; every later
// correction is booked against that day, not against today.
type Appointment struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	LeadID    string            `json:"lead_id"`
	Status    AppointmentStatus `json:"status"`

	IsSold                bool       `json:"is_sold"`
	RecurringPaymentMinor int64      `json:"recurring_payment_minor"`
	SoldAt                *time.Time `json:"sold_at,omitempty"`
	SoldDay               string     `json:"sold_day,omitempty"`

	ScheduledFor time.Time `json:"scheduled_for"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MonthsPerYear annualizes a monthly recurring payment.
const MonthsPerYear = 12

func Annualized(recurringMinor int64) int64 { return recurringMinor * MonthsPerYear }

// LedgerEntry is the revenue booked for one account on one account-local day.
type LedgerEntry struct {
	AccountID   string    `json:"account_id" dynamodbav:"account_id"`
	Day         string    `json:"day" dynamodbav:"day"`
	AmountMinor int64     `json:"amount_minor" dynamodbav:"amount_minor"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
