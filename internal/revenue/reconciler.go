// Package revenue books annualized sale value per account-local day and
// keeps the ledger right when a sale is corrected later.
package revenue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"outreach-dialer/internal/audit"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
)

// Timezones resolves an account's configured timezone.
type Timezones interface {
	AccountTimezone(ctx context.Context, accountID string) (string, error)
}

// TimezoneFunc adapts a function to Timezones.
type TimezoneFunc func(ctx context.Context, accountID string) (string, error)

func (f TimezoneFunc) AccountTimezone(ctx context.Context, accountID string) (string, error) {
	return f(ctx, accountID)
}

type DayResolver interface {
	Now() time.Time
	LocalDay(t time.Time, tz string) (string, error)
}

type Auditor interface {
	Record(ctx context.Context, e audit.Event, metadata any) error
}

type Reconciler struct {
	appts     AppointmentRepository
	ledger    LedgerStore
	timezones Timezones
	days      DayResolver
	audit     Auditor
}

func NewReconciler(appts AppointmentRepository, ledger LedgerStore, tz Timezones, days DayResolver, a Auditor) *Reconciler {
	return &Reconciler{appts: appts, ledger: ledger, timezones: tz, days: days, audit: a}
}

type TransitionRequest struct {
	AccountID             string
	AppointmentID         string
	Status                string
	RecurringPaymentMinor int64
	Actor                 string
}

// LedgerMove is one ledger write made by a transition.
type LedgerMove struct {
	Day        string `json:"day"`
	DeltaMinor int64  `json:"delta_minor"`
	TotalMinor int64  `json:"total_minor"`
}

type TransitionResult struct {
	Appointment Appointment  `json:"appointment"`
	Moves       []LedgerMove `json:"ledger_moves"`
}

// Transition changes an appointment's status and books the revenue effect.
//
//   - sold, not sold before: add the annualized amount on today's local day.
//   - sold again with a different amount: subtract the old amount on the
//     original sold day, add the new amount today.
//   - sold again with the same amount: status only.
//   - any other status on a sold appointment: subtract on the original sold
//     day and clear the sale.
func (r *Reconciler) Transition(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	const op = "revenue.transition"
	if req.AccountID == "" || req.AppointmentID == "" {
		return TransitionResult{}, apperr.Validation(op, "account and appointment ids are required")
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		return TransitionResult{}, apperr.Wrap(apperr.KindValidation, op, err.Error(), err)
	}
	if status == StatusSold && req.RecurringPaymentMinor <= 0 {
		return TransitionResult{}, apperr.Validation(op, "a sale needs a positive recurring payment")
	}

	prev, err := r.appts.Get(ctx, req.AccountID, req.AppointmentID)
	if errors.Is(err, ErrNotFound) {
		return TransitionResult{}, apperr.Wrap(apperr.KindNotFound, op, "appointment not found", err)
	}
	if err != nil {
		return TransitionResult{}, err
	}

	now := r.days.Now().UTC()
	next := prev
	next.Status = status
	next.UpdatedAt = now

	type move struct {
		day   string
		delta int64
	}
	var moves []move

	switch {
	case status == StatusSold && prev.IsSold && prev.RecurringPaymentMinor == req.RecurringPaymentMinor:
		// Same sale restated.
	case status == StatusSold:
		tz, err := r.timezones.AccountTimezone(ctx, req.AccountID)
		if err != nil {
			return TransitionResult{}, fmt.Errorf("account timezone: %w", err)
		}
		today, err := r.days.LocalDay(now, tz)
		if err != nil {
			return TransitionResult{}, err
		}
		if prev.IsSold {
			moves = append(moves, move{prev.SoldDay, -Annualized(prev.RecurringPaymentMinor)})
		}
		moves = append(moves, move{today, Annualized(req.RecurringPaymentMinor)})
		next.IsSold = true
		next.RecurringPaymentMinor = req.RecurringPaymentMinor
		next.SoldAt = &now
		next.SoldDay = today
	case prev.IsSold:
		moves = append(moves, move{prev.SoldDay, -Annualized(prev.RecurringPaymentMinor)})
		next.IsSold = false
		next.RecurringPaymentMinor = 0
		next.SoldAt = nil
		next.SoldDay = ""
	}

	ok, err := r.appts.Update(ctx, next, prev.UpdatedAt)
	if err != nil {
		return TransitionResult{}, err
	}
	if !ok {
		return TransitionResult{}, apperr.Conflict(op, "appointment changed concurrently, reload and retry")
	}

	log := logger.From(ctx).With("account_id", req.AccountID, "appointment_id", req.AppointmentID)
	out := TransitionResult{Appointment: next}
	for _, m := range moves {
		total, err := r.ledger.Add(ctx, req.AccountID, m.day, m.delta)
		if err != nil {
			// The appointment row is already written; this line is the repair handle.
			log.Error("ledger write failed after appointment update", "day", m.day, "delta_minor", m.delta, "err", err)
			return out, apperr.Wrap(apperr.KindInternal, op, "ledger write failed", err)
		}
		out.Moves = append(out.Moves, LedgerMove{Day: m.day, DeltaMinor: m.delta, TotalMinor: total})
		r.verify(ctx, req.AccountID, m.day, total)
	}

	if r.audit != nil && len(moves) > 0 {
		if err := r.audit.Record(ctx, audit.Event{
			AccountID: req.AccountID, Type: audit.EventTypeRevenue, Actor: req.Actor,
			LeadID: prev.LeadID, Message: "appointment " + string(status),
		}, out.Moves); err != nil {
			log.Warn("audit write failed", "err", err)
		}
	}
	log.Info("appointment transitioned", "from", prev.Status, "to", status, "ledger_moves", len(out.Moves))
	return out, nil
}

// verify reads the entry back and logs a mismatch. It never changes the outcome.
func (r *Reconciler) verify(ctx context.Context, accountID, day string, want int64) {
	got, err := r.ledger.Get(ctx, accountID, day)
	log := logger.From(ctx).With("account_id", accountID, "day", day)
	switch {
	case err != nil:
		log.Warn("ledger read-back failed", "err", err)
	case got != want:
		// A concurrent writer landed between Add and Get.
		log.Warn("ledger read-back mismatch", "returned_minor", want, "read_minor", got)
	}
}

type CreateAppointment struct {
	AccountID    string
	LeadID       string
	ScheduledFor time.Time
}

// Create books a new scheduled appointment.
func (r *Reconciler) Create(ctx context.Context, in CreateAppointment) (Appointment, error) {
	if in.AccountID == "" || in.LeadID == "" || in.ScheduledFor.IsZero() {
		return Appointment{}, apperr.Validation("revenue.create", "account, lead and time are required")
	}
	now := r.days.Now().UTC()
	a := Appointment{
		ID:           uuid.NewString(),
		AccountID:    in.AccountID,
		LeadID:       in.LeadID,
		Status:       StatusScheduled,
		ScheduledFor: in.ScheduledFor.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.appts.Create(ctx, a); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (r *Reconciler) Get(ctx context.Context, accountID, id string) (Appointment, error) {
	a, err := r.appts.Get(ctx, accountID, id)
	if errors.Is(err, ErrNotFound) {
		return Appointment{}, apperr.Wrap(apperr.KindNotFound, "revenue.get", "appointment not found", err)
	}
	return a, err
}

func (r *Reconciler) List(ctx context.Context, accountID string, limit int) ([]Appointment, error) {
	return r.appts.ListByAccount(ctx, accountID, limit)
}

// Ledger returns the account's daily totals between two local days inclusive.
func (r *Reconciler) Ledger(ctx context.Context, accountID, from, to string) ([]LedgerEntry, error) {
	return r.ledger.Range(ctx, accountID, from, to)
}
