// Package dialer runs the per-account call-attempt state machine.
//
// Every operation is invoked from outside (HTTP command, provider callback,
// relay loop, sweep). Nothing here owns a goroutine.
package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"outreach-dialer/internal/admission"
	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/pricing"
	"outreach-dialer/internal/relay"
	"outreach-dialer/internal/routing"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/internal/wallet"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
	"outreach-dialer/pkg/phone"
)

var (
	ErrAlreadyRunning    = errors.New("dialer already running")
	ErrInvalidTransition = errors.New("invalid dialer status transition")
)

// Admitter runs the balance and budget gates.
type Admitter interface {
	Check(ctx context.Context, req admission.Request) (admission.Decision, error)
}

// Wallet is the slice of wallet.Service the dialer writes through.
type Wallet interface {
	EnsureExists(ctx context.Context, accountID string) (bool, error)
	ChargeCall(ctx context.Context, accountID, callID, currency string, costMinor int64) (wallet.Balance, error)
}

type Pricer interface {
	DailyBudget(ctx context.Context, accountID string, dailyCallLimit int) (int64, error)
	CalculateCallCost(ctx context.Context, accountID string, durationSeconds int, at time.Time) (pricing.CallCost, error)
}

type Auditor interface {
	Record(ctx context.Context, e audit.Event, metadata any) error
}

// Guard is an optional cross-process mutex around DispatchNext for one account.
type Guard interface {
	Acquire(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type DayResolver interface {
	Now() time.Time
	Today() string
	ValidTimezone(tz string) bool
}

type Deps struct {
	States   StateRepository
	Leads    leads.Repository
	Calls    calls.Repository
	Admitter Admitter
	Wallet   Wallet
	Pricing  Pricer
	Provider telephony.CallProvider
	Origins  *routing.Selector
	Outcomes telephony.OutcomeMap
	Notifier relay.Notifier
	Audit    Auditor
	Days     DayResolver
	// Guard may be nil.
	Guard Guard
	// Region is the default region for parsing lead phone numbers.
	Region         string
	DefaultAgentID string
}

type Service struct {
	Deps
	filter   *leads.Filter
	validate *validator.Validate
}

func NewService(d Deps) (*Service, error) {
	switch {
	case d.States == nil, d.Leads == nil, d.Calls == nil:
		return nil, errors.New("dialer: repositories are required")
	case d.Admitter == nil, d.Wallet == nil, d.Pricing == nil:
		return nil, errors.New("dialer: admission, wallet and pricing are required")
	case d.Provider == nil, d.Days == nil:
		return nil, errors.New("dialer: provider and day resolver are required")
	}
	if d.Origins == nil {
		d.Origins = routing.NewSelector(nil)
	}
	if d.Outcomes.Outcomes == nil {
		d.Outcomes = telephony.DefaultOutcomeMap()
	}
	if d.Notifier == nil {
		d.Notifier = relay.NoopNotifier{}
	}
	if d.Region == "" {
		d.Region = phone.DefaultRegion
	}
	return &Service{Deps: d, filter: leads.NewFilter(d.Leads, d.Days), validate: validator.New()}, nil
}

func (s *Service) check(op string, v any) error {
	if err := s.validate.Struct(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, op, err.Error(), err)
	}
	return nil
}

// load returns the account's state, creating the default one on first use.
func (s *Service) load(ctx context.Context, accountID string) (State, error) {
	st, err := s.States.Get(ctx, accountID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return State{}, err
	}
	if _, err := s.States.CreateIfAbsent(ctx, DefaultState(accountID, s.Days.Now().UTC())); err != nil {
		return State{}, err
	}
	return s.States.Get(ctx, accountID)
}

func (s *Service) transition(st *State, to SessionStatus, reason string) error {
	if !st.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.Status, to)
	}
	st.Status = to
	st.LastReason = reason
	return nil
}

func (s *Service) save(ctx context.Context, st State) error {
	st.UpdatedAt = s.Days.Now().UTC()
	return s.States.Save(ctx, st)
}

func (s *Service) admissionRequest(ctx context.Context, st State) (admission.Request, error) {
	budget, err := s.Pricing.DailyBudget(ctx, st.AccountID, st.DailyCallLimit)
	if err != nil {
		return admission.Request{}, fmt.Errorf("daily budget: %w", err)
	}
	return admission.Request{
		AccountID:         st.AccountID,
		DailyBudgetMinor:  budget,
		TodaySpendMinor:   st.TodaySpendMinor,
		SpendDay:          st.SpendDay,
		OverrideRemaining: st.Override.Remaining(),
	}, nil
}

func (s *Service) record(ctx context.Context, e audit.Event, metadata any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, e, metadata); err != nil {
		logger.From(ctx).Warn("audit write failed", "type", e.Type, "account_id", e.AccountID, "err", err)
	}
}

func (s *Service) notifyStarted(ctx context.Context, st State, trigger string) {
	err := s.Notifier.SessionStarted(ctx, relay.SessionStarted{
		AccountID:   st.AccountID,
		AgentID:     s.agentFor(st),
		QueueLength: st.QueueLength,
		Trigger:     trigger,
		StartedAt:   s.Days.Now().UTC(),
	})
	if err != nil {
		logger.From(ctx).Error("relay notify failed", "account_id", st.AccountID, "err", err)
	}
}

func (s *Service) agentFor(st State) string {
	if st.AgentID != "" {
		return st.AgentID
	}
	return s.DefaultAgentID
}

// State returns the account's dialer state, bootstrapping it if absent.
func (s *Service) State(ctx context.Context, accountID string) (State, error) {
	if accountID == "" {
		return State{}, apperr.Validation("dialer.state", "account id is required")
	}
	return s.load(ctx, accountID)
}

func logFor(ctx context.Context, accountID string) *slog.Logger {
	return logger.From(ctx).With("account_id", accountID)
}
