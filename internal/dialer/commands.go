package dialer

import (
	"context"

	"outreach-dialer/internal/admission"
	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/relay"
	"outreach-dialer/internal/routing"
	"outreach-dialer/pkg/apperr"
)

// Actor identifies who issued a command, for the audit trail.
type Actor struct {
	Subject string
	Role    string
}

type StartCommand struct {
	AccountID string `validate:"required"`
	Limit     int    `validate:"min=1,max=500"`
	Trigger   string
	Actor     Actor
}

// StartResult reports the status the account ended in. A gated start is not
// an error: Status carries the paused/no-leads status and Reason says why.
type StartResult struct {
	Status      SessionStatus      `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	QueueLength int                `json:"queue_length"`
	Admission   admission.Decision `json:"admission"`
	Diagnosis   *leads.Diagnosis   `json:"diagnosis,omitempty"`
}

// Start moves the account to running when admission passes and there is at
// least one callable lead, then notifies the workflow relay.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (StartResult, error) {
	const op = "dialer.start"
	if err := s.check(op, cmd); err != nil {
		return StartResult{}, err
	}
	if cmd.Trigger == "" {
		cmd.Trigger = relay.TriggerManual
	}
	log := logFor(ctx, cmd.AccountID)

	st, err := s.load(ctx, cmd.AccountID)
	if err != nil {
		return StartResult{}, err
	}
	if st.Status == StatusRunning {
		return StartResult{Status: st.Status, QueueLength: st.QueueLength},
			apperr.Wrap(apperr.KindConflict, op, "dialer is already running", ErrAlreadyRunning)
	}

	req, err := s.admissionRequest(ctx, st)
	if err != nil {
		return StartResult{}, err
	}
	dec, err := s.Admitter.Check(ctx, req)
	if err != nil {
		return StartResult{}, err
	}
	out := StartResult{Admission: dec}

	if !dec.Allowed {
		if err := s.transition(&st, SessionStatus(dec.Gate), string(dec.Gate)); err != nil {
			return StartResult{}, err
		}
		if err := s.save(ctx, st); err != nil {
			return StartResult{}, err
		}
		log.Info("start gated", "gate", dec.Gate, "balance_minor", dec.BalanceMinor, "spend_minor", dec.SpendMinor)
		out.Status, out.Reason = st.Status, st.LastReason
		return out, nil
	}

	res, err := s.filter.CallableLeads(ctx, cmd.AccountID, st.Ordering)
	if err != nil {
		return StartResult{}, err
	}
	if res.Empty() {
		if err := s.transition(&st, StatusNoLeads, string(res.Reason)); err != nil {
			return StartResult{}, err
		}
		if err := s.save(ctx, st); err != nil {
			return StartResult{}, err
		}
		log.Info("start found no callable leads", "reason", res.Reason)
		out.Status, out.Reason, out.Diagnosis = st.Status, st.LastReason, &res.Diagnosis
		return out, nil
	}

	if err := s.transition(&st, StatusRunning, ""); err != nil {
		return StartResult{}, err
	}
	st.QueueLength = cmd.Limit
	if err := s.save(ctx, st); err != nil {
		return StartResult{}, err
	}

	log.Info("dialer started", "queue_length", st.QueueLength, "trigger", cmd.Trigger, "callable", len(res.Leads))
	s.record(ctx, audit.Event{
		AccountID: cmd.AccountID, Type: audit.EventTypeCommand,
		Actor: cmd.Actor.Subject, ActorRole: cmd.Actor.Role, Message: "start",
	}, map[string]any{"limit": cmd.Limit, "trigger": cmd.Trigger})
	s.notifyStarted(ctx, st, cmd.Trigger)

	out.Status, out.QueueLength = st.Status, st.QueueLength
	return out, nil
}

// Stop blocks further dispatch. A call already in flight is left alone and
// its callback still lands.
func (s *Service) Stop(ctx context.Context, accountID string, actor Actor) (State, error) {
	if accountID == "" {
		return State{}, apperr.Validation("dialer.stop", "account id is required")
	}
	st, err := s.load(ctx, accountID)
	if err != nil {
		return State{}, err
	}
	if err := s.transition(&st, StatusStopped, "stopped"); err != nil {
		return State{}, err
	}
	st.QueueLength = 0
	if err := s.save(ctx, st); err != nil {
		return State{}, err
	}
	s.record(ctx, audit.Event{AccountID: accountID, Type: audit.EventTypeCommand, Actor: actor.Subject, ActorRole: actor.Role, Message: "stop"}, nil)
	return st, nil
}

// EmergencyStop stops and also drops the call pointers and any override batch.
func (s *Service) EmergencyStop(ctx context.Context, accountID string, actor Actor) (State, error) {
	if accountID == "" {
		return State{}, apperr.Validation("dialer.emergency_stop", "account id is required")
	}
	st, err := s.load(ctx, accountID)
	if err != nil {
		return State{}, err
	}
	prevCall := st.CurrentCallID
	st.resetShape()
	st.LastReason = "emergency_stop"
	if err := s.save(ctx, st); err != nil {
		return State{}, err
	}
	logFor(ctx, accountID).Warn("emergency stop", "in_flight_call_id", prevCall)
	s.record(ctx, audit.Event{
		AccountID: accountID, Type: audit.EventTypeCommand, Actor: actor.Subject, ActorRole: actor.Role,
		CallID: prevCall, Message: "emergency_stop",
	}, nil)
	return st, nil
}

type OverrideCommand struct {
	AccountID  string `validate:"required"`
	ExtraLeads int    `validate:"min=1,max=100"`
	Actor      Actor
}

// Override authorizes a batch of attempts past the daily budget. A session
// paused on budget resumes immediately.
func (s *Service) Override(ctx context.Context, cmd OverrideCommand) (State, error) {
	const op = "dialer.override"
	if err := s.check(op, cmd); err != nil {
		return State{}, err
	}
	st, err := s.load(ctx, cmd.AccountID)
	if err != nil {
		return State{}, err
	}

	now := s.Days.Now().UTC()
	st.Override = Override{Active: true, LeadsRemaining: cmd.ExtraLeads, StartedAt: &now}
	resumed := false
	if st.Status == StatusPausedBudget {
		if err := s.transition(&st, StatusRunning, ""); err != nil {
			return State{}, err
		}
		if st.QueueLength < cmd.ExtraLeads {
			st.QueueLength = cmd.ExtraLeads
		}
		resumed = true
	}
	if err := s.save(ctx, st); err != nil {
		return State{}, err
	}

	s.record(ctx, audit.Event{
		AccountID: cmd.AccountID, Type: audit.EventTypeOverride, Actor: cmd.Actor.Subject, ActorRole: cmd.Actor.Role,
		Message: "override batch authorized",
	}, map[string]any{"extra_leads": cmd.ExtraLeads, "resumed": resumed})
	if resumed {
		s.notifyStarted(ctx, st, relay.TriggerOverride)
	}
	return st, nil
}

type SettingsCommand struct {
	AccountID        string `validate:"required"`
	DailyCallLimit   int    `validate:"min=0,max=10000"`
	Schedule         Schedule
	AutoStartEnabled bool
	TargetLeadCount  int                      `validate:"min=0,max=500"`
	AgentID          string                   `validate:"max=128"`
	Origins          []routing.WeightedOrigin `validate:"dive"`
	Ordering         string
	Actor            Actor
}

// UpdateSettings replaces the account's dialing configuration.
func (s *Service) UpdateSettings(ctx context.Context, cmd SettingsCommand) (State, error) {
	const op = "dialer.update_settings"
	if err := s.check(op, cmd); err != nil {
		return State{}, err
	}
	ordering, err := leads.ParseOrdering(cmd.Ordering)
	if err != nil {
		return State{}, apperr.Wrap(apperr.KindValidation, op, err.Error(), err)
	}
	if cmd.Schedule.Timezone != "" && !s.Days.ValidTimezone(cmd.Schedule.Timezone) {
		return State{}, apperr.Validation(op, "unknown timezone "+cmd.Schedule.Timezone)
	}
	if cmd.Schedule.EndMinute != 0 && cmd.Schedule.EndMinute <= cmd.Schedule.StartMinute {
		return State{}, apperr.Validation(op, "schedule end must be after start")
	}
	if cmd.AutoStartEnabled && (len(cmd.Schedule.Days) == 0 || cmd.TargetLeadCount == 0) {
		return State{}, apperr.Validation(op, "auto-start needs schedule days and a target lead count")
	}
	for _, o := range cmd.Origins {
		if o.Weight < 0 {
			return State{}, apperr.Validation(op, "origin weight must not be negative")
		}
	}

	st, err := s.load(ctx, cmd.AccountID)
	if err != nil {
		return State{}, err
	}
	st.DailyCallLimit = cmd.DailyCallLimit
	st.Schedule = cmd.Schedule
	st.AutoStartEnabled = cmd.AutoStartEnabled
	st.TargetLeadCount = cmd.TargetLeadCount
	st.AgentID = cmd.AgentID
	st.Origins = cmd.Origins
	st.Ordering = ordering
	if err := s.save(ctx, st); err != nil {
		return State{}, err
	}
	s.record(ctx, audit.Event{AccountID: cmd.AccountID, Type: audit.EventTypeCommand, Actor: cmd.Actor.Subject, ActorRole: cmd.Actor.Role, Message: "settings updated"}, nil)
	return st, nil
}

// CallableLeads exposes the filter result for the account's ordering policy.
func (s *Service) CallableLeads(ctx context.Context, accountID string) (leads.Result, error) {
	st, err := s.load(ctx, accountID)
	if err != nil {
		return leads.Result{}, err
	}
	return s.filter.CallableLeads(ctx, accountID, st.Ordering)
}
