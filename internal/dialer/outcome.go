package dialer

import (
	"context"
	"errors"

	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/apperr"
)

type OutcomeResult struct {
	CallID    string       `json:"call_id"`
	LeadID    string       `json:"lead_id"`
	Status    leads.Status `json:"status"`
	CostMinor int64        `json:"cost_minor"`
	Duplicate bool         `json:"duplicate,omitempty"`
}

// HandleOutcome applies the provider's report for a finished call: lead
// status, call record, balance charge, daily spend and the call pointer.
// Redelivered callbacks for a completed call change nothing. A corrected
// call keeps its corrected outcome, and a call already cleared by Reset only
// updates a lead that still carries the reset marker.
func (s *Service) HandleOutcome(ctx context.Context, cb telephony.OutcomeCallback) (OutcomeResult, error) {
	const op = "dialer.handle_outcome"
	if err := cb.Validate(); err != nil {
		return OutcomeResult{}, apperr.Wrap(apperr.KindValidation, op, err.Error(), err)
	}

	call, err := s.Calls.Get(ctx, cb.CallID)
	if errors.Is(err, calls.ErrNotFound) {
		return OutcomeResult{}, apperr.Wrap(apperr.KindNotFound, op, "unknown call "+cb.CallID, err)
	}
	if err != nil {
		return OutcomeResult{}, err
	}
	log := logFor(ctx, call.AccountID).With("call_id", call.CallID, "lead_id", call.LeadID)
	if call.Status == calls.CallStatusCompleted {
		log.Info("duplicate outcome callback ignored")
		return OutcomeResult{CallID: call.CallID, LeadID: call.LeadID, Status: call.Outcome, CostMinor: call.CostMinor, Duplicate: true}, nil
	}
	if cb.LeadID != "" && cb.LeadID != call.LeadID {
		log.Warn("callback lead id does not match dispatched lead", "callback_lead_id", cb.LeadID)
	}

	status := s.Outcomes.Map(cb.Outcome)
	now := s.Days.Now().UTC()
	cost, err := s.Pricing.CalculateCallCost(ctx, call.AccountID, cb.DurationSeconds, now)
	if err != nil {
		return OutcomeResult{}, err
	}

	switch {
	case call.Corrected:
		// An operator correction stands; the callback only settles cost and pointers.
		log.Info("provider outcome not applied to corrected call", "provider_outcome", cb.Outcome, "kept", call.Outcome)
	case call.Status == calls.CallStatusReset:
		applied, err := s.Leads.SetOutcomeAfterReset(ctx, call.AccountID, call.LeadID, status, cb.Outcome)
		if err != nil {
			return OutcomeResult{}, err
		}
		if !applied {
			log.Info("late outcome for reset call left lead untouched", "provider_outcome", cb.Outcome)
		}
	default:
		if _, err := s.Leads.SetOutcome(ctx, call.AccountID, call.LeadID, status, cb.Outcome); err != nil {
			return OutcomeResult{}, err
		}
	}

	done, first, err := s.Calls.Complete(ctx, call.CallID, calls.Completion{
		Outcome:         status,
		ProviderOutcome: cb.Outcome,
		DurationSeconds: cb.DurationSeconds,
		CostMinor:       cost.TotalMinor,
		At:              now,
	})
	if err != nil {
		return OutcomeResult{}, err
	}
	out := OutcomeResult{CallID: call.CallID, LeadID: call.LeadID, Status: done.Outcome, CostMinor: cost.TotalMinor}
	if !first {
		out.Duplicate = true
		return out, nil
	}

	if _, err := s.Wallet.ChargeCall(ctx, call.AccountID, call.CallID, cost.Currency, cost.TotalMinor); err != nil {
		log.Error("call charge failed", "cost_minor", cost.TotalMinor, "err", err)
	}
	if cost.TotalMinor > 0 {
		if _, err := s.States.AccrueSpend(ctx, call.AccountID, s.Days.Today(), cost.TotalMinor); err != nil {
			log.Error("spend accrual failed", "cost_minor", cost.TotalMinor, "err", err)
		}
	}
	if _, err := s.States.ClearCurrentCall(ctx, call.AccountID, call.CallID); err != nil {
		log.Error("clear call pointer failed", "err", err)
	}

	log.Info("call outcome recorded", "status", done.Outcome, "provider_outcome", cb.Outcome,
		"duration_seconds", cb.DurationSeconds, "cost_minor", cost.TotalMinor)
	return out, nil
}

type MarkOutcomeCommand struct {
	CallID string `validate:"required"`
	Status string `validate:"required"`
	// LeadID, when set, wins over the lead recorded on the call.
	LeadID string
	// AccountID, when set, must own the call.
	AccountID string
	Actor     Actor
}

// MarkOutcome is an operator correction of a call's recorded outcome. It
// rewrites the call and the linked lead independently of the original callback.
func (s *Service) MarkOutcome(ctx context.Context, cmd MarkOutcomeCommand) (calls.Call, error) {
	const op = "dialer.mark_outcome"
	if err := s.check(op, cmd); err != nil {
		return calls.Call{}, err
	}
	status, err := leads.ParseStatus(cmd.Status)
	if err != nil {
		return calls.Call{}, apperr.Wrap(apperr.KindValidation, op, err.Error(), err)
	}
	if status == leads.StatusCallingInProgress {
		return calls.Call{}, apperr.Validation(op, "calling_in_progress cannot be set by hand")
	}

	call, err := s.Calls.Get(ctx, cmd.CallID)
	if errors.Is(err, calls.ErrNotFound) || (err == nil && cmd.AccountID != "" && call.AccountID != cmd.AccountID) {
		return calls.Call{}, apperr.NotFound(op, "call not found")
	}
	if err != nil {
		return calls.Call{}, err
	}

	leadID := call.LeadID
	if cmd.LeadID != "" {
		leadID = cmd.LeadID
	}
	if _, err := s.Leads.SetOutcome(ctx, call.AccountID, leadID, status, "operator_correction"); err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return calls.Call{}, apperr.NotFound(op, "lead not found")
		}
		return calls.Call{}, err
	}
	corrected, err := s.Calls.Correct(ctx, call.CallID, status)
	if err != nil {
		return calls.Call{}, err
	}

	s.record(ctx, audit.Event{
		AccountID: call.AccountID, Type: audit.EventTypeOutcomeCorrection,
		Actor: cmd.Actor.Subject, ActorRole: cmd.Actor.Role,
		CallID: call.CallID, LeadID: leadID, Message: "outcome corrected",
	}, map[string]string{"from": string(call.Outcome), "to": string(status)})
	return corrected, nil
}

type callbackSink struct{ s *Service }

func (c callbackSink) HandleOutcome(ctx context.Context, cb telephony.OutcomeCallback) error {
	_, err := c.s.HandleOutcome(ctx, cb)
	return err
}

// CallbackSink adapts HandleOutcome to the webhook's sink interface.
func (s *Service) CallbackSink() telephony.OutcomeSink { return callbackSink{s} }
