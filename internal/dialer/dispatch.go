package dialer

import (
	"context"
	"errors"
	"fmt"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/routing"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/phone"
)

// Reasons DispatchNext reports when it placed no call.
const (
	ReasonNotRunning     = "not_running"
	ReasonCallInProgress = "call_in_progress"
	ReasonTargetReached  = "target_reached"
	ReasonNoClaim        = "no_claimable_lead"
)

// maxClaimTries bounds how many callable leads DispatchNext walks when claims
// keep losing races or numbers are unusable.
const maxClaimTries = 5

type DispatchResult struct {
	Dispatched     bool          `json:"dispatched"`
	CallID         string        `json:"call_id,omitempty"`
	LeadID         string        `json:"lead_id,omitempty"`
	Status         SessionStatus `json:"status"`
	Reason         string        `json:"reason,omitempty"`
	QueueLength    int           `json:"queue_length"`
	BudgetBypassed bool          `json:"budget_bypassed,omitempty"`
}

// DispatchNext places the next call for a running account. The relay calls it
// in a loop until Dispatched is false.
func (s *Service) DispatchNext(ctx context.Context, accountID string) (DispatchResult, error) {
	const op = "dialer.dispatch_next"
	if accountID == "" {
		return DispatchResult{}, apperr.Validation(op, "account id is required")
	}
	log := logFor(ctx, accountID)

	if s.Guard != nil {
		ok, err := s.Guard.Acquire(ctx, accountID)
		if err != nil {
			// The guard only narrows races; without Redis we still dispatch.
			log.Warn("dispatch guard unavailable", "err", err)
		} else if !ok {
			st, _ := s.States.Get(ctx, accountID)
			return DispatchResult{Status: st.Status, Reason: ReasonCallInProgress, QueueLength: st.QueueLength}, nil
		} else {
			defer func() {
				if err := s.Guard.Release(context.WithoutCancel(ctx), accountID); err != nil {
					log.Warn("dispatch guard release failed", "err", err)
				}
			}()
		}
	}

	st, err := s.load(ctx, accountID)
	if err != nil {
		return DispatchResult{}, err
	}
	out := DispatchResult{Status: st.Status, QueueLength: st.QueueLength}
	if st.Status != StatusRunning {
		out.Reason = ReasonNotRunning
		return out, nil
	}

	busy, err := s.callInFlight(ctx, &st)
	if err != nil {
		return DispatchResult{}, err
	}
	if busy {
		out.Reason = ReasonCallInProgress
		return out, nil
	}

	if st.QueueLength <= 0 {
		return s.finishQueue(ctx, st)
	}

	req, err := s.admissionRequest(ctx, st)
	if err != nil {
		return DispatchResult{}, err
	}
	dec, err := s.Admitter.Check(ctx, req)
	if err != nil {
		return DispatchResult{}, err
	}
	if !dec.Allowed {
		if err := s.transition(&st, SessionStatus(dec.Gate), string(dec.Gate)); err != nil {
			return DispatchResult{}, err
		}
		if err := s.save(ctx, st); err != nil {
			return DispatchResult{}, err
		}
		log.Info("dispatch gated", "gate", dec.Gate)
		return DispatchResult{Status: st.Status, Reason: st.LastReason, QueueLength: st.QueueLength}, nil
	}

	res, err := s.filter.CallableLeads(ctx, accountID, st.Ordering)
	if err != nil {
		return DispatchResult{}, err
	}
	if res.Empty() {
		if err := s.transition(&st, StatusNoLeads, string(res.Reason)); err != nil {
			return DispatchResult{}, err
		}
		if err := s.save(ctx, st); err != nil {
			return DispatchResult{}, err
		}
		return DispatchResult{Status: st.Status, Reason: st.LastReason, QueueLength: st.QueueLength}, nil
	}

	origin, err := s.Origins.Pick(st.Origins, s.Region)
	if err != nil {
		if errors.Is(err, routing.ErrNoOrigin) {
			return DispatchResult{}, apperr.Wrap(apperr.KindValidation, op, "no usable origin number configured", err)
		}
		return DispatchResult{}, err
	}

	lead, dest, ok, err := s.claimNext(ctx, accountID, res.Leads)
	if err != nil {
		return DispatchResult{}, err
	}
	if !ok {
		out.Reason = ReasonNoClaim
		return out, nil
	}

	placed, err := s.Provider.Dispatch(ctx, telephony.DispatchRequest{
		AgentID:     s.agentFor(st),
		Destination: dest,
		Origin:      origin,
		Metadata:    telephony.Metadata{LeadID: lead.ID, AccountID: accountID},
	})
	if err != nil {
		if _, rerr := s.Leads.Release(context.WithoutCancel(ctx), accountID, lead.ID, lead.Status); rerr != nil {
			log.Error("release claim after provider failure", "lead_id", lead.ID, "err", rerr)
		}
		return DispatchResult{}, apperr.Upstream(op, "voice provider rejected the call", err)
	}

	day := s.Days.Today()
	if _, err := s.Leads.RecordAttempt(ctx, accountID, lead.ID, day); err != nil {
		log.Error("record attempt failed", "lead_id", lead.ID, "call_id", placed.CallID, "err", err)
	}
	now := s.Days.Now().UTC()
	if err := s.Calls.Create(ctx, calls.Call{
		CallID:         placed.CallID,
		AccountID:      accountID,
		LeadID:         lead.ID,
		AgentID:        s.agentFor(st),
		From:           origin,
		To:             dest,
		Status:         calls.CallStatusDispatched,
		BudgetBypassed: dec.BudgetBypassed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		log.Error("call record write failed", "call_id", placed.CallID, "err", err)
	}

	st.CurrentCallID = placed.CallID
	st.CurrentLeadID = lead.ID
	st.QueueLength--
	if dec.BudgetBypassed {
		st.Override.LeadsRemaining--
		if st.Override.LeadsRemaining <= 0 {
			st.Override = Override{}
		}
	}
	if st.QueueLength <= 0 {
		if err := s.transition(&st, StatusStopped, ReasonTargetReached); err != nil {
			return DispatchResult{}, err
		}
	}
	if err := s.save(ctx, st); err != nil {
		return DispatchResult{}, err
	}

	log.Info("call dispatched", "call_id", placed.CallID, "lead_id", lead.ID, "queue_length", st.QueueLength,
		"budget_bypassed", dec.BudgetBypassed)
	return DispatchResult{
		Dispatched:     true,
		CallID:         placed.CallID,
		LeadID:         lead.ID,
		Status:         st.Status,
		Reason:         st.LastReason,
		QueueLength:    st.QueueLength,
		BudgetBypassed: dec.BudgetBypassed,
	}, nil
}

// callInFlight re-validates the current-call pointer. A pointer to a call that
// already finished, was reset or is unknown is cleared in st.
func (s *Service) callInFlight(ctx context.Context, st *State) (bool, error) {
	if st.CurrentCallID == "" {
		return false, nil
	}
	c, err := s.Calls.Get(ctx, st.CurrentCallID)
	switch {
	case errors.Is(err, calls.ErrNotFound):
	case err != nil:
		return false, err
	case c.Status == calls.CallStatusDispatched:
		return true, nil
	}
	logFor(ctx, st.AccountID).Info("clearing stale call pointer", "call_id", st.CurrentCallID)
	st.CurrentCallID = ""
	st.CurrentLeadID = ""
	return false, nil
}

func (s *Service) finishQueue(ctx context.Context, st State) (DispatchResult, error) {
	if err := s.transition(&st, StatusStopped, ReasonTargetReached); err != nil {
		return DispatchResult{}, err
	}
	if err := s.save(ctx, st); err != nil {
		return DispatchResult{}, err
	}
	return DispatchResult{Status: st.Status, Reason: st.LastReason}, nil
}

// claimNext claims the first lead whose number normalizes and whose status
// has not changed since it was read. Leads with unusable numbers are moved to
// not_eligible so they drop out of the callable set.
func (s *Service) claimNext(ctx context.Context, accountID string, candidates []leads.Lead) (leads.Lead, string, bool, error) {
	log := logFor(ctx, accountID)
	for i, l := range candidates {
		if i == maxClaimTries {
			break
		}
		dest, err := phone.NormalizeE164(l.Phone, s.Region)
		if err != nil {
			if _, err := s.Leads.SetOutcome(ctx, accountID, l.ID, leads.StatusNotEligible, "invalid_number"); err != nil {
				return leads.Lead{}, "", false, fmt.Errorf("mark invalid number: %w", err)
			}
			log.Warn("lead has unusable phone number", "lead_id", l.ID)
			continue
		}
		ok, err := s.Leads.Claim(ctx, accountID, l.ID, l.Status)
		if err != nil {
			return leads.Lead{}, "", false, err
		}
		if ok {
			return l, dest, true, nil
		}
	}
	return leads.Lead{}, "", false, nil
}
