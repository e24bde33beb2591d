package dialer

import (
	"context"

	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/leads"
	"outreach-dialer/pkg/apperr"
)

type ResetResult struct {
	LeadsReleased  int  `json:"leads_released"`
	CallsReset     int  `json:"calls_reset"`
	StateChanged   bool `json:"state_changed"`
	BalanceCreated bool `json:"balance_created"`
}

func (r ResetResult) Changed() bool {
	return r.LeadsReleased > 0 || r.CallsReset > 0 || r.StateChanged || r.BalanceCreated
}

// Reset repairs an account whose callbacks never arrived. Every step is a
// conditional write, so a second call with nothing stuck changes nothing.
func (s *Service) Reset(ctx context.Context, accountID string, actor Actor) (ResetResult, error) {
	if accountID == "" {
		return ResetResult{}, apperr.Validation("dialer.reset", "account id is required")
	}
	log := logFor(ctx, accountID)
	var out ResetResult

	released, err := s.Leads.ReleaseStuck(ctx, accountID, leads.OutcomeResetCleanup)
	if err != nil {
		return ResetResult{}, err
	}
	out.LeadsReleased = len(released)
	if len(released) > 0 {
		n, err := s.Calls.MarkReset(ctx, accountID, released)
		if err != nil {
			log.Error("mark calls reset failed", "leads", len(released), "err", err)
		}
		out.CallsReset = n
	}

	// A missing state row is created first so the account still ends stopped.
	if _, err := s.load(ctx, accountID); err != nil {
		return out, err
	}
	if out.StateChanged, err = s.States.ResetIfDirty(ctx, accountID); err != nil {
		return out, err
	}
	if out.BalanceCreated, err = s.Wallet.EnsureExists(ctx, accountID); err != nil {
		return out, err
	}

	if out.Changed() {
		log.Info("reset cleanup applied", "leads_released", out.LeadsReleased, "calls_reset", out.CallsReset,
			"state_changed", out.StateChanged, "balance_created", out.BalanceCreated)
		s.record(ctx, audit.Event{
			AccountID: accountID, Type: audit.EventTypeResetCleanup,
			Actor: actor.Subject, ActorRole: actor.Role, Message: "reset cleanup",
		}, map[string]any{"lead_ids": released, "state_changed": out.StateChanged, "balance_created": out.BalanceCreated})
	}
	return out, nil
}
