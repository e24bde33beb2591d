package dialer

import (
	"context"
	"testing"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/telephony"
)

func TestHandleOutcome_CorrectionBeforeCallbackStands(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	d, err := h.svc.DispatchNext(ctx, account)
	if err != nil || !d.Dispatched {
		t.Fatalf("DispatchNext: %+v %v", d, err)
	}

	if _, err := h.svc.MarkOutcome(ctx, MarkOutcomeCommand{CallID: d.CallID, Status: "appointment_booked"}); err != nil {
		t.Fatalf("MarkOutcome: %v", err)
	}
	out, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: d.CallID, Outcome: "no_answer", DurationSeconds: 60})
	if err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	if out.Status != leads.StatusAppointmentBooked {
		t.Fatalf("expected corrected status reported, got %+v", out)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusAppointmentBooked || l.LastOutcome != "operator_correction" {
		t.Fatalf("callback overwrote the corrected lead: %+v", l)
	}
	c, _ := h.calls.Get(ctx, d.CallID)
	if c.Status != calls.CallStatusCompleted || c.Outcome != leads.StatusAppointmentBooked || !c.Corrected || c.ProviderOutcome != "no_answer" {
		t.Fatalf("unexpected call record %+v", c)
	}

	// Cost, spend and the call pointer still settle.
	if b, _ := h.wallet.Get(ctx, account); b.BalanceMinor != 4990 {
		t.Fatalf("expected 4990 after charge, got %d", b.BalanceMinor)
	}
	if st := h.state(t); st.CurrentCallID != "" || st.TodaySpendMinor != 10 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestHandleOutcome_LateCallbackAfterResetAppliesToUntouchedLead(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	d, _ := h.svc.DispatchNext(ctx, account)
	if _, err := h.svc.Reset(ctx, account, Actor{}); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	out, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: d.CallID, Outcome: "declined", DurationSeconds: 30})
	if err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	if out.Status != leads.StatusNotInterested {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusNotInterested {
		t.Fatalf("expected the late outcome to replace the reset marker, got %s", l.Status)
	}
}

func TestHandleOutcome_LateCallbackAfterResetSparesNewAttempt(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	first, _ := h.svc.DispatchNext(ctx, account)
	if _, err := h.svc.Reset(ctx, account, Actor{}); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	h.now = t0.Add(24 * time.Hour)
	h.start(t, 5)
	second, err := h.svc.DispatchNext(ctx, account)
	if err != nil || !second.Dispatched || second.LeadID != "l1" {
		t.Fatalf("expected l1 redialed, got %+v %v", second, err)
	}

	if _, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: first.CallID, Outcome: "declined", DurationSeconds: 30}); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusCallingInProgress {
		t.Fatalf("late callback cleared the in-flight attempt: %s", l.Status)
	}
	if st := h.state(t); st.CurrentCallID != second.CallID {
		t.Fatalf("expected pointer to stay on %s, got %+v", second.CallID, st)
	}
	if c, _ := h.calls.Get(ctx, first.CallID); c.Status != calls.CallStatusCompleted {
		t.Fatalf("expected the old call completed, got %s", c.Status)
	}

	if _, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: second.CallID, Outcome: "no_answer"}); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusNoAnswer {
		t.Fatalf("expected the new attempt's outcome, got %s", l.Status)
	}
}

func TestHandleOutcome_CorrectedResetCallSparesNewAttempt(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	first, _ := h.svc.DispatchNext(ctx, account)
	if _, err := h.svc.Reset(ctx, account, Actor{}); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := h.svc.MarkOutcome(ctx, MarkOutcomeCommand{CallID: first.CallID, Status: "needs_review"}); err != nil {
		t.Fatalf("MarkOutcome: %v", err)
	}

	// needs_review may be dialed again the same day.
	h.start(t, 5)
	second, err := h.svc.DispatchNext(ctx, account)
	if err != nil || !second.Dispatched || second.LeadID != "l1" {
		t.Fatalf("expected l1 redialed, got %+v %v", second, err)
	}

	if _, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: first.CallID, Outcome: "declined"}); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusCallingInProgress {
		t.Fatalf("late callback cleared the in-flight attempt: %s", l.Status)
	}
	if c, _ := h.calls.Get(ctx, first.CallID); c.Outcome != leads.StatusNeedsReview {
		t.Fatalf("expected the correction kept, got %s", c.Outcome)
	}
}
