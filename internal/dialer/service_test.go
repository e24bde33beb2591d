package dialer

import (
	"context"
	"testing"
	"time"

	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/apperr"
)

func TestStart_RunsAndNotifiesRelay(t *testing.T) {
	h := newHarness(t, 5000)
	h.addLead("l1", "+16502530001", leads.StatusNew)

	res := h.start(t, 25)
	if res.Status != StatusRunning || res.QueueLength != 25 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].QueueLength != 25 {
		t.Fatalf("expected one relay event, got %+v", h.notifier.events)
	}

	_, err := h.svc.Start(context.Background(), StartCommand{AccountID: account, Limit: 5})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on second start, got %v", err)
	}
}

func TestStart_ValidatesLimit(t *testing.T) {
	h := newHarness(t, 5000)
	for _, limit := range []int{0, 501} {
		_, err := h.svc.Start(context.Background(), StartCommand{AccountID: account, Limit: limit})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("limit %d: expected validation error, got %v", limit, err)
		}
	}
}

func TestStart_GatesAndEmptyReasons(t *testing.T) {
	h := newHarness(t, 0)
	h.addLead("l1", "+16502530001", leads.StatusNew)

	res := h.start(t, 5)
	if res.Status != StatusPausedBalance || res.Reason != "paused-balance" {
		t.Fatalf("expected paused-balance, got %+v", res)
	}
	if len(h.notifier.events) != 0 {
		t.Fatalf("gated start must not notify the relay")
	}

	h2 := newHarness(t, 5000)
	h2.leads.PutSource(leads.Source{ID: "s1", AccountID: account, Active: false})
	h2.addLead("l1", "+16502530001", leads.StatusNew)
	res = h2.start(t, 5)
	if res.Status != StatusNoLeads || res.Reason != string(leads.ReasonNoSheets) {
		t.Fatalf("expected no-leads/no_sheets, got %+v", res)
	}
}

func TestLeadScenario_ExcludedTodayIncludedTomorrow(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)

	d, err := h.svc.DispatchNext(ctx, account)
	if err != nil || !d.Dispatched {
		t.Fatalf("DispatchNext: %+v %v", d, err)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusCallingInProgress {
		t.Fatalf("expected calling_in_progress, got %s", l.Status)
	}
	req := h.provider.reqs[0]
	if req.Destination != "+16502530001" || req.Origin != "+14155550100" || req.Metadata.LeadID != "l1" || req.Metadata.AccountID != account {
		t.Fatalf("unexpected provider request %+v", req)
	}
	if st := h.state(t); st.CurrentCallID != d.CallID || st.QueueLength != 4 {
		t.Fatalf("unexpected state after dispatch %+v", st)
	}

	out, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: d.CallID, LeadID: "l1", Outcome: "no_answer", DurationSeconds: 30})
	if err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	if out.Status != leads.StatusNoAnswer || out.CostMinor != 10 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	l := h.lead(t, "l1")
	if l.CallAttemptsToday != 1 || l.LastAttemptDate != "2026-03-10" || l.TotalCallsMade != 1 {
		t.Fatalf("unexpected counters %+v", l)
	}
	st := h.state(t)
	if st.CurrentCallID != "" || st.TodaySpendMinor != 10 || st.SpendDay != "2026-03-10" {
		t.Fatalf("unexpected state after outcome %+v", st)
	}
	if b, _ := h.wallet.Get(ctx, account); b.BalanceMinor != 4990 {
		t.Fatalf("expected 4990 after charge, got %d", b.BalanceMinor)
	}

	d, err = h.svc.DispatchNext(ctx, account)
	if err != nil {
		t.Fatalf("DispatchNext: %v", err)
	}
	if d.Dispatched || d.Status != StatusNoLeads || d.Reason != string(leads.ReasonAllDialedToday) {
		t.Fatalf("expected all_dialed_today, got %+v", d)
	}

	h.now = t0.Add(24 * time.Hour)
	h.start(t, 5)
	d, err = h.svc.DispatchNext(ctx, account)
	if err != nil || !d.Dispatched || d.LeadID != "l1" {
		t.Fatalf("expected l1 callable on the next day, got %+v %v", d, err)
	}
	l = h.lead(t, "l1")
	if l.CallAttemptsToday != 1 || l.LastAttemptDate != "2026-03-11" || l.TotalCallsMade != 2 {
		t.Fatalf("unexpected counters on day two %+v", l)
	}
}

func TestDispatchNext_ProviderFailureReleasesClaim(t *testing.T) {
	h := newHarness(t, 5000)
	h.addLead("l1", "+16502530001", leads.StatusCallbackLater)
	h.start(t, 5)
	h.provider.err = errProviderDown

	_, err := h.svc.DispatchNext(context.Background(), account)
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	l := h.lead(t, "l1")
	if l.Status != leads.StatusCallbackLater || l.TotalCallsMade != 0 {
		t.Fatalf("expected claim released untouched, got %+v", l)
	}
	if st := h.state(t); st.CurrentCallID != "" || st.QueueLength != 5 {
		t.Fatalf("state must not move on provider failure: %+v", st)
	}
}

func TestDispatchNext_SkipsUnusableNumbers(t *testing.T) {
	h := newHarness(t, 5000)
	h.addLead("bad", "12", leads.StatusNew)
	h.leads.PutLead(leads.Lead{
		ID: "good", AccountID: account, SourceID: "s1", Phone: "(650) 253-0002", Qualified: true,
		Status: leads.StatusNew, CreatedAt: t0,
	})
	h.start(t, 5)

	d, err := h.svc.DispatchNext(context.Background(), account)
	if err != nil || d.LeadID != "good" {
		t.Fatalf("expected good lead dispatched, got %+v %v", d, err)
	}
	if h.provider.reqs[0].Destination != "+16502530002" {
		t.Fatalf("expected E.164 destination, got %q", h.provider.reqs[0].Destination)
	}
	if l := h.lead(t, "bad"); l.Status != leads.StatusNotEligible {
		t.Fatalf("expected bad number marked not_eligible, got %s", l.Status)
	}
}

func TestDispatchNext_OneCallAtATimeAndTargetReached(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.addLead("l2", "+16502530002", leads.StatusNew)
	h.start(t, 2)

	first, _ := h.svc.DispatchNext(ctx, account)
	busy, err := h.svc.DispatchNext(ctx, account)
	if err != nil || busy.Dispatched || busy.Reason != ReasonCallInProgress {
		t.Fatalf("expected call_in_progress, got %+v %v", busy, err)
	}

	if _, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: first.CallID, Outcome: "booked", DurationSeconds: 60}); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	second, err := h.svc.DispatchNext(ctx, account)
	if err != nil || !second.Dispatched {
		t.Fatalf("expected second dispatch, got %+v %v", second, err)
	}
	if second.Status != StatusStopped || second.Reason != ReasonTargetReached || second.QueueLength != 0 {
		t.Fatalf("expected stopped at target, got %+v", second)
	}
}

func TestBudgetGate_OverrideBypassesUntilBatchUsed(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.addLead("l2", "+16502530002", leads.StatusNew)
	h.addLead("l3", "+16502530003", leads.StatusNew)

	st := h.state(t)
	st.DailyCallLimit = 1 // budget 20 cents
	if err := h.states.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	h.start(t, 10)

	d, _ := h.svc.DispatchNext(ctx, account)
	// 120 seconds at 10 cents a minute uses the whole budget.
	if _, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: d.CallID, Outcome: "declined", DurationSeconds: 120}); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	d, _ = h.svc.DispatchNext(ctx, account)
	if d.Dispatched || d.Status != StatusPausedBudget {
		t.Fatalf("expected paused-budget, got %+v", d)
	}

	if _, err := h.svc.Override(ctx, OverrideCommand{AccountID: account, ExtraLeads: 1}); err != nil {
		t.Fatalf("Override: %v", err)
	}
	if st := h.state(t); st.Status != StatusRunning || !st.Override.Active {
		t.Fatalf("override should resume the session, got %+v", st)
	}
	d, err := h.svc.DispatchNext(ctx, account)
	if err != nil || !d.Dispatched || !d.BudgetBypassed {
		t.Fatalf("expected bypassed dispatch, got %+v %v", d, err)
	}
	if st := h.state(t); st.Override.Active || st.Override.LeadsRemaining != 0 {
		t.Fatalf("override batch should be consumed, got %+v", st.Override)
	}
	if c, _ := h.calls.Get(ctx, d.CallID); !c.BudgetBypassed {
		t.Fatalf("call should record the bypass")
	}

	if _, err := h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: d.CallID, Outcome: "busy"}); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	d, _ = h.svc.DispatchNext(ctx, account)
	if d.Dispatched || d.Status != StatusPausedBudget {
		t.Fatalf("expected paused-budget once the batch is used, got %+v", d)
	}

	// Budget frees up on the next canonical day.
	h.now = t0.Add(24 * time.Hour)
	if res := h.start(t, 1); res.Status != StatusRunning {
		t.Fatalf("expected running on the next day, got %+v", res)
	}
}

func TestHandleOutcome_DuplicateAndUnknown(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	d, _ := h.svc.DispatchNext(ctx, account)

	cb := telephony.OutcomeCallback{CallID: d.CallID, Outcome: "human_requested", DurationSeconds: 61}
	if _, err := h.svc.HandleOutcome(ctx, cb); err != nil {
		t.Fatalf("HandleOutcome: %v", err)
	}
	out, err := h.svc.HandleOutcome(ctx, cb)
	if err != nil || !out.Duplicate {
		t.Fatalf("expected duplicate, got %+v %v", out, err)
	}
	if b, _ := h.wallet.Get(ctx, account); b.BalanceMinor != 4980 {
		t.Fatalf("expected a single 20 cent charge, got balance %d", b.BalanceMinor)
	}
	if l := h.lead(t, "l1"); l.Status != leads.StatusLiveTransfer {
		t.Fatalf("expected live_transfer, got %s", l.Status)
	}

	_, err = h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: "nope", Outcome: "busy"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkOutcome_CorrectsCallAndLead(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.addLead("l2", "+16502530002", leads.StatusNew)
	h.start(t, 5)
	d, _ := h.svc.DispatchNext(ctx, account)
	_, _ = h.svc.HandleOutcome(ctx, telephony.OutcomeCallback{CallID: d.CallID, Outcome: "no_answer"})

	c, err := h.svc.MarkOutcome(ctx, MarkOutcomeCommand{CallID: d.CallID, Status: "appointment_booked"})
	if err != nil {
		t.Fatalf("MarkOutcome: %v", err)
	}
	if c.Outcome != leads.StatusAppointmentBooked || !c.Corrected {
		t.Fatalf("unexpected call %+v", c)
	}
	if l := h.lead(t, d.LeadID); l.Status != leads.StatusAppointmentBooked {
		t.Fatalf("expected linked lead corrected, got %s", l.Status)
	}

	if _, err := h.svc.MarkOutcome(ctx, MarkOutcomeCommand{CallID: d.CallID, Status: "needs_review", LeadID: "l2"}); err != nil {
		t.Fatalf("MarkOutcome explicit lead: %v", err)
	}
	if l := h.lead(t, "l2"); l.Status != leads.StatusNeedsReview {
		t.Fatalf("explicit lead id should win, got %s", l.Status)
	}

	_, err = h.svc.MarkOutcome(ctx, MarkOutcomeCommand{CallID: d.CallID, Status: "calling_in_progress"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var corrections int
	for _, e := range h.audit.Events() {
		if e.Type == audit.EventTypeOutcomeCorrection {
			corrections++
		}
	}
	if corrections != 2 {
		t.Fatalf("expected 2 correction events, got %d", corrections)
	}
}

func TestReset_IsIdempotent(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	d, _ := h.svc.DispatchNext(ctx, account)
	_, _ = h.svc.Override(ctx, OverrideCommand{AccountID: account, ExtraLeads: 3})

	first, err := h.svc.Reset(ctx, account, Actor{Subject: "u1", Role: "owner"})
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if first.LeadsReleased != 1 || first.CallsReset != 1 || !first.StateChanged || first.BalanceCreated {
		t.Fatalf("unexpected first reset %+v", first)
	}
	l := h.lead(t, "l1")
	if l.Status != leads.StatusNoAnswer || l.LastOutcome != leads.OutcomeResetCleanup {
		t.Fatalf("unexpected lead after reset %+v", l)
	}
	if c, _ := h.calls.Get(ctx, d.CallID); c.Status != calls.CallStatusReset {
		t.Fatalf("expected call reset, got %s", c.Status)
	}
	afterFirst := h.state(t)
	if !afterFirst.Clean() {
		t.Fatalf("expected clean stopped state, got %+v", afterFirst)
	}

	second, err := h.svc.Reset(ctx, account, Actor{})
	if err != nil {
		t.Fatalf("Reset again: %v", err)
	}
	if second.Changed() {
		t.Fatalf("second reset should change nothing, got %+v", second)
	}
	afterSecond := h.state(t)
	if afterSecond.Status != afterFirst.Status || afterSecond.UpdatedAt != afterFirst.UpdatedAt {
		t.Fatalf("state moved on second reset")
	}
	if got := h.lead(t, "l1"); got != l {
		t.Fatalf("lead moved on second reset")
	}

	var resets int
	for _, e := range h.audit.Events() {
		if e.Type == audit.EventTypeResetCleanup {
			resets++
		}
	}
	if resets != 1 {
		t.Fatalf("expected one reset_cleanup event, got %d", resets)
	}
}

func TestReset_CreatesMissingStateAndBalance(t *testing.T) {
	h := newHarness(t, 5000)
	res, err := h.svc.Reset(context.Background(), "a2", Actor{})
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !res.BalanceCreated || !res.StateChanged {
		t.Fatalf("unexpected result %+v", res)
	}
	b, err := h.wallet.Get(context.Background(), "a2")
	if err != nil || b.BalanceMinor != 0 || b.AutoRefillEnabled || b.AutoRefillAmountMinor != 2500 {
		t.Fatalf("unexpected default balance %+v %v", b, err)
	}
	st, err := h.states.Get(context.Background(), "a2")
	if err != nil || !st.Clean() {
		t.Fatalf("expected a created stopped state, got %+v %v", st, err)
	}

	again, err := h.svc.Reset(context.Background(), "a2", Actor{})
	if err != nil || again.Changed() {
		t.Fatalf("second reset should change nothing, got %+v %v", again, err)
	}
}

func TestStopAndEmergencyStop(t *testing.T) {
	h := newHarness(t, 5000)
	ctx := context.Background()
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	d, _ := h.svc.DispatchNext(ctx, account)

	st, err := h.svc.Stop(ctx, account, Actor{})
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st.Status != StatusStopped || st.QueueLength != 0 || st.CurrentCallID != d.CallID {
		t.Fatalf("stop must keep the in-flight pointer, got %+v", st)
	}
	if r, _ := h.svc.DispatchNext(ctx, account); r.Dispatched || r.Reason != ReasonNotRunning {
		t.Fatalf("stopped account must not dispatch, got %+v", r)
	}

	_, _ = h.svc.Override(ctx, OverrideCommand{AccountID: account, ExtraLeads: 2})
	st, err = h.svc.EmergencyStop(ctx, account, Actor{})
	if err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}
	if !st.Clean() {
		t.Fatalf("emergency stop should clear pointers and override, got %+v", st)
	}
}

type denyGuard struct{ acquired int }

func (g *denyGuard) Acquire(context.Context, string) (bool, error) { g.acquired++; return false, nil }
func (g *denyGuard) Release(context.Context, string) error         { return nil }

func TestDispatchNext_GuardHeldElsewhere(t *testing.T) {
	h := newHarness(t, 5000)
	h.addLead("l1", "+16502530001", leads.StatusNew)
	h.start(t, 5)
	g := &denyGuard{}
	h.svc.Guard = g

	d, err := h.svc.DispatchNext(context.Background(), account)
	if err != nil || d.Dispatched || d.Reason != ReasonCallInProgress {
		t.Fatalf("expected guard to block, got %+v %v", d, err)
	}
	if g.acquired != 1 || len(h.provider.reqs) != 0 {
		t.Fatalf("provider must not be called while the guard is held")
	}
}
