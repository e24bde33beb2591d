package dialer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"outreach-dialer/internal/admission"
	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/dayclock"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/pricing"
	"outreach-dialer/internal/relay"
	"outreach-dialer/internal/routing"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/internal/wallet"
)

type fakeProvider struct {
	mu   sync.Mutex
	n    int
	err  error
	reqs []telephony.DispatchRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Dispatch(_ context.Context, req telephony.DispatchRequest) (telephony.DispatchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return telephony.DispatchResult{}, p.err
	}
	p.n++
	p.reqs = append(p.reqs, req)
	return telephony.DispatchResult{CallID: fmt.Sprintf("call_%d", p.n)}, nil
}

type fakeNotifier struct {
	events []relay.SessionStarted
	err    error
}

func (n *fakeNotifier) SessionStarted(_ context.Context, ev relay.SessionStarted) error {
	n.events = append(n.events, ev)
	return n.err
}

type harness struct {
	now      time.Time
	svc      *Service
	states   *MemoryRepo
	leads    *leads.MemoryRepo
	calls    *calls.MemoryRepo
	wallet   *wallet.MemoryRepo
	audit    *audit.MemoryRepo
	provider *fakeProvider
	notifier *fakeNotifier
}

const account = "a1"

// 15:00 UTC is 11:00 in New York on 2026-03-10.
var t0 = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, balanceMinor int64) *harness {
	t.Helper()
	h := &harness{
		now:      t0,
		states:   NewMemoryRepo(),
		leads:    leads.NewMemoryRepo(),
		calls:    calls.NewMemoryRepo(),
		wallet:   wallet.NewMemoryRepo(),
		audit:    audit.NewMemoryRepo(),
		provider: &fakeProvider{},
		notifier: &fakeNotifier{},
	}
	days, err := dayclock.New("")
	if err != nil {
		t.Fatalf("dayclock: %v", err)
	}
	days = days.WithClock(func() time.Time { return h.now })

	b := wallet.DefaultBalance(account, t0)
	b.BalanceMinor = balanceMinor
	h.wallet.Put(b)
	walletSvc := wallet.NewService(h.wallet, nil)

	// 10 cents a minute, two estimated minutes per call: budget = limit × 20.
	prices := pricing.NewService(&pricing.MemoryRepo{}, pricing.MinutePricing{
		Currency: "USD", RatePerMinuteMinor: 10, BillingIncrementSeconds: 60, EstimatedMinutesPerCall: 2,
	})

	h.svc, err = NewService(Deps{
		States:   h.states,
		Leads:    h.leads,
		Calls:    h.calls,
		Admitter: admission.NewController(walletSvc, days),
		Wallet:   walletSvc,
		Pricing:  prices,
		Provider: h.provider,
		Origins:  routing.NewSelector(rand.New(rand.NewSource(1))),
		Notifier: h.notifier,
		Audit:    audit.NewService(h.audit),
		Days:     days,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	st := DefaultState(account, t0)
	st.Origins = []routing.WeightedOrigin{{Number: "+14155550100", Weight: 1}}
	if _, err := h.states.CreateIfAbsent(context.Background(), st); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	h.leads.PutSource(leads.Source{ID: "s1", AccountID: account, Active: true})
	return h
}

func (h *harness) addLead(id, phone string, status leads.Status) {
	h.leads.PutLead(leads.Lead{
		ID: id, AccountID: account, SourceID: "s1", Phone: phone, Qualified: true,
		Status: status, CreatedAt: t0.Add(-time.Hour),
	})
}

func (h *harness) lead(t *testing.T, id string) leads.Lead {
	t.Helper()
	l, err := h.leads.Get(context.Background(), account, id)
	if err != nil {
		t.Fatalf("get lead %s: %v", id, err)
	}
	return l
}

func (h *harness) state(t *testing.T) State {
	t.Helper()
	st, err := h.states.Get(context.Background(), account)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	return st
}

func (h *harness) start(t *testing.T, limit int) StartResult {
	t.Helper()
	res, err := h.svc.Start(context.Background(), StartCommand{AccountID: account, Limit: limit})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return res
}

var errProviderDown = errors.New("provider down")
