package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"outreach-dialer/internal/payments"
	"outreach-dialer/internal/payments/mocks"
	"outreach-dialer/internal/wallet"
)

type fixedDay string

func (d fixedDay) Today() string { return string(d) }

func (d fixedDay) CanonicalDay(t time.Time) string { return t.UTC().Format("2006-01-02") }

const today = "2026-03-10"

func walletWith(t *testing.T, b wallet.Balance, gw payments.Gateway) (*wallet.Service, *wallet.MemoryRepo) {
	t.Helper()
	repo := wallet.NewMemoryRepo()
	repo.Put(b)
	return wallet.NewService(repo, gw), repo
}

func funded(minor int64) wallet.Balance {
	b := wallet.DefaultBalance("a1", time.Now())
	b.BalanceMinor = minor
	return b
}

func TestCheck_BalanceGate(t *testing.T) {
	svc, _ := walletWith(t, funded(0), nil)
	c := NewController(svc, fixedDay(today))

	d, err := c.Check(context.Background(), Request{AccountID: "a1", DailyBudgetMinor: 1000})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if d.Allowed || d.Gate != GateBalance {
		t.Fatalf("expected paused-balance, got %+v", d)
	}
}

func TestCheck_BudgetGateUntilDayAdvances(t *testing.T) {
	svc, _ := walletWith(t, funded(5000), nil)
	req := Request{AccountID: "a1", DailyBudgetMinor: 1000, TodaySpendMinor: 1000, SpendDay: today}

	d, _ := NewController(svc, fixedDay(today)).Check(context.Background(), req)
	if d.Allowed || d.Gate != GateBudget {
		t.Fatalf("expected paused-budget at spend == budget, got %+v", d)
	}

	req.TodaySpendMinor = 999
	d, _ = NewController(svc, fixedDay(today)).Check(context.Background(), req)
	if !d.Allowed {
		t.Fatalf("expected admission below budget, got %+v", d)
	}

	req.TodaySpendMinor = 5000
	d, _ = NewController(svc, fixedDay("2026-03-11")).Check(context.Background(), req)
	if !d.Allowed || d.SpendMinor != 0 {
		t.Fatalf("expected reset spend on the next canonical day, got %+v", d)
	}
}

func TestCheck_OverrideBypassesBudgetOnly(t *testing.T) {
	svc, _ := walletWith(t, funded(5000), nil)
	c := NewController(svc, fixedDay(today))
	req := Request{AccountID: "a1", DailyBudgetMinor: 100, TodaySpendMinor: 500, SpendDay: today, OverrideRemaining: 3}

	d, _ := c.Check(context.Background(), req)
	if !d.Allowed || !d.BudgetBypassed {
		t.Fatalf("expected override to bypass budget gate, got %+v", d)
	}

	broke, _ := walletWith(t, funded(0), nil)
	d, _ = NewController(broke, fixedDay(today)).Check(context.Background(), req)
	if d.Allowed || d.Gate != GateBalance {
		t.Fatalf("override must not bypass the balance gate, got %+v", d)
	}
}

func TestCheck_AutoRefillScenario(t *testing.T) {
	b := funded(0)
	b.AutoRefillEnabled = true
	b.AutoRefillAmountMinor = 2500
	b.AutoRefillThresholdMinor = 500
	b.Instrument = payments.Instrument{CustomerID: "cus_1", CardToken: "tok"}

	t.Run("charge succeeds", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(ctrl)
		gw.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(payments.ChargeResult{ChargeID: "ch_1", Status: "approved"}, nil).Times(1)

		svc, _ := walletWith(t, b, gw)
		d, err := NewController(svc, fixedDay(today)).Check(context.Background(), Request{AccountID: "a1", DailyBudgetMinor: 1000})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !d.Allowed || d.BalanceMinor != 2500 || d.Refill.ChargeID != "ch_1" {
			t.Fatalf("expected refilled admission, got %+v", d)
		}
		txns, _ := svc.Transactions(context.Background(), "a1", 10)
		if len(txns) != 1 || txns[0].ExternalRef != "ch_1" {
			t.Fatalf("expected a transaction referencing ch_1, got %+v", txns)
		}
	})

	t.Run("charge fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gw := mocks.NewMockGateway(ctrl)
		gw.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(payments.ChargeResult{}, errors.New("card expired")).Times(1)

		svc, _ := walletWith(t, b, gw)
		d, err := NewController(svc, fixedDay(today)).Check(context.Background(), Request{AccountID: "a1", DailyBudgetMinor: 1000})
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if d.Allowed || d.Gate != GateBalance || d.RefillErr == nil || d.BalanceMinor != 0 {
			t.Fatalf("expected paused-balance with surfaced refill error, got %+v", d)
		}
		txns, _ := svc.Transactions(context.Background(), "a1", 10)
		if len(txns) != 0 {
			t.Fatalf("expected no transactions, got %+v", txns)
		}
	})
}

func TestCheck_DeclinedRefillNotRetriedSameDay(t *testing.T) {
	b := funded(300)
	b.AutoRefillEnabled = true
	b.Instrument = payments.Instrument{CustomerID: "cus_1", CardToken: "tok"}

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(payments.ChargeResult{}, payments.ErrDeclined).Times(1)

	svc, repo := walletWith(t, b, gw)
	svc.WithClock(func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) })
	c := NewController(svc, fixedDay(today))
	req := Request{AccountID: "a1", DailyBudgetMinor: 1000}

	first, err := c.Check(context.Background(), req)
	if err != nil || first.RefillErr == nil || !first.Allowed {
		t.Fatalf("expected a failed refill with the balance still usable, got %+v %v", first, err)
	}
	for i := 0; i < 3; i++ {
		d, err := c.Check(context.Background(), req)
		if err != nil || !d.RefillDeferred || d.Refill.Attempted || !d.Allowed {
			t.Fatalf("expected deferred refill on check %d, got %+v %v", i, d, err)
		}
	}

	// A settings change starts a new cycle.
	ctrl2 := gomock.NewController(t)
	gw2 := mocks.NewMockGateway(ctrl2)
	gw2.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(payments.ChargeResult{ChargeID: "ch_2", Status: "approved"}, nil).Times(1)
	if _, err := svc.UpdateAutoRefill(context.Background(), "a1", wallet.AutoRefillSettings{
		Enabled: true, AmountMinor: 2500, ThresholdMinor: 500,
		Instrument: payments.Instrument{CustomerID: "cus_1", CardToken: "tok_new"},
	}); err != nil {
		t.Fatalf("UpdateAutoRefill: %v", err)
	}
	retry := NewController(wallet.NewService(repo, gw2), fixedDay(today))
	d, err := retry.Check(context.Background(), req)
	if err != nil || d.Refill.ChargeID != "ch_2" || d.BalanceMinor != 2800 {
		t.Fatalf("expected a fresh charge after the settings change, got %+v %v", d, err)
	}
}

func TestCheck_DeclinedRefillRetriedNextDay(t *testing.T) {
	failedAt := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	b := funded(300)
	b.AutoRefillEnabled = true
	b.Instrument = payments.Instrument{CustomerID: "cus_1", CardToken: "tok"}
	b.RefillFailedAt = &failedAt

	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(payments.ChargeResult{ChargeID: "ch_3", Status: "approved"}, nil).Times(1)

	svc, repo := walletWith(t, b, gw)
	d, err := NewController(svc, fixedDay(today)).Check(context.Background(), Request{AccountID: "a1", DailyBudgetMinor: 1000})
	if err != nil || d.RefillDeferred || d.Refill.ChargeID != "ch_3" {
		t.Fatalf("expected a new attempt on the next day, got %+v %v", d, err)
	}
	if got, _ := repo.Get(context.Background(), "a1"); got.RefillFailedAt != nil {
		t.Fatalf("a successful refill should clear the failure marker")
	}
}

func TestEffectiveSpend(t *testing.T) {
	if EffectiveSpend(700, "2026-03-09", today) != 0 {
		t.Fatalf("stale spend should be zero")
	}
	if EffectiveSpend(700, today, today) != 700 {
		t.Fatalf("same-day spend should count")
	}
}
