// Package admission decides whether an account may place another call.
//
// Two independent gates are evaluated each time:
//   - balance: the prepaid balance must be above zero;
//   - budget: today's spend must be below the daily budget, unless an
//     operator override batch still has attempts left.
//
// Before gating, a balance under its auto-refill threshold gets exactly one
// charge attempt. After a failed charge no further attempt is made for the
// rest of that canonical day; a settings change or a successful refill
// starts a new cycle.
package admission

import (
	"context"
	"fmt"
	"time"

	"outreach-dialer/internal/wallet"
	"outreach-dialer/pkg/logger"
)

// Gate names the gate that denied admission.
type Gate string

const (
	GateNone    Gate = ""
	GateBalance Gate = "paused-balance"
	GateBudget  Gate = "paused-budget"
)

// Request is a snapshot of the account's dialer state at decision time.
type Request struct {
	AccountID        string
	DailyBudgetMinor int64
	TodaySpendMinor  int64
	SpendDay         string
	// OverrideRemaining > 0 means an active override batch has attempts left.
	OverrideRemaining int
}

type Decision struct {
	Allowed bool `json:"allowed"`
	Gate    Gate `json:"gate,omitempty"`
	// BudgetBypassed is set when the budget gate failed and an override let the attempt through.
	BudgetBypassed bool  `json:"budget_bypassed"`
	BalanceMinor   int64 `json:"balance_minor"`
	SpendMinor     int64 `json:"spend_minor"`
	BudgetMinor    int64 `json:"budget_minor"`

	Refill    wallet.RefillResult `json:"refill"`
	RefillErr error               `json:"-"`
	// RefillDeferred is set when a refill was due but today's charge already failed.
	RefillDeferred bool `json:"refill_deferred,omitempty"`
}

// Wallet is the slice of wallet.Service the controller needs.
type Wallet interface {
	Ensure(ctx context.Context, accountID string) (wallet.Balance, error)
	Refill(ctx context.Context, b wallet.Balance) (wallet.RefillResult, error)
}

type DayResolver interface {
	Today() string
	CanonicalDay(t time.Time) string
}

type Controller struct {
	wallet Wallet
	days   DayResolver
}

func NewController(w Wallet, days DayResolver) *Controller {
	return &Controller{wallet: w, days: days}
}

// EffectiveSpend returns spend for today; a counter from an earlier day counts as zero.
func EffectiveSpend(spend int64, spendDay, today string) int64 {
	if spendDay != today {
		return 0
	}
	return spend
}

// Check evaluates both gates. A refill failure is reported on the Decision
// and does not by itself make Check return an error.
func (c *Controller) Check(ctx context.Context, req Request) (Decision, error) {
	log := logger.From(ctx).With("account_id", req.AccountID)

	bal, err := c.wallet.Ensure(ctx, req.AccountID)
	if err != nil {
		return Decision{}, fmt.Errorf("load balance: %w", err)
	}

	var d Decision
	switch {
	case !bal.NeedsRefill():
	case c.refillFailedToday(bal):
		d.RefillDeferred = true
		log.Debug("auto-refill deferred after earlier failure", "failed_at", bal.RefillFailedAt)
	default:
		res, err := c.wallet.Refill(ctx, bal)
		d.Refill = res
		if err != nil {
			d.RefillErr = err
			log.Warn("auto-refill failed during admission", "err", err)
		} else if res.Attempted {
			bal = res.Balance
		}
	}

	d.BalanceMinor = bal.BalanceMinor
	d.SpendMinor = EffectiveSpend(req.TodaySpendMinor, req.SpendDay, c.days.Today())
	d.BudgetMinor = req.DailyBudgetMinor

	if bal.BalanceMinor <= 0 {
		d.Gate = GateBalance
		return d, nil
	}
	if d.SpendMinor >= d.BudgetMinor {
		if req.OverrideRemaining <= 0 {
			d.Gate = GateBudget
			return d, nil
		}
		d.BudgetBypassed = true
	}
	d.Allowed = true
	return d, nil
}

func (c *Controller) refillFailedToday(b wallet.Balance) bool {
	return b.RefillFailedAt != nil && c.days.CanonicalDay(*b.RefillFailedAt) == c.days.Today()
}
