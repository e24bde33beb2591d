package pricing

import (
	"context"
	"errors"
	"time"
)

// Service prices completed calls and derives daily spend budgets.
// Accounts without a configured rate use the fallback rate.
type Service struct {
	repo     RateRepository
	fallback MinutePricing
	clock    func() time.Time
}

func NewService(repo RateRepository, fallback MinutePricing) *Service {
	if fallback.Status == "" {
		fallback.Status = PricingStatusActive
	}
	if fallback.EstimatedMinutesPerCall <= 0 {
		fallback.EstimatedMinutesPerCall = 2
	}
	return &Service{repo: repo, fallback: fallback, clock: time.Now}
}

type CallCost struct {
	AccountID          string `json:"account_id"`
	Currency           string `json:"currency"`
	DurationSeconds    int    `json:"duration_seconds"`
	BillableSeconds    int    `json:"billable_seconds"`
	RatePerMinuteMinor int64  `json:"rate_per_minute_minor"`
	TotalMinor         int64  `json:"total_minor"`
}

var (
	ErrInvalidPricingReq = errors.New("invalid pricing request")
)

// Rate returns the account's effective rate at `at`, or the fallback.
func (s *Service) Rate(ctx context.Context, accountID string, at time.Time) (MinutePricing, error) {
	if accountID == "" {
		return MinutePricing{}, ErrInvalidPricingReq
	}
	if at.IsZero() {
		at = s.clock().UTC()
	}
	mp, ok, err := s.repo.FindMinutePricing(ctx, accountID, at)
	if err != nil {
		return MinutePricing{}, err
	}
	if !ok {
		mp = s.fallback
		mp.AccountID = accountID
	}
	if mp.EstimatedMinutesPerCall <= 0 {
		mp.EstimatedMinutesPerCall = s.fallback.EstimatedMinutesPerCall
	}
	return mp, nil
}

// CalculateCallCost prices a finished call. Zero-duration calls cost nothing.
func (s *Service) CalculateCallCost(ctx context.Context, accountID string, durationSeconds int, at time.Time) (CallCost, error) {
	if durationSeconds < 0 {
		return CallCost{}, ErrInvalidPricingReq
	}
	mp, err := s.Rate(ctx, accountID, at)
	if err != nil {
		return CallCost{}, err
	}

	billable := 0
	if durationSeconds > 0 {
		billable = billableSeconds(durationSeconds, mp.MinimumBillableSeconds, mp.BillingIncrementSeconds)
	}
	return CallCost{
		AccountID:          accountID,
		Currency:           mp.Currency,
		DurationSeconds:    durationSeconds,
		BillableSeconds:    billable,
		RatePerMinuteMinor: mp.RatePerMinuteMinor,
		TotalMinor:         prorate(mp.RatePerMinuteMinor, billable),
	}, nil
}

// DailyBudget converts a daily call limit into minor units of spend:
// limit × estimated minutes per call × rate per minute.
func (s *Service) DailyBudget(ctx context.Context, accountID string, dailyCallLimit int) (int64, error) {
	if dailyCallLimit <= 0 {
		return 0, nil
	}
	mp, err := s.Rate(ctx, accountID, time.Time{})
	if err != nil {
		return 0, err
	}
	return int64(dailyCallLimit) * int64(mp.EstimatedMinutesPerCall) * mp.RatePerMinuteMinor, nil
}

// RateRepository abstracts pricing persistence.
type RateRepository interface {
	FindMinutePricing(ctx context.Context, accountID string, at time.Time) (MinutePricing, bool, error)
}

func billableSeconds(actualSec int, minSec int, incrementSec int) int {
	if actualSec < 0 {
		return 0
	}
	if minSec <= 0 {
		minSec = 0
	}
	if incrementSec <= 0 {
		incrementSec = 60
	}

	sec := actualSec
	if sec < minSec {
		sec = minSec
	}

	// round up to nearest increment
	q := sec / incrementSec
	if sec%incrementSec != 0 {
		q++
	}
	return q * incrementSec
}

// prorate charges ratePerMinute for sec seconds, rounding up to the minor unit.
func prorate(ratePerMinute int64, sec int) int64 {
	if sec <= 0 || ratePerMinute <= 0 {
		return 0
	}
	n := ratePerMinute * int64(sec)
	total := n / 60
	if n%60 != 0 {
		total++
	}
	return total
}
