package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/revenue"
	"outreach-dialer/internal/wallet"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository reads the immutable sources a summary is built from.
// Every method filters by account.
type Repository interface {
	ListCalls(ctx context.Context, accountID string, from, to time.Time) ([]calls.Call, error)
	ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]wallet.Transaction, error)
}

type LedgerReader interface {
	Range(ctx context.Context, accountID, from, to string) ([]revenue.LedgerEntry, error)
}

// RevenueTotaler is implemented by ledgers that can sum a range server-side.
type RevenueTotaler interface {
	RevenueTotal(ctx context.Context, accountID, from, to string) (int64, error)
}

type DayResolver interface {
	LocalDay(t time.Time, tz string) (string, error)
}

type Service struct {
	repo      Repository
	ledger    LedgerReader
	timezones revenue.Timezones
	days      DayResolver
}

func NewService(repo Repository, ledger LedgerReader, tz revenue.Timezones, days DayResolver) *Service {
	return &Service{repo: repo, ledger: ledger, timezones: tz, days: days}
}

func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	const op = "reporting.summary"
	if req.AccountID == "" || req.From.IsZero() || req.To.IsZero() || !req.To.After(req.From) {
		return Summary{}, apperr.Wrap(apperr.KindValidation, op, "account and a non-empty time range are required", ErrInvalidRequest)
	}

	out := Summary{AccountID: req.AccountID, From: req.From.UTC(), To: req.To.UTC()}

	rows, err := s.repo.ListCalls(ctx, req.AccountID, req.From, req.To)
	if err != nil {
		return Summary{}, fmt.Errorf("list calls: %w", err)
	}
	out.Calls = summarizeCalls(rows)

	txs, err := s.repo.ListTransactions(ctx, req.AccountID, req.From, req.To)
	if err != nil {
		return Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	out.Spend = summarizeSpend(txs)

	if s.ledger != nil {
		rev, err := s.revenue(ctx, req)
		if err != nil {
			return Summary{}, err
		}
		out.Revenue = rev
	}

	if out.Calls.CompletedCalls > 0 {
		out.BookingRate = float64(out.Calls.BookedOutcomes) / float64(out.Calls.CompletedCalls)
	}
	if out.Calls.BookedOutcomes > 0 {
		out.CostPerBookingMinor = out.Spend.CallChargesMinor / int64(out.Calls.BookedOutcomes)
	}
	return out, nil
}

func summarizeCalls(rows []calls.Call) CallsSummary {
	out := CallsSummary{Outcomes: map[leads.Status]int{}}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.BudgetBypassed {
			out.BypassedCalls++
		}
		if c.Corrected {
			out.CorrectedCalls++
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusDispatched:
			out.InFlightCalls++
		case calls.CallStatusReset:
			out.ResetCalls++
		}
		if c.Outcome == "" {
			continue
		}
		out.Outcomes[c.Outcome]++
		switch c.Outcome {
		case leads.StatusAppointmentBooked:
			out.BookedOutcomes++
		case leads.StatusLiveTransfer:
			out.TransferOutcome++
		}
	}
	if out.CompletedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.CompletedCalls
	}
	return out
}

func summarizeSpend(txs []wallet.Transaction) SpendSummary {
	out := SpendSummary{Currency: wallet.DefaultCurrency}
	for i, t := range txs {
		if i == 0 && t.Currency != "" {
			out.Currency = t.Currency
		}
		switch t.Type {
		case wallet.TransactionCallCharge:
			out.CallChargesMinor += -t.AmountMinor
		case wallet.TransactionRefill:
			out.RefillsMinor += t.AmountMinor
		default:
			out.AdjustmentsMinor += t.AmountMinor
		}
		out.NetDeltaMinor += t.AmountMinor
	}
	return out
}

func (s *Service) revenue(ctx context.Context, req SummaryRequest) (RevenueSummary, error) {
	tz := ""
	if s.timezones != nil {
		v, err := s.timezones.AccountTimezone(ctx, req.AccountID)
		if err != nil {
			return RevenueSummary{}, fmt.Errorf("account timezone: %w", err)
		}
		tz = v
	}
	from, err := s.days.LocalDay(req.From, tz)
	if err != nil {
		return RevenueSummary{}, err
	}
	// To is exclusive.
	to, err := s.days.LocalDay(req.To.Add(-time.Nanosecond), tz)
	if err != nil {
		return RevenueSummary{}, err
	}

	out := RevenueSummary{FromDay: from, ToDay: to}
	entries, err := s.ledger.Range(ctx, req.AccountID, from, to)
	if err != nil {
		return RevenueSummary{}, fmt.Errorf("ledger range: %w", err)
	}
	var summed int64
	for _, e := range entries {
		out.Days = append(out.Days, DayRevenue{Day: e.Day, AmountMinor: e.AmountMinor})
		summed += e.AmountMinor
	}
	out.TotalMinor = summed

	if t, ok := s.ledger.(RevenueTotaler); ok {
		total, err := t.RevenueTotal(ctx, req.AccountID, from, to)
		if err != nil {
			logger.From(ctx).Warn("server-side revenue total failed, using client sum",
				"account_id", req.AccountID, "err", err)
			return out, nil
		}
		out.TotalMinor = total
	}
	return out, nil
}
