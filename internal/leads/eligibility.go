package leads

import (
	"context"
	"fmt"
)

// Reason explains an empty callable set. Exactly one applies.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoSheets       Reason = "no_sheets"
	ReasonNoLeads        Reason = "no_leads"
	ReasonAllDialedToday Reason = "all_dialed_today"
	ReasonAllExhausted   Reason = "all_exhausted"
)

// Diagnosis holds the counts a Reason is derived from.
type Diagnosis struct {
	ActiveSources          int `json:"active_sources"`
	Qualifying             int `json:"qualifying"`
	QualifyingNotAttempted int `json:"qualifying_not_attempted_today"`
	NonTerminal            int `json:"non_terminal"`
}

// Reason derives the empty-set explanation from the counts.
func (d Diagnosis) Reason() Reason {
	switch {
	case d.ActiveSources == 0:
		return ReasonNoSheets
	case d.Qualifying == 0:
		return ReasonNoLeads
	case d.QualifyingNotAttempted == 0:
		return ReasonAllDialedToday
	default:
		return ReasonAllExhausted
	}
}

type Result struct {
	Leads     []Lead    `json:"leads"`
	Reason    Reason    `json:"reason,omitempty"`
	Diagnosis Diagnosis `json:"diagnosis"`
	Day       string    `json:"day"`
}

func (r Result) Empty() bool { return len(r.Leads) == 0 }

// Reader is the read side of the lead store.
type Reader interface {
	ListSources(ctx context.Context, accountID string) ([]Source, error)
	ListBySources(ctx context.Context, accountID string, sourceIDs []string) ([]Lead, error)
}

// DayResolver supplies the canonical day.
type DayResolver interface {
	Today() string
}

// Filter computes the callable-lead set. It never writes.
type Filter struct {
	repo Reader
	days DayResolver
}

func NewFilter(repo Reader, days DayResolver) *Filter {
	return &Filter{repo: repo, days: days}
}

// IsCallable applies every per-lead rule for the canonical day.
func IsCallable(l Lead, day string) bool {
	if !l.Qualified || !l.Status.Callable() || l.CapReached() {
		return false
	}
	if l.AttemptedOn(day) && !l.Status.RetryableSameDay() {
		return false
	}
	return true
}

// CallableLeads returns the account's callable leads in policy order, or an
// empty set with its Reason.
func (f *Filter) CallableLeads(ctx context.Context, accountID string, order Ordering) (Result, error) {
	day := f.days.Today()
	out := Result{Day: day}

	sources, err := f.repo.ListSources(ctx, accountID)
	if err != nil {
		return Result{}, fmt.Errorf("list sources: %w", err)
	}
	active := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Active {
			active = append(active, s.ID)
		}
	}
	out.Diagnosis.ActiveSources = len(active)
	if len(active) == 0 {
		out.Reason = out.Diagnosis.Reason()
		return out, nil
	}

	all, err := f.repo.ListBySources(ctx, accountID, active)
	if err != nil {
		return Result{}, fmt.Errorf("list leads: %w", err)
	}

	callable := make([]Lead, 0, len(all))
	for _, l := range all {
		if !l.Status.Terminal() {
			out.Diagnosis.NonTerminal++
		}
		if !l.Qualified {
			continue
		}
		out.Diagnosis.Qualifying++
		if !l.AttemptedOn(day) {
			out.Diagnosis.QualifyingNotAttempted++
		}
		if IsCallable(l, day) {
			callable = append(callable, l)
		}
	}

	if len(callable) == 0 {
		out.Reason = out.Diagnosis.Reason()
		return out, nil
	}
	Sort(callable, order, accountID+"|"+day)
	out.Leads = callable
	return out, nil
}
