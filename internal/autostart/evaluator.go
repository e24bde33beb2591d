// Package autostart starts dialing sessions whose configured window is open.
// It is driven from outside (cron sweeper or the internal sweep endpoint).
package autostart

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"outreach-dialer/internal/dayclock"
	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/relay"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
)

type Lister interface {
	ListAutoStart(ctx context.Context) ([]dialer.State, error)
}

type Starter interface {
	Start(ctx context.Context, cmd dialer.StartCommand) (dialer.StartResult, error)
}

type Clock interface {
	Now() time.Time
	LocalClock(t time.Time, tz string) (dayclock.Clock, error)
}

type Action string

const (
	ActionStarted        Action = "started"
	ActionGated          Action = "gated"
	ActionOutsideWindow  Action = "outside_window"
	ActionAlreadyRunning Action = "already_running"
	ActionStoppedToday   Action = "stopped_today"
	ActionFailed         Action = "failed"
)

type AccountResult struct {
	AccountID string `json:"account_id"`
	Action    Action `json:"action"`
	Reason    string `json:"reason,omitempty"`
}

type SweepReport struct {
	Evaluated int             `json:"evaluated"`
	Started   int             `json:"started"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Results   []AccountResult `json:"results"`
}

type Evaluator struct {
	lister  Lister
	starter Starter
	clock   Clock
	limit   int
}

const DefaultConcurrency = 8

func NewEvaluator(l Lister, s Starter, c Clock, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Evaluator{lister: l, starter: s, clock: c, limit: concurrency}
}

// Sweep evaluates every auto-start account once. One account failing never
// stops the others; failures are counted in the report.
func (e *Evaluator) Sweep(ctx context.Context) (SweepReport, error) {
	log := logger.From(ctx)
	states, err := e.lister.ListAutoStart(ctx)
	if err != nil {
		return SweepReport{}, err
	}
	now := e.clock.Now()

	var (
		mu  sync.Mutex
		rep = SweepReport{Evaluated: len(states)}
	)
	var g errgroup.Group
	g.SetLimit(e.limit)
	for _, st := range states {
		g.Go(func() error {
			res := e.evaluate(ctx, st, now)
			mu.Lock()
			defer mu.Unlock()
			rep.Results = append(rep.Results, res)
			switch res.Action {
			case ActionStarted:
				rep.Started++
			case ActionFailed:
				rep.Failed++
			default:
				rep.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("auto-start sweep finished", "evaluated", rep.Evaluated, "started", rep.Started,
		"skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

func (e *Evaluator) evaluate(ctx context.Context, st dialer.State, now time.Time) AccountResult {
	out := AccountResult{AccountID: st.AccountID}
	log := logger.From(ctx).With("account_id", st.AccountID)

	local, err := e.clock.LocalClock(now, st.Schedule.Timezone)
	if err != nil {
		log.Warn("auto-start timezone invalid", "timezone", st.Schedule.Timezone, "err", err)
		out.Action, out.Reason = ActionFailed, "invalid_timezone"
		return out
	}
	if !st.Schedule.Matches(local) {
		out.Action = ActionOutsideWindow
		return out
	}
	if st.Status == dialer.StatusRunning {
		out.Action = ActionAlreadyRunning
		return out
	}
	// A session that was stopped today (by hand or on reaching its target)
	// stays stopped until the next local day.
	if st.Status == dialer.StatusStopped {
		if stopped, err := e.clock.LocalClock(st.UpdatedAt, st.Schedule.Timezone); err == nil && stopped.Day == local.Day {
			out.Action = ActionStoppedToday
			return out
		}
	}

	limit := st.TargetLeadCount
	if limit <= 0 {
		limit = dialer.DefaultTargetLeadCount
	}
	res, err := e.starter.Start(ctx, dialer.StartCommand{
		AccountID: st.AccountID,
		Limit:     limit,
		Trigger:   relay.TriggerSchedule,
		Actor:     dialer.Actor{Subject: "auto-start", Role: "automation"},
	})
	switch {
	case errors.Is(err, dialer.ErrAlreadyRunning):
		out.Action = ActionAlreadyRunning
	case err != nil:
		log.Error("auto-start failed", "err", err, "kind", apperr.KindOf(err))
		out.Action, out.Reason = ActionFailed, err.Error()
	case res.Status == dialer.StatusRunning:
		log.Info("auto-start began session", "queue_length", res.QueueLength)
		out.Action = ActionStarted
	default:
		out.Action, out.Reason = ActionGated, res.Reason
	}
	return out
}
