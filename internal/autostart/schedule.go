package autostart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"outreach-dialer/pkg/logger"
)

// NewCron registers Sweep on a standard five-field cron schedule. A sweep
// still running when the next tick fires is skipped rather than overlapped.
func NewCron(ctx context.Context, schedule string, e *Evaluator, timeout time.Duration) (*cron.Cron, error) {
	log := logger.From(ctx)
	c := cron.New(
		cron.WithLogger(cronLogger{log}),
		cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
	)
	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if _, err := e.Sweep(runCtx); err != nil {
			log.Error("auto-start sweep failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return c, nil
}

// cronLogger routes cron's internal logging into slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
