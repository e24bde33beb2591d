package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker drains the relay outbox.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    *slog.Logger
}

type WorkerConfig struct {
	Queue       string
	Concurrency int
}

func NewWorker(opt asynq.RedisClientOpt, cfg WorkerConfig, sender Sender, log *slog.Logger) *Worker {
	if cfg.Queue == "" {
		cfg.Queue = "relay"
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
	})

	w := &Worker{server: server, mux: asynq.NewServeMux(), sender: sender, log: log}
	w.mux.HandleFunc(TaskSessionStarted, w.HandleSessionStarted)
	return w
}

// HandleSessionStarted delivers one event. Malformed payloads and permanent
// rejections skip retry; everything else is retried by asynq.
func (w *Worker) HandleSessionStarted(ctx context.Context, task *asynq.Task) error {
	ev, err := ParseSessionStartedPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}
	if ev.AccountID == "" {
		return fmt.Errorf("missing account id: %w", asynq.SkipRetry)
	}

	log := w.log.With("account_id", ev.AccountID, "trigger", ev.Trigger)
	if err := w.sender.Send(ctx, ev); err != nil {
		var perm *PermanentError
		if errors.As(err, &perm) {
			log.Error("relay rejected session event", "status", perm.StatusCode)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Warn("relay delivery failed, will retry", "err", err)
		return err
	}
	log.Info("relay notified", "queue_length", ev.QueueLength)
	return nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}
