// Command worker delivers queued session-started notifications to the
// external automation webhook.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"outreach-dialer/internal/app"
	"outreach-dialer/internal/config"
	"outreach-dialer/internal/relay"
	"outreach-dialer/pkg/logger"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateWorker()
	}
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	sender := relay.NewHTTPSender(cfg.Relay.WebhookURL, cfg.Relay.Secret, cfg.Relay.Timeout)
	w := relay.NewWorker(relay.RedisClientOpt(app.RedisConfig(cfg)), relay.WorkerConfig{
		Queue:       cfg.Relay.Queue,
		Concurrency: cfg.Relay.Concurrency,
	}, sender, log)

	log.Info("relay worker starting", "queue", cfg.Relay.Queue, "concurrency", cfg.Relay.Concurrency)
	if err := w.Run(logger.With(rootCtx, log)); err != nil {
		log.Error("relay worker stopped", "err", err)
		os.Exit(1)
	}
	log.Info("relay worker stopped")
}
