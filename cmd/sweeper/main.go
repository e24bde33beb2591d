// Command sweeper runs the auto-start sweep on a cron schedule.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "time/tzdata"

	"outreach-dialer/internal/app"
	"outreach-dialer/internal/autostart"
	"outreach-dialer/internal/config"
	"outreach-dialer/pkg/logger"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateAPI()
	}
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	ctx := logger.With(rootCtx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("service wiring failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	c, err := autostart.NewCron(ctx, cfg.Sweep.Cron, a.Sweeper, 2*time.Minute)
	if err != nil {
		log.Error("sweeper init failed", "err", err)
		os.Exit(1)
	}
	c.Start()
	log.Info("sweeper running", "schedule", cfg.Sweep.Cron, "concurrency", cfg.Sweep.Concurrency)

	<-rootCtx.Done()
	log.Info("shutdown initiated")
	<-c.Stop().Done()
}
