// Package app builds the service graph shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"outreach-dialer/internal/admission"
	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/autostart"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/config"
	"outreach-dialer/internal/dayclock"
	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/migrations"
	"outreach-dialer/internal/payments"
	"outreach-dialer/internal/pricing"
	"outreach-dialer/internal/relay"
	"outreach-dialer/internal/reporting"
	"outreach-dialer/internal/revenue"
	"outreach-dialer/internal/routing"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/internal/wallet"
	"outreach-dialer/pkg/utils"
)

type App struct {
	DB    *sql.DB
	Redis *redis.Client

	Days     *dayclock.Resolver
	States   dialer.StateRepository
	Dialer   *dialer.Service
	Wallet   *wallet.Service
	Revenue  *revenue.Reconciler
	Reports  *reporting.Service
	Audit    *audit.Service
	Sweeper  *autostart.Evaluator
	// Notifier is nil when the relay is disabled.
	Notifier *relay.QueueNotifier

	closers []func() error
}

// New opens Postgres and Redis and wires every service. Close releases them.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	if cfg.DB.AutoMigrate {
		if err := migrations.Up(ctx, db); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
	}

	redisCfg := RedisConfig(cfg)
	rdb, err := utils.OpenRedis(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)

	days, err := dayclock.New(cfg.Dialer.ReferenceTZ)
	if err != nil {
		return nil, err
	}
	a.Days = days

	a.Audit = audit.NewService(audit.NewPostgresRepo(db))

	gateway, err := payments.NewMercadoPagoGateway(cfg.Payments.MercadoPagoAccessToken, cfg.Payments.Mock)
	if err != nil {
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	a.Wallet = wallet.NewService(wallet.NewPostgresRepo(db), gateway)

	prices := pricing.NewService(pricing.NewPostgresRepo(db), pricing.MinutePricing{
		Currency:                cfg.Dialer.Currency,
		RatePerMinuteMinor:      cfg.Dialer.DefaultRatePerMinuteMinor,
		BillingIncrementSeconds: cfg.Dialer.BillingIncrementSeconds,
		EstimatedMinutesPerCall: cfg.Dialer.EstimatedMinutesPerCall,
	})

	outcomes, err := telephony.LoadOutcomeMap(cfg.Dialer.OutcomeMapPath)
	if err != nil {
		return nil, err
	}

	var notifier relay.Notifier = relay.NoopNotifier{}
	if cfg.Relay.Enabled {
		a.Notifier = relay.NewRedisQueueNotifier(redisCfg, relay.QueueConfig{Queue: cfg.Relay.Queue, MaxRetry: cfg.Relay.MaxRetry})
		a.closers = append(a.closers, a.Notifier.Close)
		notifier = a.Notifier
	}

	var guard dialer.Guard
	if cfg.Dialer.GuardEnabled {
		slots, err := utils.NewSlots(rdb, "dialer:dispatch:", 1, cfg.Dialer.GuardTTL)
		if err != nil {
			return nil, err
		}
		guard = slots
	}

	// The provider is optional for processes that never dispatch.
	var provider telephony.CallProvider = unconfiguredProvider{}
	if cfg.Provider.BaseURL != "" {
		p, err := telephony.NewHTTPProvider(telephony.HTTPProviderConfig{
			BaseURL:       cfg.Provider.BaseURL,
			APIKey:        cfg.Provider.APIKey,
			Timeout:       cfg.Provider.Timeout,
			RatePerSecond: cfg.Provider.RatePerSecond,
			Burst:         cfg.Provider.Burst,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	}

	a.States = dialer.NewPostgresRepo(db)
	a.Dialer, err = dialer.NewService(dialer.Deps{
		States:         a.States,
		Leads:          leads.NewPostgresRepo(db),
		Calls:          calls.NewPostgresRepo(db),
		Admitter:       admission.NewController(a.Wallet, days),
		Wallet:         a.Wallet,
		Pricing:        prices,
		Provider:       provider,
		Origins:        routing.NewSelector(nil),
		Outcomes:       outcomes,
		Notifier:       notifier,
		Audit:          a.Audit,
		Days:           days,
		Guard:          guard,
		Region:         cfg.Dialer.Region,
		DefaultAgentID: cfg.Dialer.DefaultAgentID,
	})
	if err != nil {
		return nil, err
	}

	ledger, err := newLedger(ctx, cfg.Ledger, db)
	if err != nil {
		return nil, err
	}
	tz := AccountTimezones(a.States)
	a.Revenue = revenue.NewReconciler(revenue.NewPostgresAppointments(db), ledger, tz, days, a.Audit)
	a.Reports = reporting.NewService(reporting.NewPostgresRepo(db), ledger, tz, days)
	a.Sweeper = autostart.NewEvaluator(a.States, a.Dialer, days, cfg.Sweep.Concurrency)

	log.Info("services wired",
		"ledger", cfg.Ledger.Backend,
		"guard", cfg.Dialer.GuardEnabled,
		"relay", cfg.Relay.Enabled,
		"payments_mock", cfg.Payments.Mock,
		"reference_tz", cfg.Dialer.ReferenceTZ)
	ok = true
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RedisConfig maps the env config onto the shared Redis settings.
func RedisConfig(cfg config.Config) utils.RedisConfig {
	return utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB}
}

func newLedger(ctx context.Context, cfg config.LedgerConfig, db *sql.DB) (revenue.LedgerStore, error) {
	if cfg.Backend != config.LedgerBackendDynamoDB {
		return revenue.NewPostgresLedger(db), nil
	}
	client, err := revenue.NewDynamoClient(ctx, revenue.DynamoConfig{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.DynamoEndpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	return revenue.NewDynamoLedger(client, cfg.DynamoTable), nil
}

// AccountTimezones reads the account timezone from its dialer schedule. An
// account without one uses the reference timezone.
func AccountTimezones(states dialer.StateRepository) revenue.Timezones {
	return revenue.TimezoneFunc(func(ctx context.Context, accountID string) (string, error) {
		st, err := states.Get(ctx, accountID)
		if errors.Is(err, dialer.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return st.Schedule.Timezone, nil
	})
}

type unconfiguredProvider struct{}

func (unconfiguredProvider) Name() string { return "unconfigured" }

func (unconfiguredProvider) Dispatch(context.Context, telephony.DispatchRequest) (telephony.DispatchResult, error) {
	return telephony.DispatchResult{}, errors.New("voice provider not configured")
}
