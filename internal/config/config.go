package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"outreach-dialer/pkg/money"
)

// Config holds everything the processes read from the environment.
// Nothing outside this package reads raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Dialer   DialerConfig
	Provider ProviderConfig
	Payments PaymentsConfig
	Relay    RelayConfig
	Ledger   LedgerConfig
	Sweep    SweepConfig
	CORS     CORSConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// SSLMode accepts disable, require, verify-ca, verify-full.
	SSLMode string
	// AutoMigrate runs the embedded goose migrations at startup.
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type DialerConfig struct {
	// ReferenceTZ defines the canonical day for attempt counters and spend.
	ReferenceTZ    string
	Region         string
	DefaultAgentID string
	Currency       string

	DefaultRatePerMinuteMinor int64
	BillingIncrementSeconds   int
	EstimatedMinutesPerCall   int

	// OutcomeMapPath optionally points at a YAML provider vocabulary.
	OutcomeMapPath string

	GuardEnabled bool
	GuardTTL     time.Duration
}

type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	WebhookSecret string
}

type PaymentsConfig struct {
	MercadoPagoAccessToken string
	Mock                   bool
}

type RelayConfig struct {
	Enabled     bool
	WebhookURL  string
	Secret      string
	Queue       string
	MaxRetry    int
	Concurrency int
	Timeout     time.Duration
}

const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendDynamoDB = "dynamodb"
)

type LedgerConfig struct {
	Backend string

	DynamoTable        string
	AWSRegion          string
	DynamoEndpoint     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

type SweepConfig struct {
	Cron        string
	Concurrency int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (Config, error) {
	var c Config
	var errs []error
	intVar := func(dst *int, key string, required bool) {
		n, err := envInt(key, required)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = n
	}
	durVar := func(dst *time.Duration, key string) {
		d, err := envDuration(key)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = d
	}
	boolVar := func(dst *bool, key string) {
		b, err := envBool(key)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = b
	}

	c.App.Env = env("APP_ENV")
	intVar(&c.App.Port, "APP_PORT", true)
	c.App.LogLevel = env("LOG_LEVEL")

	c.DB.Host = env("DB_HOST")
	intVar(&c.DB.Port, "DB_PORT", true)
	c.DB.User = env("DB_USER")
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = env("DB_NAME")
	c.DB.SSLMode = env("DB_SSLMODE")
	boolVar(&c.DB.AutoMigrate, "DB_AUTO_MIGRATE")

	c.Redis.Host = env("REDIS_HOST")
	intVar(&c.Redis.Port, "REDIS_PORT", true)
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	intVar(&c.Redis.DB, "REDIS_DB", false)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = env("JWT_ISSUER")
	c.Auth.JWTAudience = env("JWT_AUDIENCE")
	durVar(&c.Auth.AccessTokenTTL, "JWT_ACCESS_TTL")
	durVar(&c.Auth.RefreshTokenTTL, "JWT_REFRESH_TTL")

	c.Dialer.ReferenceTZ = env("DIALER_REFERENCE_TZ")
	c.Dialer.Region = env("DIALER_REGION")
	c.Dialer.DefaultAgentID = env("DIALER_DEFAULT_AGENT_ID")
	c.Dialer.Currency = env("DIALER_CURRENCY")
	if v := env("DIALER_DEFAULT_RATE"); v != "" {
		minor, err := money.ParseMinor(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DIALER_DEFAULT_RATE: %w", err))
		}
		c.Dialer.DefaultRatePerMinuteMinor = minor
	}
	intVar(&c.Dialer.BillingIncrementSeconds, "DIALER_BILLING_INCREMENT_SECONDS", false)
	intVar(&c.Dialer.EstimatedMinutesPerCall, "DIALER_ESTIMATED_MINUTES_PER_CALL", false)
	c.Dialer.OutcomeMapPath = env("DIALER_OUTCOME_MAP")
	boolVar(&c.Dialer.GuardEnabled, "DIALER_GUARD_ENABLED")
	durVar(&c.Dialer.GuardTTL, "DIALER_GUARD_TTL")

	c.Provider.BaseURL = env("PROVIDER_BASE_URL")
	c.Provider.APIKey = os.Getenv("PROVIDER_API_KEY")
	durVar(&c.Provider.Timeout, "PROVIDER_TIMEOUT")
	if v := env("PROVIDER_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROVIDER_RATE_PER_SECOND must be a number, got %q", v))
		}
		c.Provider.RatePerSecond = f
	}
	intVar(&c.Provider.Burst, "PROVIDER_BURST", false)
	c.Provider.WebhookSecret = os.Getenv("PROVIDER_WEBHOOK_SECRET")

	c.Payments.MercadoPagoAccessToken = os.Getenv("MERCADOPAGO_ACCESS_TOKEN")
	boolVar(&c.Payments.Mock, "PAYMENT_GATEWAY_MOCK")

	boolVar(&c.Relay.Enabled, "RELAY_ENABLED")
	c.Relay.WebhookURL = env("RELAY_WEBHOOK_URL")
	c.Relay.Secret = os.Getenv("RELAY_SECRET")
	c.Relay.Queue = env("RELAY_QUEUE")
	intVar(&c.Relay.MaxRetry, "RELAY_MAX_RETRY", false)
	intVar(&c.Relay.Concurrency, "RELAY_CONCURRENCY", false)
	durVar(&c.Relay.Timeout, "RELAY_TIMEOUT")

	c.Ledger.Backend = strings.ToLower(env("LEDGER_BACKEND"))
	c.Ledger.DynamoTable = env("LEDGER_DYNAMODB_TABLE")
	c.Ledger.AWSRegion = env("AWS_REGION")
	c.Ledger.DynamoEndpoint = env("LEDGER_DYNAMODB_ENDPOINT")
	c.Ledger.AWSAccessKeyID = env("AWS_ACCESS_KEY_ID")
	c.Ledger.AWSSecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

	c.Sweep.Cron = env("SWEEP_CRON")
	intVar(&c.Sweep.Concurrency, "SWEEP_CONCURRENCY", false)

	c.CORS.AllowedOrigins = splitList(env("CORS_ALLOWED_ORIGINS"))

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings every process needs and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if !validPort(c.App.Port) {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if !validPort(c.DB.Port) {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	switch {
	case c.DB.SSLMode == "" && c.IsProduction():
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	case c.DB.SSLMode == "":
		c.DB.SSLMode = "disable"
	case !isValidSSLMode(c.DB.SSLMode):
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if !validPort(c.Redis.Port) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && (c.Auth.JWTIssuer == "" || c.Auth.JWTAudience == "") {
		errs = append(errs, errors.New("JWT_ISSUER and JWT_AUDIENCE are required in production"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	c.applyDialerDefaults()
	if c.Dialer.DefaultRatePerMinuteMinor < 0 {
		errs = append(errs, errors.New("DIALER_DEFAULT_RATE must not be negative"))
	}
	if _, err := time.LoadLocation(c.Dialer.ReferenceTZ); err != nil {
		errs = append(errs, fmt.Errorf("DIALER_REFERENCE_TZ: %w", err))
	}

	if c.Payments.MercadoPagoAccessToken == "" && !c.Payments.Mock {
		if c.IsProduction() {
			errs = append(errs, errors.New("MERCADOPAGO_ACCESS_TOKEN is required in production unless PAYMENT_GATEWAY_MOCK=true"))
		} else {
			c.Payments.Mock = true
		}
	}

	switch c.Ledger.Backend {
	case "":
		c.Ledger.Backend = LedgerBackendPostgres
	case LedgerBackendPostgres:
	case LedgerBackendDynamoDB:
		if c.Ledger.DynamoTable == "" {
			c.Ledger.DynamoTable = "revenue_ledger"
		}
		if c.Ledger.AWSRegion == "" {
			errs = append(errs, errors.New("AWS_REGION is required for the dynamodb ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("LEDGER_BACKEND must be postgres or dynamodb, got %q", c.Ledger.Backend))
	}

	if c.Sweep.Cron == "" {
		c.Sweep.Cron = "*/5 * * * *"
	}
	if c.Sweep.Concurrency <= 0 {
		c.Sweep.Concurrency = 8
	}

	return errors.Join(errs...)
}

func (c *Config) applyDialerDefaults() {
	d := &c.Dialer
	if d.ReferenceTZ == "" {
		d.ReferenceTZ = "America/New_York"
	}
	if d.Region == "" {
		d.Region = "US"
	}
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.DefaultRatePerMinuteMinor == 0 {
		d.DefaultRatePerMinuteMinor = 10
	}
	if d.BillingIncrementSeconds <= 0 {
		d.BillingIncrementSeconds = 60
	}
	if d.EstimatedMinutesPerCall <= 0 {
		d.EstimatedMinutesPerCall = 2
	}
	if d.GuardTTL <= 0 {
		d.GuardTTL = 30 * time.Second
	}
}

// ValidateAPI checks what the command API needs on top of Validate.
func (c Config) ValidateAPI() error {
	var errs []error
	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("PROVIDER_BASE_URL is required"))
	}
	if c.Provider.WebhookSecret == "" {
		errs = append(errs, errors.New("PROVIDER_WEBHOOK_SECRET is required"))
	}
	if c.IsProduction() && c.Provider.APIKey == "" {
		errs = append(errs, errors.New("PROVIDER_API_KEY is required in production"))
	}
	return errors.Join(errs...)
}

// ValidateWorker checks what the relay worker needs on top of Validate.
func (c Config) ValidateWorker() error {
	if c.Relay.WebhookURL == "" {
		return errors.New("RELAY_WEBHOOK_URL is required")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// PostgresDSN contains the password; never log it.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func envInt(key string, required bool) (int, error) {
	v := env(key)
	if v == "" {
		if required {
			return 0, fmt.Errorf("%s is required", key)
		}
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envDuration(key string) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func envBool(key string) (bool, error) {
	v := env(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	}
	return false
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	}
	return false
}
