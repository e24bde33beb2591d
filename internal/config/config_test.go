package config

import (
	"strings"
	"testing"
	"time"
)

func base(env string) Config {
	return Config{
		App:   AppConfig{Env: env, Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dialer"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsAllMissing(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV", "DB_HOST", "REDIS_HOST", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLModeAndGateway(t *testing.T) {
	c := base("production")
	c.Auth.JWTIssuer, c.Auth.JWTAudience = "iss", "aud"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") || !strings.Contains(err.Error(), "MERCADOPAGO_ACCESS_TOKEN") {
		t.Fatalf("expected sslmode and gateway errors, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := base("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Dialer.ReferenceTZ != "America/New_York" || c.Dialer.DefaultRatePerMinuteMinor != 10 || c.Dialer.EstimatedMinutesPerCall != 2 {
		t.Fatalf("unexpected dialer defaults %+v", c.Dialer)
	}
	if !c.Payments.Mock {
		t.Fatalf("local runs without a token should use the mock gateway")
	}
	if c.Ledger.Backend != LedgerBackendPostgres || c.Sweep.Cron == "" {
		t.Fatalf("unexpected ledger/sweep defaults %+v %+v", c.Ledger, c.Sweep)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access ttl %s", c.Auth.AccessTokenTTL)
	}
}

func TestValidate_DynamoLedgerNeedsRegion(t *testing.T) {
	c := base("dev")
	c.Ledger.Backend = LedgerBackendDynamoDB
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "AWS_REGION") {
		t.Fatalf("expected AWS_REGION error, got %v", err)
	}
	c.Ledger.AWSRegion = "us-east-1"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if c.Ledger.DynamoTable != "revenue_ledger" {
		t.Fatalf("expected default table, got %q", c.Ledger.DynamoTable)
	}
}

func TestValidate_BadReferenceTimezone(t *testing.T) {
	c := base("dev")
	c.Dialer.ReferenceTZ = "Mars/Olympus"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "DIALER_REFERENCE_TZ") {
		t.Fatalf("expected timezone error, got %v", err)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "n")
	t.Setenv("REDIS_HOST", "r")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DIALER_DEFAULT_RATE", "0.25")
	t.Setenv("PROVIDER_RATE_PER_SECOND", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Dialer.DefaultRatePerMinuteMinor != 25 || c.Provider.RatePerSecond != 2.5 {
		t.Fatalf("unexpected parsed values %+v %+v", c.Dialer, c.Provider)
	}
	if len(c.CORS.AllowedOrigins) != 2 || c.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", c.CORS.AllowedOrigins)
	}
	if err := c.ValidateAPI(); err == nil {
		t.Fatalf("API needs a provider")
	}
}

func TestLoad_BadNumbers(t *testing.T) {
	t.Setenv("APP_PORT", "abc")
	t.Setenv("DB_AUTO_MIGRATE", "maybe")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "APP_PORT") || !strings.Contains(err.Error(), "DB_AUTO_MIGRATE") {
		t.Fatalf("expected parse errors, got %v", err)
	}
}
