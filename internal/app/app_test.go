package app

import (
	"context"
	"testing"
	"time"

	"outreach-dialer/internal/config"
	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/telephony"
)

func TestAccountTimezones(t *testing.T) {
	repo := dialer.NewMemoryRepo()
	st := dialer.DefaultState("a1", time.Now())
	st.Schedule.Timezone = "America/Chicago"
	if _, err := repo.CreateIfAbsent(context.Background(), st); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tz := AccountTimezones(repo)

	got, err := tz.AccountTimezone(context.Background(), "a1")
	if err != nil || got != "America/Chicago" {
		t.Fatalf("expected America/Chicago, got %q %v", got, err)
	}
	got, err = tz.AccountTimezone(context.Background(), "unknown")
	if err != nil || got != "" {
		t.Fatalf("unknown account should fall back to reference, got %q %v", got, err)
	}
}

func TestRedisConfig(t *testing.T) {
	c := config.Config{Redis: config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2}}
	r := RedisConfig(c)
	if r.Addr != "cache:6380" || r.Password != "pw" || r.DB != 2 {
		t.Fatalf("unexpected redis config %+v", r)
	}
}

func TestUnconfiguredProviderFails(t *testing.T) {
	var p telephony.CallProvider = unconfiguredProvider{}
	if _, err := p.Dispatch(context.Background(), telephony.DispatchRequest{}); err == nil {
		t.Fatalf("expected dispatch to fail")
	}
}
