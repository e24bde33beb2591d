package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPProvider dispatches calls to a JSON-over-HTTP voice agent API.
// Requests are paced by a token bucket shared by every account in the process.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

type HTTPProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RatePerSecond <= 0 disables pacing.
	RatePerSecond float64
	Burst         int
}

func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}, nil
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return DispatchResult{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return DispatchResult{}, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return DispatchResult{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		hreq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(hreq)
	if err != nil {
		return DispatchResult{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DispatchResult{}, fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out DispatchResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return DispatchResult{}, fmt.Errorf("decode dispatch response: %w", err)
	}
	if out.CallID == "" {
		return DispatchResult{}, fmt.Errorf("%w: empty call id", ErrProviderRejected)
	}
	return out, nil
}
