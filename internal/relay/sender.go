package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender delivers a session event to the workflow relay endpoint.
type Sender interface {
	Send(ctx context.Context, ev SessionStarted) error
}

type HTTPSender struct {
	url    string
	secret string
	client *http.Client
}

func NewHTTPSender(url, secret string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{url: url, secret: secret, client: &http.Client{Timeout: timeout}}
}

// PermanentError marks a rejection that retrying cannot fix.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("relay rejected event: status %d: %s", e.StatusCode, e.Body)
}

func (s *HTTPSender) Send(ctx context.Context, ev SessionStarted) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set("X-Relay-Secret", s.secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode <= 499 && resp.StatusCode != http.StatusTooManyRequests:
		return &PermanentError{StatusCode: resp.StatusCode, Body: string(raw)}
	default:
		return fmt.Errorf("relay unavailable: status %d", resp.StatusCode)
	}
}
