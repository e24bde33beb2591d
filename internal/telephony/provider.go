package telephony

import (
	"context"
	"errors"
)

// CallProvider is the outbound voice provider port.
//
// Rules:
// - No provider SDK or HTTP calls outside telephony adapters.
// - Dispatch returns the provider call id synchronously; the outcome arrives
//   later through the callback webhook.
type CallProvider interface {
	Name() string
	Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error)
}

type DispatchRequest struct {
	AgentID string `json:"agent_id"`
	// Destination and Origin are E.164.
	Destination string   `json:"to_number"`
	Origin      string   `json:"from_number"`
	Metadata    Metadata `json:"metadata"`
}

// Metadata is echoed back by the provider on the outcome callback.
type Metadata struct {
	LeadID    string `json:"lead_id"`
	AccountID string `json:"account_id"`
}

type DispatchResult struct {
	CallID string `json:"call_id"`
}

// OutcomeCallback is the provider's asynchronous report of a finished call.
type OutcomeCallback struct {
	CallID          string `json:"call_id"`
	LeadID          string `json:"lead_id"`
	AccountID       string `json:"account_id"`
	Outcome         string `json:"outcome"`
	DurationSeconds int    `json:"duration_seconds"`
}

var (
	ErrProviderRejected = errors.New("provider rejected dispatch")
	ErrInvalidCallback  = errors.New("invalid outcome callback")
)

func (cb OutcomeCallback) Validate() error {
	if cb.CallID == "" || cb.Outcome == "" || cb.DurationSeconds < 0 {
		return ErrInvalidCallback
	}
	return nil
}
