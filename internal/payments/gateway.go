// Package payments charges an account's stored payment instrument.
//
// The dialer only needs one synchronous operation: charge a fixed amount and
// learn whether it succeeded. No asynchronous confirmation is relied upon.
package payments

import (
	"context"
	"errors"
)

//go:generate mockgen -source=gateway.go -destination=mocks/mock_gateway.go -package=mocks

// Gateway is the payment provider port.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Instrument references a tokenized payment method held by the provider.
type Instrument struct {
	CustomerID      string `json:"customer_id"`
	CardToken       string `json:"card_token"`
	PaymentMethodID string `json:"payment_method_id"`
	PayerEmail      string `json:"payer_email"`
}

func (i Instrument) Empty() bool {
	return i.CustomerID == "" && i.CardToken == ""
}

type ChargeRequest struct {
	AccountID      string
	AmountMinor    int64
	Currency       string
	Instrument     Instrument
	Description    string
	IdempotencyKey string
}

type ChargeResult struct {
	ChargeID string
	Status   string
}

var (
	ErrDeclined          = errors.New("charge declined")
	ErrNoInstrument      = errors.New("no stored payment instrument")
	ErrGatewayNotReady   = errors.New("payment gateway not configured")
	ErrInvalidChargeArgs = errors.New("invalid charge request")
)

func validate(req ChargeRequest) error {
	if req.AccountID == "" || req.AmountMinor <= 0 {
		return ErrInvalidChargeArgs
	}
	if req.Instrument.Empty() {
		return ErrNoInstrument
	}
	return nil
}
