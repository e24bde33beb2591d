package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/shopspring/decimal"

	"outreach-dialer/pkg/logger"
)

// MercadoPagoGateway charges stored cards through the Mercado Pago payments API.
// In mock mode every charge is approved with a synthetic id.
type MercadoPagoGateway struct {
	client   payment.Client
	mockMode bool
}

func NewMercadoPagoGateway(accessToken string, mock bool) (*MercadoPagoGateway, error) {
	if mock {
		slog.Info("payment gateway mock mode enabled")
		return &MercadoPagoGateway{mockMode: true}, nil
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", ErrGatewayNotReady)
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	return &MercadoPagoGateway{client: payment.NewClient(cfg)}, nil
}

// approved is the only Mercado Pago status that means money moved.
const approved = "approved"

func (g *MercadoPagoGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := validate(req); err != nil {
		return ChargeResult{}, err
	}
	log := logger.From(ctx).With("account_id", req.AccountID, "amount_minor", req.AmountMinor)

	if g != nil && g.mockMode {
		id := "mock-" + strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
		log.Info("payment gateway mock charge", "charge_id", id)
		return ChargeResult{ChargeID: id, Status: approved}, nil
	}
	if g == nil || g.client == nil {
		return ChargeResult{}, ErrGatewayNotReady
	}

	body, err := json.Marshal(chargePayload(req))
	if err != nil {
		return ChargeResult{}, err
	}
	var preq payment.Request
	if err := json.Unmarshal(body, &preq); err != nil {
		return ChargeResult{}, fmt.Errorf("build payment request: %w", err)
	}

	resp, err := g.client.Create(ctx, preq)
	if err != nil {
		log.Warn("payment gateway create failed", "err", err)
		return ChargeResult{}, err
	}
	out := ChargeResult{ChargeID: fmt.Sprintf("%d", resp.ID), Status: resp.Status}
	if resp.Status != approved {
		log.Warn("payment gateway charge not approved", "charge_id", out.ChargeID, "status", resp.Status)
		return out, fmt.Errorf("%w: status %s", ErrDeclined, resp.Status)
	}
	log.Info("payment gateway charge approved", "charge_id", out.ChargeID)
	return out, nil
}

// chargePayload mirrors the payments API body for a customer card charge.
func chargePayload(req ChargeRequest) map[string]any {
	amount, _ := decimal.New(req.AmountMinor, -2).Float64()
	payer := map[string]any{"type": "customer", "id": req.Instrument.CustomerID}
	if req.Instrument.PayerEmail != "" {
		payer["email"] = req.Instrument.PayerEmail
	}
	return map[string]any{
		"transaction_amount": amount,
		"token":              req.Instrument.CardToken,
		"payment_method_id":  req.Instrument.PaymentMethodID,
		"installments":       1,
		"description":        req.Description,
		"external_reference": req.IdempotencyKey,
		"payer":              payer,
	}
}
