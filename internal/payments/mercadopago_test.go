package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMercadoPagoGateway_MockModeApproves(t *testing.T) {
	g, err := NewMercadoPagoGateway("", true)
	if err != nil {
		t.Fatalf("NewMercadoPagoGateway: %v", err)
	}
	res, err := g.Charge(context.Background(), ChargeRequest{
		AccountID:   "a1",
		AmountMinor: 2500,
		Instrument:  Instrument{CustomerID: "cus_1", CardToken: "tok"},
	})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if res.Status != "approved" || !strings.HasPrefix(res.ChargeID, "mock-") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMercadoPagoGateway_Validation(t *testing.T) {
	g, _ := NewMercadoPagoGateway("", true)
	_, err := g.Charge(context.Background(), ChargeRequest{AccountID: "a1", AmountMinor: 2500})
	if !errors.Is(err, ErrNoInstrument) {
		t.Fatalf("expected ErrNoInstrument, got %v", err)
	}
	_, err = g.Charge(context.Background(), ChargeRequest{AccountID: "a1", Instrument: Instrument{CardToken: "t"}})
	if !errors.Is(err, ErrInvalidChargeArgs) {
		t.Fatalf("expected ErrInvalidChargeArgs, got %v", err)
	}
}

func TestNewMercadoPagoGateway_RequiresToken(t *testing.T) {
	if _, err := NewMercadoPagoGateway("", false); !errors.Is(err, ErrGatewayNotReady) {
		t.Fatalf("expected ErrGatewayNotReady, got %v", err)
	}
}

func TestChargePayload(t *testing.T) {
	p := chargePayload(ChargeRequest{
		AmountMinor:    2550,
		Instrument:     Instrument{CustomerID: "cus_1", CardToken: "tok", PaymentMethodID: "visa"},
		IdempotencyKey: "refill:a1:1",
	})
	if p["transaction_amount"].(float64) != 25.5 {
		t.Fatalf("unexpected amount %v", p["transaction_amount"])
	}
	payer := p["payer"].(map[string]any)
	if payer["id"] != "cus_1" || payer["type"] != "customer" {
		t.Fatalf("unexpected payer %v", payer)
	}
}
