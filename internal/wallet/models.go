package wallet

import (
	"time"

	"outreach-dialer/internal/payments"
)

// Balance is an account's prepaid calling balance plus its auto-refill settings.
// Invariant: BalanceMinor only changes together with a Transaction row.
type Balance struct {
	AccountID    string `json:"account_id"`
	Currency     string `json:"currency"`
	BalanceMinor int64  `json:"balance_minor"`

	AutoRefillEnabled        bool  `json:"auto_refill_enabled"`
	AutoRefillAmountMinor    int64 `json:"auto_refill_amount_minor"`
	AutoRefillThresholdMinor int64 `json:"auto_refill_threshold_minor"`

	// Instrument is the provider-side stored payment method. Tokenization happens elsewhere.
	Instrument payments.Instrument `json:"-"`

	// RefillFailedAt is the last declined auto-refill charge. Cleared by a
	// successful refill or a settings change.
	RefillFailedAt *time.Time `json:"refill_failed_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsRefill reports whether auto-refill should fire for this balance.
func (b Balance) NeedsRefill() bool {
	return b.AutoRefillEnabled && b.BalanceMinor < b.AutoRefillThresholdMinor
}

// RefillAmounts is the fixed set of auto-refill amounts an account may choose.
var RefillAmounts = []int64{2500, 5000, 10000, 20000}

func ValidRefillAmount(v int64) bool {
	for _, a := range RefillAmounts {
		if a == v {
			return true
		}
	}
	return false
}

const (
	DefaultCurrency                 = "USD"
	DefaultAutoRefillAmountMinor    = 2500
	DefaultAutoRefillThresholdMinor = 500
)

// DefaultBalance is what lazy bootstrap creates: zero balance, auto-refill off.
func DefaultBalance(accountID string, now time.Time) Balance {
	return Balance{
		AccountID:                accountID,
		Currency:                 DefaultCurrency,
		AutoRefillAmountMinor:    DefaultAutoRefillAmountMinor,
		AutoRefillThresholdMinor: DefaultAutoRefillThresholdMinor,
		UpdatedAt:                now,
	}
}

// Transaction is an immutable append-only balance movement.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Type      TransactionType `json:"type"`

	// AmountMinor is signed: credits positive, debits negative.
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`

	// ExternalRef is the payment charge id or the provider call id.
	ExternalRef string `json:"external_ref,omitempty"`

	// IdempotencyKey makes redelivered callbacks and retried requests safe.
	IdempotencyKey string `json:"idempotency_key"`

	CreatedAt time.Time `json:"created_at"`
}

type TransactionType string

const (
	TransactionRefill     TransactionType = "refill"
	TransactionCallCharge TransactionType = "call_charge"
	TransactionAdjustment TransactionType = "adjustment"
)

// AutoRefillSettings is the operator-editable part of a Balance.
type AutoRefillSettings struct {
	Enabled        bool                `json:"enabled"`
	AmountMinor    int64               `json:"amount_minor"`
	ThresholdMinor int64               `json:"threshold_minor"`
	Instrument     payments.Instrument `json:"instrument"`
}
