package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"outreach-dialer/internal/payments"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
)

// Service owns balance mutations.
//
// Money invariants:
// - No balance change without a Transaction row (Repository.Post does both).
// - Transactions are append-only.
// - Auto-refill makes exactly one charge attempt per call to Refill; there is no retry loop.
type Service struct {
	repo    Repository
	gateway payments.Gateway
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, gateway payments.Gateway) *Service {
	return &Service{repo: repo, gateway: gateway, clock: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.clock = now
	return s
}

func (s *Service) Get(ctx context.Context, accountID string) (Balance, error) {
	if accountID == "" {
		return Balance{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, accountID)
}

// EnsureExists creates the default balance when none exists.
func (s *Service) EnsureExists(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, ErrInvalidArgument
	}
	return s.repo.CreateIfAbsent(ctx, DefaultBalance(accountID, s.clock().UTC()))
}

// Ensure returns the account's balance, creating the default one first if needed.
func (s *Service) Ensure(ctx context.Context, accountID string) (Balance, error) {
	b, err := s.Get(ctx, accountID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Balance{}, err
	}
	if _, err := s.EnsureExists(ctx, accountID); err != nil {
		return Balance{}, err
	}
	return s.repo.Get(ctx, accountID)
}

// ChargeCall debits a finished call's cost. The call id is the idempotency
// key, so a redelivered outcome callback never charges twice.
func (s *Service) ChargeCall(ctx context.Context, accountID, callID, currency string, costMinor int64) (Balance, error) {
	if accountID == "" || callID == "" || costMinor < 0 {
		return Balance{}, ErrInvalidArgument
	}
	if costMinor == 0 {
		return s.Ensure(ctx, accountID)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	b, _, err := s.repo.Post(ctx, Transaction{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Type:           TransactionCallCharge,
		AmountMinor:    -costMinor,
		Currency:       currency,
		ExternalRef:    callID,
		IdempotencyKey: "call:" + callID,
		CreatedAt:      s.clock().UTC(),
	})
	return b, err
}

type RefillResult struct {
	Attempted bool    `json:"attempted"`
	ChargeID  string  `json:"charge_id,omitempty"`
	Balance   Balance `json:"balance"`
}

// Refill charges the stored instrument once for the configured amount and
// credits the balance on success. On failure the balance is untouched, no
// Transaction is written and the failure time is stored on the balance.
func (s *Service) Refill(ctx context.Context, b Balance) (RefillResult, error) {
	const op = "wallet.refill"
	out := RefillResult{Balance: b}
	if !b.NeedsRefill() {
		return out, nil
	}
	if !ValidRefillAmount(b.AutoRefillAmountMinor) {
		return out, apperr.Validation(op, fmt.Sprintf("auto-refill amount %d is not allowed", b.AutoRefillAmountMinor))
	}
	if s.gateway == nil {
		return out, apperr.Upstream(op, "payment gateway unavailable", payments.ErrGatewayNotReady)
	}

	log := logger.From(ctx).With("account_id", b.AccountID, "amount_minor", b.AutoRefillAmountMinor)
	out.Attempted = true
	charge, err := s.gateway.Charge(ctx, payments.ChargeRequest{
		AccountID:      b.AccountID,
		AmountMinor:    b.AutoRefillAmountMinor,
		Currency:       b.Currency,
		Instrument:     b.Instrument,
		Description:    "Dialer balance auto-refill",
		IdempotencyKey: "refill:" + b.AccountID + ":" + uuid.NewString(),
	})
	if err != nil {
		log.Warn("auto-refill charge failed", "err", err)
		failedAt := s.clock().UTC()
		if markErr := s.repo.SetRefillFailure(ctx, b.AccountID, &failedAt); markErr != nil {
			log.Error("record auto-refill failure", "err", markErr)
		}
		out.Balance.RefillFailedAt = &failedAt
		return out, apperr.Upstream(op, "auto-refill charge failed", err)
	}
	out.ChargeID = charge.ChargeID

	nb, _, err := s.repo.Post(ctx, Transaction{
		ID:             uuid.NewString(),
		AccountID:      b.AccountID,
		Type:           TransactionRefill,
		AmountMinor:    b.AutoRefillAmountMinor,
		Currency:       b.Currency,
		ExternalRef:    charge.ChargeID,
		IdempotencyKey: "refill:" + charge.ChargeID,
		CreatedAt:      s.clock().UTC(),
	})
	if err != nil {
		// The provider holds the money; the charge id in this line is the reconciliation handle.
		log.Error("auto-refill charged but credit failed", "charge_id", charge.ChargeID, "err", err)
		return out, fmt.Errorf("credit refill %s: %w", charge.ChargeID, err)
	}
	if nb.RefillFailedAt != nil {
		if err := s.repo.SetRefillFailure(ctx, b.AccountID, nil); err != nil {
			log.Error("clear auto-refill failure", "err", err)
		} else {
			nb.RefillFailedAt = nil
		}
	}
	log.Info("auto-refill credited", "charge_id", charge.ChargeID, "balance_minor", nb.BalanceMinor)
	out.Balance = nb
	return out, nil
}

// UpdateAutoRefill validates and stores auto-refill settings.
func (s *Service) UpdateAutoRefill(ctx context.Context, accountID string, in AutoRefillSettings) (Balance, error) {
	const op = "wallet.update_auto_refill"
	if accountID == "" {
		return Balance{}, ErrInvalidArgument
	}
	if !ValidRefillAmount(in.AmountMinor) {
		return Balance{}, apperr.Validation(op, "amount must be one of 25, 50, 100 or 200 dollars")
	}
	if in.ThresholdMinor < 0 {
		return Balance{}, apperr.Validation(op, "threshold must not be negative")
	}
	if in.Enabled && in.Instrument.Empty() {
		return Balance{}, apperr.Validation(op, "auto-refill needs a stored payment instrument")
	}
	if _, err := s.EnsureExists(ctx, accountID); err != nil {
		return Balance{}, err
	}
	return s.repo.UpdateAutoRefill(ctx, accountID, in)
}

func (s *Service) Transactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if accountID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListTransactions(ctx, accountID, limit)
}
