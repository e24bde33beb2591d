package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outreach-dialer/pkg/utils"
)

// PostgresRepo assumes the balances and balance_transactions tables with
// UNIQUE (account_id, idempotency_key) on balance_transactions.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const balanceColumns = `account_id, currency, balance_minor, auto_refill_enabled, auto_refill_amount_minor,
auto_refill_threshold_minor, customer_id, card_token, payment_method_id, payer_email, refill_failed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (Balance, error) {
	var (
		b        Balance
		failedAt sql.NullTime
	)
	if err := row.Scan(
		&b.AccountID,
		&b.Currency,
		&b.BalanceMinor,
		&b.AutoRefillEnabled,
		&b.AutoRefillAmountMinor,
		&b.AutoRefillThresholdMinor,
		&b.Instrument.CustomerID,
		&b.Instrument.CardToken,
		&b.Instrument.PaymentMethodID,
		&b.Instrument.PayerEmail,
		&failedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	if failedAt.Valid {
		t := failedAt.Time
		b.RefillFailedAt = &t
	}
	return b, nil
}

func (r *PostgresRepo) Get(ctx context.Context, accountID string) (Balance, error) {
	q := `SELECT ` + balanceColumns + ` FROM balances WHERE account_id = $1`
	return scanBalance(r.db.QueryRowContext(ctx, q, accountID))
}

func (r *PostgresRepo) CreateIfAbsent(ctx context.Context, b Balance) (bool, error) {
	const q = `
INSERT INTO balances (account_id, currency, balance_minor, auto_refill_enabled,
  auto_refill_amount_minor, auto_refill_threshold_minor, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (account_id) DO NOTHING
`
	n, err := utils.ExecAffected(ctx, r.db, q,
		b.AccountID,
		b.Currency,
		b.BalanceMinor,
		b.AutoRefillEnabled,
		b.AutoRefillAmountMinor,
		b.AutoRefillThresholdMinor,
		b.UpdatedAt,
	)
	return n == 1, err
}

func (r *PostgresRepo) Post(ctx context.Context, t Transaction) (Balance, bool, error) {
	var (
		out     Balance
		applied bool
	)
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if ok, err := transactionExists(ctx, tx, t.AccountID, t.IdempotencyKey); err != nil {
			return err
		} else if ok {
			b, err := scanBalance(tx.QueryRowContext(ctx, `SELECT `+balanceColumns+` FROM balances WHERE account_id = $1`, t.AccountID))
			if err != nil {
				return err
			}
			out = b
			return nil
		}

		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		b, err := applyBalanceDelta(ctx, tx, t)
		if err != nil {
			return err
		}
		out = b
		applied = true
		return nil
	})
	return out, applied, err
}

func transactionExists(ctx context.Context, tx *sql.Tx, accountID, key string) (bool, error) {
	const q = `
SELECT 1 FROM balance_transactions
WHERE account_id = $1 AND idempotency_key = $2
LIMIT 1
`
	var one int
	err := tx.QueryRowContext(ctx, q, accountID, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	const q = `
INSERT INTO balance_transactions (
  id, account_id, type, amount_minor, currency, external_ref, idempotency_key, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := tx.ExecContext(ctx, q,
		t.ID,
		t.AccountID,
		string(t.Type),
		t.AmountMinor,
		t.Currency,
		t.ExternalRef,
		t.IdempotencyKey,
		t.CreatedAt,
	)
	return err
}

func applyBalanceDelta(ctx context.Context, tx *sql.Tx, t Transaction) (Balance, error) {
	q := `
INSERT INTO balances (account_id, currency, balance_minor, auto_refill_enabled,
  auto_refill_amount_minor, auto_refill_threshold_minor, updated_at)
VALUES ($1,$2,$3,false,$4,$5,$6)
ON CONFLICT (account_id)
DO UPDATE SET balance_minor = balances.balance_minor + EXCLUDED.balance_minor,
              updated_at = EXCLUDED.updated_at
RETURNING ` + balanceColumns
	return scanBalance(tx.QueryRowContext(ctx, q,
		t.AccountID,
		t.Currency,
		t.AmountMinor,
		int64(DefaultAutoRefillAmountMinor),
		int64(DefaultAutoRefillThresholdMinor),
		t.CreatedAt,
	))
}

func (r *PostgresRepo) UpdateAutoRefill(ctx context.Context, accountID string, s AutoRefillSettings) (Balance, error) {
	q := `
UPDATE balances
SET auto_refill_enabled = $2,
    auto_refill_amount_minor = $3,
    auto_refill_threshold_minor = $4,
    customer_id = $5,
    card_token = $6,
    payment_method_id = $7,
    payer_email = $8,
    refill_failed_at = NULL,
    updated_at = now()
WHERE account_id = $1
RETURNING ` + balanceColumns
	return scanBalance(r.db.QueryRowContext(ctx, q,
		accountID,
		s.Enabled,
		s.AmountMinor,
		s.ThresholdMinor,
		s.Instrument.CustomerID,
		s.Instrument.CardToken,
		s.Instrument.PaymentMethodID,
		s.Instrument.PayerEmail,
	))
}

func (r *PostgresRepo) SetRefillFailure(ctx context.Context, accountID string, at *time.Time) error {
	var v sql.NullTime
	if at != nil {
		v = sql.NullTime{Time: *at, Valid: true}
	}
	n, err := utils.ExecAffected(ctx, r.db, `UPDATE balances SET refill_failed_at = $2 WHERE account_id = $1`, accountID, v)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, account_id, type, amount_minor, currency, external_ref, idempotency_key, created_at
FROM balance_transactions
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.AccountID, &typ, &t.AmountMinor, &t.Currency, &t.ExternalRef, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = TransactionType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}
