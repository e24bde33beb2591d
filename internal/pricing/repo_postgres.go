package pricing

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) FindMinutePricing(ctx context.Context, accountID string, at time.Time) (MinutePricing, bool, error) {
	const q = `
SELECT id, account_id, currency, rate_per_minute_minor, billing_increment_seconds,
       minimum_billable_seconds, estimated_minutes_per_call, effective_from, effective_to, status
FROM minute_rates
WHERE account_id = $1
  AND status = 'active'
  AND effective_from <= $2
  AND (effective_to IS NULL OR effective_to > $2)
ORDER BY effective_from DESC
LIMIT 1
`
	var (
		p      MinutePricing
		to     sql.NullTime
		status string
	)
	err := r.db.QueryRowContext(ctx, q, accountID, at).Scan(
		&p.ID,
		&p.AccountID,
		&p.Currency,
		&p.RatePerMinuteMinor,
		&p.BillingIncrementSeconds,
		&p.MinimumBillableSeconds,
		&p.EstimatedMinutesPerCall,
		&p.EffectiveFrom,
		&to,
		&status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return MinutePricing{}, false, nil
	}
	if err != nil {
		return MinutePricing{}, false, err
	}
	if to.Valid {
		t := to.Time
		p.EffectiveTo = &t
	}
	p.Status = PricingStatus(status)
	return p, true, nil
}
