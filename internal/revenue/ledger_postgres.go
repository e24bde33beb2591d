package revenue

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresLedger stores totals in revenue_ledger keyed by (account_id, day).
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger { return &PostgresLedger{db: db} }

func (l *PostgresLedger) Add(ctx context.Context, accountID, day string, delta int64) (int64, error) {
	var total int64
	err := l.db.QueryRowContext(ctx, `
INSERT INTO revenue_ledger (account_id, day, amount_minor, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (account_id, day) DO UPDATE
SET amount_minor = revenue_ledger.amount_minor + EXCLUDED.amount_minor, updated_at = now()
RETURNING amount_minor`, accountID, day, delta).Scan(&total)
	return total, err
}

func (l *PostgresLedger) Get(ctx context.Context, accountID, day string) (int64, error) {
	var total int64
	err := l.db.QueryRowContext(ctx,
		`SELECT amount_minor FROM revenue_ledger WHERE account_id = $1 AND day = $2`, accountID, day).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

func (l *PostgresLedger) Range(ctx context.Context, accountID, from, to string) ([]LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT account_id, day, amount_minor, updated_at
FROM revenue_ledger
WHERE account_id = $1 AND day BETWEEN $2 AND $3
ORDER BY day`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.AccountID, &e.Day, &e.AmountMinor, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RevenueTotal sums the range server-side with the revenue_total function.
func (l *PostgresLedger) RevenueTotal(ctx context.Context, accountID, from, to string) (int64, error) {
	var total int64
	err := l.db.QueryRowContext(ctx, `SELECT revenue_total($1, $2, $3)`, accountID, from, to).Scan(&total)
	return total, err
}
