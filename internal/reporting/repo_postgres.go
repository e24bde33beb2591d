package reporting

import (
	"context"
	"database/sql"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/wallet"
)

// PostgresRepo reads call rows through the calls repository and the
// transaction log directly.
type PostgresRepo struct {
	db    *sql.DB
	calls *calls.PostgresRepo
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, calls: calls.NewPostgresRepo(db)}
}

func (r *PostgresRepo) ListCalls(ctx context.Context, accountID string, from, to time.Time) ([]calls.Call, error) {
	return r.calls.ListByAccount(ctx, accountID, from, to)
}

func (r *PostgresRepo) ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]wallet.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, account_id, type, amount_minor, currency, external_ref, idempotency_key, created_at
FROM balance_transactions
WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		var (
			t   wallet.Transaction
			typ string
			ref sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &typ, &t.AmountMinor, &t.Currency, &ref, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = wallet.TransactionType(typ)
		t.ExternalRef = ref.String
		out = append(out, t)
	}
	return out, rows.Err()
}
