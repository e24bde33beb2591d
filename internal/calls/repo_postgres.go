package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outreach-dialer/internal/leads"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `call_id, account_id, lead_id, agent_id, from_number, to_number, status, outcome,
provider_outcome, corrected, duration_seconds, cost_minor, budget_bypassed, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var (
		c         Call
		status    string
		outcome   string
		completed sql.NullTime
	)
	if err := row.Scan(
		&c.CallID,
		&c.AccountID,
		&c.LeadID,
		&c.AgentID,
		&c.From,
		&c.To,
		&status,
		&outcome,
		&c.ProviderOutcome,
		&c.Corrected,
		&c.DurationSeconds,
		&c.CostMinor,
		&c.BudgetBypassed,
		&c.CreatedAt,
		&c.UpdatedAt,
		&completed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	c.Status = CallStatus(status)
	c.Outcome = leads.Status(outcome)
	if completed.Valid {
		t := completed.Time
		c.CompletedAt = &t
	}
	return c, nil
}

func (r *PostgresRepo) Create(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (call_id, account_id, lead_id, agent_id, from_number, to_number, status,
  outcome, provider_outcome, corrected, duration_seconds, cost_minor, budget_bypassed, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,'','',false,0,0,$8,$9,$9)
ON CONFLICT (call_id) DO NOTHING
`
	_, err := r.db.ExecContext(ctx, q,
		c.CallID,
		c.AccountID,
		c.LeadID,
		c.AgentID,
		c.From,
		c.To,
		string(c.Status),
		c.BudgetBypassed,
		c.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, callID string) (Call, error) {
	q := `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1`
	return scanCall(r.db.QueryRowContext(ctx, q, callID))
}

func (r *PostgresRepo) Complete(ctx context.Context, callID string, in Completion) (Call, bool, error) {
	q := `
UPDATE calls
SET status = 'completed', outcome = CASE WHEN corrected THEN outcome ELSE $2 END, provider_outcome = $3, duration_seconds = $4,
    cost_minor = $5, completed_at = $6, updated_at = $6
WHERE call_id = $1 AND status <> 'completed'
RETURNING ` + callColumns
	c, err := scanCall(r.db.QueryRowContext(ctx, q, callID, string(in.Outcome), in.ProviderOutcome, in.DurationSeconds, in.CostMinor, in.At))
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Call{}, false, err
	}
	// Either unknown or already completed.
	c, err = r.Get(ctx, callID)
	return c, false, err
}

func (r *PostgresRepo) Correct(ctx context.Context, callID string, outcome leads.Status) (Call, error) {
	q := `
UPDATE calls
SET outcome = $2, corrected = true, updated_at = now()
WHERE call_id = $1
RETURNING ` + callColumns
	return scanCall(r.db.QueryRowContext(ctx, q, callID, string(outcome)))
}

func (r *PostgresRepo) MarkReset(ctx context.Context, accountID string, leadIDs []string) (int, error) {
	if len(leadIDs) == 0 {
		return 0, nil
	}
	const q = `
UPDATE calls
SET status = 'reset', outcome = $3, updated_at = now()
WHERE account_id = $1 AND status = 'dispatched' AND lead_id = ANY($2)
`
	res, err := r.db.ExecContext(ctx, q, accountID, leadIDs, string(leads.StatusNoAnswer))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepo) ListByAccount(ctx context.Context, accountID string, from, to time.Time) ([]Call, error) {
	q := `SELECT ` + callColumns + `
FROM calls
WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
