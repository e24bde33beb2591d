package leads

import (
	"context"
	"database/sql"
	"errors"

	"outreach-dialer/pkg/utils"
)

// PostgresRepo assumes the lead_sources and leads tables from the migrations.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const leadColumns = `id, account_id, source_id, name, phone, qualified, status, total_calls_made,
call_attempts_today, last_attempt_date, last_outcome, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var l Lead
	var status string
	if err := row.Scan(
		&l.ID,
		&l.AccountID,
		&l.SourceID,
		&l.Name,
		&l.Phone,
		&l.Qualified,
		&status,
		&l.TotalCallsMade,
		&l.CallAttemptsToday,
		&l.LastAttemptDate,
		&l.LastOutcome,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	l.Status = Status(status)
	return l, nil
}

func (r *PostgresRepo) ListSources(ctx context.Context, accountID string) ([]Source, error) {
	const q = `
SELECT id, account_id, name, active, created_at
FROM lead_sources
WHERE account_id = $1
`
	rows, err := r.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Name, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListBySources(ctx context.Context, accountID string, sourceIDs []string) ([]Lead, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + leadColumns + `
FROM leads
WHERE account_id = $1 AND source_id = ANY($2)
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, accountID, sourceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, accountID, leadID string) (Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE account_id = $1 AND id = $2`
	return scanLead(r.db.QueryRowContext(ctx, q, accountID, leadID))
}

func (r *PostgresRepo) Claim(ctx context.Context, accountID, leadID string, from Status) (bool, error) {
	const q = `
UPDATE leads
SET status = $4, updated_at = now()
WHERE account_id = $1 AND id = $2 AND status = $3
`
	n, err := utils.ExecAffected(ctx, r.db, q, accountID, leadID, string(from), string(StatusCallingInProgress))
	return n == 1, err
}

func (r *PostgresRepo) Release(ctx context.Context, accountID, leadID string, to Status) (bool, error) {
	const q = `
UPDATE leads
SET status = $3, updated_at = now()
WHERE account_id = $1 AND id = $2 AND status = $4
`
	n, err := utils.ExecAffected(ctx, r.db, q, accountID, leadID, string(to), string(StatusCallingInProgress))
	return n == 1, err
}

func (r *PostgresRepo) RecordAttempt(ctx context.Context, accountID, leadID, day string) (Lead, error) {
	q := `
UPDATE leads
SET total_calls_made = total_calls_made + 1,
    call_attempts_today = CASE WHEN last_attempt_date = $3 THEN call_attempts_today + 1 ELSE 1 END,
    last_attempt_date = $3,
    updated_at = now()
WHERE account_id = $1 AND id = $2
RETURNING ` + leadColumns
	return scanLead(r.db.QueryRowContext(ctx, q, accountID, leadID, day))
}

func (r *PostgresRepo) SetOutcome(ctx context.Context, accountID, leadID string, status Status, outcome string) (Lead, error) {
	q := `
UPDATE leads
SET status = $3, last_outcome = $4, updated_at = now()
WHERE account_id = $1 AND id = $2
RETURNING ` + leadColumns
	return scanLead(r.db.QueryRowContext(ctx, q, accountID, leadID, string(status), outcome))
}

func (r *PostgresRepo) SetOutcomeAfterReset(ctx context.Context, accountID, leadID string, status Status, outcome string) (bool, error) {
	const q = `
UPDATE leads
SET status = $3, last_outcome = $4, updated_at = now()
WHERE account_id = $1 AND id = $2 AND status = $5 AND last_outcome = $6
`
	n, err := utils.ExecAffected(ctx, r.db, q, accountID, leadID, string(status), outcome,
		string(StatusNoAnswer), OutcomeResetCleanup)
	return n == 1, err
}

func (r *PostgresRepo) ReleaseStuck(ctx context.Context, accountID, outcome string) ([]string, error) {
	const q = `
UPDATE leads
SET status = $2, last_outcome = $3, updated_at = now()
WHERE account_id = $1 AND status = $4
RETURNING id
`
	rows, err := r.db.QueryContext(ctx, q, accountID, string(StatusNoAnswer), outcome, string(StatusCallingInProgress))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
