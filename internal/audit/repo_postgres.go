package audit

import (
	"context"
	"database/sql"

	"outreach-dialer/pkg/utils"
)

// PostgresRepo writes to audit_events. The table has no UPDATE/DELETE grants.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_events (id, account_id, type, actor, actor_role, lead_id, call_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE(NULLIF($9, '')::jsonb, '{}'::jsonb), $10)`,
		e.ID, e.AccountID, string(e.Type), utils.NullString(e.Actor), utils.NullString(e.ActorRole),
		utils.NullString(e.LeadID), utils.NullString(e.CallID), e.Message, e.Metadata, e.CreatedAt)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, accountID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, account_id, type, COALESCE(actor, ''), COALESCE(actor_role, ''), COALESCE(lead_id, ''),
       COALESCE(call_id, ''), message, metadata::text, created_at
FROM audit_events
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.ID, &e.AccountID, &typ, &e.Actor, &e.ActorRole, &e.LeadID,
			&e.CallID, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
