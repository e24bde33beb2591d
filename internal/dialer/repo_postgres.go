package dialer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"outreach-dialer/internal/leads"
	"outreach-dialer/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const stateColumns = `account_id, status, COALESCE(current_call_id, ''), COALESCE(current_lead_id, ''), queue_length,
       daily_call_limit, schedule, override_active, override_remaining, override_started_at,
       auto_start_enabled, target_lead_count, COALESCE(agent_id, ''), origins, ordering,
       today_spend_minor, COALESCE(spend_day, ''), COALESCE(last_reason, ''), updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (State, error) {
	var (
		s                State
		status, ordering string
		schedule, orig   []byte
		startedAt        sql.NullTime
	)
	err := row.Scan(&s.AccountID, &status, &s.CurrentCallID, &s.CurrentLeadID, &s.QueueLength,
		&s.DailyCallLimit, &schedule, &s.Override.Active, &s.Override.LeadsRemaining, &startedAt,
		&s.AutoStartEnabled, &s.TargetLeadCount, &s.AgentID, &orig, &ordering,
		&s.TodaySpendMinor, &s.SpendDay, &s.LastReason, &s.UpdatedAt)
	if err != nil {
		return State{}, err
	}
	s.Status = SessionStatus(status)
	s.Ordering = leads.Ordering(ordering)
	if startedAt.Valid {
		t := startedAt.Time
		s.Override.StartedAt = &t
	}
	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &s.Schedule); err != nil {
			return State{}, fmt.Errorf("decode schedule: %w", err)
		}
	}
	if len(orig) > 0 {
		if err := json.Unmarshal(orig, &s.Origins); err != nil {
			return State{}, fmt.Errorf("decode origins: %w", err)
		}
	}
	return s, nil
}

func (r *PostgresRepo) Get(ctx context.Context, accountID string) (State, error) {
	s, err := scanState(r.db.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM dialer_states WHERE account_id = $1`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNotFound
	}
	return s, err
}

func encodeSettings(s State) (schedule, origins []byte, err error) {
	if schedule, err = json.Marshal(s.Schedule); err != nil {
		return nil, nil, err
	}
	if s.Origins == nil {
		return schedule, []byte("[]"), nil
	}
	origins, err = json.Marshal(s.Origins)
	return schedule, origins, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepo) CreateIfAbsent(ctx context.Context, s State) (bool, error) {
	schedule, origins, err := encodeSettings(s)
	if err != nil {
		return false, err
	}
	n, err := utils.ExecAffected(ctx, r.db, `
INSERT INTO dialer_states (account_id, status, queue_length, daily_call_limit, schedule, override_active,
  override_remaining, auto_start_enabled, target_lead_count, agent_id, origins, ordering, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (account_id) DO NOTHING`,
		s.AccountID, string(s.Status), s.QueueLength, s.DailyCallLimit, schedule, s.Override.Active,
		s.Override.LeadsRemaining, s.AutoStartEnabled, s.TargetLeadCount, utils.NullString(s.AgentID),
		origins, string(s.Ordering), s.UpdatedAt)
	return n == 1, err
}

func (r *PostgresRepo) Save(ctx context.Context, s State) error {
	schedule, origins, err := encodeSettings(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO dialer_states (account_id, status, current_call_id, current_lead_id, queue_length, daily_call_limit,
  schedule, override_active, override_remaining, override_started_at, auto_start_enabled, target_lead_count,
  agent_id, origins, ordering, last_reason, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (account_id) DO UPDATE SET
  status = EXCLUDED.status,
  current_call_id = EXCLUDED.current_call_id,
  current_lead_id = EXCLUDED.current_lead_id,
  queue_length = EXCLUDED.queue_length,
  daily_call_limit = EXCLUDED.daily_call_limit,
  schedule = EXCLUDED.schedule,
  override_active = EXCLUDED.override_active,
  override_remaining = EXCLUDED.override_remaining,
  override_started_at = EXCLUDED.override_started_at,
  auto_start_enabled = EXCLUDED.auto_start_enabled,
  target_lead_count = EXCLUDED.target_lead_count,
  agent_id = EXCLUDED.agent_id,
  origins = EXCLUDED.origins,
  ordering = EXCLUDED.ordering,
  last_reason = EXCLUDED.last_reason,
  updated_at = EXCLUDED.updated_at`,
		s.AccountID, string(s.Status), utils.NullString(s.CurrentCallID), utils.NullString(s.CurrentLeadID),
		s.QueueLength, s.DailyCallLimit, schedule, s.Override.Active, s.Override.LeadsRemaining,
		nullTime(s.Override.StartedAt), s.AutoStartEnabled, s.TargetLeadCount, utils.NullString(s.AgentID),
		origins, string(s.Ordering), utils.NullString(s.LastReason), s.UpdatedAt)
	return err
}

func (r *PostgresRepo) AccrueSpend(ctx context.Context, accountID, day string, amountMinor int64) (State, error) {
	s, err := scanState(r.db.QueryRowContext(ctx, `
UPDATE dialer_states
SET today_spend_minor = CASE WHEN spend_day = $2 THEN today_spend_minor + $3 ELSE $3 END,
    spend_day = $2,
    updated_at = now()
WHERE account_id = $1
RETURNING `+stateColumns, accountID, day, amountMinor))
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresRepo) ClearCurrentCall(ctx context.Context, accountID, callID string) (bool, error) {
	n, err := utils.ExecAffected(ctx, r.db, `
UPDATE dialer_states SET current_call_id = NULL, current_lead_id = NULL, updated_at = now()
WHERE account_id = $1 AND current_call_id = $2`, accountID, callID)
	return n > 0, err
}

func (r *PostgresRepo) ResetIfDirty(ctx context.Context, accountID string) (bool, error) {
	n, err := utils.ExecAffected(ctx, r.db, `
UPDATE dialer_states
SET status = 'stopped', current_call_id = NULL, current_lead_id = NULL, queue_length = 0,
    override_active = false, override_remaining = 0, override_started_at = NULL, updated_at = now()
WHERE account_id = $1
  AND (status <> 'stopped' OR current_call_id IS NOT NULL OR current_lead_id IS NOT NULL
       OR queue_length <> 0 OR override_active OR override_remaining <> 0)`, accountID)
	return n > 0, err
}

func (r *PostgresRepo) ListAutoStart(ctx context.Context) ([]State, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+stateColumns+` FROM dialer_states WHERE auto_start_enabled ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []State
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
