package revenue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outreach-dialer/pkg/utils"
)

type PostgresAppointments struct {
	db *sql.DB
}

func NewPostgresAppointments(db *sql.DB) *PostgresAppointments { return &PostgresAppointments{db: db} }

const appointmentColumns = `id, account_id, lead_id, status, is_sold, recurring_payment_minor, sold_at,
       COALESCE(sold_day, ''), scheduled_for, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (Appointment, error) {
	var (
		a      Appointment
		status string
		soldAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.AccountID, &a.LeadID, &status, &a.IsSold, &a.RecurringPaymentMinor, &soldAt,
		&a.SoldDay, &a.ScheduledFor, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Appointment{}, err
	}
	a.Status = AppointmentStatus(status)
	if soldAt.Valid {
		t := soldAt.Time
		a.SoldAt = &t
	}
	return a, nil
}

func (r *PostgresAppointments) Get(ctx context.Context, accountID, id string) (Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 AND account_id = $2`, id, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	return a, err
}

func soldAtArg(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresAppointments) Create(ctx context.Context, a Appointment) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO appointments (id, account_id, lead_id, status, is_sold, recurring_payment_minor, sold_at, sold_day,
  scheduled_for, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.AccountID, a.LeadID, string(a.Status), a.IsSold, a.RecurringPaymentMinor, soldAtArg(a.SoldAt),
		utils.NullString(a.SoldDay), a.ScheduledFor, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PostgresAppointments) Update(ctx context.Context, a Appointment, prev time.Time) (bool, error) {
	n, err := utils.ExecAffected(ctx, r.db, `
UPDATE appointments
SET status = $3, is_sold = $4, recurring_payment_minor = $5, sold_at = $6, sold_day = $7, updated_at = $8
WHERE id = $1 AND account_id = $2 AND updated_at = $9`,
		a.ID, a.AccountID, string(a.Status), a.IsSold, a.RecurringPaymentMinor, soldAtArg(a.SoldAt),
		utils.NullString(a.SoldDay), a.UpdatedAt, prev)
	return n == 1, err
}

func (r *PostgresAppointments) ListByAccount(ctx context.Context, accountID string, limit int) ([]Appointment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+appointmentColumns+`
FROM appointments WHERE account_id = $1 ORDER BY scheduled_for DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
