package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only: there are no Update/Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, accountID string, limit int) ([]Event, error)
}

// Service records account-scoped audit events.
// Callers treat Record as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.AccountID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.Actor == "" {
		e.Actor = ActorSystem
	}
	return s.repo.Append(ctx, e)
}

// Record appends an event with metadata marshalled to JSON.
func (s *Service) Record(ctx context.Context, e Event, metadata any) error {
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		e.Metadata = string(raw)
	}
	return s.Append(ctx, e)
}

func (s *Service) List(ctx context.Context, accountID string, limit int) ([]Event, error) {
	if accountID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.List(ctx, accountID, limit)
}
