package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/audit"
	"outreach-dialer/internal/auth"
	"outreach-dialer/internal/autostart"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/leads"
	"outreach-dialer/internal/reporting"
	"outreach-dialer/internal/revenue"
	"outreach-dialer/internal/wallet"
	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
)

// Dialer is the command surface of the dialer service.
type Dialer interface {
	Start(ctx context.Context, cmd dialer.StartCommand) (dialer.StartResult, error)
	Stop(ctx context.Context, accountID string, actor dialer.Actor) (dialer.State, error)
	EmergencyStop(ctx context.Context, accountID string, actor dialer.Actor) (dialer.State, error)
	Override(ctx context.Context, cmd dialer.OverrideCommand) (dialer.State, error)
	Reset(ctx context.Context, accountID string, actor dialer.Actor) (dialer.ResetResult, error)
	DispatchNext(ctx context.Context, accountID string) (dialer.DispatchResult, error)
	State(ctx context.Context, accountID string) (dialer.State, error)
	UpdateSettings(ctx context.Context, cmd dialer.SettingsCommand) (dialer.State, error)
	CallableLeads(ctx context.Context, accountID string) (leads.Result, error)
	MarkOutcome(ctx context.Context, cmd dialer.MarkOutcomeCommand) (calls.Call, error)
}

type Wallet interface {
	Ensure(ctx context.Context, accountID string) (wallet.Balance, error)
	UpdateAutoRefill(ctx context.Context, accountID string, in wallet.AutoRefillSettings) (wallet.Balance, error)
	Transactions(ctx context.Context, accountID string, limit int) ([]wallet.Transaction, error)
}

type Revenue interface {
	Create(ctx context.Context, in revenue.CreateAppointment) (revenue.Appointment, error)
	Get(ctx context.Context, accountID, id string) (revenue.Appointment, error)
	List(ctx context.Context, accountID string, limit int) ([]revenue.Appointment, error)
	Transition(ctx context.Context, req revenue.TransitionRequest) (revenue.TransitionResult, error)
	Ledger(ctx context.Context, accountID, from, to string) ([]revenue.LedgerEntry, error)
}

type Reports interface {
	Summary(ctx context.Context, req reporting.SummaryRequest) (reporting.Summary, error)
}

type AuditLog interface {
	List(ctx context.Context, accountID string, limit int) ([]audit.Event, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (autostart.SweepReport, error)
}

// Handlers groups HTTP handlers. They parse input, call one service, and
// render the result; the account always comes from the verified token.
type Handlers struct {
	Dialer  Dialer
	Wallet  Wallet
	Revenue Revenue
	Reports Reports
	Audit   AuditLog
	Sweeper Sweeper
}

// caller returns the account and actor of the verified identity, or aborts.
func caller(c *gin.Context) (string, dialer.Actor, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil || id.AccountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return "", dialer.Actor{}, false
	}
	return id.AccountID, dialer.Actor{Subject: id.UserID, Role: id.Role}, true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// writeError maps domain errors to status codes. Internal details are logged, not returned.
func writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	msg := "internal error"
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae) && status < http.StatusInternalServerError:
		msg = ae.Message
	case errors.As(err, &ae) && status == http.StatusBadGateway:
		msg = ae.Message
	case errors.Is(err, wallet.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, wallet.ErrNotFound), errors.Is(err, dialer.ErrNotFound), errors.Is(err, calls.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "status", status, "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > 500 {
		return 500
	}
	return n
}
