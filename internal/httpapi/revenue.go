package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/reporting"
	"outreach-dialer/internal/revenue"
	"outreach-dialer/pkg/money"
)

type createAppointmentRequest struct {
	LeadID       string    `json:"lead_id" binding:"required"`
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

func (h Handlers) CreateAppointment(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "lead_id and scheduled_for are required")
		return
	}
	a, err := h.Revenue.Create(c.Request.Context(), revenue.CreateAppointment{
		AccountID: accountID, LeadID: req.LeadID, ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h Handlers) ListAppointments(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	out, err := h.Revenue.List(c.Request.Context(), accountID, queryLimit(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func (h Handlers) GetAppointment(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	a, err := h.Revenue.Get(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
	// RecurringPayment is the monthly amount as a decimal string; required for "sold".
	RecurringPayment string `json:"recurring_payment"`
}

func (h Handlers) TransitionAppointment(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	var amount int64
	if req.RecurringPayment != "" {
		v, err := money.ParseMinor(req.RecurringPayment)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		amount = v
	}
	res, err := h.Revenue.Transition(c.Request.Context(), revenue.TransitionRequest{
		AccountID: accountID, AppointmentID: c.Param("id"), Status: req.Status,
		RecurringPaymentMinor: amount, Actor: actor.Subject,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) RevenueLedger(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" || to < from {
		badRequest(c, "from and to days (YYYY-MM-DD) are required")
		return
	}
	entries, err := h.Revenue.Ledger(c.Request.Context(), accountID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h Handlers) Summary(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		badRequest(c, "from must be RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		badRequest(c, "to must be RFC3339")
		return
	}
	out, err := h.Reports.Summary(c.Request.Context(), reporting.SummaryRequest{AccountID: accountID, From: from, To: to})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListAudit(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	events, err := h.Audit.List(c.Request.Context(), accountID, queryLimit(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
