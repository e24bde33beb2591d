package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/relay"
	"outreach-dialer/internal/routing"
)

type startRequest struct {
	Limit int `json:"limit" binding:"required"`
}

// Start answers 200 for gated outcomes too; the body carries status and reason.
func (h Handlers) Start(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "limit is required")
		return
	}
	res, err := h.Dialer.Start(c.Request.Context(), dialer.StartCommand{
		AccountID: accountID, Limit: req.Limit, Trigger: relay.TriggerManual, Actor: actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Stop(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	st, err := h.Dialer.Stop(c.Request.Context(), accountID, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) EmergencyStop(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	st, err := h.Dialer.EmergencyStop(c.Request.Context(), accountID, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type overrideRequest struct {
	ExtraLeads int `json:"extra_leads" binding:"required"`
}

func (h Handlers) Override(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "extra_leads is required")
		return
	}
	st, err := h.Dialer.Override(c.Request.Context(), dialer.OverrideCommand{
		AccountID: accountID, ExtraLeads: req.ExtraLeads, Actor: actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) Reset(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.Dialer.Reset(c.Request.Context(), accountID, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Dispatch(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.Dialer.DispatchNext(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetState(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	st, err := h.Dialer.State(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type settingsRequest struct {
	DailyCallLimit   int                      `json:"daily_call_limit"`
	Schedule         dialer.Schedule          `json:"schedule"`
	AutoStartEnabled bool                     `json:"auto_start_enabled"`
	TargetLeadCount  int                      `json:"target_lead_count"`
	AgentID          string                   `json:"agent_id"`
	Origins          []routing.WeightedOrigin `json:"origins"`
	Ordering         string                   `json:"ordering"`
}

func (h Handlers) UpdateSettings(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	st, err := h.Dialer.UpdateSettings(c.Request.Context(), dialer.SettingsCommand{
		AccountID:        accountID,
		DailyCallLimit:   req.DailyCallLimit,
		Schedule:         req.Schedule,
		AutoStartEnabled: req.AutoStartEnabled,
		TargetLeadCount:  req.TargetLeadCount,
		AgentID:          req.AgentID,
		Origins:          req.Origins,
		Ordering:         req.Ordering,
		Actor:            actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) CallableLeads(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	res, err := h.Dialer.CallableLeads(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type markOutcomeRequest struct {
	Status string `json:"status" binding:"required"`
	LeadID string `json:"lead_id"`
}

func (h Handlers) MarkOutcome(c *gin.Context) {
	accountID, actor, ok := caller(c)
	if !ok {
		return
	}
	var req markOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	call, err := h.Dialer.MarkOutcome(c.Request.Context(), dialer.MarkOutcomeCommand{
		CallID: c.Param("call_id"), Status: req.Status, LeadID: req.LeadID, AccountID: accountID, Actor: actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// Sweep runs one auto-start evaluation across all accounts.
func (h Handlers) Sweep(c *gin.Context) {
	if h.Sweeper == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "sweeper not configured"})
		return
	}
	report, err := h.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
