package httpapi

import (
	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/rbac"
)

// Register mounts the authenticated API under /v1. authMW must attach the
// verified identity.
func Register(r gin.IRouter, h Handlers, authMW gin.HandlerFunc) {
	v1 := r.Group("/v1", authMW, rbac.RequireAccount())

	d := v1.Group("/dialer")
	{
		read := rbac.RequireAnyRole(rbac.Readers...)
		operate := rbac.RequireAnyRole(rbac.Operators...)
		d.GET("/state", read, h.GetState)
		d.GET("/callable-leads", read, h.CallableLeads)
		d.POST("/start", operate, h.Start)
		d.POST("/stop", operate, h.Stop)
		d.POST("/emergency-stop", operate, h.EmergencyStop)
		d.POST("/override", operate, h.Override)
		d.POST("/reset", operate, h.Reset)
		d.PUT("/settings", rbac.RequireAnyRole(rbac.RoleOwner), h.UpdateSettings)
		d.POST("/calls/:call_id/outcome", operate, h.MarkOutcome)
		// The dispatch loop is driven by operators and by the automation identity.
		d.POST("/dispatch", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleAutomation), h.Dispatch)
	}

	b := v1.Group("/billing")
	{
		b.GET("/balance", rbac.RequireAnyRole(rbac.Readers...), h.GetBalance)
		b.GET("/transactions", rbac.RequireAnyRole(rbac.RoleOwner), h.ListTransactions)
		b.PUT("/auto-refill", rbac.RequireAnyRole(rbac.RoleOwner), h.UpdateAutoRefill)
	}

	a := v1.Group("/appointments")
	{
		a.GET("", rbac.RequireAnyRole(rbac.Readers...), h.ListAppointments)
		a.POST("", rbac.RequireAnyRole(rbac.Operators...), h.CreateAppointment)
		a.GET("/:id", rbac.RequireAnyRole(rbac.Readers...), h.GetAppointment)
		a.POST("/:id/status", rbac.RequireAnyRole(rbac.Operators...), h.TransitionAppointment)
	}

	v1.GET("/revenue/ledger", rbac.RequireAnyRole(rbac.Readers...), h.RevenueLedger)
	v1.GET("/reports/summary", rbac.RequireAnyRole(rbac.Readers...), h.Summary)
	v1.GET("/audit", rbac.RequireAnyRole(rbac.RoleOwner), h.ListAudit)

	v1.POST("/internal/sweep", rbac.RequireAnyRole(rbac.RoleAutomation), h.Sweep)
}
