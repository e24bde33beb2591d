package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/app"
	"outreach-dialer/internal/config"
	"outreach-dialer/internal/httpapi"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/logger"
	"outreach-dialer/pkg/utils"
)

// newRouter wires HTTP routes to handlers. No business logic lives here.
func newRouter(cfg config.Config, log *slog.Logger, a *app.App, authMW gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), a.DB, 2*time.Second); err != nil {
			logger.FromGin(c).Warn("readiness failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := a.Redis.Ping(c.Request.Context()).Err(); err != nil {
			logger.FromGin(c).Warn("readiness failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Provider callbacks authenticate with the shared webhook secret, not a user token.
	outcome := telephony.OutcomeWebhookHandler{
		Sink:   a.Dialer.CallbackSink(),
		Secret: cfg.Provider.WebhookSecret,
	}
	r.POST("/webhooks/provider/call-outcome", outcome.Handle)

	httpapi.Register(r, httpapi.Handlers{
		Dialer:  a.Dialer,
		Wallet:  a.Wallet,
		Revenue: a.Revenue,
		Reports: a.Reports,
		Audit:   a.Audit,
		Sweeper: a.Sweeper,
	}, authMW)
	return r
}
