package telephony

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach-dialer/pkg/apperr"
	"outreach-dialer/pkg/logger"
)

const headerWebhookSecret = "X-Webhook-Secret"

// OutcomeSink receives validated provider callbacks.
type OutcomeSink interface {
	HandleOutcome(ctx context.Context, cb OutcomeCallback) error
}

// OutcomeWebhookHandler converts the provider callback into an OutcomeCallback
// and hands it to the sink. No business logic here.
type OutcomeWebhookHandler struct {
	Sink   OutcomeSink
	Secret string
}

func (h OutcomeWebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Sink == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "outcome sink not configured"})
		return
	}
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(headerWebhookSecret)), []byte(h.Secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var cb OutcomeCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		log.Warn("outcome callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := cb.Validate(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Sink.HandleOutcome(c.Request.Context(), cb); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind == apperr.KindNotFound {
			// Unknown call ids are acknowledged so the provider stops redelivering.
			log.Warn("outcome callback for unknown call", "call_id", cb.CallID)
			c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
			return
		}
		log.Error("outcome callback failed", "call_id", cb.CallID, "err", err)
		c.AbortWithStatusJSON(apperr.Status(err), gin.H{"error": "outcome not recorded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
