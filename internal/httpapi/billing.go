package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/payments"
	"outreach-dialer/internal/wallet"
	"outreach-dialer/pkg/money"
)

func (h Handlers) GetBalance(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	b, err := h.Wallet.Ensure(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": b, "display": money.FormatMinor(b.BalanceMinor)})
}

type autoRefillRequest struct {
	Enabled bool `json:"enabled"`
	// Amount and Threshold are decimal strings such as "50.00".
	Amount     string              `json:"amount" binding:"required"`
	Threshold  string              `json:"threshold" binding:"required"`
	Instrument payments.Instrument `json:"instrument"`
}

func (h Handlers) UpdateAutoRefill(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	var req autoRefillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "amount and threshold are required")
		return
	}
	amount, err := money.ParseMinor(req.Amount)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	threshold, err := money.ParseMinor(req.Threshold)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := h.Wallet.UpdateAutoRefill(c.Request.Context(), accountID, wallet.AutoRefillSettings{
		Enabled: req.Enabled, AmountMinor: amount, ThresholdMinor: threshold, Instrument: req.Instrument,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h Handlers) ListTransactions(c *gin.Context) {
	accountID, _, ok := caller(c)
	if !ok {
		return
	}
	txs, err := h.Wallet.Transactions(c.Request.Context(), accountID, queryLimit(c, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
