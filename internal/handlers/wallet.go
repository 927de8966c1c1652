package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

type WalletHandler struct {
	ledger *services.Ledger
}

func NewWalletHandler(ledger *services.Ledger) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	view, err := h.ledger.Balance(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": view,
	})
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	h.adjust(c, h.ledger.Deposit)
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.adjust(c, h.ledger.Withdraw)
}

func (h *WalletHandler) adjust(c *gin.Context, op func(context.Context, int64, decimal.Decimal) (*models.BalanceView, error)) {
	var req struct {
		Amount decimal.Decimal `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	view, err := op(c.Request.Context(), accountID(c), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": view,
	})
}

func (h *WalletHandler) GetTransactions(c *gin.Context) {
	txs, err := h.ledger.Transactions(c.Request.Context(), accountID(c), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": txs,
		"count":        len(txs),
	})
}
