package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

type BlackjackHandler struct {
	ledger   *services.Ledger
	sessions *services.SessionManager
}

func NewBlackjackHandler(ledger *services.Ledger, sessions *services.SessionManager) *BlackjackHandler {
	return &BlackjackHandler{
		ledger:   ledger,
		sessions: sessions,
	}
}

func (h *BlackjackHandler) Deal(c *gin.Context) {
	var req services.BlackjackDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.DealBlackjack(c.Request.Context(), accountID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Naturals settle on the deal; only a live hand needs a lease.
	if resp.Bet.Active {
		h.sessions.Track(resp.Bet.ID)
	}
	h.respond(c, resp)
}

func (h *BlackjackHandler) Hit(c *gin.Context) {
	h.move(c, h.ledger.Hit)
}

func (h *BlackjackHandler) Stand(c *gin.Context) {
	h.move(c, h.ledger.Stand)
}

func (h *BlackjackHandler) Double(c *gin.Context) {
	h.move(c, h.ledger.DoubleDown)
}

func (h *BlackjackHandler) move(c *gin.Context, action func(context.Context, int64, string) (*models.BetResponse, error)) {
	var req struct {
		BetID string `json:"bet_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := action(c.Request.Context(), accountID(c), req.BetID)
	if err != nil {
		respondError(c, err)
		return
	}

	if resp.Bet.Active {
		h.sessions.Touch(resp.Bet.ID)
	} else {
		h.sessions.Close(resp.Bet.ID)
	}
	h.respond(c, resp)
}

func (h *BlackjackHandler) respond(c *gin.Context, resp *models.BetResponse) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"bet":         resp.Bet,
		"new_balance": resp.NewBalance,
	})
}
