package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/services"
)

// RouletteHandler serves the shared live round: bets route into the current
// betting window, and the snapshot renders the round for polling clients.
type RouletteHandler struct {
	rounds *services.RoundOrchestrator
}

func NewRouletteHandler(rounds *services.RoundOrchestrator) *RouletteHandler {
	return &RouletteHandler{rounds: rounds}
}

func (h *RouletteHandler) PlaceBet(c *gin.Context) {
	var req struct {
		Stake  decimal.Decimal      `json:"stake" binding:"required"`
		Choice games.RouletteChoice `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.rounds.PlaceBet(c.Request.Context(), accountID(c), req.Stake, &req.Choice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"bet":         resp.Bet,
		"new_balance": resp.NewBalance,
	})
}

func (h *RouletteHandler) GetRound(c *gin.Context) {
	snap, err := h.rounds.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   snap,
	})
}
