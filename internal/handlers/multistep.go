package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

// MultiStepHandler serves the session games: mines and pump. Every action
// renews the wager's lease; start arms it and a settling action drops it.
type MultiStepHandler struct {
	ledger   *services.Ledger
	sessions *services.SessionManager
}

func NewMultiStepHandler(ledger *services.Ledger, sessions *services.SessionManager) *MultiStepHandler {
	return &MultiStepHandler{
		ledger:   ledger,
		sessions: sessions,
	}
}

func (h *MultiStepHandler) StartMines(c *gin.Context) {
	var req struct {
		Stake      decimal.Decimal `json:"stake" binding:"required"`
		MinesCount int             `json:"mines_count" binding:"required,min=1,max=24"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.StartMines(c.Request.Context(), accountID(c), req.Stake, req.MinesCount)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sessions.Track(resp.Bet.ID)
	h.respond(c, resp)
}

func (h *MultiStepHandler) RevealMine(c *gin.Context) {
	var req struct {
		BetID string `json:"bet_id" binding:"required"`
		Tile  *int   `json:"tile" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.RevealMine(c.Request.Context(), accountID(c), req.BetID, *req.Tile)
	if err != nil {
		respondError(c, err)
		return
	}

	h.renew(resp)
	h.respond(c, resp)
}

func (h *MultiStepHandler) StartPump(c *gin.Context) {
	var req struct {
		Stake      decimal.Decimal `json:"stake" binding:"required"`
		Difficulty string          `json:"difficulty" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.StartPump(c.Request.Context(), accountID(c), req.Stake, req.Difficulty)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sessions.Track(resp.Bet.ID)
	h.respond(c, resp)
}

func (h *MultiStepHandler) Pump(c *gin.Context) {
	var req struct {
		BetID string `json:"bet_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.Pump(c.Request.Context(), accountID(c), req.BetID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.renew(resp)
	h.respond(c, resp)
}

func (h *MultiStepHandler) Cashout(c *gin.Context) {
	var req struct {
		BetID string `json:"bet_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.Cashout(c.Request.Context(), accountID(c), req.BetID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sessions.Close(resp.Bet.ID)
	h.respond(c, resp)
}

// renew drops the lease when the action settled the wager, touches it
// otherwise.
func (h *MultiStepHandler) renew(resp *models.BetResponse) {
	if resp.Bet.Active {
		h.sessions.Touch(resp.Bet.ID)
	} else {
		h.sessions.Close(resp.Bet.ID)
	}
}

func (h *MultiStepHandler) respond(c *gin.Context, resp *models.BetResponse) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"bet":         resp.Bet,
		"new_balance": resp.NewBalance,
	})
}
