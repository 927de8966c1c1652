package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/middleware"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
	"fairplay-backend/internal/storage"
)

type GameHandler struct {
	ledger *services.Ledger
	fair   *services.Fairness
	store  *storage.Store
}

func NewGameHandler(ledger *services.Ledger, fair *services.Fairness, store *storage.Store) *GameHandler {
	return &GameHandler{
		ledger: ledger,
		fair:   fair,
		store:  store,
	}
}

func accountID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextAccountID)
}

// oneUnit stakes Verify replays at 1, so the reported numbers are per-unit.
var oneUnit = decimal.NewFromInt(1)

// PlaceBet is the unified single-shot surface: one request resolves and
// settles one dice, coinflip, mines, plinko or roulette bet.
func (h *GameHandler) PlaceBet(c *gin.Context) {
	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.ledger.PlaceBet(c.Request.Context(), accountID(c), &req)
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

// Verify replays a proof entirely client-side of the ledger: no account or
// wager is touched, so anyone can check any revealed seed.
func (h *GameHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := games.ValidateChoice(req.Game, req.Choice); err != nil {
		respondError(c, err)
		return
	}

	proof := games.Proof(req.ServerSeed, req.ClientSeed, req.Nonce)
	outcome, err := h.ledger.Resolver().Resolve(req.Game, oneUnit, proof, req.Choice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"proof":            proof,
			"server_seed_hash": games.SeedHash(req.ServerSeed),
			"game":             req.Game,
			"win":              outcome.Win,
			"multiplier":       outcome.Multiplier,
			"result":           outcome.Result,
		},
	})
}

// GetFairness exposes the account's current commit: client seed, server seed
// hash and nonce.
func (h *GameHandler) GetFairness(c *gin.Context) {
	view, err := h.fair.View(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"fairness": view,
	})
}

// RotateSeeds reveals the outgoing server seed and commits a fresh one.
func (h *GameHandler) RotateSeeds(c *gin.Context) {
	var req models.RotateSeedsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.fair.Rotate(c.Request.Context(), accountID(c), req.ClientSeed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"rotation": resp,
	})
}

func (h *GameHandler) GetActiveBets(c *gin.Context) {
	wagers, err := h.store.ListAccountActiveWagers(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.WagerView, 0, len(wagers))
	for i := range wagers {
		views = append(views, wagers[i].View())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bets":    views,
		"count":   len(views),
	})
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	limit := queryLimit(c)

	wagers, err := h.store.ListWagers(c.Request.Context(), accountID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.WagerView, 0, len(wagers))
	for i := range wagers {
		views = append(views, wagers[i].View())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bets":    views,
		"count":   len(views),
	})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
