package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/services"
)

type AuthHandler struct {
	jwt  *services.JWTService
	fair *services.Fairness
}

func NewAuthHandler(jwt *services.JWTService, fair *services.Fairness) *AuthHandler {
	return &AuthHandler{
		jwt:  jwt,
		fair: fair,
	}
}

// Token provisions the account on first sight and issues a bearer token for
// it. Identity verification is expected to sit in front of this endpoint; on
// its own it only binds a token to an account id.
func (h *AuthHandler) Token(c *gin.Context) {
	var req struct {
		AccountID int64 `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	acct, err := h.fair.EnsureAccount(c.Request.Context(), req.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.jwt.GenerateToken(acct.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"account": gin.H{
			"id":               acct.ID,
			"client_seed":      acct.ClientSeed,
			"server_seed_hash": acct.ServerSeedHash,
			"nonce":            acct.Nonce,
		},
	})
}
