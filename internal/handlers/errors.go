package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/services"
	"fairplay-backend/internal/storage"
)

// respondError maps service errors onto HTTP statuses. Anything unrecognized
// is an internal error and its detail stays out of the response body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, games.ErrInvalidChoice),
		errors.Is(err, games.ErrUnsupportedGame),
		errors.Is(err, games.ErrHandFinished),
		errors.Is(err, services.ErrBetTooSmall),
		errors.Is(err, services.ErrBetTooLarge),
		errors.Is(err, services.ErrInvalidIdempotencyKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.Is(err, services.ErrAlreadyActive),
		errors.Is(err, services.ErrBetNotActive),
		errors.Is(err, services.ErrRequestInFlight),
		errors.Is(err, services.ErrSeedNotCommitted),
		errors.Is(err, services.ErrRoundUnavailable),
		errors.Is(err, services.ErrBettingClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many bets. Please wait."})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}
