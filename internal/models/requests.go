package models

import (
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
)

// BetRequest is the unified single-shot bet surface.
type BetRequest struct {
	Game           games.Kind      `json:"game" binding:"required"`
	Stake          decimal.Decimal `json:"stake" binding:"required"`
	Choice         games.Choice    `json:"choice"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// BetResponse is cached verbatim under the idempotency key: a replayed
// request returns this byte-identical.
type BetResponse struct {
	Bet        WagerView       `json:"bet"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type VerifyRequest struct {
	ServerSeed string       `json:"server_seed" binding:"required"`
	ClientSeed string       `json:"client_seed" binding:"required"`
	Nonce      int64        `json:"nonce"`
	Game       games.Kind   `json:"game" binding:"required"`
	Choice     games.Choice `json:"choice"`
}

type FairnessView struct {
	ClientSeed     string `json:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	Nonce          int64  `json:"nonce"`
}

type RotateSeedsRequest struct {
	ClientSeed string `json:"client_seed,omitempty"`
}

// RotateSeedsResponse reveals the outgoing server seed so past proofs can be
// replayed, and commits the incoming one by hash.
type RotateSeedsResponse struct {
	RevealedServerSeed string `json:"revealed_server_seed"`
	RevealedSeedHash   string `json:"revealed_seed_hash"`
	NextSeedHash       string `json:"next_seed_hash"`
	ClientSeed         string `json:"client_seed"`
	Nonce              int64  `json:"nonce"`
}
