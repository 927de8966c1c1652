package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"fairplay-backend/internal/games"
)

type RoundPhase string

const (
	RoundBetting  RoundPhase = "betting"
	RoundSpinning RoundPhase = "spinning"
	RoundResults  RoundPhase = "results"
)

// Round is one shared live-roulette round. It carries its own seed pair and
// nonce, independent of any bettor's personal seeds, because every bettor
// shares the one outcome.
type Round struct {
	ID    string     `gorm:"primaryKey;size:36" json:"id"`
	Phase RoundPhase `gorm:"size:16" json:"phase"`

	BetsCloseAt time.Time `json:"bets_close_at"`

	ClientSeed     string `gorm:"size:64" json:"client_seed"`
	ServerSeed     string `gorm:"size:128" json:"-"`
	ServerSeedHash string `gorm:"size:64" json:"server_seed_hash"`
	Nonce          int64  `json:"nonce"`

	Outcome datatypes.JSON `json:"outcome,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

func (r *Round) SetOutcome(res *games.RouletteResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	r.Outcome = datatypes.JSON(data)
	return nil
}

func (r *Round) GetOutcome() (*games.RouletteResult, error) {
	if len(r.Outcome) == 0 {
		return nil, nil
	}
	var res games.RouletteResult
	if err := json.Unmarshal(r.Outcome, &res); err != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return &res, nil
}

// RoundHistoryEntry is one slot of the bounded recent-outcome ring.
type RoundHistoryEntry struct {
	RoundID string `json:"round_id"`
	Number  int    `json:"number"`
	Color   string `json:"color"`
}

// RoundSnapshot is the full self-describing round state pushed to listeners.
// A newly connecting listener renders from one snapshot with no replay log.
type RoundSnapshot struct {
	ID             string                `json:"id"`
	Phase          RoundPhase            `json:"phase"`
	BetsCloseAt    time.Time             `json:"bets_close_at"`
	MillisLeft     int64                 `json:"millis_left"`
	ServerSeedHash string                `json:"server_seed_hash"`
	ClientSeed     string                `json:"client_seed"`
	Nonce          int64                 `json:"nonce"`
	Outcome        *games.RouletteResult `json:"outcome,omitempty"`
	RevealedSeed   string                `json:"revealed_seed,omitempty"`
	History        []RoundHistoryEntry   `json:"history"`
}
