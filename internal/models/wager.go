package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"fairplay-backend/internal/games"
)

// Wager is one placed bet. Single-shot wagers are created closed; multi-step
// wagers stay Active until exactly one of cashout, bust or forced timeout
// closes them, after which the row is immutable.
type Wager struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	AccountID int64      `gorm:"index;not null" json:"account_id"`
	Game      games.Kind `gorm:"size:16;index" json:"game"`

	Stake  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"stake"`
	Choice datatypes.JSON  `json:"choice"`

	Proof string `gorm:"size:64" json:"proof"`
	Nonce int64  `json:"nonce"`

	Result     datatypes.JSON  `json:"result"`
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"payout"`
	Profit     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"profit"`

	// Won is nil while the wager is pending.
	Won    *bool `json:"won"`
	Active bool  `gorm:"index" json:"active"`

	IdempotencyKey *string `gorm:"size:64" json:"-"`
	RoundID        *string `gorm:"size:36;index" json:"round_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func (w *Wager) SetChoice(c games.Choice) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal choice: %w", err)
	}
	w.Choice = datatypes.JSON(data)
	return nil
}

func (w *Wager) GetChoice() (games.Choice, error) {
	var c games.Choice
	if len(w.Choice) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(w.Choice, &c); err != nil {
		return c, fmt.Errorf("unmarshal choice: %w", err)
	}
	return c, nil
}

func (w *Wager) SetResult(r games.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	w.Result = datatypes.JSON(data)
	return nil
}

func (w *Wager) GetResult() (games.Result, error) {
	var r games.Result
	if len(w.Result) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(w.Result, &r); err != nil {
		return r, fmt.Errorf("unmarshal result: %w", err)
	}
	return r, nil
}
