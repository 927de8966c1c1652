package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
)

// WagerView is the wager shape exposed to clients. While a wager is still
// active it must never leak hidden state: undealt mine positions, the dealer
// hole card, or the remaining deck.
type WagerView struct {
	ID         string          `json:"id"`
	Game       games.Kind      `json:"game"`
	Stake      decimal.Decimal `json:"stake"`
	Proof      string          `json:"proof,omitempty"`
	Nonce      int64           `json:"nonce"`
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	Profit     decimal.Decimal `json:"profit"`
	Won        *bool           `json:"won"`
	Active     bool            `json:"active"`
	Result     *games.Result   `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ClosedAt   *time.Time      `json:"closed_at,omitempty"`
}

// View sanitizes the wager for the owning player.
func (w *Wager) View() WagerView {
	v := WagerView{
		ID:         w.ID,
		Game:       w.Game,
		Stake:      w.Stake,
		Nonce:      w.Nonce,
		Multiplier: w.Multiplier,
		Payout:     w.Payout,
		Profit:     w.Profit,
		Won:        w.Won,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
		ClosedAt:   w.ClosedAt,
	}

	res, err := w.GetResult()
	if err != nil {
		return v
	}

	if w.Active {
		v.Result = sanitizeActive(res)
		return v
	}

	// Closed wagers reveal everything, including the proof for replay.
	v.Proof = w.Proof
	v.Result = &res
	return v
}

func sanitizeActive(res games.Result) *games.Result {
	out := games.Result{}

	switch {
	case res.Mines != nil:
		// Hide the unrevealed mine layout.
		out.Mines = &games.MinesResult{
			Revealed: res.Mines.Revealed,
			Hit:      res.Mines.Hit,
		}
	case res.Blackjack != nil:
		bj := *res.Blackjack
		if len(bj.Dealer) > 0 {
			// Show the upcard only; the hole card and deck cursor stay hidden.
			bj.Dealer = bj.Dealer[:1]
		}
		bj.Next = 0
		out.Blackjack = &bj
	case res.Pump != nil:
		out.Pump = res.Pump
	default:
		out = res
	}

	return &out
}
