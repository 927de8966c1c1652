package games

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindDice      Kind = "dice"
	KindCoinflip  Kind = "coinflip"
	KindMines     Kind = "mines"
	KindPlinko    Kind = "plinko"
	KindRoulette  Kind = "roulette"
	KindBlackjack Kind = "blackjack"
	KindPump      Kind = "pump"
)

var (
	ErrUnsupportedGame = errors.New("unsupported game")
	ErrInvalidChoice   = errors.New("invalid choice")
)

// Choice is the player's input for one resolution. Exactly one variant is set,
// matching the game kind it is submitted for.
type Choice struct {
	Dice     *DiceChoice     `json:"dice,omitempty"`
	Coinflip *CoinflipChoice `json:"coinflip,omitempty"`
	Mines    *MinesChoice    `json:"mines,omitempty"`
	Plinko   *PlinkoChoice   `json:"plinko,omitempty"`
	Roulette *RouletteChoice `json:"roulette,omitempty"`
}

// Result is the game-specific payload of a resolved wager. Exactly one variant
// is set.
type Result struct {
	Dice      *DiceResult     `json:"dice,omitempty"`
	Coinflip  *CoinflipResult `json:"coinflip,omitempty"`
	Mines     *MinesResult    `json:"mines,omitempty"`
	Plinko    *PlinkoResult   `json:"plinko,omitempty"`
	Roulette  *RouletteResult `json:"roulette,omitempty"`
	Blackjack *BlackjackState `json:"blackjack,omitempty"`
	Pump      *PumpState      `json:"pump,omitempty"`
}

func invalidChoice(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidChoice, fmt.Sprintf(format, args...))
}
