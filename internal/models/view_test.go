package models_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
)

func TestActiveMinesViewHidesLayout(t *testing.T) {
	w := &models.Wager{
		ID:     "w1",
		Game:   games.KindMines,
		Stake:  decimal.NewFromInt(10),
		Proof:  "deadbeef",
		Active: true,
	}
	if err := w.SetResult(games.Result{Mines: &games.MinesResult{
		Mines:    []int{3, 9, 17},
		Revealed: []int{1, 2},
	}}); err != nil {
		t.Fatalf("SetResult failed: %v", err)
	}

	v := w.View()
	if v.Proof != "" {
		t.Error("Active wager must not reveal its proof")
	}
	if v.Result == nil || v.Result.Mines == nil {
		t.Fatal("View should keep the mines payload")
	}
	if len(v.Result.Mines.Mines) != 0 {
		t.Errorf("Active view leaked mine positions: %v", v.Result.Mines.Mines)
	}
	if len(v.Result.Mines.Revealed) != 2 {
		t.Errorf("Revealed tiles should survive sanitization, got %v", v.Result.Mines.Revealed)
	}
}

func TestActiveBlackjackViewHidesHoleCard(t *testing.T) {
	w := &models.Wager{
		ID:     "w2",
		Game:   games.KindBlackjack,
		Stake:  decimal.NewFromInt(5),
		Proof:  "deadbeef",
		Active: true,
	}
	if err := w.SetResult(games.Result{Blackjack: &games.BlackjackState{
		Player: []games.Card{{Rank: "9", Suit: "spades"}, {Rank: "5", Suit: "clubs"}},
		Dealer: []games.Card{{Rank: "K", Suit: "hearts"}, {Rank: "A", Suit: "diamonds"}},
		Next:   4,
	}}); err != nil {
		t.Fatalf("SetResult failed: %v", err)
	}

	v := w.View()
	bj := v.Result.Blackjack
	if len(bj.Dealer) != 1 {
		t.Errorf("Active view should show the upcard only, got %d dealer cards", len(bj.Dealer))
	}
	if bj.Next != 0 {
		t.Errorf("Active view leaked the deck cursor: %d", bj.Next)
	}
	if len(bj.Player) != 2 {
		t.Error("Player cards should survive sanitization")
	}
}

func TestClosedViewRevealsEverything(t *testing.T) {
	won := true
	w := &models.Wager{
		ID:     "w3",
		Game:   games.KindMines,
		Stake:  decimal.NewFromInt(10),
		Proof:  "deadbeef",
		Active: false,
		Won:    &won,
	}
	if err := w.SetResult(games.Result{Mines: &games.MinesResult{
		Mines:    []int{3, 9, 17},
		Revealed: []int{1, 2},
	}}); err != nil {
		t.Fatalf("SetResult failed: %v", err)
	}

	v := w.View()
	if v.Proof != "deadbeef" {
		t.Error("Closed wager should reveal its proof")
	}
	if len(v.Result.Mines.Mines) != 3 {
		t.Error("Closed wager should reveal the mine layout")
	}
}
