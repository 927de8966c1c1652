package games_test

import (
	"errors"
	"testing"

	"fairplay-backend/internal/games"
)

func card(rank, suit string) games.Card {
	return games.Card{Rank: rank, Suit: suit}
}

func TestHandTotal(t *testing.T) {
	cases := []struct {
		hand  []games.Card
		total int
		soft  bool
	}{
		{[]games.Card{card("A", "spades"), card("K", "hearts")}, 21, true},
		{[]games.Card{card("A", "spades"), card("A", "hearts")}, 12, true},
		{[]games.Card{card("A", "spades"), card("9", "hearts"), card("5", "clubs")}, 15, false},
		{[]games.Card{card("10", "spades"), card("9", "hearts"), card("5", "clubs")}, 24, false},
		{[]games.Card{card("A", "spades"), card("6", "hearts")}, 17, true},
	}

	for _, tc := range cases {
		total, soft := games.HandTotal(tc.hand)
		if total != tc.total || soft != tc.soft {
			t.Errorf("HandTotal(%v) = (%d, %v), want (%d, %v)", tc.hand, total, soft, tc.total, tc.soft)
		}
	}
}

func TestDealerPlaySoft17(t *testing.T) {
	// Dealer holds A-6 (soft 17); the next deck card sits at the cursor.
	deck := append([]games.Card{card("5", "clubs")}, games.NewDeck()...)
	dealer := []games.Card{card("A", "spades"), card("6", "hearts")}

	stood, next := games.DealerPlay(deck, dealer, 0, false)
	if len(stood) != 2 || next != 0 {
		t.Errorf("Dealer standing on soft 17 should not draw, got %d cards", len(stood))
	}

	hit, next := games.DealerPlay(deck, dealer, 0, true)
	if len(hit) < 3 || next < 1 {
		t.Errorf("Dealer hitting soft 17 should draw, got %d cards", len(hit))
	}
}

func TestDealerPlayStandsHard17(t *testing.T) {
	deck := games.NewDeck()
	dealer := []games.Card{card("10", "spades"), card("7", "hearts")}

	stood, _ := games.DealerPlay(deck, dealer, 0, true)
	if len(stood) != 2 {
		t.Errorf("Dealer must stand on hard 17 even when hitting soft 17s")
	}
}

func TestCompareHandsPrecedence(t *testing.T) {
	natural := []games.Card{card("A", "spades"), card("K", "hearts")}
	twenty := []games.Card{card("10", "spades"), card("Q", "hearts")}
	bustTotal := []games.Card{card("10", "spades"), card("9", "hearts"), card("5", "clubs")}
	threeCard21 := []games.Card{card("7", "spades"), card("7", "hearts"), card("7", "clubs")}

	cases := []struct {
		name           string
		player, dealer []games.Card
		want           games.BlackjackOutcome
	}{
		{"both naturals push", natural, natural, games.BlackjackPush},
		{"player natural beats dealer 21", natural, threeCard21, games.BlackjackNatural},
		{"dealer natural beats player 21", threeCard21, natural, games.BlackjackLose},
		{"player bust loses even if dealer busts", bustTotal, bustTotal, games.BlackjackLose},
		{"dealer bust pays standing player", twenty, bustTotal, games.BlackjackWin},
		{"higher total wins", twenty, []games.Card{card("10", "clubs"), card("9", "diamonds")}, games.BlackjackWin},
		{"lower total loses", []games.Card{card("10", "clubs"), card("8", "diamonds")}, twenty, games.BlackjackLose},
		{"equal totals push", twenty, []games.Card{card("J", "clubs"), card("K", "diamonds")}, games.BlackjackPush},
	}

	for _, tc := range cases {
		if got := games.CompareHands(tc.player, tc.dealer); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestBlackjackMultiplier(t *testing.T) {
	cases := map[games.BlackjackOutcome]float64{
		games.BlackjackNatural: 2.5,
		games.BlackjackWin:     2,
		games.BlackjackPush:    1,
		games.BlackjackLose:    0,
	}
	for outcome, want := range cases {
		if got := games.BlackjackMultiplier(outcome); got != want {
			t.Errorf("BlackjackMultiplier(%s) = %v, want %v", outcome, got, want)
		}
	}
}

func TestDealBlackjackDeterministic(t *testing.T) {
	proof := games.Proof("server-seed", "client-seed", 13)

	a, err := games.DealBlackjack(proof)
	if err != nil {
		t.Fatalf("DealBlackjack failed: %v", err)
	}
	b, _ := games.DealBlackjack(proof)

	if len(a.Player) != 2 || len(a.Dealer) != 2 {
		t.Fatalf("Deal should give two cards each, got %d/%d", len(a.Player), len(a.Dealer))
	}
	if a.Player[0] != b.Player[0] || a.Dealer[1] != b.Dealer[1] {
		t.Error("Same proof should deal the same hands")
	}
	if a.PerfectPairs == nil || a.TwentyOnePlus3 == nil {
		t.Error("Side bets should be graded on the deal")
	}
}

func TestDealMatchesShuffledDeck(t *testing.T) {
	proof := games.Proof("server-seed", "client-seed", 17)
	deck, _ := games.ShuffledDeck(proof)
	state, err := games.DealBlackjack(proof)
	if err != nil {
		t.Fatalf("DealBlackjack failed: %v", err)
	}

	// Deal order is player, dealer, player, dealer.
	if state.Player[0] != deck[0] || state.Dealer[0] != deck[1] ||
		state.Player[1] != deck[2] || state.Dealer[1] != deck[3] {
		t.Error("Deal should consume the shuffled deck in order")
	}
}

func TestHitDrawsFromDeckCursor(t *testing.T) {
	// Find a proof whose deal leaves the hand live.
	var proof string
	var state *games.BlackjackState
	for nonce := int64(0); nonce < 50; nonce++ {
		p := games.Proof("server-seed", "client-seed", nonce)
		s, err := games.DealBlackjack(p)
		if err != nil {
			t.Fatalf("DealBlackjack failed: %v", err)
		}
		if !s.Finished {
			proof, state = p, s
			break
		}
	}
	if state == nil {
		t.Fatal("No live hand in 50 deals; deck derivation looks broken")
	}

	deck, _ := games.ShuffledDeck(proof)
	if err := state.Hit(proof); err != nil {
		t.Fatalf("Hit failed: %v", err)
	}
	if state.Player[2] != deck[4] {
		t.Error("Hit should draw the card at the deck cursor")
	}
	if state.Next != 5 {
		t.Errorf("Cursor should advance to 5, got %d", state.Next)
	}
}

func TestMovesRejectFinishedHand(t *testing.T) {
	state := &games.BlackjackState{Finished: true}
	proof := games.Proof("server-seed", "client-seed", 1)

	if err := state.Hit(proof); !errors.Is(err, games.ErrHandFinished) {
		t.Errorf("Hit on finished hand should fail, got %v", err)
	}
	if err := state.Stand(proof, false); !errors.Is(err, games.ErrHandFinished) {
		t.Errorf("Stand on finished hand should fail, got %v", err)
	}
}

func TestDoubleDownOnlyOnTwoCards(t *testing.T) {
	proof := games.Proof("server-seed", "client-seed", 1)
	state := &games.BlackjackState{
		Player: []games.Card{card("2", "spades"), card("3", "hearts"), card("4", "clubs")},
		Dealer: []games.Card{card("9", "spades"), card("9", "hearts")},
		Next:   5,
	}
	if err := state.DoubleDown(proof, false); !errors.Is(err, games.ErrInvalidChoice) {
		t.Errorf("Double down on three cards should be invalid, got %v", err)
	}
}

func TestPerfectPairs(t *testing.T) {
	cases := []struct {
		a, b games.Card
		name string
		mult float64
	}{
		{card("K", "spades"), card("K", "spades"), "perfect_pair", 26},
		{card("K", "spades"), card("K", "clubs"), "colored_pair", 13},
		{card("K", "spades"), card("K", "hearts"), "mixed_pair", 7},
		{card("K", "spades"), card("Q", "spades"), "none", 0},
	}
	for _, tc := range cases {
		got := games.PerfectPairs(tc.a, tc.b)
		if got.Name != tc.name || got.Multiplier != tc.mult {
			t.Errorf("PerfectPairs(%v, %v) = %v, want %s %v", tc.a, tc.b, got, tc.name, tc.mult)
		}
	}
}

func TestTwentyOnePlusThree(t *testing.T) {
	cases := []struct {
		a, b, up games.Card
		name     string
		mult     float64
	}{
		{card("7", "hearts"), card("7", "hearts"), card("7", "hearts"), "suited_trips", 101},
		{card("5", "clubs"), card("6", "clubs"), card("7", "clubs"), "straight_flush", 41},
		{card("9", "spades"), card("9", "hearts"), card("9", "clubs"), "three_of_a_kind", 31},
		{card("5", "clubs"), card("6", "hearts"), card("7", "spades"), "straight", 11},
		{card("2", "diamonds"), card("9", "diamonds"), card("K", "diamonds"), "flush", 6},
		{card("2", "clubs"), card("9", "hearts"), card("K", "spades"), "none", 0},
		// Ace plays high: Q-K-A is a straight.
		{card("Q", "clubs"), card("K", "hearts"), card("A", "spades"), "straight", 11},
		// But K-A-2 does not wrap.
		{card("K", "clubs"), card("A", "hearts"), card("2", "spades"), "none", 0},
	}
	for _, tc := range cases {
		got := games.TwentyOnePlusThree(tc.a, tc.b, tc.up)
		if got.Name != tc.name || got.Multiplier != tc.mult {
			t.Errorf("TwentyOnePlusThree(%v, %v, %v) = %v, want %s %v", tc.a, tc.b, tc.up, got, tc.name, tc.mult)
		}
	}
}
