package games

import "errors"

type BlackjackOutcome string

const (
	BlackjackWin     BlackjackOutcome = "win"
	BlackjackLose    BlackjackOutcome = "lose"
	BlackjackPush    BlackjackOutcome = "push"
	BlackjackNatural BlackjackOutcome = "blackjack"
)

var ErrHandFinished = errors.New("hand already finished")

// BlackjackState is the evolving result payload of one blackjack wager. The
// deck itself is never stored: every transition re-derives it from the proof,
// so the state stays verifiable and cannot drift from the digest.
type BlackjackState struct {
	Player   []Card           `json:"player"`
	Dealer   []Card           `json:"dealer"`
	Next     int              `json:"next"` // cursor into the shuffled deck
	Doubled  bool             `json:"doubled,omitempty"`
	Finished bool             `json:"finished"`
	Outcome  BlackjackOutcome `json:"outcome,omitempty"`

	PerfectPairs   *SideBetOutcome `json:"perfect_pairs,omitempty"`
	TwentyOnePlus3 *SideBetOutcome `json:"twenty_one_plus_three,omitempty"`
}

// DealBlackjack shuffles the deck from the proof and deals player, dealer,
// player, dealer. Naturals finish the hand immediately per the precedence
// chain; side bets are evaluated on the deal regardless of the main hand.
func DealBlackjack(proof string) (*BlackjackState, error) {
	deck, err := ShuffledDeck(proof)
	if err != nil {
		return nil, err
	}

	s := &BlackjackState{
		Player: []Card{deck[0], deck[2]},
		Dealer: []Card{deck[1], deck[3]},
		Next:   4,
	}

	pp := PerfectPairs(s.Player[0], s.Player[1])
	s.PerfectPairs = &pp
	tp := TwentyOnePlusThree(s.Player[0], s.Player[1], s.Dealer[0])
	s.TwentyOnePlus3 = &tp

	if IsNatural(s.Player) || IsNatural(s.Dealer) {
		s.Finished = true
		s.Outcome = CompareHands(s.Player, s.Dealer)
	}

	return s, nil
}

// Hit draws the next deck card to the player. A bust finishes the hand.
func (s *BlackjackState) Hit(proof string) error {
	if s.Finished {
		return ErrHandFinished
	}
	deck, err := ShuffledDeck(proof)
	if err != nil {
		return err
	}

	s.Player = append(s.Player, deck[s.Next])
	s.Next++

	if total, _ := HandTotal(s.Player); total > 21 {
		s.Finished = true
		s.Outcome = BlackjackLose
	}
	return nil
}

// Stand plays out the dealer and settles the hand.
func (s *BlackjackState) Stand(proof string, dealerHitsSoft17 bool) error {
	if s.Finished {
		return ErrHandFinished
	}
	deck, err := ShuffledDeck(proof)
	if err != nil {
		return err
	}

	s.Dealer, s.Next = DealerPlay(deck, s.Dealer, s.Next, dealerHitsSoft17)
	s.Finished = true
	s.Outcome = CompareHands(s.Player, s.Dealer)
	return nil
}

// DoubleDown draws exactly one card and stands. The caller doubles the stake
// before invoking it; Doubled marks the wager for settlement.
func (s *BlackjackState) DoubleDown(proof string, dealerHitsSoft17 bool) error {
	if s.Finished {
		return ErrHandFinished
	}
	if len(s.Player) != 2 {
		return invalidChoice("double down only on the first two cards")
	}
	s.Doubled = true
	if err := s.Hit(proof); err != nil {
		return err
	}
	if s.Finished {
		return nil // busted on the double card
	}
	return s.Stand(proof, dealerHitsSoft17)
}

// DealerPlay draws while the total is below 17. At 17 or more the dealer
// stands, except a soft 17 when configured to hit it.
func DealerPlay(deck, dealer []Card, next int, hitsSoft17 bool) ([]Card, int) {
	for {
		total, soft := HandTotal(dealer)
		if total < 17 || (total == 17 && soft && hitsSoft17) {
			dealer = append(dealer, deck[next])
			next++
			continue
		}
		return dealer, next
	}
}

// CompareHands applies the outcome precedence chain: both naturals push, a
// lone player natural pays the natural premium, a lone dealer natural loses,
// then busts, then the numeric compare.
func CompareHands(player, dealer []Card) BlackjackOutcome {
	pNat, dNat := IsNatural(player), IsNatural(dealer)
	switch {
	case pNat && dNat:
		return BlackjackPush
	case pNat:
		return BlackjackNatural
	case dNat:
		return BlackjackLose
	}

	pTotal, _ := HandTotal(player)
	dTotal, _ := HandTotal(dealer)
	switch {
	case pTotal > 21:
		return BlackjackLose
	case dTotal > 21:
		return BlackjackWin
	case pTotal > dTotal:
		return BlackjackWin
	case pTotal < dTotal:
		return BlackjackLose
	default:
		return BlackjackPush
	}
}

// BlackjackMultiplier is the total-return multiplier on the main stake.
func BlackjackMultiplier(outcome BlackjackOutcome) float64 {
	switch outcome {
	case BlackjackNatural:
		return 2.5 // 3:2
	case BlackjackWin:
		return 2
	case BlackjackPush:
		return 1
	default:
		return 0
	}
}
