package games

import "sort"

// SideBetOutcome names a side-bet result and its fixed total-return
// multiplier. Side bets are settled right after the deal, independent of how
// the main hand plays out.
type SideBetOutcome struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
}

// PerfectPairs grades the player's first two cards: identical cards pay
// perfect, same rank and color pays colored, same rank alone pays mixed.
func PerfectPairs(a, b Card) SideBetOutcome {
	if a.Rank != b.Rank {
		return SideBetOutcome{Name: "none", Multiplier: 0}
	}
	switch {
	case a.Suit == b.Suit:
		return SideBetOutcome{Name: "perfect_pair", Multiplier: 26}
	case cardColor(a.Suit) == cardColor(b.Suit):
		return SideBetOutcome{Name: "colored_pair", Multiplier: 13}
	default:
		return SideBetOutcome{Name: "mixed_pair", Multiplier: 7}
	}
}

// TwentyOnePlusThree grades the player's two cards plus the dealer upcard as
// a three-card poker hand.
func TwentyOnePlusThree(a, b, up Card) SideBetOutcome {
	cards := []Card{a, b, up}

	flush := cards[0].Suit == cards[1].Suit && cards[1].Suit == cards[2].Suit
	trips := cards[0].Rank == cards[1].Rank && cards[1].Rank == cards[2].Rank
	straight := isThreeCardStraight(cards)

	switch {
	case trips && flush:
		return SideBetOutcome{Name: "suited_trips", Multiplier: 101}
	case straight && flush:
		return SideBetOutcome{Name: "straight_flush", Multiplier: 41}
	case trips:
		return SideBetOutcome{Name: "three_of_a_kind", Multiplier: 31}
	case straight:
		return SideBetOutcome{Name: "straight", Multiplier: 11}
	case flush:
		return SideBetOutcome{Name: "flush", Multiplier: 6}
	default:
		return SideBetOutcome{Name: "none", Multiplier: 0}
	}
}

func isThreeCardStraight(cards []Card) bool {
	orders := make([]int, 3)
	for i, c := range cards {
		orders[i] = rankOrder(c.Rank)
	}
	sort.Ints(orders)

	if orders[0]+1 == orders[1] && orders[1]+1 == orders[2] {
		return true
	}
	// Ace high: Q-K-A.
	return orders[0] == 1 && orders[1] == 12 && orders[2] == 13
}
