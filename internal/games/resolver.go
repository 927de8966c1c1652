package games

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Outcome is a fully resolved single-shot wager.
type Outcome struct {
	Win        bool
	Multiplier float64
	Payout     decimal.Decimal
	Result     Result
}

// Resolver maps (proof, game, choice) to a deterministic outcome. It performs
// no I/O: identical inputs always produce identical outputs, which is what
// makes every resolution replayable by the player.
type Resolver struct {
	rtp              float64
	maxPayout        decimal.Decimal
	dealerHitsSoft17 bool
}

func NewResolver(rtp float64, maxPayout decimal.Decimal, dealerHitsSoft17 bool) *Resolver {
	return &Resolver{rtp: rtp, maxPayout: maxPayout, dealerHitsSoft17: dealerHitsSoft17}
}

func (r *Resolver) RTP() float64 { return r.rtp }

func (r *Resolver) DealerHitsSoft17() bool { return r.dealerHitsSoft17 }

// ValidateChoice rejects malformed input before any state is touched.
// Resolve itself never fails on choices that pass here.
func ValidateChoice(kind Kind, choice Choice) error {
	switch kind {
	case KindDice:
		if choice.Dice == nil {
			return invalidChoice("dice choice missing")
		}
		return choice.Dice.Validate()
	case KindCoinflip:
		if choice.Coinflip == nil {
			return invalidChoice("coinflip choice missing")
		}
		return choice.Coinflip.Validate()
	case KindMines:
		if choice.Mines == nil {
			return invalidChoice("mines choice missing")
		}
		if len(choice.Mines.Tiles) == 0 {
			return invalidChoice("mines tiles missing")
		}
		return choice.Mines.Validate()
	case KindPlinko:
		if choice.Plinko == nil {
			return invalidChoice("plinko choice missing")
		}
		return choice.Plinko.Validate()
	case KindRoulette:
		if choice.Roulette == nil {
			return invalidChoice("roulette choice missing")
		}
		return choice.Roulette.Validate()
	case KindBlackjack, KindPump:
		return fmt.Errorf("%w: %s is played through its own surface", ErrUnsupportedGame, kind)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedGame, kind)
	}
}

// Resolve maps one proof to the outcome of a single-shot wager. The caller
// validates the choice first; on well-typed input the only failure mode is a
// malformed proof, which indicates a caller bug.
func (r *Resolver) Resolve(kind Kind, stake decimal.Decimal, proof string, choice Choice) (*Outcome, error) {
	switch kind {
	case KindDice:
		return r.resolveDice(stake, proof, choice.Dice)
	case KindCoinflip:
		return r.resolveCoinflip(stake, proof, choice.Coinflip)
	case KindMines:
		return r.resolveMines(stake, proof, choice.Mines)
	case KindPlinko:
		return r.resolvePlinko(stake, proof, choice.Plinko)
	case KindRoulette:
		return r.resolveRoulette(stake, proof, choice.Roulette)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGame, kind)
	}
}

func (r *Resolver) resolveDice(stake decimal.Decimal, proof string, c *DiceChoice) (*Outcome, error) {
	roll, err := DiceRoll(proof)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Result: Result{Dice: &DiceResult{Roll: roll, Target: c.Target, Condition: c.Condition}},
		Payout: decimal.Zero,
	}
	if c.win(roll) {
		out.Win = true
		out.Multiplier = r.AdjustedMultiplier(c.winProbability())
		out.Payout = r.CapPayout(stake, out.Multiplier)
	}
	return out, nil
}

func (r *Resolver) resolveCoinflip(stake decimal.Decimal, proof string, c *CoinflipChoice) (*Outcome, error) {
	landed, err := CoinflipLanded(proof)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Result: Result{Coinflip: &CoinflipResult{Landed: landed, Side: c.Side}},
		Payout: decimal.Zero,
	}
	if landed == c.Side {
		out.Win = true
		out.Multiplier = r.AdjustedMultiplier(0.5)
		out.Payout = r.CapPayout(stake, out.Multiplier)
	}
	return out, nil
}

func (r *Resolver) resolveMines(stake decimal.Decimal, proof string, c *MinesChoice) (*Outcome, error) {
	mines, err := MinePositions(proof, c.MinesCount)
	if err != nil {
		return nil, err
	}

	res := &MinesResult{Mines: mines, Revealed: c.Tiles}
	for _, t := range c.Tiles {
		if containsInt(mines, t) {
			res.Hit = true
			break
		}
	}

	out := &Outcome{Result: Result{Mines: res}, Payout: decimal.Zero}
	if !res.Hit {
		out.Win = true
		out.Multiplier = MinesMultiplier(c.MinesCount, len(c.Tiles), r.rtp)
		out.Payout = r.CapPayout(stake, out.Multiplier)
	}
	return out, nil
}

func (r *Resolver) resolvePlinko(stake decimal.Decimal, proof string, c *PlinkoChoice) (*Outcome, error) {
	res, err := PlinkoDrop(proof, c.Rows)
	if err != nil {
		return nil, err
	}

	mult := plinkoMultiplier(c.Risk, c.Rows, res.Bin)
	return &Outcome{
		Win:        mult >= 1,
		Multiplier: mult,
		Payout:     r.CapPayout(stake, mult),
		Result:     Result{Plinko: res},
	}, nil
}

func (r *Resolver) resolveRoulette(stake decimal.Decimal, proof string, c *RouletteChoice) (*Outcome, error) {
	res, err := RouletteSpin(proof)
	if err != nil {
		return nil, err
	}
	return r.SettleRouletteBet(stake, c, res), nil
}

// SettleRouletteBet grades one roulette bet against an already-spun result.
// The live round orchestrator settles many bets against one shared spin
// through this same path.
func (r *Resolver) SettleRouletteBet(stake decimal.Decimal, c *RouletteChoice, res *RouletteResult) *Outcome {
	out := &Outcome{Result: Result{Roulette: res}, Payout: decimal.Zero}
	if c.win(res) {
		out.Win = true
		out.Multiplier = r.AdjustedMultiplier(c.winProbability())
		out.Payout = r.CapPayout(stake, out.Multiplier)
	}
	return out
}

// AdjustedMultiplier is the fair inverse-probability multiplier scaled by RTP.
func (r *Resolver) AdjustedMultiplier(winProbability float64) float64 {
	return 1 / winProbability * r.rtp
}

// CapPayout converts a multiplier into a cent-rounded payout, bounded by the
// configured maximum.
func (r *Resolver) CapPayout(stake decimal.Decimal, multiplier float64) decimal.Decimal {
	payout := stake.Mul(decimal.NewFromFloat(multiplier)).Round(2)
	if payout.GreaterThan(r.maxPayout) {
		return r.maxPayout
	}
	return payout
}
