package games_test

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
)

const testRTP = 0.96

func testResolver() *games.Resolver {
	return games.NewResolver(testRTP, decimal.NewFromInt(100000), false)
}

func TestResolveDice(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(10)
	choice := games.Choice{Dice: &games.DiceChoice{Target: 50, Condition: games.ConditionAbove}}

	for nonce := int64(0); nonce < 100; nonce++ {
		proof := games.Proof("server-seed", "client-seed", nonce)
		roll, err := games.DiceRoll(proof)
		if err != nil {
			t.Fatalf("DiceRoll failed: %v", err)
		}

		out, err := r.Resolve(games.KindDice, stake, proof, choice)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		if out.Win != (roll > 50) {
			t.Fatalf("Roll %v vs target 50: win flag %v is wrong", roll, out.Win)
		}
		if out.Win {
			// Above 50 wins with probability 0.5: multiplier 1/0.5 * RTP.
			if math.Abs(out.Multiplier-2*testRTP) > 1e-9 {
				t.Fatalf("Expected multiplier %v, got %v", 2*testRTP, out.Multiplier)
			}
			want := decimal.NewFromFloat(10 * 2 * testRTP)
			if !out.Payout.Equal(want) {
				t.Fatalf("Expected payout %s, got %s", want, out.Payout)
			}
		} else if !out.Payout.IsZero() {
			t.Fatalf("Losing bet should pay zero, got %s", out.Payout)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(5)
	proof := games.Proof("server-seed", "client-seed", 11)
	choice := games.Choice{Dice: &games.DiceChoice{Target: 30, Condition: games.ConditionBelow}}

	a, err := r.Resolve(games.KindDice, stake, proof, choice)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	b, _ := r.Resolve(games.KindDice, stake, proof, choice)

	if a.Win != b.Win || a.Multiplier != b.Multiplier || !a.Payout.Equal(b.Payout) {
		t.Error("Identical inputs should resolve identically")
	}
}

func TestResolveCoinflip(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(2)

	wins := 0
	for nonce := int64(0); nonce < 100; nonce++ {
		proof := games.Proof("server-seed", "client-seed", nonce)
		landed, err := games.CoinflipLanded(proof)
		if err != nil {
			t.Fatalf("CoinflipLanded failed: %v", err)
		}

		out, err := r.Resolve(games.KindCoinflip, stake, proof,
			games.Choice{Coinflip: &games.CoinflipChoice{Side: games.SideHeads}})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if out.Win != (landed == games.SideHeads) {
			t.Fatalf("Win flag disagrees with landed side %s", landed)
		}
		if out.Win {
			wins++
			if math.Abs(out.Multiplier-2*testRTP) > 1e-9 {
				t.Fatalf("Coinflip multiplier should be %v, got %v", 2*testRTP, out.Multiplier)
			}
		}
	}
	if wins == 0 || wins == 100 {
		t.Errorf("100 coinflips landed %d heads; the digest looks degenerate", wins)
	}
}

func TestResolveMines(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(1)
	proof := games.Proof("server-seed", "client-seed", 9)

	mines, err := games.MinePositions(proof, 3)
	if err != nil {
		t.Fatalf("MinePositions failed: %v", err)
	}

	// Pick two tiles that are provably safe for this layout.
	safe := make([]int, 0, 2)
	for tile := 0; tile < 25 && len(safe) < 2; tile++ {
		hit := false
		for _, m := range mines {
			if m == tile {
				hit = true
				break
			}
		}
		if !hit {
			safe = append(safe, tile)
		}
	}

	out, err := r.Resolve(games.KindMines, stake, proof,
		games.Choice{Mines: &games.MinesChoice{MinesCount: 3, Tiles: safe}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !out.Win {
		t.Fatal("Safe tiles should win")
	}

	want := games.MinesMultiplier(3, 2, testRTP)
	if math.Abs(out.Multiplier-want) > 1e-9 {
		t.Errorf("Expected multiplier %v, got %v", want, out.Multiplier)
	}

	// Betting directly on a mine loses.
	out, err = r.Resolve(games.KindMines, stake, proof,
		games.Choice{Mines: &games.MinesChoice{MinesCount: 3, Tiles: []int{mines[0]}}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if out.Win {
		t.Error("Revealing a mine should lose")
	}
}

func TestMinesMultiplierFormula(t *testing.T) {
	// One mine, one safe reveal: 25/24 before RTP.
	want := 25.0 / 24.0 * testRTP
	if got := games.MinesMultiplier(1, 1, testRTP); math.Abs(got-want) > 1e-9 {
		t.Errorf("MinesMultiplier(1, 1) = %v, want %v", got, want)
	}

	// Three mines, two reveals: 25/22 * 24/21.
	want = 25.0 / 22.0 * 24.0 / 21.0 * testRTP
	if got := games.MinesMultiplier(3, 2, testRTP); math.Abs(got-want) > 1e-9 {
		t.Errorf("MinesMultiplier(3, 2) = %v, want %v", got, want)
	}

	if got := games.MinesMultiplier(5, 0, testRTP); got != 1 {
		t.Errorf("Zero reveals should be 1x, got %v", got)
	}
}

func TestResolvePlinko(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(1)
	proof := games.Proof("server-seed", "client-seed", 21)

	out, err := r.Resolve(games.KindPlinko, stake, proof,
		games.Choice{Plinko: &games.PlinkoChoice{Risk: games.RiskHigh, Rows: 16}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	res := out.Result.Plinko
	if len(res.Path) != 16 {
		t.Fatalf("Expected 16 path steps, got %d", len(res.Path))
	}
	rights := 0
	for _, step := range res.Path {
		if step != 0 && step != 1 {
			t.Fatalf("Path step %d is not 0 or 1", step)
		}
		rights += step
	}
	if res.Bin != rights {
		t.Errorf("Bin %d should equal right-steps %d", res.Bin, rights)
	}
	if out.Multiplier <= 0 {
		t.Errorf("Plinko multiplier should be positive, got %v", out.Multiplier)
	}
}

func TestResolveRoulette(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(10)

	for nonce := int64(0); nonce < 100; nonce++ {
		proof := games.Proof("server-seed", "client-seed", nonce)
		out, err := r.Resolve(games.KindRoulette, stake, proof,
			games.Choice{Roulette: &games.RouletteChoice{BetType: games.BetRed}})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		res := out.Result.Roulette
		if res.Number < 0 || res.Number > 36 {
			t.Fatalf("Pocket %d out of range", res.Number)
		}
		if out.Win != (res.Color == "red") {
			t.Fatalf("Red bet win flag disagrees with color %s", res.Color)
		}
	}
}

func TestRouletteStraightMultiplier(t *testing.T) {
	r := testResolver()
	stake := decimal.NewFromInt(1)

	// Find a proof and bet on its own pocket; the straight must pay 37 * RTP.
	proof := games.Proof("server-seed", "client-seed", 5)
	spun, err := games.RouletteSpin(proof)
	if err != nil {
		t.Fatalf("RouletteSpin failed: %v", err)
	}

	out, err := r.Resolve(games.KindRoulette, stake, proof,
		games.Choice{Roulette: &games.RouletteChoice{BetType: games.BetStraight, Number: spun.Number}})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !out.Win {
		t.Fatal("Betting on the spun pocket should win")
	}
	want := 37 * testRTP
	if math.Abs(out.Multiplier-want) > 1e-9 {
		t.Errorf("Straight multiplier should be %v, got %v", want, out.Multiplier)
	}
}

func TestCapPayout(t *testing.T) {
	r := games.NewResolver(testRTP, decimal.NewFromInt(50), false)

	capped := r.CapPayout(decimal.NewFromInt(100), 2)
	if !capped.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Payout should cap at 50, got %s", capped)
	}

	small := r.CapPayout(decimal.NewFromInt(10), 1.5)
	if !small.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Uncapped payout should be 15, got %s", small)
	}
}

func TestValidateChoice(t *testing.T) {
	if err := games.ValidateChoice(games.KindDice, games.Choice{}); err == nil {
		t.Error("Missing dice choice should be rejected")
	}
	if err := games.ValidateChoice(games.KindDice,
		games.Choice{Dice: &games.DiceChoice{Target: 0, Condition: games.ConditionAbove}}); err == nil {
		t.Error("Target below 1 should be rejected")
	}
	if err := games.ValidateChoice(games.KindBlackjack, games.Choice{}); !errors.Is(err, games.ErrUnsupportedGame) {
		t.Errorf("Blackjack on the unified surface should be unsupported, got %v", err)
	}
	if err := games.ValidateChoice(games.KindPump, games.Choice{}); !errors.Is(err, games.ErrUnsupportedGame) {
		t.Errorf("Pump on the unified surface should be unsupported, got %v", err)
	}
	if err := games.ValidateChoice("keno", games.Choice{}); !errors.Is(err, games.ErrUnsupportedGame) {
		t.Errorf("Unknown game should be unsupported, got %v", err)
	}

	if err := games.ValidateChoice(games.KindRoulette,
		games.Choice{Roulette: &games.RouletteChoice{BetType: games.BetDozen, Number: 2}}); err != nil {
		t.Errorf("Valid dozen bet should pass, got %v", err)
	}
}

func TestPumpMultiplier(t *testing.T) {
	want := 1 / (1 - 1.0/25) * testRTP
	if got := games.PumpMultiplier(games.PumpEasy, 1, testRTP); math.Abs(got-want) > 1e-9 {
		t.Errorf("PumpMultiplier(easy, 1) = %v, want %v", got, want)
	}
	if got := games.PumpMultiplier(games.PumpHard, 0, testRTP); got != 1 {
		t.Errorf("Zero pumps should be 1x, got %v", got)
	}

	// Harder difficulties compound faster.
	easy := games.PumpMultiplier(games.PumpEasy, 5, testRTP)
	hard := games.PumpMultiplier(games.PumpHard, 5, testRTP)
	if hard <= easy {
		t.Errorf("Hard (%v) should outpay easy (%v) for the same pumps", hard, easy)
	}
}

func TestRouletteSpinFrequency(t *testing.T) {
	const spins = 100000
	counts := make([]int, 37)
	for nonce := int64(0); nonce < spins; nonce++ {
		proof := games.Proof("frequency-server-seed", "frequency-client-seed", nonce)
		res, err := games.RouletteSpin(proof)
		if err != nil {
			t.Fatalf("Failed to spin at nonce %d: %v", nonce, err)
		}
		counts[res.Number]++
	}

	// Expected 1/37 per pocket; 15% slack is far beyond sampling noise at
	// this volume, so a miss means a biased derivation.
	expected := float64(spins) / 37
	for pocket, n := range counts {
		if math.Abs(float64(n)-expected) > expected*0.15 {
			t.Errorf("Pocket %d landed %d times, expected about %.0f", pocket, n, expected)
		}
	}
}
