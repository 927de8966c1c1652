package games

const (
	PumpEasy   = "easy"
	PumpMedium = "medium"
	PumpHard   = "hard"
)

// pop chance per pump by difficulty
var pumpPopChance = map[string]float64{
	PumpEasy:   1.0 / 25,
	PumpMedium: 3.0 / 25,
	PumpHard:   5.0 / 25,
}

// PumpState is the evolving result payload of one pump wager.
type PumpState struct {
	Difficulty string `json:"difficulty"`
	Pumps      int    `json:"pumps"`
	Popped     bool   `json:"popped"`
}

func ValidatePumpDifficulty(difficulty string) error {
	if _, ok := pumpPopChance[difficulty]; !ok {
		return invalidChoice("pump difficulty %q must be easy, medium or hard", difficulty)
	}
	return nil
}

// PumpStep decides one pump from its own proof: the first 4 bytes mapped onto
// [0, 1) pop the balloon when below the difficulty's pop chance.
func PumpStep(proof, difficulty string) (popped bool, err error) {
	d, err := newDigest(proof)
	if err != nil {
		return false, err
	}
	return d.float64() < pumpPopChance[difficulty], nil
}

// PumpMultiplier after n surviving pumps: the inverse survival probability
// per pump compounded, scaled by RTP.
func PumpMultiplier(difficulty string, pumps int, rtp float64) float64 {
	if pumps == 0 {
		return 1
	}
	p := pumpPopChance[difficulty]
	m := 1.0
	for i := 0; i < pumps; i++ {
		m *= 1 / (1 - p)
	}
	return m * rtp
}
