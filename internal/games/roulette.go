package games

const rouletteWheelSize = 37 // single-zero wheel, 0-36

const (
	BetStraight = "straight"
	BetRed      = "red"
	BetBlack    = "black"
	BetOdd      = "odd"
	BetEven     = "even"
	BetLow      = "low"  // 1-18
	BetHigh     = "high" // 19-36
	BetDozen    = "dozen"
	BetColumn   = "column"
)

type RouletteChoice struct {
	BetType string `json:"bet_type"`
	Number  int    `json:"number,omitempty"` // straight: 0-36; dozen/column: 1-3
}

type RouletteResult struct {
	Number int    `json:"number"`
	Color  string `json:"color"`
	Odd    bool   `json:"odd"`
	Dozen  int    `json:"dozen"`
	Column int    `json:"column"`
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

func (c *RouletteChoice) Validate() error {
	switch c.BetType {
	case BetStraight:
		if c.Number < 0 || c.Number >= rouletteWheelSize {
			return invalidChoice("roulette straight number %d out of range [0, 36]", c.Number)
		}
	case BetDozen, BetColumn:
		if c.Number < 1 || c.Number > 3 {
			return invalidChoice("roulette %s %d out of range [1, 3]", c.BetType, c.Number)
		}
	case BetRed, BetBlack, BetOdd, BetEven, BetLow, BetHigh:
	default:
		return invalidChoice("roulette bet type %q unknown", c.BetType)
	}
	return nil
}

// RouletteSpin maps the first 4 bytes of the digest onto the 37-pocket wheel.
func RouletteSpin(proof string) (*RouletteResult, error) {
	d, err := newDigest(proof)
	if err != nil {
		return nil, err
	}
	return rouletteResult(int(d.uint32() % rouletteWheelSize)), nil
}

func rouletteResult(n int) *RouletteResult {
	return &RouletteResult{
		Number: n,
		Color:  RouletteColor(n),
		Odd:    n != 0 && n%2 == 1,
		Dozen:  rouletteDozen(n),
		Column: rouletteColumn(n),
	}
}

func RouletteColor(n int) string {
	switch {
	case n == 0:
		return "green"
	case redNumbers[n]:
		return "red"
	default:
		return "black"
	}
}

func rouletteDozen(n int) int {
	if n == 0 {
		return 0
	}
	return (n-1)/12 + 1
}

func rouletteColumn(n int) int {
	if n == 0 {
		return 0
	}
	return (n-1)%3 + 1
}

func (c *RouletteChoice) win(r *RouletteResult) bool {
	switch c.BetType {
	case BetStraight:
		return r.Number == c.Number
	case BetRed:
		return r.Color == "red"
	case BetBlack:
		return r.Color == "black"
	case BetOdd:
		return r.Number != 0 && r.Odd
	case BetEven:
		return r.Number != 0 && !r.Odd
	case BetLow:
		return r.Number >= 1 && r.Number <= 18
	case BetHigh:
		return r.Number >= 19 && r.Number <= 36
	case BetDozen:
		return r.Dozen == c.Number
	case BetColumn:
		return r.Column == c.Number
	}
	return false
}

func (c *RouletteChoice) winProbability() float64 {
	switch c.BetType {
	case BetStraight:
		return 1.0 / rouletteWheelSize
	case BetDozen, BetColumn:
		return 12.0 / rouletteWheelSize
	default:
		return 18.0 / rouletteWheelSize
	}
}
