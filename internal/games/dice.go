package games

const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

type DiceChoice struct {
	Target    float64 `json:"target"`
	Condition string  `json:"condition"`
}

type DiceResult struct {
	Roll      float64 `json:"roll"`
	Target    float64 `json:"target"`
	Condition string  `json:"condition"`
}

func (c *DiceChoice) Validate() error {
	if c.Target < 1 || c.Target > 99 {
		return invalidChoice("dice target %v out of range [1, 99]", c.Target)
	}
	if c.Condition != ConditionAbove && c.Condition != ConditionBelow {
		return invalidChoice("dice condition %q must be above or below", c.Condition)
	}
	return nil
}

// DiceRoll maps the first 4 bytes of the digest onto [0.00, 100.00] with
// two-decimal resolution (10001 equally likely values).
func DiceRoll(proof string) (float64, error) {
	d, err := newDigest(proof)
	if err != nil {
		return 0, err
	}
	return float64(d.uint32()%10001) / 100, nil
}

func (c *DiceChoice) win(roll float64) bool {
	if c.Condition == ConditionAbove {
		return roll > c.Target
	}
	return roll < c.Target
}

func (c *DiceChoice) winProbability() float64 {
	if c.Condition == ConditionAbove {
		return (100 - c.Target) / 100
	}
	return c.Target / 100
}
