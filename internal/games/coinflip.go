package games

const (
	SideHeads = "heads"
	SideTails = "tails"
)

type CoinflipChoice struct {
	Side string `json:"side"`
}

type CoinflipResult struct {
	Landed string `json:"landed"`
	Side   string `json:"side"`
}

func (c *CoinflipChoice) Validate() error {
	if c.Side != SideHeads && c.Side != SideTails {
		return invalidChoice("coinflip side %q must be heads or tails", c.Side)
	}
	return nil
}

// CoinflipLanded reads the parity of the digest's first byte: even is heads.
func CoinflipLanded(proof string) (string, error) {
	d, err := newDigest(proof)
	if err != nil {
		return "", err
	}
	if d.byte()%2 == 0 {
		return SideHeads, nil
	}
	return SideTails, nil
}
