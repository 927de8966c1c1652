package games

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

type PlinkoChoice struct {
	Risk string `json:"risk"`
	Rows int    `json:"rows"`
}

type PlinkoResult struct {
	Path []int `json:"path"` // 0 = left, 1 = right per row
	Bin  int   `json:"bin"`
}

// Bin multipliers per risk tier and row count. The tables already carry the
// house edge, so RTP is not applied on top.
var plinkoTables = map[string]map[int][]float64{
	RiskLow: {
		8:  {5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
		12: {10, 3, 1.6, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 1.6, 3, 10},
		16: {16, 9, 2, 1.4, 1.4, 1.2, 1.1, 1, 0.5, 1, 1.1, 1.2, 1.4, 1.4, 2, 9, 16},
	},
	RiskMedium: {
		8:  {13, 3, 1.3, 0.7, 0.4, 0.7, 1.3, 3, 13},
		12: {33, 11, 4, 2, 1.1, 0.6, 0.3, 0.6, 1.1, 2, 4, 11, 33},
		16: {110, 41, 10, 5, 3, 1.5, 1, 0.5, 0.3, 0.5, 1, 1.5, 3, 5, 10, 41, 110},
	},
	RiskHigh: {
		8:  {29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29},
		12: {170, 24, 8.1, 2, 0.7, 0.2, 0.2, 0.2, 0.7, 2, 8.1, 24, 170},
		16: {1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000},
	},
}

func (c *PlinkoChoice) Validate() error {
	tiers, ok := plinkoTables[c.Risk]
	if !ok {
		return invalidChoice("plinko risk %q must be low, medium or high", c.Risk)
	}
	if _, ok := tiers[c.Rows]; !ok {
		return invalidChoice("plinko rows %d must be 8, 12 or 16", c.Rows)
	}
	return nil
}

// PlinkoDrop decides one left/right step per row from the parity of one
// digest byte each; the final bin is the count of rights.
func PlinkoDrop(proof string, rows int) (*PlinkoResult, error) {
	d, err := newDigest(proof)
	if err != nil {
		return nil, err
	}

	res := &PlinkoResult{Path: make([]int, rows)}
	for i := 0; i < rows; i++ {
		if d.byte()%2 == 1 {
			res.Path[i] = 1
			res.Bin++
		}
	}
	return res, nil
}

func plinkoMultiplier(risk string, rows, bin int) float64 {
	return plinkoTables[risk][rows][bin]
}
