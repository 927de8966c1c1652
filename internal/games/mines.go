package games

const minesGridSize = 25

type MinesChoice struct {
	MinesCount int   `json:"mines_count"`
	Tiles      []int `json:"tiles,omitempty"`
}

type MinesResult struct {
	Mines    []int `json:"mines"`
	Revealed []int `json:"revealed"`
	Hit      bool  `json:"hit"`
}

func (c *MinesChoice) Validate() error {
	if c.MinesCount < 1 || c.MinesCount > minesGridSize-1 {
		return invalidChoice("mines count %d out of range [1, %d]", c.MinesCount, minesGridSize-1)
	}
	if len(c.Tiles) > minesGridSize-c.MinesCount {
		return invalidChoice("cannot reveal %d tiles with %d mines", len(c.Tiles), c.MinesCount)
	}
	seen := make(map[int]bool, len(c.Tiles))
	for _, t := range c.Tiles {
		if t < 0 || t >= minesGridSize {
			return invalidChoice("mines tile %d out of range [0, %d)", t, minesGridSize)
		}
		if seen[t] {
			return invalidChoice("mines tile %d revealed twice", t)
		}
		seen[t] = true
	}
	return nil
}

// MinePositions draws count distinct cells from the 25-cell grid. Each draw
// consumes a 2-byte window of the digest and removes the picked cell from the
// remaining pool, a seeded draw-without-replacement.
func MinePositions(proof string, count int) ([]int, error) {
	d, err := newDigest(proof)
	if err != nil {
		return nil, err
	}

	pool := make([]int, minesGridSize)
	for i := range pool {
		pool[i] = i
	}

	positions := make([]int, 0, count)
	for i := 0; i < count; i++ {
		j := int(d.uint16()) % len(pool)
		positions = append(positions, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}

	return positions, nil
}

// MinesMultiplier is the running multiplier after `revealed` safe picks with
// `minesCount` mines on the grid: the product of the inverse per-pick safe
// probabilities, scaled by RTP.
func MinesMultiplier(minesCount, revealed int, rtp float64) float64 {
	if revealed == 0 {
		return 1
	}
	m := 1.0
	for i := 0; i < revealed; i++ {
		m *= float64(minesGridSize-i) / float64(minesGridSize-minesCount-i)
	}
	return m * rtp
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
