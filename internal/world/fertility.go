// Fertility noise field: spatially correlated richness used when seeding
// resources, so sugar and spice form bands instead of uniform confetti.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// fertilityScale controls feature size; smaller values give broader bands.
const fertilityScale = 0.13

// Fertility is a normalized noise landscape over the grid.
type Fertility struct {
	noise opensimplex.Noise
}

// NewFertility creates a fertility field for a seed. The same seed always
// produces the same landscape.
func NewFertility(seed int64) *Fertility {
	return &Fertility{noise: opensimplex.NewNormalized(seed)}
}

// At returns the fertility at a coordinate in [0, 1].
func (f *Fertility) At(c Coord) float64 {
	return f.noise.Eval2(float64(c.X)*fertilityScale, float64(c.Y)*fertilityScale)
}
