package agents

import (
	"github.com/talgya/tradescape/internal/world"
)

// Resource is a regenerating stock of one good sitting on a grid cell.
// Resources are created at model setup and never destroyed; an exhausted
// resource simply sits at zero until growback refills it.
type Resource struct {
	ID          uint64      `json:"id"`
	Pos         world.Coord `json:"pos"`
	Kind        Good        `json:"kind"`
	Amount      float64     `json:"amount"`
	MaxCapacity float64     `json:"max_capacity"`
	Growback    float64     `json:"growback"`
}

// EntityID implements world.Occupant.
func (r *Resource) EntityID() uint64 { return r.ID }

// Regrow advances the stock by the growback rate, clamped to capacity.
// Called once per tick, before any agent activates.
func (r *Resource) Regrow() {
	r.Amount += r.Growback
	if r.Amount > r.MaxCapacity {
		r.Amount = r.MaxCapacity
	}
}

// Harvest removes up to requested units and returns what was actually taken.
// An exhausted resource yields 0; scarcity is a normal condition, not an
// error. The stock never goes negative.
func (r *Resource) Harvest(requested float64) float64 {
	if requested <= 0 || r.Amount <= 0 {
		return 0
	}
	taken := requested
	if taken > r.Amount {
		taken = r.Amount
	}
	r.Amount -= taken
	return taken
}
