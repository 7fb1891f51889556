package engine

import (
	"math"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/memory"
	"github.com/talgya/tradescape/internal/world"
)

// dialogueDepth is how many dialogue messages the extractor surfaces per
// observation.
const dialogueDepth = 5

// Observation is the read-only view handed to the decision-maker: the
// agent's own state, what it can see, and its recent dialogue. Built against
// a consistent point-in-time state; deciders never touch the live model.
type Observation struct {
	Tick      uint64         `json:"tick"`
	Self      SelfView       `json:"self"`
	Neighbors []TraderView   `json:"neighbors"`
	Resources []ResourceView `json:"resources"`
	Dialogue  string         `json:"dialogue"`
}

// SelfView is the observing trader's own state. MRS is NaN when undefined.
type SelfView struct {
	ID              agents.AgentID `json:"id"`
	Pos             world.Coord    `json:"pos"`
	Sugar           float64        `json:"sugar"`
	Spice           float64        `json:"spice"`
	MetabolismSugar float64        `json:"metabolism_sugar"`
	MetabolismSpice float64        `json:"metabolism_spice"`
	MRS             float64        `json:"mrs"`
	Vision          int            `json:"vision"`
}

// TraderView is a visible neighbor. MRS is NaN when undefined.
type TraderView struct {
	ID  agents.AgentID `json:"id"`
	Pos world.Coord    `json:"pos"`
	MRS float64        `json:"mrs"`
}

// ResourceView is a visible resource stock.
type ResourceView struct {
	Pos    world.Coord `json:"pos"`
	Kind   agents.Good `json:"kind"`
	Amount float64     `json:"amount"`
}

// Observe builds the observation for one trader from current state.
func (s *Simulation) Observe(t *agents.Trader) Observation {
	obs := Observation{
		Tick: s.LastTick,
		Self: SelfView{
			ID:              t.ID,
			Pos:             t.Pos,
			Sugar:           t.Sugar,
			Spice:           t.Spice,
			MetabolismSugar: t.MetabolismSugar,
			MetabolismSpice: t.MetabolismSpice,
			MRS:             mrsOrNaN(t),
			Vision:          t.Vision,
		},
		Dialogue: memory.Extract(t.Log, s.ResolveAgentKind, dialogueDepth),
	}

	for _, occ := range s.Grid.Neighbors(t.Pos, t.Vision, t) {
		switch v := occ.(type) {
		case *agents.Trader:
			obs.Neighbors = append(obs.Neighbors, TraderView{
				ID:  v.ID,
				Pos: v.Pos,
				MRS: mrsOrNaN(v),
			})
		case *agents.Resource:
			obs.Resources = append(obs.Resources, ResourceView{
				Pos:    v.Pos,
				Kind:   v.Kind,
				Amount: v.Amount,
			})
		}
	}

	return obs
}

func mrsOrNaN(t *agents.Trader) float64 {
	mrs, err := t.MRS()
	if err != nil {
		return math.NaN()
	}
	return mrs
}
