// Package engine drives the tick-based simulation loop: seeded activation
// order, resource regrowth, action validation and resolution, and per-tick
// metrics collection.
package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/config"
	"github.com/talgya/tradescape/internal/economy"
	"github.com/talgya/tradescape/internal/metrics"
	"github.com/talgya/tradescape/internal/world"
)

// Simulation holds the complete model state and wires systems together.
// All mutation happens on the scheduling goroutine; nothing here locks.
type Simulation struct {
	Grid        *world.Grid
	Traders     []*agents.Trader
	TraderIndex map[agents.AgentID]*agents.Trader
	Resources   []*agents.Resource

	Decider Decider
	Sink    metrics.Sink
	Trade   economy.Params

	// Parallel computes decisions concurrently against the pre-tick state;
	// applying them stays serialized in activation order.
	Parallel        bool
	DecisionTimeout time.Duration

	LastTick uint64

	// Per-tick harvest accumulators, reset at the top of every tick.
	StepSugarHarvest float64
	StepSpiceHarvest float64

	// Cumulative totals across the run.
	TotalSugarHarvested float64
	TotalSpiceHarvested float64

	resourcesAt map[world.Coord][]*agents.Resource
	tickTrades  []economy.Exchange
	rng         *rand.Rand
}

// NewSimulation builds a fully populated model from configuration. All
// randomness flows from the seed: the same config always produces the same
// initial state.
func NewSimulation(cfg config.Config, d Decider, sink metrics.Sink) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		d = RuleDecider{}
	}

	s := &Simulation{
		Grid:        world.New(cfg.Grid.Width, cfg.Grid.Height),
		TraderIndex: make(map[agents.AgentID]*agents.Trader),
		Decider:     d,
		Sink:        sink,
		Trade: economy.Params{
			Tolerance: cfg.Trade.Tolerance,
			MaxRounds: cfg.Trade.MaxRounds,
			Quantum:   cfg.Trade.Quantum,
		},
		Parallel:        cfg.Parallel,
		DecisionTimeout: cfg.DecisionTimeout,
		resourcesAt:     make(map[world.Coord][]*agents.Resource),
		rng:             rand.New(rand.NewSource(cfg.Seed)),
	}

	fertility := world.NewFertility(cfg.Seed)
	var nextID uint64

	for i := 0; i < cfg.Resources; i++ {
		nextID++
		pos := world.Coord{X: s.rng.Intn(cfg.Grid.Width), Y: s.rng.Intn(cfg.Grid.Height)}

		// Capacity 2-5, pulled toward the fertility landscape so rich and
		// poor bands emerge instead of uniform confetti.
		capacity := 2 + math.Round(3*fertility.At(pos))
		kind := agents.GoodSugar
		if s.rng.Intn(2) == 1 {
			kind = agents.GoodSpice
		}

		r := &agents.Resource{
			ID:          nextID,
			Pos:         pos,
			Kind:        kind,
			Amount:      capacity,
			MaxCapacity: capacity,
			Growback:    1,
		}
		if err := s.AddResource(r); err != nil {
			return nil, fmt.Errorf("place resource %d: %w", r.ID, err)
		}
	}

	for i := 0; i < cfg.Traders; i++ {
		nextID++
		id := agents.AgentID(nextID)
		t, err := agents.NewTrader(
			id,
			fmt.Sprintf("Trader %d", id),
			float64(50+s.rng.Intn(51)),
			float64(50+s.rng.Intn(51)),
			float64(1+s.rng.Intn(4)),
			float64(1+s.rng.Intn(4)),
			cfg.Vision,
		)
		if err != nil {
			return nil, err
		}
		pos := world.Coord{X: s.rng.Intn(cfg.Grid.Width), Y: s.rng.Intn(cfg.Grid.Height)}
		if err := s.Grid.Place(t, pos); err != nil {
			return nil, fmt.Errorf("place trader %d: %w", t.ID, err)
		}
		t.Pos = pos
		s.Traders = append(s.Traders, t)
		s.TraderIndex[t.ID] = t
	}

	return s, nil
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// AddResource registers a resource with the grid and the spatial index.
func (s *Simulation) AddResource(r *agents.Resource) error {
	if err := s.Grid.Place(r, r.Pos); err != nil {
		return err
	}
	s.Resources = append(s.Resources, r)
	s.resourcesAt[r.Pos] = append(s.resourcesAt[r.Pos], r)
	return nil
}

// ResourcesAt returns the resources sitting on one cell.
func (s *Simulation) ResourcesAt(pos world.Coord) []*agents.Resource {
	return s.resourcesAt[pos]
}

// ResolveAgentKind maps a bare entity ID to an agent kind for dialogue
// sender labels. A miss is fine; the extractor falls back to a generic label.
func (s *Simulation) ResolveAgentKind(id uint64) (string, bool) {
	if _, ok := s.TraderIndex[agents.AgentID(id)]; ok {
		return "Trader", true
	}
	for _, r := range s.Resources {
		if r.ID == id {
			return "Resource", true
		}
	}
	return "", false
}
