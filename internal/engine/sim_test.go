package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/config"
	"github.com/talgya/tradescape/internal/metrics"
	"github.com/talgya/tradescape/internal/world"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Ticks = 0
	cfg.DecisionTimeout = 0
	return cfg
}

func TestNewSimulation_Populates(t *testing.T) {
	cfg := testConfig()
	sim, err := NewSimulation(cfg, RuleDecider{}, nil)
	require.NoError(t, err)

	require.Len(t, sim.Traders, cfg.Traders)
	require.Len(t, sim.Resources, cfg.Resources)

	for _, tr := range sim.Traders {
		require.GreaterOrEqual(t, tr.Sugar, 50.0)
		require.LessOrEqual(t, tr.Sugar, 100.0)
		require.GreaterOrEqual(t, tr.MetabolismSugar, 1.0)
		require.LessOrEqual(t, tr.MetabolismSpice, 4.0)

		loc, ok := sim.Grid.LocationOf(tr.EntityID())
		require.True(t, ok)
		require.Equal(t, tr.Pos, loc)
	}

	for _, r := range sim.Resources {
		require.GreaterOrEqual(t, r.MaxCapacity, 2.0)
		require.LessOrEqual(t, r.MaxCapacity, 5.0)
		require.Equal(t, r.Amount, r.MaxCapacity)
		require.Equal(t, 1.0, r.Growback)
	}
}

func TestSimulation_ResourceBoundsOverRun(t *testing.T) {
	sim, err := NewSimulation(testConfig(), RuleDecider{}, nil)
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		require.NoError(t, sim.Tick(context.Background()))
		for _, r := range sim.Resources {
			require.GreaterOrEqual(t, r.Amount, 0.0)
			require.LessOrEqual(t, r.Amount, r.MaxCapacity)
		}
		for _, tr := range sim.Traders {
			require.GreaterOrEqual(t, tr.Sugar, 0.0)
			require.GreaterOrEqual(t, tr.Spice, 0.0)
		}
	}
}

// Two runs with the same seed, config, and a deterministic decider must be
// byte-for-byte identical in inventories and trade logs.
func TestSimulation_DeterminismUnderFixedSeed(t *testing.T) {
	run := func() *Simulation {
		cfg := testConfig()
		cfg.Seed = 1337
		cfg.Traders = 8
		cfg.Resources = 30
		sim, err := NewSimulation(cfg, RuleDecider{}, nil)
		require.NoError(t, err)
		for i := 0; i < 40; i++ {
			require.NoError(t, sim.Tick(context.Background()))
		}
		return sim
	}

	s1 := run()
	s2 := run()

	require.Equal(t, len(s1.Traders), len(s2.Traders))
	for i := range s1.Traders {
		a, b := s1.Traders[i], s2.Traders[i]
		require.Equal(t, a.ID, b.ID)
		require.Equal(t, a.Pos, b.Pos)
		require.Equal(t, a.Sugar, b.Sugar)
		require.Equal(t, a.Spice, b.Spice)
		require.Equal(t, a.Trades, b.Trades)
		require.Equal(t, a.Prices, b.Prices)
	}
	require.Equal(t, s1.TotalSugarHarvested, s2.TotalSugarHarvested)
	require.Equal(t, s1.TotalSpiceHarvested, s2.TotalSpiceHarvested)
}

// A decider that fails for one agent must not disturb the rest of the tick.
func TestSimulation_FailureIsolation(t *testing.T) {
	cfg := testConfig()
	cfg.Traders = 6

	var victim agents.AgentID
	flaky := DeciderFunc(func(ctx context.Context, obs Observation, allowed []ActionKind) (Action, error) {
		if obs.Self.ID == victim {
			return Action{}, ErrNoDecision
		}
		return RuleDecider{}.Decide(ctx, obs, allowed)
	})

	collector := metrics.NewCollector()
	sim, err := NewSimulation(cfg, flaky, collector)
	require.NoError(t, err)
	victim = sim.Traders[0].ID

	require.NoError(t, sim.Tick(context.Background()))

	// The tick completed and produced a snapshot covering every trader.
	require.Len(t, collector.Models, 1)
	require.Equal(t, cfg.Traders, collector.Models[0].TraderCount)
}

func TestApply_InvalidActionsAreNoOps(t *testing.T) {
	sim, err := NewSimulation(testConfig(), RuleDecider{}, nil)
	require.NoError(t, err)
	tr := sim.Traders[0]
	pos := tr.Pos
	sugar, spice := tr.Sugar, tr.Spice

	// Non-adjacent move.
	far := world.Coord{X: pos.X + 3, Y: pos.Y}
	err = sim.apply(tr, Action{Kind: ActionMove, Target: far})
	require.ErrorIs(t, err, ErrInvalidAction)
	require.Equal(t, pos, tr.Pos)

	// Out-of-bounds move.
	err = sim.apply(tr, Action{Kind: ActionMove, Target: world.Coord{X: -1, Y: -1}})
	require.ErrorIs(t, err, ErrInvalidAction)
	require.Equal(t, pos, tr.Pos)

	// Unknown partner.
	err = sim.apply(tr, Action{Kind: ActionTrade, Partner: 9999})
	require.ErrorIs(t, err, ErrInvalidAction)

	// Self-trade.
	err = sim.apply(tr, Action{Kind: ActionTrade, Partner: tr.ID})
	require.ErrorIs(t, err, ErrInvalidAction)

	// Speak without a message.
	err = sim.apply(tr, Action{Kind: ActionSpeak, Partner: sim.Traders[1].ID})
	require.ErrorIs(t, err, ErrInvalidAction)

	require.Equal(t, sugar, tr.Sugar)
	require.Equal(t, spice, tr.Spice)
}

func TestApply_MoveAndSpeak(t *testing.T) {
	cfg := testConfig()
	cfg.Traders = 2
	cfg.Resources = 0
	sim, err := NewSimulation(cfg, RuleDecider{}, nil)
	require.NoError(t, err)

	a, b := sim.Traders[0], sim.Traders[1]

	// Park both traders on known cells.
	require.NoError(t, sim.Grid.Move(a, world.Coord{X: 1, Y: 1}))
	a.Pos = world.Coord{X: 1, Y: 1}
	require.NoError(t, sim.Grid.Move(b, world.Coord{X: 2, Y: 1}))
	b.Pos = world.Coord{X: 2, Y: 1}

	require.NoError(t, sim.apply(a, Action{Kind: ActionMove, Target: world.Coord{X: 1, Y: 2}}))
	require.Equal(t, world.Coord{X: 1, Y: 2}, a.Pos)
	loc, _ := sim.Grid.LocationOf(a.EntityID())
	require.Equal(t, a.Pos, loc)

	require.NoError(t, sim.apply(a, Action{Kind: ActionSpeak, Partner: b.ID, Message: "one sugar for one spice?"}))
	recent := b.Log.Recent(1)
	require.Len(t, recent, 1)
	require.Equal(t, "one sugar for one spice?", recent[0].Message)
	require.Equal(t, uint64(a.ID), recent[0].Sender.ID)
	require.Equal(t, "Trader", recent[0].Sender.Kind)
}

func TestTick_HarvestAccounting(t *testing.T) {
	cfg := testConfig()
	cfg.Traders = 1
	cfg.Resources = 0
	sim, err := NewSimulation(cfg, RuleDecider{}, nil)
	require.NoError(t, err)

	tr := sim.Traders[0]
	r := &agents.Resource{ID: 900, Pos: tr.Pos, Kind: tr.ScarceGood(), Amount: 3, MaxCapacity: 5, Growback: 1}
	require.NoError(t, sim.AddResource(r))

	before := tr.Stock(r.Kind)
	sim.harvestAt(tr)

	require.Equal(t, before+3, tr.Stock(r.Kind))
	require.Equal(t, 0.0, r.Amount)
	if r.Kind == agents.GoodSugar {
		require.Equal(t, 3.0, sim.StepSugarHarvest)
	} else {
		require.Equal(t, 3.0, sim.StepSpiceHarvest)
	}
}

// Parallel decision mode trades strict serial semantics for concurrency,
// but with a pure decider it must still be fully reproducible: decisions
// come from the pre-tick snapshot and application order from the seed.
func TestSimulation_ParallelIsDeterministic(t *testing.T) {
	run := func() *Simulation {
		cfg := testConfig()
		cfg.Seed = 7
		cfg.Traders = 6
		cfg.Resources = 25
		cfg.Parallel = true
		sim, err := NewSimulation(cfg, RuleDecider{}, nil)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			require.NoError(t, sim.Tick(context.Background()))
		}
		return sim
	}

	p1 := run()
	p2 := run()

	for i := range p1.Traders {
		require.Equal(t, p1.Traders[i].Sugar, p2.Traders[i].Sugar)
		require.Equal(t, p1.Traders[i].Spice, p2.Traders[i].Spice)
		require.Equal(t, p1.Traders[i].Trades, p2.Traders[i].Trades)
		require.Equal(t, p1.Traders[i].Pos, p2.Traders[i].Pos)
	}
}

func TestTick_CancelledBetweenActivations(t *testing.T) {
	sim, err := NewSimulation(testConfig(), RuleDecider{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sim.Tick(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}
