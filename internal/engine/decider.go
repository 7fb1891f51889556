package engine

import (
	"context"
	"math"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/world"
)

// Decider produces exactly one action for an observation. Implementations
// may be slow and may fail; the scheduler treats any error as a skipped turn
// for that agent and nothing else.
type Decider interface {
	Decide(ctx context.Context, obs Observation, allowed []ActionKind) (Action, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, obs Observation, allowed []ActionKind) (Action, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, obs Observation, allowed []ActionKind) (Action, error) {
	return f(ctx, obs, allowed)
}

// RuleDecider is the deterministic scarcity-driven policy: harvest the good
// you are short on when it is underfoot, trade when a visible partner values
// goods differently, otherwise walk toward the best visible stock of the
// scarce good. Used as the fallback when no LLM is configured and as the
// reference policy in tests.
type RuleDecider struct{}

// Decide implements Decider. It is pure: the same observation always yields
// the same action.
func (RuleDecider) Decide(_ context.Context, obs Observation, _ []ActionKind) (Action, error) {
	scarce := scarceGood(obs.Self)

	// Anything worth harvesting underfoot?
	for _, r := range obs.Resources {
		if r.Pos == obs.Self.Pos && r.Amount > 0 {
			return Action{Kind: ActionHarvest}, nil
		}
	}

	// A neighbor with a materially different MRS means surplus to split.
	if !math.IsNaN(obs.Self.MRS) {
		for _, n := range obs.Neighbors {
			if math.IsNaN(n.MRS) {
				continue
			}
			if math.Abs(n.MRS-obs.Self.MRS) > 0.1 {
				return Action{Kind: ActionTrade, Partner: n.ID}, nil
			}
		}
	}

	// Walk one step toward the richest visible stock of the scarce good,
	// falling back to any visible stock.
	if target, ok := bestResource(obs, scarce); ok {
		return Action{Kind: ActionMove, Target: stepToward(obs.Self.Pos, target)}, nil
	}
	if target, ok := bestResource(obs, scarce.Other()); ok {
		return Action{Kind: ActionMove, Target: stepToward(obs.Self.Pos, target)}, nil
	}

	return Action{Kind: ActionIdle}, nil
}

func scarceGood(self SelfView) agents.Good {
	if self.Sugar/self.MetabolismSugar <= self.Spice/self.MetabolismSpice {
		return agents.GoodSugar
	}
	return agents.GoodSpice
}

// bestResource picks the fullest visible stock of a kind, nearest first on
// ties. Observation ordering is deterministic, so this is too.
func bestResource(obs Observation, kind agents.Good) (world.Coord, bool) {
	var best world.Coord
	bestAmount := 0.0
	bestDist := 0
	found := false
	for _, r := range obs.Resources {
		if r.Kind != kind || r.Amount <= 0 || r.Pos == obs.Self.Pos {
			continue
		}
		d := world.Chebyshev(obs.Self.Pos, r.Pos)
		if !found || r.Amount > bestAmount || (r.Amount == bestAmount && d < bestDist) {
			best, bestAmount, bestDist, found = r.Pos, r.Amount, d, true
		}
	}
	return best, found
}

// stepToward returns the adjacent cell one Chebyshev step closer to target.
func stepToward(from, target world.Coord) world.Coord {
	step := from
	if target.X > from.X {
		step.X++
	} else if target.X < from.X {
		step.X--
	}
	if target.Y > from.Y {
		step.Y++
	} else if target.Y < from.Y {
		step.Y--
	}
	return step
}
