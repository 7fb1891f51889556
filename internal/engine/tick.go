package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/metrics"
)

// Tick advances the model one step: regrow every resource, activate every
// trader in a fresh random permutation, then hand one snapshot to the
// metrics sink. One agent's failure never aborts the tick for the others;
// only context cancellation does, and only between activations, so a
// negotiation always completes or never starts.
func (s *Simulation) Tick(ctx context.Context) error {
	s.LastTick++
	s.StepSugarHarvest = 0
	s.StepSpiceHarvest = 0
	s.tickTrades = nil

	for _, r := range s.Resources {
		r.Regrow()
	}

	// Activation order is the only within-tick nondeterminism, and it comes
	// from the seeded source.
	order := s.rng.Perm(len(s.Traders))

	var decided map[agents.AgentID]Action
	if s.Parallel {
		var err error
		decided, err = s.decideAll(ctx, order)
		if err != nil {
			return err
		}
	}

	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := s.Traders[idx]

		var act Action
		if decided != nil {
			act = decided[t.ID]
		} else {
			act = s.decide(ctx, t)
		}

		if err := s.apply(t, act); err != nil {
			// Recovered as a no-op; the tick continues.
			slog.Warn("action rejected",
				"tick", s.LastTick,
				"trader", t.ID,
				"action", act.Kind.String(),
				"error", err,
			)
		}
	}

	if s.Sink != nil {
		s.Sink.Collect(metrics.BuildSnapshot(
			s.LastTick, s.Traders, s.StepSugarHarvest, s.StepSpiceHarvest, s.tickTrades,
		))
	}
	return nil
}

// decide runs one observe->decide cycle. Decider failures and timeouts
// degrade to idling, logged.
func (s *Simulation) decide(ctx context.Context, t *agents.Trader) Action {
	obs := s.Observe(t)

	if s.DecisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.DecisionTimeout)
		defer cancel()
	}

	act, err := s.Decider.Decide(ctx, obs, AllowedActions())
	if err != nil {
		if !errors.Is(err, ErrNoDecision) {
			err = fmt.Errorf("%w: %v", ErrNoDecision, err)
		}
		slog.Warn("decision failed, trader idles",
			"tick", s.LastTick,
			"trader", t.ID,
			"error", err,
		)
		return Action{Kind: ActionIdle}
	}
	return act
}

// Engine drives the simulation forward in wall-clock time.
type Engine struct {
	Sim      *Simulation
	Speed    float64       // multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // base tick interval
	MaxTicks uint64        // stop after this many ticks; 0 = unbounded

	running bool
}

// NewEngine creates an engine with default pacing.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:      sim,
		Speed:    1.0,
		Interval: time.Second,
	}
}

// Run executes the tick loop until MaxTicks, Stop, or context cancellation.
// Cancellation lands between ticks, never inside one.
func (e *Engine) Run(ctx context.Context) error {
	e.running = true
	slog.Info("simulation engine started", "tick", e.Sim.LastTick, "speed", e.Speed)
	defer slog.Info("simulation engine stopped", "tick", e.Sim.LastTick)

	var done uint64
	for e.running {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if e.Speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		if err := e.Sim.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		done++
		if e.MaxTicks > 0 && done >= e.MaxTicks {
			return nil
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			select {
			case <-time.After(target - elapsed):
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

// Stop halts the loop after the current tick completes.
func (e *Engine) Stop() {
	e.running = false
}
