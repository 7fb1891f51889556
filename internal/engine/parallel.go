package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/tradescape/internal/agents"
)

// decideConcurrency bounds in-flight decision calls, mostly to keep a slow
// external decision-maker from being hammered all at once.
const decideConcurrency = 8

// decideAll runs the decision phase for every trader concurrently. All
// observations are built first, against the same pre-activation state, so
// every decision sees a consistent per-tick snapshot; mutation stays on the
// scheduler goroutine. Individual failures degrade to idling without
// cancelling the rest.
func (s *Simulation) decideAll(ctx context.Context, order []int) (map[agents.AgentID]Action, error) {
	type pending struct {
		trader *agents.Trader
		obs    Observation
	}

	work := make([]pending, 0, len(order))
	for _, idx := range order {
		t := s.Traders[idx]
		work = append(work, pending{trader: t, obs: s.Observe(t)})
	}

	actions := make([]Action, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decideConcurrency)

	for i := range work {
		i := i
		g.Go(func() error {
			dctx := gctx
			if s.DecisionTimeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(gctx, s.DecisionTimeout)
				defer cancel()
			}

			act, err := s.Decider.Decide(dctx, work[i].obs, AllowedActions())
			if err != nil {
				slog.Warn("decision failed, trader idles",
					"tick", s.LastTick,
					"trader", work[i].trader.ID,
					"error", err,
				)
				actions[i] = Action{Kind: ActionIdle}
				return nil
			}
			actions[i] = act
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[agents.AgentID]Action, len(work))
	for i, w := range work {
		out[w.trader.ID] = actions[i]
	}
	return out, nil
}
