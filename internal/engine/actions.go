package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/economy"
	"github.com/talgya/tradescape/internal/memory"
	"github.com/talgya/tradescape/internal/world"
)

var (
	// ErrInvalidAction marks a malformed or precondition-violating action
	// from the decision-maker. The scheduler recovers it as a no-op; state
	// is never half-mutated.
	ErrInvalidAction = errors.New("invalid action")

	// ErrNoDecision marks a decision-maker failure or timeout. The agent's
	// turn is skipped; the tick continues for everyone else.
	ErrNoDecision = errors.New("no decision")
)

// ActionKind enumerates the primitive actions the core can execute.
type ActionKind uint8

const (
	ActionIdle    ActionKind = iota
	ActionMove               // step to an adjacent cell
	ActionHarvest            // harvest resources on the current cell
	ActionTrade              // negotiate with a visible partner
	ActionSpeak              // send a message to a visible partner
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return "move"
	case ActionHarvest:
		return "harvest"
	case ActionTrade:
		return "trade"
	case ActionSpeak:
		return "speak"
	default:
		return "idle"
	}
}

// Action is one structured decision returned by a Decider.
type Action struct {
	Kind    ActionKind
	Target  world.Coord    // move destination
	Partner agents.AgentID // trade/speak counterpart
	Message string         // speak payload
}

// AllowedActions is the action vocabulary offered to deciders.
func AllowedActions() []ActionKind {
	return []ActionKind{ActionIdle, ActionMove, ActionHarvest, ActionTrade, ActionSpeak}
}

// apply validates an action against the core's own preconditions and
// executes it. Validation failures return ErrInvalidAction and leave all
// state untouched.
func (s *Simulation) apply(t *agents.Trader, act Action) error {
	switch act.Kind {
	case ActionIdle:
		return nil
	case ActionMove:
		return s.applyMove(t, act.Target)
	case ActionHarvest:
		s.harvestAt(t)
		return nil
	case ActionTrade:
		return s.applyTrade(t, act.Partner)
	case ActionSpeak:
		return s.applySpeak(t, act.Partner, act.Message)
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidAction, act.Kind)
	}
}

func (s *Simulation) applyMove(t *agents.Trader, to world.Coord) error {
	if !s.Grid.InBounds(to) {
		return fmt.Errorf("%w: move to (%d,%d) is out of bounds", ErrInvalidAction, to.X, to.Y)
	}
	if world.Chebyshev(t.Pos, to) != 1 {
		return fmt.Errorf("%w: move from (%d,%d) to (%d,%d) is not adjacent",
			ErrInvalidAction, t.Pos.X, t.Pos.Y, to.X, to.Y)
	}
	if err := s.Grid.Move(t, to); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	t.Pos = to
	t.Log.Append(memory.Entry{
		Tick: s.LastTick,
		Note: fmt.Sprintf("moved to (%d,%d)", to.X, to.Y),
	})
	return nil
}

// harvestAt consumes resources on the trader's cell, scarce good first.
// Nothing to harvest is a normal outcome, not a failure.
func (s *Simulation) harvestAt(t *agents.Trader) {
	cell := s.resourcesAt[t.Pos]
	if len(cell) == 0 {
		return
	}

	scarce := t.ScarceGood()
	for _, kind := range []agents.Good{scarce, scarce.Other()} {
		for _, r := range cell {
			if r.Kind != kind {
				continue
			}
			taken := r.Harvest(r.Amount)
			if taken == 0 {
				continue
			}
			t.Credit(kind, taken)
			s.recordHarvest(kind, taken)
			t.Log.Append(memory.Entry{
				Tick: s.LastTick,
				Note: fmt.Sprintf("harvested %.1f %s", taken, kind),
			})
		}
	}
}

func (s *Simulation) recordHarvest(kind agents.Good, qty float64) {
	if kind == agents.GoodSugar {
		s.StepSugarHarvest += qty
		s.TotalSugarHarvested += qty
	} else {
		s.StepSpiceHarvest += qty
		s.TotalSpiceHarvested += qty
	}
}

func (s *Simulation) applyTrade(t *agents.Trader, partnerID agents.AgentID) error {
	partner, err := s.visiblePartner(t, partnerID)
	if err != nil {
		return err
	}

	exchanges := economy.Negotiate(t, partner, s.LastTick, s.Trade)
	if len(exchanges) == 0 {
		return nil // no improving trade is a normal steady state
	}
	s.tickTrades = append(s.tickTrades, exchanges...)

	note := fmt.Sprintf("traded %d increments with %s", len(exchanges), partner.Name)
	t.Log.Append(memory.Entry{Tick: s.LastTick, Note: note})
	partner.Log.Append(memory.Entry{Tick: s.LastTick, Note: note})

	slog.Debug("trade executed",
		"tick", s.LastTick,
		"a", t.ID,
		"b", partner.ID,
		"increments", len(exchanges),
		"price", exchanges[len(exchanges)-1].Price,
	)
	return nil
}

func (s *Simulation) applySpeak(t *agents.Trader, partnerID agents.AgentID, msg string) error {
	if msg == "" {
		return fmt.Errorf("%w: speak with empty message", ErrInvalidAction)
	}
	partner, err := s.visiblePartner(t, partnerID)
	if err != nil {
		return err
	}

	// The speaker is in hand, so the sender is resolved at write time; both
	// parties keep a copy of the exchange.
	entry := memory.Entry{
		Tick:    s.LastTick,
		Sender:  memory.Sender{ID: uint64(t.ID), Kind: "Trader"},
		Message: msg,
	}
	partner.Log.Append(entry)
	t.Log.Append(entry)
	return nil
}

// visiblePartner resolves a partner ID and checks it is within the trader's
// vision radius.
func (s *Simulation) visiblePartner(t *agents.Trader, id agents.AgentID) (*agents.Trader, error) {
	partner, ok := s.TraderIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown partner %d", ErrInvalidAction, id)
	}
	if partner.ID == t.ID {
		return nil, fmt.Errorf("%w: trader %d targeting itself", ErrInvalidAction, id)
	}
	if world.Chebyshev(t.Pos, partner.Pos) > t.Vision {
		return nil, fmt.Errorf("%w: partner %d outside vision radius", ErrInvalidAction, id)
	}
	return partner, nil
}
