package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/engine"
	"github.com/talgya/tradescape/internal/world"
)

const systemPrompt = `You are a Trader agent in a Sugarscape-style simulation. You hold two goods, sugar and spice, and consume both every tick according to your metabolisms. Your MRS (marginal rate of substitution) summarizes your scarcity: a high MRS means you are sugar-rich and should sell sugar for spice; a low MRS means the reverse.

Each turn you see your own state, your visible neighbors (with their MRS), visible resources, and your recent dialogue. Choose exactly ONE action.

Respond with ONLY valid JSON (no markdown, no prose outside the JSON):
{"action": "move", "target": {"x": 3, "y": 4}}
{"action": "harvest"}
{"action": "trade", "partner": 7}
{"action": "speak", "partner": 7, "message": "..."}
{"action": "idle"}

Rules:
- "action" must be one of: "idle", "move", "harvest", "trade", "speak".
- Moves must target a cell adjacent to your current position.
- "trade" and "speak" need a "partner" id from your visible neighbors.
- Harvest when standing on a resource of the good you are short on.
- Trade when a neighbor's MRS differs noticeably from yours; the protocol
  finds the price, you only pick the partner.`

// actionSchema rejects malformed decisions before they reach the engine's
// own validation.
const actionSchema = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"enum": ["idle", "move", "harvest", "trade", "speak"]},
    "target": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": {"type": "integer"},
        "y": {"type": "integer"}
      }
    },
    "partner": {"type": "integer", "minimum": 0},
    "message": {"type": "string"},
    "reasoning": {"type": "string"}
  },
  "additionalProperties": false
}`

var compiledActionSchema = jsonschema.MustCompileString("action.schema.json", actionSchema)

// wireAction is the JSON shape the model must produce.
type wireAction struct {
	Action    string       `json:"action"`
	Target    *world.Coord `json:"target,omitempty"`
	Partner   *uint64      `json:"partner,omitempty"`
	Message   string       `json:"message,omitempty"`
	Reasoning string       `json:"reasoning,omitempty"`
}

// Decider asks the model for one structured action per observation. Every
// failure (transport, schema, parse, guardrail) wraps engine.ErrNoDecision
// so the scheduler degrades that agent's turn to a no-op.
type Decider struct {
	client *Client
}

// NewDecider creates an LLM decision-maker. The client must be enabled.
func NewDecider(client *Client) (*Decider, error) {
	if !client.Enabled() {
		return nil, fmt.Errorf("llm decider requires a configured client")
	}
	return &Decider{client: client}, nil
}

// Decide implements engine.Decider.
func (d *Decider) Decide(ctx context.Context, obs engine.Observation, allowed []engine.ActionKind) (engine.Action, error) {
	resp, err := d.client.Complete(ctx, systemPrompt, formatObservation(obs, allowed), 256)
	if err != nil {
		return engine.Action{}, fmt.Errorf("%w: %v", engine.ErrNoDecision, err)
	}
	return ParseAction(resp)
}

// ParseAction validates and converts a raw model response into an action.
func ParseAction(resp string) (engine.Action, error) {
	// Strip markdown fences if the model wraps them anyway.
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var raw any
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return engine.Action{}, fmt.Errorf("%w: parse decision (raw: %s): %v", engine.ErrNoDecision, resp, err)
	}
	if err := compiledActionSchema.Validate(raw); err != nil {
		return engine.Action{}, fmt.Errorf("%w: schema: %v", engine.ErrNoDecision, err)
	}

	var wa wireAction
	if err := json.Unmarshal([]byte(resp), &wa); err != nil {
		return engine.Action{}, fmt.Errorf("%w: decode decision: %v", engine.ErrNoDecision, err)
	}
	return toAction(wa)
}

// toAction enforces per-kind payload guardrails.
func toAction(wa wireAction) (engine.Action, error) {
	switch wa.Action {
	case "idle":
		return engine.Action{Kind: engine.ActionIdle}, nil
	case "harvest":
		return engine.Action{Kind: engine.ActionHarvest}, nil
	case "move":
		if wa.Target == nil {
			return engine.Action{}, fmt.Errorf("%w: move without target", engine.ErrNoDecision)
		}
		return engine.Action{Kind: engine.ActionMove, Target: *wa.Target}, nil
	case "trade":
		if wa.Partner == nil {
			return engine.Action{}, fmt.Errorf("%w: trade without partner", engine.ErrNoDecision)
		}
		return engine.Action{Kind: engine.ActionTrade, Partner: agents.AgentID(*wa.Partner)}, nil
	case "speak":
		if wa.Partner == nil || wa.Message == "" {
			return engine.Action{}, fmt.Errorf("%w: speak needs partner and message", engine.ErrNoDecision)
		}
		return engine.Action{
			Kind:    engine.ActionSpeak,
			Partner: agents.AgentID(*wa.Partner),
			Message: wa.Message,
		}, nil
	default:
		return engine.Action{}, fmt.Errorf("%w: unknown action %q", engine.ErrNoDecision, wa.Action)
	}
}

// formatObservation renders the observation as the user prompt.
func formatObservation(obs engine.Observation, allowed []engine.ActionKind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TICK %d\n\n", obs.Tick)
	fmt.Fprintf(&b, "YOU: Trader %d at (%d,%d)\n", obs.Self.ID, obs.Self.Pos.X, obs.Self.Pos.Y)
	fmt.Fprintf(&b, "  sugar=%.1f (metabolism %.0f)  spice=%.1f (metabolism %.0f)\n",
		obs.Self.Sugar, obs.Self.MetabolismSugar, obs.Self.Spice, obs.Self.MetabolismSpice)
	if math.IsNaN(obs.Self.MRS) {
		b.WriteString("  MRS: undefined (no spice)\n")
	} else {
		fmt.Fprintf(&b, "  MRS: %.3f\n", obs.Self.MRS)
	}

	b.WriteString("\nVISIBLE TRADERS:\n")
	if len(obs.Neighbors) == 0 {
		b.WriteString("  none\n")
	}
	for _, n := range obs.Neighbors {
		if math.IsNaN(n.MRS) {
			fmt.Fprintf(&b, "  Trader %d at (%d,%d), MRS undefined\n", n.ID, n.Pos.X, n.Pos.Y)
		} else {
			fmt.Fprintf(&b, "  Trader %d at (%d,%d), MRS %.3f\n", n.ID, n.Pos.X, n.Pos.Y, n.MRS)
		}
	}

	b.WriteString("\nVISIBLE RESOURCES:\n")
	if len(obs.Resources) == 0 {
		b.WriteString("  none\n")
	}
	for _, r := range obs.Resources {
		fmt.Fprintf(&b, "  %s at (%d,%d), amount %.1f\n", r.Kind, r.Pos.X, r.Pos.Y, r.Amount)
	}

	fmt.Fprintf(&b, "\nDIALOGUE HISTORY:\n%s\n", obs.Dialogue)

	kinds := make([]string, 0, len(allowed))
	for _, k := range allowed {
		kinds = append(kinds, k.String())
	}
	fmt.Fprintf(&b, "\nALLOWED ACTIONS: %s\n", strings.Join(kinds, ", "))
	b.WriteString("Observe your inventory and MRS. Move to the best resource or propose a trade.")

	return b.String()
}
