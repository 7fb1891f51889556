package llm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/engine"
	"github.com/talgya/tradescape/internal/world"
)

func TestParseAction_Kinds(t *testing.T) {
	act, err := ParseAction(`{"action": "idle"}`)
	require.NoError(t, err)
	require.Equal(t, engine.ActionIdle, act.Kind)

	act, err = ParseAction(`{"action": "harvest", "reasoning": "standing on sugar"}`)
	require.NoError(t, err)
	require.Equal(t, engine.ActionHarvest, act.Kind)

	act, err = ParseAction(`{"action": "move", "target": {"x": 3, "y": 4}}`)
	require.NoError(t, err)
	require.Equal(t, engine.ActionMove, act.Kind)
	require.Equal(t, world.Coord{X: 3, Y: 4}, act.Target)

	act, err = ParseAction(`{"action": "trade", "partner": 7}`)
	require.NoError(t, err)
	require.Equal(t, engine.ActionTrade, act.Kind)
	require.Equal(t, agents.AgentID(7), act.Partner)

	act, err = ParseAction(`{"action": "speak", "partner": 7, "message": "sell me sugar"}`)
	require.NoError(t, err)
	require.Equal(t, engine.ActionSpeak, act.Kind)
	require.Equal(t, "sell me sugar", act.Message)
}

func TestParseAction_StripsMarkdownFences(t *testing.T) {
	act, err := ParseAction("```json\n{\"action\": \"harvest\"}\n```")
	require.NoError(t, err)
	require.Equal(t, engine.ActionHarvest, act.Kind)

	act, err = ParseAction("```\n{\"action\": \"idle\"}\n```")
	require.NoError(t, err)
	require.Equal(t, engine.ActionIdle, act.Kind)
}

func TestParseAction_Rejections(t *testing.T) {
	cases := map[string]string{
		"not json":          `move to (3,4)`,
		"unknown action":    `{"action": "fly"}`,
		"missing action":    `{"target": {"x": 1, "y": 1}}`,
		"extra field":       `{"action": "idle", "mood": "happy"}`,
		"float partner":     `{"action": "trade", "partner": 1.5}`,
		"negative partner":  `{"action": "trade", "partner": -2}`,
		"malformed target":  `{"action": "move", "target": {"x": 1}}`,
		"move no target":    `{"action": "move"}`,
		"trade no partner":  `{"action": "trade"}`,
		"speak no message":  `{"action": "speak", "partner": 3}`,
		"speak no partner":  `{"action": "speak", "message": "hi"}`,
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAction(resp)
			require.ErrorIs(t, err, engine.ErrNoDecision)
		})
	}
}

func TestFormatObservation(t *testing.T) {
	obs := engine.Observation{
		Tick: 9,
		Self: engine.SelfView{
			ID: 4, Pos: world.Coord{X: 2, Y: 3},
			Sugar: 12, Spice: 40,
			MetabolismSugar: 2, MetabolismSpice: 1,
			MRS: 0.15,
		},
		Neighbors: []engine.TraderView{
			{ID: 7, Pos: world.Coord{X: 3, Y: 3}, MRS: 4.2},
		},
		Resources: []engine.ResourceView{
			{Pos: world.Coord{X: 2, Y: 3}, Kind: agents.GoodSugar, Amount: 3},
		},
		Dialogue: "- Trader 7: want spice?",
	}

	prompt := formatObservation(obs, engine.AllowedActions())
	require.Contains(t, prompt, "TICK 9")
	require.Contains(t, prompt, "Trader 4 at (2,3)")
	require.Contains(t, prompt, "MRS: 0.150")
	require.Contains(t, prompt, "Trader 7 at (3,3), MRS 4.200")
	require.Contains(t, prompt, "sugar at (2,3), amount 3.0")
	require.Contains(t, prompt, "- Trader 7: want spice?")
	require.Contains(t, prompt, "ALLOWED ACTIONS:")
}
