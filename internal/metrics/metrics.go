// Package metrics collects model- and agent-level statistics per tick.
// The engine builds one immutable snapshot per tick and hands it to every
// registered sink; sinks never mutate simulation state.
package metrics

import (
	"math"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/economy"
	"github.com/talgya/tradescape/internal/world"
)

// Sink receives one read-only snapshot per tick.
type Sink interface {
	Collect(snap *Snapshot)
}

// MultiSink fans a snapshot out to several sinks.
type MultiSink []Sink

// Collect implements Sink.
func (m MultiSink) Collect(snap *Snapshot) {
	for _, s := range m {
		s.Collect(snap)
	}
}

// ModelRow is the model-level statistics line for one tick.
type ModelRow struct {
	Tick             uint64  `json:"tick"`
	TraderCount      int     `json:"trader_count"`
	TotalSugar       float64 `json:"total_sugar"`
	TotalSpice       float64 `json:"total_spice"`
	TradeVolume      int     `json:"trade_volume"` // sum of trade-log lengths
	Price            float64 `json:"price"`        // geometric mean of realized prices, 0 if none
	StepSugarHarvest float64 `json:"step_sugar_harvest"`
	StepSpiceHarvest float64 `json:"step_spice_harvest"`
}

// AgentRow is the per-agent statistics line for one tick. MRS is NaN when
// undefined (empty spice stock).
type AgentRow struct {
	ID       agents.AgentID   `json:"id"`
	Pos      world.Coord      `json:"pos"`
	Sugar    float64          `json:"sugar"`
	Spice    float64          `json:"spice"`
	MRS      float64          `json:"mrs"`
	Trades   int              `json:"trades"`
	Partners []agents.AgentID `json:"partners"` // trade network, in trade order
}

// Snapshot is everything a recorder needs to serialize one tick of history.
type Snapshot struct {
	Tick   uint64             `json:"tick"`
	Model  ModelRow           `json:"model"`
	Agents []AgentRow         `json:"agents"`
	Trades []economy.Exchange `json:"trades"` // executed this tick
}

// BuildSnapshot derives the per-tick statistics from live trader state.
// Realized prices are flattened across every trader's price history, both
// parties included, matching how trade volume counts both logs.
func BuildSnapshot(tick uint64, traders []*agents.Trader, stepSugar, stepSpice float64, trades []economy.Exchange) *Snapshot {
	snap := &Snapshot{
		Tick:   tick,
		Trades: trades,
		Agents: make([]AgentRow, 0, len(traders)),
	}

	var prices []float64
	for _, t := range traders {
		mrs, err := t.MRS()
		if err != nil {
			mrs = math.NaN()
		}

		partners := make([]agents.AgentID, 0, len(t.Trades))
		for _, rec := range t.Trades {
			partners = append(partners, rec.Partner)
		}

		snap.Agents = append(snap.Agents, AgentRow{
			ID:       t.ID,
			Pos:      t.Pos,
			Sugar:    t.Sugar,
			Spice:    t.Spice,
			MRS:      mrs,
			Trades:   len(t.Trades),
			Partners: partners,
		})

		snap.Model.TraderCount++
		snap.Model.TotalSugar += t.Sugar
		snap.Model.TotalSpice += t.Spice
		snap.Model.TradeVolume += len(t.Trades)
		prices = append(prices, t.Prices...)
	}

	snap.Model.Tick = tick
	snap.Model.Price = GeometricMean(prices)
	snap.Model.StepSugarHarvest = stepSugar
	snap.Model.StepSpiceHarvest = stepSpice
	return snap
}

// GeometricMean returns exp(mean(log(p))) over positive prices, 0 when the
// list is empty.
func GeometricMean(prices []float64) float64 {
	var sum float64
	var n int
	for _, p := range prices {
		if p <= 0 {
			continue
		}
		sum += math.Log(p)
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Exp(sum / float64(n))
}

// Collector keeps every per-tick row in memory for later inspection.
type Collector struct {
	Models []ModelRow
	Agents []AgentRow
	Trades []economy.Exchange
}

// NewCollector creates an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Collect implements Sink.
func (c *Collector) Collect(snap *Snapshot) {
	c.Models = append(c.Models, snap.Model)
	c.Agents = append(c.Agents, snap.Agents...)
	c.Trades = append(c.Trades, snap.Trades...)
}

// Last returns the most recent model row, if any.
func (c *Collector) Last() (ModelRow, bool) {
	if len(c.Models) == 0 {
		return ModelRow{}, false
	}
	return c.Models[len(c.Models)-1], true
}
