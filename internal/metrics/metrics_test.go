package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/tradescape/internal/agents"
	"github.com/talgya/tradescape/internal/economy"
)

func TestGeometricMean(t *testing.T) {
	require.Equal(t, 0.0, GeometricMean(nil))
	require.Equal(t, 0.0, GeometricMean([]float64{}))
	require.InDelta(t, 1.0, GeometricMean([]float64{1.0 / 9.0, 9.0}), 1e-9)
	require.InDelta(t, 2.0, GeometricMean([]float64{2, 2, 2}), 1e-9)
	// Non-positive prices are ignored rather than poisoning the log.
	require.InDelta(t, 4.0, GeometricMean([]float64{4, 0, -1}), 1e-9)
}

func TestBuildSnapshot(t *testing.T) {
	a, err := agents.NewTrader(1, "a", 10, 20, 1, 1, 2)
	require.NoError(t, err)
	b, err := agents.NewTrader(2, "b", 30, 0, 1, 1, 2) // MRS undefined
	require.NoError(t, err)

	a.RecordTrade(agents.TradeRecord{Partner: 2, Price: 2, Quantity: 1, Tick: 3})
	b.RecordTrade(agents.TradeRecord{Partner: 1, Price: 2, Quantity: 1, Tick: 3})

	trades := []economy.Exchange{{Buyer: 1, Seller: 2, Price: 2, Quantity: 1, Tick: 3}}
	snap := BuildSnapshot(3, []*agents.Trader{a, b}, 5, 7, trades)

	require.Equal(t, uint64(3), snap.Tick)
	require.Equal(t, 2, snap.Model.TraderCount)
	require.Equal(t, 40.0, snap.Model.TotalSugar)
	require.Equal(t, 20.0, snap.Model.TotalSpice)
	require.Equal(t, 2, snap.Model.TradeVolume, "both parties' logs count")
	require.InDelta(t, 2.0, snap.Model.Price, 1e-9)
	require.Equal(t, 5.0, snap.Model.StepSugarHarvest)
	require.Equal(t, 7.0, snap.Model.StepSpiceHarvest)

	require.Len(t, snap.Agents, 2)
	require.InDelta(t, 0.5, snap.Agents[0].MRS, 1e-9)
	require.True(t, math.IsNaN(snap.Agents[1].MRS))
	require.Equal(t, []agents.AgentID{2}, snap.Agents[0].Partners)
	require.Len(t, snap.Trades, 1)
}

func TestCollectorAndMultiSink(t *testing.T) {
	a, err := agents.NewTrader(1, "a", 10, 20, 1, 1, 2)
	require.NoError(t, err)

	c1 := NewCollector()
	c2 := NewCollector()
	sink := MultiSink{c1, c2}

	_, ok := c1.Last()
	require.False(t, ok)

	for tick := uint64(1); tick <= 3; tick++ {
		sink.Collect(BuildSnapshot(tick, []*agents.Trader{a}, 0, 0, nil))
	}

	require.Len(t, c1.Models, 3)
	require.Len(t, c2.Models, 3)
	last, ok := c1.Last()
	require.True(t, ok)
	require.Equal(t, uint64(3), last.Tick)
	require.Len(t, c1.Agents, 3)
}
