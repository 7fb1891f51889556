// Package agents provides the trader and resource data model: inventories,
// metabolisms, the derived MRS scarcity metric, and regenerating stocks.
package agents

// AgentID is a unique identifier for a trader.
type AgentID uint64

// Good enumerates the two tradeable goods.
type Good uint8

const (
	GoodSugar Good = iota
	GoodSpice
)

// Other returns the opposite good.
func (g Good) Other() Good {
	if g == GoodSugar {
		return GoodSpice
	}
	return GoodSugar
}

func (g Good) String() string {
	if g == GoodSugar {
		return "sugar"
	}
	return "spice"
}

// TradeRecord is one executed exchange increment as seen by one party.
// Quantity is sugar moved; Price is spice paid per unit of sugar.
type TradeRecord struct {
	Partner  AgentID `json:"partner"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Tick     uint64  `json:"tick"`
}
