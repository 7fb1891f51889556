package agents

import (
	"errors"
	"fmt"

	"github.com/talgya/tradescape/internal/memory"
	"github.com/talgya/tradescape/internal/world"
)

var (
	// ErrZeroMetabolism rejects malformed trader configuration at
	// construction. Metabolisms are MRS denominators and must never be zero
	// mid-run, so the check happens exactly once, here.
	ErrZeroMetabolism = errors.New("trader metabolism must be positive")

	// ErrMRSUndefined is returned when the denominator stock is zero. Callers
	// treat it as "no trade possible", never as a crash.
	ErrMRSUndefined = errors.New("MRS undefined: denominator stock is zero")
)

// DefaultLogCapacity bounds a trader's short-term interaction log.
const DefaultLogCapacity = 64

// Trader is an economic agent holding two good inventories. It is created
// once per run and mutated every tick by harvesting and trading.
type Trader struct {
	ID   AgentID     `json:"id"`
	Name string      `json:"name"`
	Pos  world.Coord `json:"pos"`

	Sugar           float64 `json:"sugar"`
	Spice           float64 `json:"spice"`
	MetabolismSugar float64 `json:"metabolism_sugar"`
	MetabolismSpice float64 `json:"metabolism_spice"`
	Vision          int     `json:"vision"`

	Trades []TradeRecord `json:"trades"`
	Prices []float64     `json:"prices"`

	// Log records interactions (dialogue, movements, trades) for the
	// dialogue extractor. Any memory.RecencyLog backend works; the short-term
	// ring is the default.
	Log *memory.ShortTermLog `json:"-"`
}

// NewTrader validates configuration and creates a trader.
func NewTrader(id AgentID, name string, sugar, spice, metSugar, metSpice float64, vision int) (*Trader, error) {
	if metSugar <= 0 || metSpice <= 0 {
		return nil, fmt.Errorf("trader %d: %w", id, ErrZeroMetabolism)
	}
	if sugar < 0 || spice < 0 {
		return nil, fmt.Errorf("trader %d: negative initial inventory", id)
	}
	if vision < 1 {
		return nil, fmt.Errorf("trader %d: vision must be at least 1", id)
	}
	return &Trader{
		ID:              id,
		Name:            name,
		Sugar:           sugar,
		Spice:           spice,
		MetabolismSugar: metSugar,
		MetabolismSpice: metSpice,
		Vision:          vision,
		Log:             memory.NewShortTermLog(DefaultLogCapacity),
	}, nil
}

// EntityID implements world.Occupant.
func (t *Trader) EntityID() uint64 { return uint64(t.ID) }

// MRS is the marginal rate of substitution: the stock-to-need ratio of sugar
// over the stock-to-need ratio of spice. A high MRS means the trader is
// relatively rich in sugar and will give it up for spice; a low MRS means the
// reverse.
func (t *Trader) MRS() (float64, error) {
	spiceRatio := t.Spice / t.MetabolismSpice
	if spiceRatio == 0 {
		return 0, fmt.Errorf("trader %d: %w", t.ID, ErrMRSUndefined)
	}
	return (t.Sugar / t.MetabolismSugar) / spiceRatio, nil
}

// ScarceGood returns the good with the lower stock-to-need ratio, the one
// the trader should be harvesting or buying.
func (t *Trader) ScarceGood() Good {
	if t.Sugar/t.MetabolismSugar <= t.Spice/t.MetabolismSpice {
		return GoodSugar
	}
	return GoodSpice
}

// Stock returns the current inventory of a good.
func (t *Trader) Stock(g Good) float64 {
	if g == GoodSugar {
		return t.Sugar
	}
	return t.Spice
}

// Credit adds quantity to a good inventory.
func (t *Trader) Credit(g Good, qty float64) {
	if g == GoodSugar {
		t.Sugar += qty
	} else {
		t.Spice += qty
	}
}

// Debit removes quantity from a good inventory. Callers check feasibility
// first; inventories must stay non-negative.
func (t *Trader) Debit(g Good, qty float64) {
	if g == GoodSugar {
		t.Sugar -= qty
	} else {
		t.Spice -= qty
	}
}

// RecordTrade appends one executed increment to the trade log and realized
// price history.
func (t *Trader) RecordTrade(rec TradeRecord) {
	t.Trades = append(t.Trades, rec)
	t.Prices = append(t.Prices, rec.Price)
}
