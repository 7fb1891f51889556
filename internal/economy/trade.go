// Package economy implements the bilateral trade protocol: MRS-bracketing
// negotiation with geometric-mean price discovery.
package economy

import (
	"math"

	"github.com/talgya/tradescape/internal/agents"
)

// Params tunes negotiation termination. Tolerance is the MRS gap below which
// the welfare-improving surplus is considered exhausted; MaxRounds is a hard
// cap on increments per pair per tick, guarding against oscillation and
// floating-point drift.
type Params struct {
	Tolerance float64
	MaxRounds int
	Quantum   float64 // sugar units moved per increment
}

// DefaultParams returns the standard negotiation tuning.
func DefaultParams() Params {
	return Params{
		Tolerance: 0.05,
		MaxRounds: 20,
		Quantum:   1,
	}
}

// Exchange is one executed trade increment with both parties identified.
// Quantity sugar flowed seller -> buyer; Quantity*Price spice flowed back.
type Exchange struct {
	Buyer    agents.AgentID `json:"buyer"`
	Seller   agents.AgentID `json:"seller"`
	Price    float64        `json:"price"`
	Quantity float64        `json:"quantity"`
	Tick     uint64         `json:"tick"`
}

// Negotiate runs repeated exchange increments between two traders until no
// improving increment remains. The trader with the higher MRS is sugar-rich
// and sells; the unit price is the geometric mean of the two MRS values,
// which lies between the two marginal valuations and splits the surplus.
//
// Finding no improving trade is the normal terminal state, never an error.
// The combined (sugar, spice) totals of the pair are invariant across the
// whole negotiation: goods move, they are never created or destroyed.
func Negotiate(a, b *agents.Trader, tick uint64, p Params) []Exchange {
	if p.Quantum <= 0 {
		p.Quantum = 1
	}

	var executed []Exchange
	for round := 0; round < p.MaxRounds; round++ {
		mrsA, errA := a.MRS()
		mrsB, errB := b.MRS()
		if errA != nil || errB != nil {
			break // an empty spice stock makes direction undecidable
		}
		if math.Abs(mrsA-mrsB) <= p.Tolerance {
			break // surplus exhausted
		}

		seller, buyer := a, b
		mrsSeller, mrsBuyer := mrsA, mrsB
		if mrsB > mrsA {
			seller, buyer = b, a
			mrsSeller, mrsBuyer = mrsB, mrsA
		}

		price := math.Sqrt(mrsSeller * mrsBuyer)
		cost := price * p.Quantum

		if seller.Sugar < p.Quantum || buyer.Spice < cost {
			break // increment infeasible without a negative inventory
		}

		// Reject increments that would overshoot the efficient allocation:
		// neither party's post-trade MRS may cross the other's pre-trade MRS.
		postBuyer, okB := mrsAfter(buyer, p.Quantum, -cost)
		postSeller, okS := mrsAfter(seller, -p.Quantum, cost)
		if !okB || !okS {
			break
		}
		if postBuyer > mrsSeller || postSeller < mrsBuyer {
			break
		}

		seller.Debit(agents.GoodSugar, p.Quantum)
		seller.Credit(agents.GoodSpice, cost)
		buyer.Credit(agents.GoodSugar, p.Quantum)
		buyer.Debit(agents.GoodSpice, cost)

		buyer.RecordTrade(agents.TradeRecord{Partner: seller.ID, Price: price, Quantity: p.Quantum, Tick: tick})
		seller.RecordTrade(agents.TradeRecord{Partner: buyer.ID, Price: price, Quantity: p.Quantum, Tick: tick})

		executed = append(executed, Exchange{
			Buyer:    buyer.ID,
			Seller:   seller.ID,
			Price:    price,
			Quantity: p.Quantum,
			Tick:     tick,
		})
	}
	return executed
}

// mrsAfter computes a trader's MRS after a hypothetical (sugar, spice)
// delta, without mutating anything. ok is false when the hypothetical state
// is infeasible or the MRS undefined.
func mrsAfter(t *agents.Trader, dSugar, dSpice float64) (float64, bool) {
	sugar := t.Sugar + dSugar
	spice := t.Spice + dSpice
	if sugar < 0 || spice < 0 {
		return 0, false
	}
	spiceRatio := spice / t.MetabolismSpice
	if spiceRatio == 0 {
		return 0, false
	}
	return (sugar / t.MetabolismSugar) / spiceRatio, true
}
