package book

import (
	"github.com/shopspring/decimal"
)

// Stats is a point-in-time summary of the book for the read API and gauges.
type Stats struct {
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	Mid       decimal.Decimal
	SpreadBps float64
	BidLevels int
	AskLevels int
	BidQty    decimal.Decimal
	AskQty    decimal.Decimal
}

// Stats computes the summary under a single read lock. ok is false until
// both sides have at least one level (mid/spread are undefined before that).
func (b *Book) Stats() (Stats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := Stats{
		BidLevels: len(b.bids.levels),
		AskLevels: len(b.asks.levels),
		BidQty:    b.bids.totalQty(),
		AskQty:    b.asks.totalQty(),
	}
	bb, okB := b.bids.best()
	ba, okA := b.asks.best()
	if !okB || !okA {
		return st, false
	}
	st.BestBid = bb.Price
	st.BestAsk = ba.Price
	two := decimal.NewFromInt(2)
	st.Mid = bb.Price.Add(ba.Price).Div(two)
	if st.Mid.IsPositive() {
		spread := ba.Price.Sub(bb.Price)
		st.SpreadBps, _ = spread.Div(st.Mid).Mul(decimal.NewFromInt(10000)).Float64()
	}
	return st, true
}

// ImpactBps walks one side's depth for a market order of the given size and
// returns the average-fill slippage versus mid, in bps. ok is false when the
// tracked depth cannot absorb the size (or inputs are degenerate), in which
// case the estimate is meaningless rather than merely large.
func ImpactBps(levels []Level, qty, mid decimal.Decimal, isBuy bool) (float64, bool) {
	if !qty.IsPositive() || !mid.IsPositive() {
		return 0, false
	}
	cost := decimal.Zero
	filled := decimal.Zero
	for _, lvl := range levels {
		use := decimal.Min(qty.Sub(filled), lvl.Qty)
		if !use.IsPositive() {
			break
		}
		cost = cost.Add(use.Mul(lvl.Price))
		filled = filled.Add(use)
		if filled.GreaterThanOrEqual(qty) {
			break
		}
	}
	if filled.LessThan(qty) {
		return 0, false
	}
	avg := cost.Div(qty)
	diff := avg.Sub(mid)
	if !isBuy {
		diff = mid.Sub(avg)
	}
	bps, _ := diff.Div(mid).Mul(decimal.NewFromInt(10000)).Float64()
	return bps, true
}
