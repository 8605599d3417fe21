package book

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Level is one aggregated price level. Quantity is always positive for a
// level stored in the book; zero-quantity levels are removed, never kept.
type Level struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// sideSet holds one side's levels, unique by price, best price first,
// truncated to at most depth entries after every mutation. Bids sort
// descending, asks ascending.
type sideSet struct {
	levels     []Level
	depth      int
	descending bool
}

func newSideSet(depth int, descending bool) sideSet {
	return sideSet{depth: depth, descending: descending}
}

// replaceAll swaps in a full snapshot for this side.
func (s *sideSet) replaceAll(levels []Level) {
	s.levels = append(s.levels[:0], levels...)
	s.normalize()
}

// upsert applies one delta entry: replace quantity at an existing price,
// remove it when qty is zero, or insert a new level. Deleting an absent
// price is a no-op.
func (s *sideSet) upsert(price, qty decimal.Decimal) {
	for i, lvl := range s.levels {
		if lvl.Price.Equal(price) {
			if qty.IsZero() {
				s.levels = append(s.levels[:i], s.levels[i+1:]...)
			} else {
				s.levels[i].Qty = qty
			}
			s.normalize()
			return
		}
	}
	if qty.IsZero() {
		return
	}
	s.levels = append(s.levels, Level{Price: price, Qty: qty})
	s.normalize()
}

// normalize re-sorts by price and drops levels beyond depth. Depth eviction
// here is a policy choice: it discards levels beyond the tracked market
// depth, it is not an authoritative deletion signal from the feed.
func (s *sideSet) normalize() {
	sort.Slice(s.levels, func(i, j int) bool {
		if s.descending {
			return s.levels[i].Price.GreaterThan(s.levels[j].Price)
		}
		return s.levels[i].Price.LessThan(s.levels[j].Price)
	})
	if len(s.levels) > s.depth {
		s.levels = s.levels[:s.depth]
	}
}

// copyLevels returns an independent copy of the side's levels.
func (s *sideSet) copyLevels() []Level {
	out := make([]Level, len(s.levels))
	copy(out, s.levels)
	return out
}

// best returns the top level, ok=false when the side is empty.
func (s *sideSet) best() (Level, bool) {
	if len(s.levels) == 0 {
		return Level{}, false
	}
	return s.levels[0], true
}

// totalQty sums resting quantity across the side.
func (s *sideSet) totalQty() decimal.Decimal {
	sum := decimal.Zero
	for _, lvl := range s.levels {
		sum = sum.Add(lvl.Qty)
	}
	return sum
}
