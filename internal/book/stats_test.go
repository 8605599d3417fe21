package book

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStats(t *testing.T) {
	b := New("BTCUSDT", 5)
	if _, ok := b.Stats(); ok {
		t.Fatal("stats should not be ok on an empty book")
	}
	mustApply(t, b, snapshot(
		[][2]string{{"99", "2"}, {"98", "1"}},
		[][2]string{{"101", "3"}},
	))
	st, ok := b.Stats()
	if !ok {
		t.Fatal("stats should be ok with both sides populated")
	}
	if st.BestBid.String() != "99" || st.BestAsk.String() != "101" {
		t.Fatalf("best prices wrong: %s / %s", st.BestBid, st.BestAsk)
	}
	if st.Mid.String() != "100" {
		t.Fatalf("mid wrong: %s", st.Mid)
	}
	// spread 2 over mid 100 = 200 bps
	if math.Abs(st.SpreadBps-200) > 1e-9 {
		t.Fatalf("spread bps wrong: %f", st.SpreadBps)
	}
	if st.BidLevels != 2 || st.AskLevels != 1 {
		t.Fatalf("level counts wrong: %d / %d", st.BidLevels, st.AskLevels)
	}
	if st.BidQty.String() != "3" || st.AskQty.String() != "3" {
		t.Fatalf("qty totals wrong: %s / %s", st.BidQty, st.AskQty)
	}
}

func TestImpactBps(t *testing.T) {
	asks := []Level{
		{Price: decimal.RequireFromString("101"), Qty: decimal.NewFromInt(1)},
		{Price: decimal.RequireFromString("102"), Qty: decimal.NewFromInt(1)},
	}
	mid := decimal.NewFromInt(100)

	// Buying 2 fills at avg 101.5 -> 150 bps over mid.
	bps, ok := ImpactBps(asks, decimal.NewFromInt(2), mid, true)
	if !ok {
		t.Fatal("expected impact to be computable")
	}
	if math.Abs(bps-150) > 1e-9 {
		t.Fatalf("impact bps wrong: %f", bps)
	}

	// More size than the tracked depth can absorb.
	if _, ok := ImpactBps(asks, decimal.NewFromInt(5), mid, true); ok {
		t.Fatal("expected not-ok when depth cannot absorb the size")
	}

	// Sell side measures below mid.
	bids := []Level{{Price: decimal.RequireFromString("99"), Qty: decimal.NewFromInt(2)}}
	bps, ok = ImpactBps(bids, decimal.NewFromInt(1), mid, false)
	if !ok || math.Abs(bps-100) > 1e-9 {
		t.Fatalf("sell impact wrong: %f ok=%v", bps, ok)
	}

	if _, ok := ImpactBps(asks, decimal.Zero, mid, true); ok {
		t.Fatal("zero size is degenerate")
	}
}
