// Package book maintains a depth-limited limit order book reconstructed
// from an exchange snapshot/delta feed. A single writer applies feed
// messages; any number of readers take consistent copies concurrently.
package book

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/feed"
)

type Book struct {
	symbol string
	depth  int

	mu        sync.RWMutex
	bids      sideSet
	asks      sideSet
	hasSnap   bool
	updatedAt time.Time
}

func New(symbol string, depth int) *Book {
	return &Book{
		symbol: symbol,
		depth:  depth,
		bids:   newSideSet(depth, true),
		asks:   newSideSet(depth, false),
	}
}

func (b *Book) Symbol() string { return b.symbol }
func (b *Book) Depth() int     { return b.depth }

// Apply folds one feed message into the book. The whole message is applied
// under one exclusive critical section so a reader never observes bids from
// one message paired with asks from another.
//
// Snapshots are parsed in full before any mutation: a bad token leaves the
// book exactly as it was. Deltas are applied pair by pair; a bad token stops
// the message there, keeping pairs already applied (the next snapshot
// reconciles). Both behaviors surface as a *ParseError.
func (b *Book) Apply(msg feed.Message) error {
	if msg.Empty() {
		return ErrEmptyMessage
	}
	switch msg.Kind {
	case feed.KindSnapshot:
		bids, err := parseLevels("bid", msg.Bids)
		if err != nil {
			return err
		}
		asks, err := parseLevels("ask", msg.Asks)
		if err != nil {
			return err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.bids.replaceAll(bids)
		b.asks.replaceAll(asks)
		b.hasSnap = true
		b.updatedAt = time.Now()
		return nil
	case feed.KindDelta:
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, pq := range msg.Bids {
			price, qty, err := parsePair("bid", pq)
			if err != nil {
				return err
			}
			b.bids.upsert(price, qty)
		}
		for _, pq := range msg.Asks {
			price, qty, err := parsePair("ask", pq)
			if err != nil {
				return err
			}
			b.asks.upsert(price, qty)
		}
		b.updatedAt = time.Now()
		return nil
	default:
		return &UnknownKindError{Kind: string(msg.Kind)}
	}
}

// Read returns independent copies of both sides, best price first. The
// copies never alias live state, so callers may hold them across later
// applies.
func (b *Book) Read() (bids, asks []Level) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.copyLevels(), b.asks.copyLevels()
}

// Live reports whether at least one snapshot has been applied. Deltas
// arriving earlier still apply to the empty book; until the first snapshot
// the contents are best-effort.
func (b *Book) Live() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hasSnap
}

// LastUpdate returns the wall time of the last successfully applied message,
// zero before any.
func (b *Book) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}

func parseLevels(side string, pairs [][2]string) ([]Level, error) {
	out := make([]Level, 0, len(pairs))
	for _, pq := range pairs {
		price, qty, err := parsePair(side, pq)
		if err != nil {
			return nil, err
		}
		// Exchanges signal deletion with zero quantity; a snapshot should
		// not contain such entries but tolerating them costs nothing.
		if qty.IsZero() {
			continue
		}
		out = append(out, Level{Price: price, Qty: qty})
	}
	return out, nil
}

func parsePair(side string, pq [2]string) (price, qty decimal.Decimal, err error) {
	price, perr := decimal.NewFromString(pq[0])
	if perr != nil {
		return decimal.Decimal{}, decimal.Decimal{}, &ParseError{Side: side, Field: "price", Token: pq[0], Err: perr}
	}
	qty, qerr := decimal.NewFromString(pq[1])
	if qerr != nil {
		return decimal.Decimal{}, decimal.Decimal{}, &ParseError{Side: side, Field: "quantity", Token: pq[1], Err: qerr}
	}
	return price, qty, nil
}
