// Package ingest runs the single writer that folds feed messages into the
// book. Errors from individual messages are reported and absorbed here;
// only a source failure ends the loop.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/book"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/feed"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/log"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/metrics"
)

type Loop struct {
	book   *book.Book
	src    feed.Source
	logger log.Logger
}

func New(b *book.Book, src feed.Source, logger log.Logger) *Loop {
	return &Loop{book: b, src: src, logger: logger.With().Str("source", src.Name()).Logger()}
}

// Run pulls messages until ctx is canceled or the source fails. A source
// failure propagates to the caller, which owns restart policy.
func (l *Loop) Run(ctx context.Context) error {
	srcErr := make(chan error, 1)
	go func() { srcErr <- l.src.Run(ctx) }()

	msgs := l.src.Messages()
	stale := time.NewTicker(time.Second)
	defer stale.Stop()

	for {
		select {
		case <-ctx.Done():
			<-srcErr
			return nil
		case err := <-srcErr:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case msg, ok := <-msgs:
			if !ok {
				// Source is shutting down; its Run result arrives next.
				msgs = nil
				continue
			}
			l.apply(msg)
		case <-stale.C:
			if ts := l.book.LastUpdate(); !ts.IsZero() {
				metrics.BookStalenessMs.Set(float64(time.Since(ts).Milliseconds()))
			}
		}
	}
}

func (l *Loop) apply(msg feed.Message) {
	start := time.Now()
	err := l.book.Apply(msg)
	metrics.ApplyLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		if msg.Kind == feed.KindSnapshot {
			metrics.SnapshotsAppliedTotal.Inc()
			l.logger.Info().Int("bids", len(msg.Bids)).Int("asks", len(msg.Asks)).Msg("snapshot applied")
		} else {
			metrics.DeltasAppliedTotal.Inc()
		}
		l.publishGauges()
	case errors.Is(err, book.ErrEmptyMessage):
		// Expected from time to time; not an ingestion failure.
		metrics.EmptyMessagesTotal.Inc()
		l.logger.Debug().Msg("empty feed message")
	default:
		var pe *book.ParseError
		var uk *book.UnknownKindError
		switch {
		case errors.As(err, &pe):
			metrics.ApplyErrorsTotal.WithLabelValues("parse").Inc()
			l.logger.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("malformed feed message")
		case errors.As(err, &uk):
			metrics.ApplyErrorsTotal.WithLabelValues("unknown_kind").Inc()
			l.logger.Warn().Str("kind", uk.Kind).Msg("dropping message of unknown kind")
		default:
			metrics.ApplyErrorsTotal.WithLabelValues("other").Inc()
			l.logger.Warn().Err(err).Msg("apply failed")
		}
	}
}

func (l *Loop) publishGauges() {
	st, ok := l.book.Stats()
	metrics.BookLevels.WithLabelValues("bid").Set(float64(st.BidLevels))
	metrics.BookLevels.WithLabelValues("ask").Set(float64(st.AskLevels))
	if !ok {
		return
	}
	metrics.BestBid.Set(st.BestBid.InexactFloat64())
	metrics.BestAsk.Set(st.BestAsk.InexactFloat64())
}
