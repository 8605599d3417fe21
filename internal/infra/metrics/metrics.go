package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SnapshotsAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_snapshots_applied_total", Help: "Full snapshots applied to the book"})
	DeltasAppliedTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_deltas_applied_total", Help: "Delta updates applied to the book"})
	ApplyErrorsTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_apply_errors_total", Help: "Apply failures by reason"}, []string{"reason"})
	EmptyMessagesTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "book_empty_messages_total", Help: "Feed messages carrying no level data"})

	ApplyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "book_apply_latency_seconds", Help: "Latency of one apply call", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12)})

	BookLevels = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "book_levels", Help: "Levels currently tracked per side"}, []string{"side"})
	BestBid    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_best_bid", Help: "Best bid price"})
	BestAsk    = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_best_ask", Help: "Best ask price"})

	BookStalenessMs   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "book_staleness_ms", Help: "Milliseconds since the last applied feed message"})
	WSReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "WS reconnects by reason"}, []string{"reason"})
	BookRebuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "book_rebuilds_total", Help: "Snapshot-driven book rebuilds by reason"}, []string{"reason"})

	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "api_requests_total", Help: "Public API requests by path and status"}, []string{"path", "status"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotsAppliedTotal, DeltasAppliedTotal, ApplyErrorsTotal, EmptyMessagesTotal,
		ApplyLatency,
		BookLevels, BestBid, BestAsk,
		BookStalenessMs, WSReconnectsTotal, BookRebuildsTotal,
		APIRequestsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
