package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/api/rest"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/book"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/config"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/exchange/bybit"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/feed"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/health"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/http/middleware"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/log"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/metrics"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/netutil"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/runner"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/version"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/ingest"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/replay"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	registry := metrics.Init(logger)

	ob := book.New(cfg.Market.Symbol, cfg.Market.Depth)

	mux := http.NewServeMux()
	// admin endpoints (metrics, pprof) behind IP allowlist gate
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	// public read API, rate limited
	bucket := middleware.NewTokenBucket(cfg.Server.APIBurst, cfg.Server.APIRatePerSecond)
	mux.Handle("/api/v1/", middleware.RateLimit(bucket, rest.New(ob, logger).Handler()))

	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	var src feed.Source
	if cfg.Replay.File != "" {
		src = replay.NewSource(cfg.Replay.File, time.Duration(cfg.Replay.IntervalMs)*time.Millisecond)
		logger.Info().Str("file", cfg.Replay.File).Msg("using replay feed source")
	} else {
		probeCtx, cancelProbe := context.WithTimeout(ctx, 10*time.Second)
		ok, err := bybit.NewRestClient(cfg).InstrumentExists(probeCtx, cfg.Market.Symbol)
		cancelProbe()
		switch {
		case err != nil:
			// The stream subscription is still attempted; the probe is advisory.
			logger.Warn().Err(err).Msg("instrument probe failed")
		case !ok:
			logger.Fatal().Str("symbol", cfg.Market.Symbol).Str("category", cfg.Bybit.Category).Msg("symbol not found on exchange")
		}
		src = bybit.NewSource(cfg, logger)
	}

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Int("depth", cfg.Market.Depth).
		Bool("testnet", cfg.Bybit.Testnet).
		Msg("order book service started")

	g := &runner.Group{}
	workerErrCh := g.Go(ctx, func(ctx context.Context) error {
		return ingest.New(ob, src, logger).Run(ctx)
	})

	health.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-workerErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("ingest worker error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	cancel()
	g.Wait()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
