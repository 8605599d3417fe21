package tests

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/api/rest"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/book"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/config"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/feed"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/health"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/http/middleware"
	ilog "github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/log"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/metrics"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/version"
)

// buildMux mirrors the HTTP setup in cmd/orderbook/main.go, minus the admin
// gate so tests do not depend on the test runner's source address.
func buildMux(t *testing.T) (*book.Book, http.Handler) {
	t.Helper()
	cfg := config.Load()
	cfg.Logging.Level = "error"
	logger := ilog.NewLogger(cfg)
	reg := metrics.Init(logger)
	ob := book.New(cfg.Market.Symbol, cfg.Market.Depth)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", health.Healthz)
	health.SetReady(true)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	bucket := middleware.NewTokenBucket(cfg.Server.APIBurst, cfg.Server.APIRatePerSecond)
	mux.Handle("/api/v1/", middleware.RateLimit(bucket, rest.New(ob, logger).Handler()))
	return ob, mux
}

func TestHealthzEndpoint(t *testing.T) {
	_, mux := buildMux(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReadyzAndVersion(t *testing.T) {
	_, mux := buildMux(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("GET /version error: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/version expected application/json, got %s", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, mux := buildMux(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read /metrics body: %v", err)
	}
	if !strings.Contains(string(body), "book_deltas_applied_total") {
		t.Fatal("expected book metrics in exposition")
	}
}

func TestOrderbookThroughFullStack(t *testing.T) {
	ob, mux := buildMux(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	err := ob.Apply(feed.Message{
		Kind: feed.KindSnapshot,
		Bids: [][2]string{{"30247.20", "30.028"}},
		Asks: [][2]string{{"30248.70", "0.139"}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/orderbook")
	if err != nil {
		t.Fatalf("GET /api/v1/orderbook error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var dto struct {
		Live bool        `json:"live"`
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !dto.Live || len(dto.Bids) != 1 || len(dto.Asks) != 1 {
		t.Fatalf("unexpected book payload: %+v", dto)
	}
	if dto.Bids[0][0] != "30247.2" {
		t.Fatalf("expected decimal string price, got %q", dto.Bids[0][0])
	}
}

func TestAPIRateLimit(t *testing.T) {
	cfg := config.Load()
	cfg.Logging.Level = "error"
	logger := ilog.NewLogger(cfg)
	ob := book.New("BTCUSDT", 5)
	// Tiny bucket with no refill to make exhaustion deterministic.
	bucket := middleware.NewTokenBucket(2, 0)
	srv := httptest.NewServer(middleware.RateLimit(bucket, rest.New(ob, logger).Handler()))
	t.Cleanup(srv.Close)

	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/orderbook")
		if err != nil {
			t.Fatalf("GET error: %v", err)
		}
		last = resp.StatusCode
		_ = resp.Body.Close()
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after bucket drained, got %d", last)
	}
}
