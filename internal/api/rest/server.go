// Package rest exposes the consumer read surface: the current book and a
// small stats endpoint. Handlers only ever touch copies from book.Read, so
// they can be hit at any rate without holding up ingestion.
package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/book"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/log"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/metrics"
)

type Server struct {
	book   *book.Book
	logger log.Logger
	mux    *http.ServeMux
}

func New(b *book.Book, logger log.Logger) *Server {
	s := &Server{book: b, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/v1/orderbook", s.handleOrderbook)
	s.mux.HandleFunc("/api/v1/orderbook/stats", s.handleStats)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// levelDTO keeps prices and quantities as decimal strings on the wire; the
// consumer decides its own numeric representation.
type levelDTO [2]string

type orderbookDTO struct {
	Symbol      string     `json:"symbol"`
	Depth       int        `json:"depth"`
	Live        bool       `json:"live"`
	UpdatedAt   int64      `json:"updated_at_ms,omitempty"`
	StalenessMs int64      `json:"staleness_ms,omitempty"`
	Bids        []levelDTO `json:"bids"`
	Asks        []levelDTO `json:"asks"`
}

func toDTO(levels []book.Level) []levelDTO {
	out := make([]levelDTO, len(levels))
	for i, l := range levels {
		out[i] = levelDTO{l.Price.String(), l.Qty.String()}
	}
	return out
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.reply(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	bids, asks := s.book.Read()
	dto := orderbookDTO{
		Symbol: s.book.Symbol(),
		Depth:  s.book.Depth(),
		Live:   s.book.Live(),
		Bids:   toDTO(bids),
		Asks:   toDTO(asks),
	}
	if ts := s.book.LastUpdate(); !ts.IsZero() {
		dto.UpdatedAt = ts.UnixMilli()
		dto.StalenessMs = time.Since(ts).Milliseconds()
	}
	s.reply(w, r, http.StatusOK, dto)
}

type statsDTO struct {
	Symbol    string  `json:"symbol"`
	BestBid   string  `json:"best_bid"`
	BestAsk   string  `json:"best_ask"`
	Mid       string  `json:"mid"`
	SpreadBps float64 `json:"spread_bps"`
	BidLevels int     `json:"bid_levels"`
	AskLevels int     `json:"ask_levels"`
	BidQty    string  `json:"bid_qty"`
	AskQty    string  `json:"ask_qty"`

	// Populated when ?qty= is given and the tracked depth can absorb it.
	ImpactQty     string   `json:"impact_qty,omitempty"`
	BuyImpactBps  *float64 `json:"buy_impact_bps,omitempty"`
	SellImpactBps *float64 `json:"sell_impact_bps,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.reply(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	st, ok := s.book.Stats()
	if !ok {
		s.reply(w, r, http.StatusServiceUnavailable, map[string]string{"error": "book has no levels on both sides yet"})
		return
	}
	dto := statsDTO{
		Symbol:    s.book.Symbol(),
		BestBid:   st.BestBid.String(),
		BestAsk:   st.BestAsk.String(),
		Mid:       st.Mid.String(),
		SpreadBps: st.SpreadBps,
		BidLevels: st.BidLevels,
		AskLevels: st.AskLevels,
		BidQty:    st.BidQty.String(),
		AskQty:    st.AskQty.String(),
	}
	if q := r.URL.Query().Get("qty"); q != "" {
		qty, err := decimal.NewFromString(q)
		if err != nil || !qty.IsPositive() {
			s.reply(w, r, http.StatusBadRequest, map[string]string{"error": "qty must be a positive decimal"})
			return
		}
		bids, asks := s.book.Read()
		dto.ImpactQty = qty.String()
		if bps, ok := book.ImpactBps(asks, qty, st.Mid, true); ok {
			dto.BuyImpactBps = &bps
		}
		if bps, ok := book.ImpactBps(bids, qty, st.Mid, false); ok {
			dto.SellImpactBps = &bps
		}
	}
	s.reply(w, r, http.StatusOK, dto)
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request, status int, body any) {
	metrics.APIRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug().Err(err).Msg("response encode failed")
	}
}
