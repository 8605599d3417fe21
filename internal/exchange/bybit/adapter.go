// Package bybit implements the feed.Source contract against the Bybit V5
// public websocket. It owns connection lifecycle, the depth subscription
// handshake, keepalive pings and reconnect backoff; the order book core
// never sees any of that, only feed.Message values.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/config"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/feed"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/log"
	"github.com/cyChopp/bybit-orderbook-visualizer/internal/infra/metrics"
)

// envelope is the V5 public stream frame. Data-less frames (subscription
// acks, pongs) carry op/success instead of topic.
type envelope struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Ts    int64  `json:"ts"`
	Data  struct {
		Symbol   string      `json:"s"`
		Bids     [][2]string `json:"b"`
		Asks     [][2]string `json:"a"`
		UpdateID int64       `json:"u"`
		Seq      int64       `json:"seq"`
	} `json:"data"`
	Op      string `json:"op"`
	Success *bool  `json:"success"`
	RetMsg  string `json:"ret_msg"`
}

func (e envelope) toFeedMessage() feed.Message {
	return feed.Message{Kind: feed.Kind(e.Type), Bids: e.Data.Bids, Asks: e.Data.Asks}
}

type Source struct {
	cfg    config.Config
	logger log.Logger
	msgs   chan feed.Message
}

func NewSource(cfg config.Config, logger log.Logger) *Source {
	return &Source{cfg: cfg, logger: logger, msgs: make(chan feed.Message, 256)}
}

func (s *Source) Name() string { return "bybit" }

func (s *Source) Messages() <-chan feed.Message { return s.msgs }

// Run keeps a subscription alive until ctx is canceled, reconnecting with
// capped exponential backoff. Bybit resends a full snapshot after every
// resubscribe, so downstream state recovers without any special reset path.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.msgs)
	backoff := time.Second
	maxBackoff := time.Duration(s.cfg.Network.WSBackoffMaxSeconds) * time.Second
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	for {
		err := s.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}
		metrics.WSReconnectsTotal.WithLabelValues("stream_error").Inc()
		s.logger.Warn().Err(err).Dur("backoff", backoff).Msg("websocket stream ended, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// stream runs one connection: dial, subscribe, ping loop, read loop.
func (s *Source) stream(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(s.cfg.Network.WSDialTimeoutSecs) * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.WSEndpoint(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.WSEndpoint(), err)
	}
	defer conn.Close()

	topic := fmt.Sprintf("orderbook.%d.%s", s.cfg.Market.Depth, s.cfg.Market.Symbol)
	sub := map[string]any{"op": "subscribe", "args": []string{topic}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	s.logger.Info().Str("topic", topic).Msg("subscribed to orderbook stream")

	// Bybit expects an application-level ping, not a ws control frame.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go func() {
		interval := time.Duration(s.cfg.Network.WSKeepAliveSeconds) * time.Second
		if interval <= 0 {
			interval = 20 * time.Second
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-t.C:
				if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
					// Read loop sees the broken connection and triggers reconnect.
					return
				}
			}
		}
	}()

	// Unblock ReadMessage on cancellation.
	go func() {
		<-pingCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		if env.Topic == "" {
			// Subscription ack or pong.
			if env.Success != nil && !*env.Success {
				return fmt.Errorf("subscription rejected: %s", env.RetMsg)
			}
			continue
		}
		if env.Type == string(feed.KindSnapshot) {
			metrics.BookRebuildsTotal.WithLabelValues("feed_snapshot").Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.msgs <- env.toFeedMessage():
		}
	}
}
