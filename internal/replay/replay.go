// Package replay feeds the book from a recorded message file instead of a
// live connection. One JSON object per line:
//
//	{"kind":"snapshot","b":[["30247.2","30.028"]],"a":[["30248.7","0.139"]]}
//
// Useful for driving the service offline against captured market data. It
// writes nothing and keeps no history; it is a feed.Source, not a store.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cyChopp/bybit-orderbook-visualizer/internal/feed"
)

type record struct {
	Kind string      `json:"kind"`
	Bids [][2]string `json:"b"`
	Asks [][2]string `json:"a"`
}

type Source struct {
	path     string
	interval time.Duration
	msgs     chan feed.Message
}

func NewSource(path string, interval time.Duration) *Source {
	return &Source{path: path, interval: interval, msgs: make(chan feed.Message, 64)}
}

func (s *Source) Name() string { return "replay" }

func (s *Source) Messages() <-chan feed.Message { return s.msgs }

// Run replays the file once and returns nil at EOF. A line that is not valid
// JSON is a broken recording and fails the whole run; malformed price text
// inside a well-formed line is left for the book to report, same as live.
func (s *Source) Run(ctx context.Context) error {
	defer close(s.msgs)
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("replay line %d: %w", line, err)
		}
		msg := feed.Message{Kind: feed.Kind(rec.Kind), Bids: rec.Bids, Asks: rec.Asks}
		select {
		case <-ctx.Done():
			return nil
		case s.msgs <- msg:
		}
		if s.interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.interval):
			}
		}
	}
	return sc.Err()
}
