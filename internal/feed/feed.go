package feed

import "context"

// Kind tags a feed message as a full snapshot or an incremental delta.
type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindDelta    Kind = "delta"
)

// Message is one parsed frame from the market-data feed. Levels arrive as
// raw (price, quantity) text exactly as the exchange sent them; decimal
// parsing is the book's job, not the transport's.
type Message struct {
	Kind Kind
	Bids [][2]string
	Asks [][2]string
}

// Empty reports whether the message carries no level data for either side.
func (m Message) Empty() bool { return len(m.Bids) == 0 && len(m.Asks) == 0 }

// Source delivers feed messages for a single symbol subscription. Run blocks
// until ctx is canceled or the source fails irrecoverably; the Messages
// channel is closed when Run returns.
type Source interface {
	Name() string
	Run(ctx context.Context) error
	Messages() <-chan Message
}
