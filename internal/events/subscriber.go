package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Message is one event as seen on the bus.
type Message struct {
	Topic string
	Data  json.RawMessage
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers every event whose topic matches pattern ("*" and
	// a trailing ">" wildcards). The returned cancel function unsubscribes
	// and closes the channel; it is safe to call more than once.
	Subscribe(pattern string) (<-chan Message, func(), error)
	Close() error
}

// subscriptionBuffer is how many undelivered messages a subscription holds
// before it starts dropping.
const subscriptionBuffer = 64

// NATSSubscriber subscribes to gate check events on NATS.
type NATSSubscriber struct {
	conn *nats.Conn
}

var _ Subscriber = (*NATSSubscriber)(nil)

// NewNATSSubscriber connects to NATS. Extra options such as disconnect or
// reconnect handlers are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, clientName+"-watch", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// natsSubscription forwards NATS messages to a buffered channel. A full
// channel drops the message rather than stall the NATS dispatcher.
type natsSubscription struct {
	pattern string
	ch      chan Message

	mu      sync.Mutex
	closed  bool
	dropped int
	sub     *nats.Subscription
}

func (s *natsSubscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- Message{Topic: msg.Subject, Data: msg.Data}:
	default:
		s.dropped++
	}
}

func (s *natsSubscription) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.sub.Unsubscribe()
	close(s.ch)
	if s.dropped > 0 {
		slog.Warn("events: subscription dropped messages", "pattern", s.pattern, "dropped", s.dropped)
	}
}

func (n *NATSSubscriber) Subscribe(pattern string) (<-chan Message, func(), error) {
	s := &natsSubscription{pattern: pattern, ch: make(chan Message, subscriptionBuffer)}

	s.mu.Lock()
	sub, err := n.conn.Subscribe(pattern, s.deliver)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", pattern, err)
	}
	s.sub = sub
	s.mu.Unlock()

	// The subscription must reach the server before events published on
	// other connections are routed to it.
	if err := n.conn.Flush(); err != nil {
		s.cancel()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", pattern, err)
	}
	return s.ch, s.cancel, nil
}

func (n *NATSSubscriber) Close() error {
	n.conn.Close()
	return nil
}
