package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// clientName identifies gate check connections in NATS monitoring.
const clientName = "gatecheck"

const closeFlushTimeout = 2 * time.Second

// connect dials url with reconnect-forever defaults. Caller options are
// applied last so they can override any default.
func connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	all := append([]nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes gate check events as JSON on a NATS subject named
// after the topic.
type NATSPublisher struct {
	conn *nats.Conn
}

var _ Publisher = (*NATSPublisher)(nil)

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, clientName, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered events, waiting up to closeFlushTimeout, then
// closes the connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(closeFlushTimeout)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing events on close: %w", err)
	}
	return nil
}
