package events

import (
	"context"
	"encoding/json"
	"sync"
)

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// RecordingPublisher keeps every published event in memory, JSON-encoded
// the same way NATSPublisher encodes them.
type RecordingPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func (r *RecordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.messages = append(r.messages, Message{Topic: topic, Data: data})
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of the captured events in publish order.
func (r *RecordingPublisher) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Topics returns the topics of the captured events in publish order.
func (r *RecordingPublisher) Topics() []string {
	msgs := r.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Topic
	}
	return out
}

func (r *RecordingPublisher) Close() error {
	return nil
}
