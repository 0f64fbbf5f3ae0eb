package events

import (
	"context"
	"errors"
)

// MultiPublisher fans every event out to several publishers, for example
// NATS and the in-process SSE hub.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher returns a publisher that forwards to each of pubs in
// order. Nil entries are skipped.
func NewMultiPublisher(pubs ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range pubs {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish delivers to every publisher even if an earlier one fails and
// returns the joined errors.
func (m *MultiPublisher) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
