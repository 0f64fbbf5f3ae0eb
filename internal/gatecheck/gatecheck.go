// Package gatecheck implements the gate check lifecycle: starting an
// inspection for a lot and transition, recording item results, linking
// deficiencies for failed blocking items and deriving the pass/fail outcome
// on completion.
//
// Every mutating operation runs in a single store transaction that locks the
// parent gate check, so completion always observes a consistent snapshot of
// the item results. Audit events, metrics and notifications are emitted only
// after the transaction commits.
package gatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/metrics"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
)

// Service is the gate check lifecycle engine.
type Service struct {
	store     store.Store
	linker    Linker
	publisher events.Publisher
	metrics   *metrics.GateCheckMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLinker replaces the default StoreLinker.
func WithLinker(l Linker) Option {
	return func(s *Service) { s.linker = l }
}

// WithPublisher sets the publisher that receives lifecycle events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the Prometheus metrics to update.
func WithMetrics(m *metrics.GateCheckMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		linker:    StoreLinker{},
		publisher: &events.NoopPublisher{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision the datastore keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// observe records the duration and outcome of an operation. Use as
// defer s.observe("op", time.Now(), &err).
func (s *Service) observe(op string, start time.Time, errp *error) {
	code := ""
	if *errp != nil {
		code = model.ErrorCode(*errp)
		if code == "" {
			code = "internal"
		}
	}
	s.metrics.RecordOperation(op, start, code)
}

// recordAndPublish persists an event to the store and publishes it.
// Both operations are best-effort; failures are logged but do not fail the
// already committed operation.
func (s *Service) recordAndPublish(ctx context.Context, topic, gateCheckID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "gate_check_id", gateCheckID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:       topic,
		GateCheckID: gateCheckID,
		Actor:       actor,
		Payload:     payload,
		CreatedAt:   s.timestamp(),
	}); err != nil {
		s.logger.Warn("failed to record event", "topic", topic, "gate_check_id", gateCheckID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "gate_check_id", gateCheckID, "error", err)
	}
}

func checkTransition(t model.Transition) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidTransition, t)
	}
	return nil
}

// GetTemplateItems returns the checklist definition for a transition in
// definition order.
func (s *Service) GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	items, err := s.store.GetTemplateItems(ctx, transition)
	if err != nil {
		return nil, fmt.Errorf("get template items: %w", err)
	}
	return items, nil
}

// GetLatestGateCheck returns the most recently started gate check for the
// lot and transition, or nil if none was ever started.
func (s *Service) GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	gc, err := s.store.GetLatestGateCheck(ctx, lotID, transition)
	if err != nil {
		return nil, fmt.Errorf("get latest gate check: %w", err)
	}
	return gc, nil
}

// GetGateCheck returns a gate check with its items.
func (s *Service) GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	return s.store.GetGateCheck(ctx, id)
}

// ListGateChecks returns the inspection history of a lot and transition,
// newest first. A limit of zero returns every record.
func (s *Service) ListGateChecks(ctx context.Context, lotID string, transition model.Transition, limit int) ([]*model.GateCheck, error) {
	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	gcs, err := s.store.ListGateChecks(ctx, model.GateCheckFilter{
		LotID:      lotID,
		Transition: transition,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list gate checks: %w", err)
	}
	return gcs, nil
}

// GetGateCheckItem returns a single checklist item.
func (s *Service) GetGateCheckItem(ctx context.Context, id string) (*model.GateCheckItem, error) {
	return s.store.GetGateCheckItem(ctx, id)
}

// GetEvents returns the audit trail of a gate check, oldest first.
func (s *Service) GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error) {
	if _, err := s.store.GetGateCheck(ctx, gateCheckID); err != nil {
		return nil, err
	}
	evts, err := s.store.GetEvents(ctx, gateCheckID)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	return evts, nil
}
