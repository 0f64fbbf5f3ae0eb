package gatecheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
)

// ListDeficiencies returns the deficiencies of a lot, newest first. An empty
// status matches both open and resolved records.
func (s *Service) ListDeficiencies(ctx context.Context, lotID string, status model.DeficiencyStatus) ([]*model.Deficiency, error) {
	if status != "" && !status.IsValid() {
		return nil, &model.ValidationError{Errors: []model.FieldError{
			{Field: "status", Message: "must be open or resolved"},
		}}
	}
	defs, err := s.store.ListDeficiencies(ctx, model.DeficiencyFilter{LotID: lotID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("list deficiencies: %w", err)
	}
	return defs, nil
}

// GetDeficiency returns a single deficiency.
func (s *Service) GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error) {
	return s.store.GetDeficiency(ctx, id)
}

// ResolveDeficiency closes a deficiency after corrective work. Resolution is
// always explicit: correcting the item result never resolves its deficiency.
// Resolving an already resolved deficiency returns it unchanged.
func (s *Service) ResolveDeficiency(ctx context.Context, id, actor, resolution string) (_ *model.Deficiency, err error) {
	defer s.observe("resolve_deficiency", time.Now(), &err)

	if err := model.ValidateResolve(actor, resolution); err != nil {
		return nil, err
	}

	var (
		d       *model.Deficiency
		changed bool
	)
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		d, err = tx.GetDeficiency(ctx, id)
		if err != nil {
			return err
		}
		if d.Status == model.DeficiencyResolved {
			return nil
		}
		now := s.timestamp()
		d.Status = model.DeficiencyResolved
		d.ResolvedBy = actor
		d.ResolvedAt = &now
		d.Resolution = strings.TrimSpace(resolution)
		if err := tx.UpdateDeficiency(ctx, d); err != nil {
			return fmt.Errorf("update deficiency: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return d, nil
	}

	s.logger.Info("deficiency resolved", "deficiency_id", d.ID, "gate_check_id", d.GateCheckID, "actor", actor)
	s.metrics.RecordDeficiencyResolved()
	s.recordAndPublish(ctx, events.TopicDeficiencyResolved, d.GateCheckID, actor, events.DeficiencyResolved{Deficiency: d})
	return d, nil
}
