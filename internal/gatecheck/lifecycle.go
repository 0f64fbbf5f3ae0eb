package gatecheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/idgen"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
)

// StartGateCheck opens a new inspection for a lot and transition and
// materializes one pending item per template item. It fails with
// model.ErrAlreadyInProgress while another inspection for the same pair is
// open; earlier passed, failed or cancelled records do not block a restart.
func (s *Service) StartGateCheck(ctx context.Context, lotID string, transition model.Transition, actor string) (_ *model.GateCheck, err error) {
	defer s.observe("start", time.Now(), &err)

	if err := checkTransition(transition); err != nil {
		return nil, err
	}
	if err := model.ValidateStart(lotID, actor); err != nil {
		return nil, err
	}

	var gc *model.GateCheck
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		active, err := tx.GetActiveGateCheck(ctx, lotID, transition)
		if err != nil {
			return fmt.Errorf("check active gate check: %w", err)
		}
		if active != nil {
			return fmt.Errorf("lot %q %s: %w (%s)", lotID, transition, model.ErrAlreadyInProgress, active.ID)
		}

		templates, err := tx.GetTemplateItems(ctx, transition)
		if err != nil {
			return fmt.Errorf("get template items: %w", err)
		}
		if len(templates) == 0 {
			return fmt.Errorf("no checklist items defined for %s", transition)
		}

		gc, err = materialize(lotID, transition, actor, s.timestamp(), templates)
		if err != nil {
			return err
		}
		return tx.CreateGateCheck(ctx, gc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate check started", "gate_check_id", gc.ID, "lot_id", lotID, "transition", transition, "actor", actor)
	s.metrics.RecordStarted(string(transition))
	s.recordAndPublish(ctx, events.TopicGateCheckStarted, gc.ID, actor, events.GateCheckStarted{GateCheck: gc})
	return gc, nil
}

// materialize builds an in-progress gate check whose items are snapshots of
// the template items, blocking flag included.
func materialize(lotID string, transition model.Transition, actor string, now time.Time, templates []*model.TemplateItem) (*model.GateCheck, error) {
	id, err := idgen.GateCheckID()
	if err != nil {
		return nil, err
	}
	gc := &model.GateCheck{
		ID:         id,
		LotID:      lotID,
		Transition: transition,
		Status:     model.StatusInProgress,
		StartedBy:  actor,
		StartedAt:  now,
		Items:      make([]*model.GateCheckItem, 0, len(templates)),
	}
	for _, t := range templates {
		itemID, err := idgen.ItemID()
		if err != nil {
			return nil, err
		}
		gc.Items = append(gc.Items, &model.GateCheckItem{
			ID:          itemID,
			GateCheckID: id,
			ItemCode:    t.ItemCode,
			ItemLabel:   t.ItemLabel,
			IsBlocking:  t.IsBlocking,
			Position:    t.Position,
			Result:      model.ResultPending,
		})
	}
	return gc, nil
}

// UpdateItemRequest carries an item result change. Nil Notes or PhotoURL
// leave the stored value unchanged; an empty string clears it.
type UpdateItemRequest struct {
	ItemID   string
	Result   model.ItemResult
	Notes    *string
	PhotoURL *string
	Actor    string
}

// UpdateGateCheckItem records an inspection result on one item.
//
// Re-sending the current result (with unchanged notes and photo) is a no-op
// that emits nothing. When a blocking item becomes fail and has no
// deficiency yet, or only a resolved one, the Linker creates one in the same
// transaction; if that fails the whole update is rolled back with
// model.ErrDeficiencyLinkFailed. Moving an item away from fail keeps its
// deficiency link. The gate check status is never changed here.
func (s *Service) UpdateGateCheckItem(ctx context.Context, req UpdateItemRequest) (_ *model.GateCheckItem, err error) {
	defer s.observe("update_item", time.Now(), &err)

	if !req.Result.IsEvaluated() {
		return nil, fmt.Errorf("%w: %q (want pass, fail or na)", model.ErrInvalidResult, req.Result)
	}
	if err := model.ValidateItemDetails(req.Notes, req.PhotoURL); err != nil {
		return nil, err
	}

	var (
		updated  *model.GateCheckItem
		gc       *model.GateCheck
		previous model.ItemResult
		def      *model.Deficiency
		changed  bool
	)
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		item, err := tx.GetGateCheckItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		gc, err = tx.LockGateCheck(ctx, item.GateCheckID)
		if err != nil {
			return fmt.Errorf("lock gate check: %w", err)
		}
		if gc.Status != model.StatusInProgress {
			return fmt.Errorf("gate check %s is %s: %w", gc.ID, gc.Status, model.ErrGateCheckClosed)
		}
		// Re-read the item under the lock.
		current := gc.Item(req.ItemID)
		if current == nil {
			return fmt.Errorf("gate check item %q: %w", req.ItemID, model.ErrNotFound)
		}
		previous = current.Result

		next := *current
		next.Result = req.Result
		if req.Notes != nil {
			next.Notes = *req.Notes
		}
		if req.PhotoURL != nil {
			next.PhotoURL = *req.PhotoURL
		}
		if next.Result == current.Result && next.Notes == current.Notes && next.PhotoURL == current.PhotoURL {
			updated = current
			return nil
		}

		now := s.timestamp()
		next.UpdatedAt = &now
		next.UpdatedBy = req.Actor

		relink, err := needsDeficiency(ctx, tx, current, &next)
		if err != nil {
			return fmt.Errorf("%w: item %s: %v", model.ErrDeficiencyLinkFailed, next.ItemCode, err)
		}
		if relink {
			def, err = s.linker.LinkDeficiency(ctx, tx, gc, &next, req.Actor)
			if err != nil {
				return fmt.Errorf("%w: item %s: %v", model.ErrDeficiencyLinkFailed, next.ItemCode, err)
			}
			if def == nil || def.ID == "" {
				return fmt.Errorf("%w: item %s: linker returned no deficiency", model.ErrDeficiencyLinkFailed, next.ItemCode)
			}
			next.DeficiencyID = def.ID
		}

		if err := tx.UpdateGateCheckItem(ctx, &next); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		updated = &next
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	s.metrics.RecordItemUpdate(string(updated.Result))
	if def != nil {
		s.logger.Info("deficiency created", "deficiency_id", def.ID, "gate_check_id", gc.ID, "item_code", updated.ItemCode)
		s.metrics.RecordDeficiencyCreated()
		s.recordAndPublish(ctx, events.TopicDeficiencyCreated, gc.ID, req.Actor, events.DeficiencyCreated{Deficiency: def})
	}
	s.recordAndPublish(ctx, events.TopicItemUpdated, gc.ID, req.Actor, events.ItemUpdated{
		LotID:      gc.LotID,
		Transition: gc.Transition,
		Item:       updated,
		Previous:   previous,
	})
	return updated, nil
}

// needsDeficiency reports whether next must be linked to a new deficiency: a
// blocking item failing with no link, or failing again after its linked
// deficiency was resolved.
func needsDeficiency(ctx context.Context, tx store.Store, current, next *model.GateCheckItem) (bool, error) {
	if next.Result != model.ResultFail || !next.IsBlocking {
		return false, nil
	}
	if next.DeficiencyID == "" {
		return true, nil
	}
	if current.Result == model.ResultFail {
		return false, nil
	}
	d, err := tx.GetDeficiency(ctx, next.DeficiencyID)
	if err != nil {
		return false, fmt.Errorf("load deficiency %s: %w", next.DeficiencyID, err)
	}
	return d.Status == model.DeficiencyResolved, nil
}

// CompleteGateCheck freezes an inspection and derives its outcome with
// Evaluate. It fails with model.ErrIncompleteChecklist, changing nothing,
// while any item is still pending, and with model.ErrGateCheckClosed when
// the record is already terminal.
func (s *Service) CompleteGateCheck(ctx context.Context, gateCheckID, actor string) (_ *model.GateCheck, err error) {
	defer s.observe("complete", time.Now(), &err)

	var (
		gc       *model.GateCheck
		blocking []string
	)
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gc, err = tx.LockGateCheck(ctx, gateCheckID)
		if err != nil {
			return err
		}
		if gc.Status != model.StatusInProgress {
			return fmt.Errorf("gate check %s is %s: %w", gc.ID, gc.Status, model.ErrGateCheckClosed)
		}
		if pending := gc.PendingItems(); len(pending) > 0 {
			codes := make([]string, len(pending))
			for i, it := range pending {
				codes[i] = it.ItemCode
			}
			return fmt.Errorf("%w: %d of %d items pending (%s)",
				model.ErrIncompleteChecklist, len(pending), len(gc.Items), strings.Join(codes, ", "))
		}

		var status model.Status
		status, blocking = Evaluate(gc.Items)
		now := s.timestamp()
		gc.Status = status
		gc.CompletedAt = &now
		gc.CompletedBy = actor
		return tx.CloseGateCheck(ctx, gc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate check completed", "gate_check_id", gc.ID, "lot_id", gc.LotID,
		"transition", gc.Transition, "status", gc.Status, "blocking_failures", len(blocking))
	s.metrics.RecordClosed(string(gc.Transition), string(gc.Status))
	s.recordAndPublish(ctx, events.TopicGateCheckCompleted, gc.ID, actor, events.GateCheckCompleted{
		GateCheck: gc,
		Blocking:  blocking,
	})
	return gc, nil
}

// CancelGateCheck abandons an in-progress inspection. The record is kept as
// history with status cancelled, which frees the lot and transition for a
// new StartGateCheck.
func (s *Service) CancelGateCheck(ctx context.Context, gateCheckID, actor, reason string) (_ *model.GateCheck, err error) {
	defer s.observe("cancel", time.Now(), &err)

	if err := model.ValidateCancel(actor, reason); err != nil {
		return nil, err
	}

	var gc *model.GateCheck
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		gc, err = tx.LockGateCheck(ctx, gateCheckID)
		if err != nil {
			return err
		}
		if gc.Status != model.StatusInProgress {
			return fmt.Errorf("gate check %s is %s: %w", gc.ID, gc.Status, model.ErrGateCheckClosed)
		}
		now := s.timestamp()
		gc.Status = model.StatusCancelled
		gc.CompletedAt = &now
		gc.CompletedBy = actor
		gc.CancelReason = strings.TrimSpace(reason)
		return tx.CloseGateCheck(ctx, gc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate check cancelled", "gate_check_id", gc.ID, "lot_id", gc.LotID, "transition", gc.Transition, "actor", actor)
	s.metrics.RecordClosed(string(gc.Transition), string(gc.Status))
	s.recordAndPublish(ctx, events.TopicGateCheckCancelled, gc.ID, actor, events.GateCheckCancelled{
		GateCheck: gc,
		Reason:    gc.CancelReason,
	})
	return gc, nil
}
