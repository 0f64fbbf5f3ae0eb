package gatecheck

import (
	"context"
	"fmt"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/idgen"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
)

// Linker turns a failed blocking item into a deficiency record. It runs
// inside the item update transaction and must write through tx so that a
// rollback also discards the deficiency.
type Linker interface {
	LinkDeficiency(ctx context.Context, tx store.Store, gc *model.GateCheck, item *model.GateCheckItem, actor string) (*model.Deficiency, error)
}

// StoreLinker records deficiencies in the gate check store.
type StoreLinker struct{}

// LinkDeficiency creates an open deficiency for item. The deficiency is
// stamped with the item's UpdatedAt, which the caller must set.
func (StoreLinker) LinkDeficiency(ctx context.Context, tx store.Store, gc *model.GateCheck, item *model.GateCheckItem, actor string) (*model.Deficiency, error) {
	if item.UpdatedAt == nil {
		return nil, fmt.Errorf("item %s has no update time", item.ID)
	}
	id, err := idgen.DeficiencyID()
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("%s %s failed: %s", gc.Transition, item.ItemCode, item.ItemLabel)
	if item.Notes != "" {
		desc += " (" + item.Notes + ")"
	}
	d := &model.Deficiency{
		ID:              id,
		GateCheckID:     gc.ID,
		GateCheckItemID: item.ID,
		LotID:           gc.LotID,
		Transition:      gc.Transition,
		ItemCode:        item.ItemCode,
		Description:     desc,
		Status:          model.DeficiencyOpen,
		CreatedBy:       actor,
		CreatedAt:       *item.UpdatedAt,
	}
	if err := tx.CreateDeficiency(ctx, d); err != nil {
		return nil, fmt.Errorf("create deficiency: %w", err)
	}
	return d, nil
}
