package gatecheck

import "github.com/onsiteclub/onsite-eagle-sub003/internal/model"

// Evaluate derives the outcome of a fully evaluated checklist: failed when
// at least one blocking item failed, passed otherwise. Failed non-blocking
// items never affect the outcome. It also returns the codes of the failed
// blocking items in checklist order.
func Evaluate(items []*model.GateCheckItem) (model.Status, []string) {
	var blocking []string
	for _, it := range items {
		if it.IsBlocking && it.Result == model.ResultFail {
			blocking = append(blocking, it.ItemCode)
		}
	}
	if len(blocking) > 0 {
		return model.StatusFailed, blocking
	}
	return model.StatusPassed, nil
}
