package model

import "time"

// Status represents the lifecycle state of a gate check. A lot with no
// gate check record for a transition is implicitly "not started".
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusInProgress, StatusPassed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible for the record.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusCancelled
}

// ItemResult is the inspection outcome recorded for a checklist item.
type ItemResult string

const (
	ResultPending ItemResult = "pending"
	ResultPass    ItemResult = "pass"
	ResultFail    ItemResult = "fail"
	ResultNA      ItemResult = "na"
)

// String returns the string representation of the result.
func (r ItemResult) String() string {
	return string(r)
}

// IsValid checks whether the result is a known value, including pending.
func (r ItemResult) IsValid() bool {
	switch r {
	case ResultPending, ResultPass, ResultFail, ResultNA:
		return true
	}
	return false
}

// IsEvaluated reports whether r is a value an inspector may set on an item.
// Pending is the initial value only; items are never reverted to it.
func (r ItemResult) IsEvaluated() bool {
	switch r {
	case ResultPass, ResultFail, ResultNA:
		return true
	}
	return false
}

// TemplateItem is one static checklist entry for a transition.
type TemplateItem struct {
	Transition Transition `json:"transition" yaml:"-"`
	ItemCode   string     `json:"item_code" yaml:"code"`
	ItemLabel  string     `json:"item_label" yaml:"label"`
	IsBlocking bool       `json:"is_blocking" yaml:"blocking"`
	Position   int        `json:"position" yaml:"-"`
}

// GateCheck is one inspection instance for a lot and transition, together
// with its checklist items.
type GateCheck struct {
	ID           string     `json:"id"`
	LotID        string     `json:"lot_id"`
	Transition   Transition `json:"transition"`
	Status       Status     `json:"status"`
	StartedBy    string     `json:"started_by"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  string     `json:"completed_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`

	// Relational data -- populated by queries, not stored in the gate_checks table.
	Items []*GateCheckItem `json:"items"`
}

// PendingItems returns the items that have not been evaluated yet.
func (g *GateCheck) PendingItems() []*GateCheckItem {
	var pending []*GateCheckItem
	for _, item := range g.Items {
		if item.Result == ResultPending {
			pending = append(pending, item)
		}
	}
	return pending
}

// Item returns the item with the given id, or nil.
func (g *GateCheck) Item(id string) *GateCheckItem {
	for _, item := range g.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// GateCheckItem is a materialized template item owned by a gate check.
type GateCheckItem struct {
	ID           string     `json:"id"`
	GateCheckID  string     `json:"gate_check_id"`
	ItemCode     string     `json:"item_code"`
	ItemLabel    string     `json:"item_label"`
	IsBlocking   bool       `json:"is_blocking"`
	Position     int        `json:"position"`
	Result       ItemResult `json:"result"`
	Notes        string     `json:"notes,omitempty"`
	PhotoURL     string     `json:"photo_url,omitempty"`
	DeficiencyID string     `json:"deficiency_id,omitempty"`
	UpdatedBy    string     `json:"updated_by,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
