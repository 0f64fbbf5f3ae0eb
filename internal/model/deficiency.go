package model

import "time"

// DeficiencyStatus tracks corrective work on a deficiency. Resolution is
// always an explicit action; correcting the item result does not resolve it.
type DeficiencyStatus string

const (
	DeficiencyOpen     DeficiencyStatus = "open"
	DeficiencyResolved DeficiencyStatus = "resolved"
)

// String returns the string representation of the deficiency status.
func (s DeficiencyStatus) String() string {
	return string(s)
}

// IsValid checks whether the deficiency status is a known value.
func (s DeficiencyStatus) IsValid() bool {
	return s == DeficiencyOpen || s == DeficiencyResolved
}

// Deficiency is a corrective-action record raised when a blocking checklist
// item fails.
type Deficiency struct {
	ID              string           `json:"id"`
	GateCheckID     string           `json:"gate_check_id"`
	GateCheckItemID string           `json:"gate_check_item_id"`
	LotID           string           `json:"lot_id"`
	Transition      Transition       `json:"transition"`
	ItemCode        string           `json:"item_code"`
	Description     string           `json:"description"`
	Status          DeficiencyStatus `json:"status"`
	CreatedBy       string           `json:"created_by,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ResolvedBy      string           `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
	Resolution      string           `json:"resolution,omitempty"`
}

// DeficiencyFilter narrows ListDeficiencies results.
type DeficiencyFilter struct {
	LotID       string
	GateCheckID string
	Status      DeficiencyStatus
}
