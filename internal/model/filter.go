package model

// GateCheckFilter narrows ListGateChecks results. Zero values match all.
type GateCheckFilter struct {
	LotID      string
	Transition Transition
	Status     []Status
	Limit      int
}
