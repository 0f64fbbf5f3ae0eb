package rpc

import "github.com/onsiteclub/onsite-eagle-sub003/internal/model"

type GetTemplateItemsRequest struct {
	Transition string `json:"transition"`
}

type GetTemplateItemsResponse struct {
	Items []*model.TemplateItem `json:"items"`
}

type GetLatestGateCheckRequest struct {
	LotID      string `json:"lot_id"`
	Transition string `json:"transition"`
}

// GateCheckResponse carries a single gate check. GateCheck is nil when
// GetLatestGateCheck finds no record.
type GateCheckResponse struct {
	GateCheck *model.GateCheck `json:"gate_check"`
}

type GetGateCheckRequest struct {
	ID string `json:"id"`
}

type ListGateChecksRequest struct {
	LotID      string `json:"lot_id"`
	Transition string `json:"transition"`
	Limit      int    `json:"limit,omitempty"`
}

type ListGateChecksResponse struct {
	GateChecks []*model.GateCheck `json:"gate_checks"`
}

type StartGateCheckRequest struct {
	LotID      string `json:"lot_id"`
	Transition string `json:"transition"`
	Actor      string `json:"actor"`
}

// UpdateGateCheckItemRequest records a result. Nil Notes or PhotoURL leave
// the stored value unchanged.
type UpdateGateCheckItemRequest struct {
	ItemID   string  `json:"item_id"`
	Result   string  `json:"result"`
	Notes    *string `json:"notes,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
	Actor    string  `json:"actor,omitempty"`
}

type GateCheckItemResponse struct {
	Item *model.GateCheckItem `json:"item"`
}

type CompleteGateCheckRequest struct {
	ID    string `json:"id"`
	Actor string `json:"actor,omitempty"`
}

type CancelGateCheckRequest struct {
	ID     string `json:"id"`
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type GetEventsRequest struct {
	GateCheckID string `json:"gate_check_id"`
}

type GetEventsResponse struct {
	Events []*model.Event `json:"events"`
}

type ListDeficienciesRequest struct {
	LotID  string `json:"lot_id"`
	Status string `json:"status,omitempty"`
}

type ListDeficienciesResponse struct {
	Deficiencies []*model.Deficiency `json:"deficiencies"`
}

type GetDeficiencyRequest struct {
	ID string `json:"id"`
}

type ResolveDeficiencyRequest struct {
	ID         string `json:"id"`
	Actor      string `json:"actor"`
	Resolution string `json:"resolution,omitempty"`
}

type DeficiencyResponse struct {
	Deficiency *model.Deficiency `json:"deficiency"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}
