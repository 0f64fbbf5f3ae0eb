// Package client provides a transport-agnostic interface for the gate check
// service with HTTP/JSON and gRPC implementations.
package client

import (
	"context"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
)

// GateCheckClient is the interface the gc CLI uses to talk to the server.
// It is implemented by HTTPClient (default) and GRPCClient.
type GateCheckClient interface {
	// Templates
	ListTransitions(ctx context.Context) ([]TransitionInfo, error)
	GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error)

	// Gate checks
	GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error)
	GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error)
	ListGateChecks(ctx context.Context, lotID string, transition model.Transition, limit int) ([]*model.GateCheck, error)
	StartGateCheck(ctx context.Context, lotID string, transition model.Transition, actor string) (*model.GateCheck, error)
	UpdateGateCheckItem(ctx context.Context, req *UpdateItemRequest) (*model.GateCheckItem, error)
	CompleteGateCheck(ctx context.Context, id, actor string) (*model.GateCheck, error)
	CancelGateCheck(ctx context.Context, id, actor, reason string) (*model.GateCheck, error)
	GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error)

	// Deficiencies
	ListDeficiencies(ctx context.Context, lotID string, status model.DeficiencyStatus) ([]*model.Deficiency, error)
	GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error)
	ResolveDeficiency(ctx context.Context, id, actor, resolution string) (*model.Deficiency, error)

	// Roster
	InspectorRoster(ctx context.Context, stale time.Duration) ([]presence.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// TransitionInfo summarizes the checklist of one transition.
type TransitionInfo struct {
	Transition model.Transition `json:"transition"`
	Items      int              `json:"items"`
	Blocking   int              `json:"blocking"`
}

// UpdateItemRequest holds parameters for recording an item result. Nil
// Notes or PhotoURL leave the stored value unchanged.
type UpdateItemRequest struct {
	ItemID   string           `json:"-"`
	Result   model.ItemResult `json:"result"`
	Notes    *string          `json:"notes,omitempty"`
	PhotoURL *string          `json:"photo_url,omitempty"`
	Actor    string           `json:"actor,omitempty"`
}

// summarize builds a TransitionInfo from a template.
func summarize(tr model.Transition, items []*model.TemplateItem) TransitionInfo {
	info := TransitionInfo{Transition: tr, Items: len(items)}
	for _, it := range items {
		if it.IsBlocking {
			info.Blocking++
		}
	}
	return info
}
