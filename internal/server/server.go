// Package server exposes the gate check engine over HTTP/JSON, gRPC and
// server-sent events.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/gatecheck"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/rpc"
)

// GateCheckServer implements rpc.GateCheckServiceServer and the HTTP API on
// top of a gatecheck.Service.
type GateCheckServer struct {
	svc      *gatecheck.Service
	sseHub   *SSEHub
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	started  time.Time

	// Presence tracks inspector activity for the roster endpoint.
	Presence *presence.Tracker
}

// Compile-time check that GateCheckServer implements the gRPC service.
var _ rpc.GateCheckServiceServer = (*GateCheckServer)(nil)

// NewGateCheckServer returns a server for svc. hub receives lifecycle events
// for SSE clients and must also be registered as a publisher on svc;
// gatherer backs GET /metrics and may be nil.
func NewGateCheckServer(svc *gatecheck.Service, hub *SSEHub, gatherer prometheus.Gatherer) *GateCheckServer {
	if hub == nil {
		hub = NewSSEHub()
	}
	return &GateCheckServer{
		svc:      svc,
		sseHub:   hub,
		gatherer: gatherer,
		logger:   slog.Default(),
		started:  time.Now(),
		Presence: presence.New(),
	}
}

// touch records a successful action against gc in the inspector roster.
func (s *GateCheckServer) touch(actor, action string, gc *model.GateCheck) {
	if s.Presence == nil {
		return
	}
	a := presence.Activity{Actor: actor, Action: action}
	if gc != nil {
		a.LotID = gc.LotID
		a.Transition = string(gc.Transition)
		a.GateCheckID = gc.ID
	}
	s.Presence.Record(a)
}

// touchItem records an item update. The item carries only its parent ID.
func (s *GateCheckServer) touchItem(actor string, item *model.GateCheckItem) {
	if s.Presence == nil {
		return
	}
	s.Presence.Record(presence.Activity{Actor: actor, Action: "update_item", GateCheckID: item.GateCheckID})
}

// GetTemplateItems returns the checklist definition of a transition.
func (s *GateCheckServer) GetTemplateItems(ctx context.Context, req *rpc.GetTemplateItemsRequest) (*rpc.GetTemplateItemsResponse, error) {
	items, err := s.svc.GetTemplateItems(ctx, model.Transition(req.Transition))
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	return &rpc.GetTemplateItemsResponse{Items: items}, nil
}

// GetLatestGateCheck returns the newest gate check for a lot and transition.
// The response carries a nil gate check when none exists.
func (s *GateCheckServer) GetLatestGateCheck(ctx context.Context, req *rpc.GetLatestGateCheckRequest) (*rpc.GateCheckResponse, error) {
	if err := requireField("lot_id", req.LotID); err != nil {
		return nil, rpc.StatusError(err)
	}
	gc, err := s.svc.GetLatestGateCheck(ctx, req.LotID, model.Transition(req.Transition))
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	return &rpc.GateCheckResponse{GateCheck: gc}, nil
}

// GetGateCheck returns a gate check by ID.
func (s *GateCheckServer) GetGateCheck(ctx context.Context, req *rpc.GetGateCheckRequest) (*rpc.GateCheckResponse, error) {
	if err := requireField("id", req.ID); err != nil {
		return nil, rpc.StatusError(err)
	}
	gc, err := s.svc.GetGateCheck(ctx, req.ID)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	return &rpc.GateCheckResponse{GateCheck: gc}, nil
}

// ListGateChecks returns the inspection history of a lot and transition.
func (s *GateCheckServer) ListGateChecks(ctx context.Context, req *rpc.ListGateChecksRequest) (*rpc.ListGateChecksResponse, error) {
	if err := requireField("lot_id", req.LotID); err != nil {
		return nil, rpc.StatusError(err)
	}
	gcs, err := s.svc.ListGateChecks(ctx, req.LotID, model.Transition(req.Transition), req.Limit)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	if gcs == nil {
		gcs = []*model.GateCheck{}
	}
	return &rpc.ListGateChecksResponse{GateChecks: gcs}, nil
}

// StartGateCheck opens a new inspection.
func (s *GateCheckServer) StartGateCheck(ctx context.Context, req *rpc.StartGateCheckRequest) (*rpc.GateCheckResponse, error) {
	gc, err := s.svc.StartGateCheck(ctx, req.LotID, model.Transition(req.Transition), req.Actor)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	s.touch(req.Actor, "start", gc)
	return &rpc.GateCheckResponse{GateCheck: gc}, nil
}

// UpdateGateCheckItem records an item result.
func (s *GateCheckServer) UpdateGateCheckItem(ctx context.Context, req *rpc.UpdateGateCheckItemRequest) (*rpc.GateCheckItemResponse, error) {
	if err := requireField("item_id", req.ItemID); err != nil {
		return nil, rpc.StatusError(err)
	}
	item, err := s.svc.UpdateGateCheckItem(ctx, gatecheck.UpdateItemRequest{
		ItemID:   req.ItemID,
		Result:   model.ItemResult(req.Result),
		Notes:    req.Notes,
		PhotoURL: req.PhotoURL,
		Actor:    req.Actor,
	})
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	s.touchItem(req.Actor, item)
	return &rpc.GateCheckItemResponse{Item: item}, nil
}

// CompleteGateCheck freezes an inspection and derives its outcome.
func (s *GateCheckServer) CompleteGateCheck(ctx context.Context, req *rpc.CompleteGateCheckRequest) (*rpc.GateCheckResponse, error) {
	if err := requireField("id", req.ID); err != nil {
		return nil, rpc.StatusError(err)
	}
	gc, err := s.svc.CompleteGateCheck(ctx, req.ID, req.Actor)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	s.touch(req.Actor, "complete", gc)
	return &rpc.GateCheckResponse{GateCheck: gc}, nil
}

// CancelGateCheck abandons an in-progress inspection.
func (s *GateCheckServer) CancelGateCheck(ctx context.Context, req *rpc.CancelGateCheckRequest) (*rpc.GateCheckResponse, error) {
	if err := requireField("id", req.ID); err != nil {
		return nil, rpc.StatusError(err)
	}
	gc, err := s.svc.CancelGateCheck(ctx, req.ID, req.Actor, req.Reason)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	s.touch(req.Actor, "cancel", gc)
	return &rpc.GateCheckResponse{GateCheck: gc}, nil
}

// GetEvents returns the audit trail of a gate check.
func (s *GateCheckServer) GetEvents(ctx context.Context, req *rpc.GetEventsRequest) (*rpc.GetEventsResponse, error) {
	if err := requireField("gate_check_id", req.GateCheckID); err != nil {
		return nil, rpc.StatusError(err)
	}
	evts, err := s.svc.GetEvents(ctx, req.GateCheckID)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	return &rpc.GetEventsResponse{Events: evts}, nil
}

// ListDeficiencies returns the deficiencies of a lot.
func (s *GateCheckServer) ListDeficiencies(ctx context.Context, req *rpc.ListDeficienciesRequest) (*rpc.ListDeficienciesResponse, error) {
	if err := requireField("lot_id", req.LotID); err != nil {
		return nil, rpc.StatusError(err)
	}
	defs, err := s.svc.ListDeficiencies(ctx, req.LotID, model.DeficiencyStatus(req.Status))
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	if defs == nil {
		defs = []*model.Deficiency{}
	}
	return &rpc.ListDeficienciesResponse{Deficiencies: defs}, nil
}

// GetDeficiency returns a deficiency by ID.
func (s *GateCheckServer) GetDeficiency(ctx context.Context, req *rpc.GetDeficiencyRequest) (*rpc.DeficiencyResponse, error) {
	if err := requireField("id", req.ID); err != nil {
		return nil, rpc.StatusError(err)
	}
	d, err := s.svc.GetDeficiency(ctx, req.ID)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	return &rpc.DeficiencyResponse{Deficiency: d}, nil
}

// ResolveDeficiency marks a deficiency resolved.
func (s *GateCheckServer) ResolveDeficiency(ctx context.Context, req *rpc.ResolveDeficiencyRequest) (*rpc.DeficiencyResponse, error) {
	if err := requireField("id", req.ID); err != nil {
		return nil, rpc.StatusError(err)
	}
	d, err := s.svc.ResolveDeficiency(ctx, req.ID, req.Actor, req.Resolution)
	if err != nil {
		return nil, rpc.StatusError(err)
	}
	s.touch(req.Actor, "resolve_deficiency", nil)
	return &rpc.DeficiencyResponse{Deficiency: d}, nil
}

// Health returns the service health status.
func (s *GateCheckServer) Health(_ context.Context, _ *rpc.HealthRequest) (*rpc.HealthResponse, error) {
	return &rpc.HealthResponse{Status: "ok"}, nil
}

// requireField rejects an empty path or message identifier.
func requireField(field, value string) error {
	if value == "" {
		return &model.ValidationError{Errors: []model.FieldError{{Field: field, Message: "is required"}}}
	}
	return nil
}
