package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/rpc"
)

// GRPCClient implements GateCheckClient using the gRPC transport. Errors
// carrying gate check details unwrap to the model sentinels.
type GRPCClient struct {
	conn   *grpc.ClientConn
	client *rpc.GateCheckServiceClient
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a bearer token on every call.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(bearerInterceptor(token)))
	}
	dialOpts = append(dialOpts, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{
		conn:   conn,
		client: rpc.NewGateCheckServiceClient(conn),
	}, nil
}

func bearerInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// --- Templates ---

// ListTransitions has no dedicated RPC; it summarizes each known template.
func (c *GRPCClient) ListTransitions(ctx context.Context) ([]TransitionInfo, error) {
	out := make([]TransitionInfo, 0, len(model.Transitions))
	for _, tr := range model.Transitions {
		items, err := c.GetTemplateItems(ctx, tr)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(tr, items))
	}
	return out, nil
}

func (c *GRPCClient) GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	resp, err := c.client.GetTemplateItems(ctx, &rpc.GetTemplateItemsRequest{Transition: string(transition)})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.Items, nil
}

// --- Gate checks ---

func (c *GRPCClient) GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	resp, err := c.client.GetLatestGateCheck(ctx, &rpc.GetLatestGateCheckRequest{LotID: lotID, Transition: string(transition)})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.GateCheck, nil
}

func (c *GRPCClient) GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	resp, err := c.client.GetGateCheck(ctx, &rpc.GetGateCheckRequest{ID: id})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.GateCheck, nil
}

func (c *GRPCClient) ListGateChecks(ctx context.Context, lotID string, transition model.Transition, limit int) ([]*model.GateCheck, error) {
	resp, err := c.client.ListGateChecks(ctx, &rpc.ListGateChecksRequest{LotID: lotID, Transition: string(transition), Limit: limit})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.GateChecks, nil
}

func (c *GRPCClient) StartGateCheck(ctx context.Context, lotID string, transition model.Transition, actor string) (*model.GateCheck, error) {
	resp, err := c.client.StartGateCheck(ctx, &rpc.StartGateCheckRequest{LotID: lotID, Transition: string(transition), Actor: actor})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.GateCheck, nil
}

func (c *GRPCClient) UpdateGateCheckItem(ctx context.Context, req *UpdateItemRequest) (*model.GateCheckItem, error) {
	resp, err := c.client.UpdateGateCheckItem(ctx, &rpc.UpdateGateCheckItemRequest{
		ItemID:   req.ItemID,
		Result:   string(req.Result),
		Notes:    req.Notes,
		PhotoURL: req.PhotoURL,
		Actor:    req.Actor,
	})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.Item, nil
}

func (c *GRPCClient) CompleteGateCheck(ctx context.Context, id, actor string) (*model.GateCheck, error) {
	resp, err := c.client.CompleteGateCheck(ctx, &rpc.CompleteGateCheckRequest{ID: id, Actor: actor})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.GateCheck, nil
}

func (c *GRPCClient) CancelGateCheck(ctx context.Context, id, actor, reason string) (*model.GateCheck, error) {
	resp, err := c.client.CancelGateCheck(ctx, &rpc.CancelGateCheckRequest{ID: id, Actor: actor, Reason: reason})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.GateCheck, nil
}

func (c *GRPCClient) GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error) {
	resp, err := c.client.GetEvents(ctx, &rpc.GetEventsRequest{GateCheckID: gateCheckID})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.Events, nil
}

// --- Deficiencies ---

func (c *GRPCClient) ListDeficiencies(ctx context.Context, lotID string, status model.DeficiencyStatus) ([]*model.Deficiency, error) {
	resp, err := c.client.ListDeficiencies(ctx, &rpc.ListDeficienciesRequest{LotID: lotID, Status: string(status)})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.Deficiencies, nil
}

func (c *GRPCClient) GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error) {
	resp, err := c.client.GetDeficiency(ctx, &rpc.GetDeficiencyRequest{ID: id})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.Deficiency, nil
}

func (c *GRPCClient) ResolveDeficiency(ctx context.Context, id, actor, resolution string) (*model.Deficiency, error) {
	resp, err := c.client.ResolveDeficiency(ctx, &rpc.ResolveDeficiencyRequest{ID: id, Actor: actor, Resolution: resolution})
	if err != nil {
		return nil, rpc.FromStatusError(err)
	}
	return resp.Deficiency, nil
}

// --- Roster ---

// InspectorRoster has no RPC; the roster is served over HTTP only.
func (c *GRPCClient) InspectorRoster(_ context.Context, _ time.Duration) ([]presence.Entry, error) {
	return nil, fmt.Errorf("InspectorRoster is not supported over gRPC transport; use --transport=http")
}

// --- Health ---

func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := c.client.Health(ctx, &rpc.HealthRequest{})
	if err != nil {
		return "", rpc.FromStatusError(err)
	}
	return resp.Status, nil
}

var (
	_ GateCheckClient = (*HTTPClient)(nil)
	_ GateCheckClient = (*GRPCClient)(nil)
)
