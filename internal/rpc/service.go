// Package rpc defines the gatecheck.v1.GateCheckService gRPC contract: the
// request and response messages, the service descriptor, a client stub and
// the mapping between gate check errors and gRPC statuses.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gatecheck.v1.GateCheckService"

// Method names, as they appear after the service name in a full method path.
const (
	MethodGetTemplateItems    = "GetTemplateItems"
	MethodGetLatestGateCheck  = "GetLatestGateCheck"
	MethodGetGateCheck        = "GetGateCheck"
	MethodListGateChecks      = "ListGateChecks"
	MethodStartGateCheck      = "StartGateCheck"
	MethodUpdateGateCheckItem = "UpdateGateCheckItem"
	MethodCompleteGateCheck   = "CompleteGateCheck"
	MethodCancelGateCheck     = "CancelGateCheck"
	MethodGetEvents           = "GetEvents"
	MethodListDeficiencies    = "ListDeficiencies"
	MethodGetDeficiency       = "GetDeficiency"
	MethodResolveDeficiency   = "ResolveDeficiency"
	MethodHealth              = "Health"
)

// FullMethod returns "/gatecheck.v1.GateCheckService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// GateCheckServiceServer is the server API for GateCheckService.
type GateCheckServiceServer interface {
	GetTemplateItems(context.Context, *GetTemplateItemsRequest) (*GetTemplateItemsResponse, error)
	GetLatestGateCheck(context.Context, *GetLatestGateCheckRequest) (*GateCheckResponse, error)
	GetGateCheck(context.Context, *GetGateCheckRequest) (*GateCheckResponse, error)
	ListGateChecks(context.Context, *ListGateChecksRequest) (*ListGateChecksResponse, error)
	StartGateCheck(context.Context, *StartGateCheckRequest) (*GateCheckResponse, error)
	UpdateGateCheckItem(context.Context, *UpdateGateCheckItemRequest) (*GateCheckItemResponse, error)
	CompleteGateCheck(context.Context, *CompleteGateCheckRequest) (*GateCheckResponse, error)
	CancelGateCheck(context.Context, *CancelGateCheckRequest) (*GateCheckResponse, error)
	GetEvents(context.Context, *GetEventsRequest) (*GetEventsResponse, error)
	ListDeficiencies(context.Context, *ListDeficienciesRequest) (*ListDeficienciesResponse, error)
	GetDeficiency(context.Context, *GetDeficiencyRequest) (*DeficiencyResponse, error)
	ResolveDeficiency(context.Context, *ResolveDeficiencyRequest) (*DeficiencyResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
}

// unary builds the method descriptor for one unary RPC.
func unary[Req, Resp any](method string, call func(GateCheckServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GateCheckServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GateCheckServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for GateCheckService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateCheckServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetTemplateItems, GateCheckServiceServer.GetTemplateItems),
		unary(MethodGetLatestGateCheck, GateCheckServiceServer.GetLatestGateCheck),
		unary(MethodGetGateCheck, GateCheckServiceServer.GetGateCheck),
		unary(MethodListGateChecks, GateCheckServiceServer.ListGateChecks),
		unary(MethodStartGateCheck, GateCheckServiceServer.StartGateCheck),
		unary(MethodUpdateGateCheckItem, GateCheckServiceServer.UpdateGateCheckItem),
		unary(MethodCompleteGateCheck, GateCheckServiceServer.CompleteGateCheck),
		unary(MethodCancelGateCheck, GateCheckServiceServer.CancelGateCheck),
		unary(MethodGetEvents, GateCheckServiceServer.GetEvents),
		unary(MethodListDeficiencies, GateCheckServiceServer.ListDeficiencies),
		unary(MethodGetDeficiency, GateCheckServiceServer.GetDeficiency),
		unary(MethodResolveDeficiency, GateCheckServiceServer.ResolveDeficiency),
		unary(MethodHealth, GateCheckServiceServer.Health),
	},
	Metadata: "gatecheck/v1/gatecheck.json",
}

// RegisterGateCheckServiceServer registers srv on s.
func RegisterGateCheckServiceServer(s grpc.ServiceRegistrar, srv GateCheckServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// GateCheckServiceClient is the client API for GateCheckService.
type GateCheckServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGateCheckServiceClient returns a client that encodes every call with
// the JSON codec.
func NewGateCheckServiceClient(cc grpc.ClientConnInterface) *GateCheckServiceClient {
	return &GateCheckServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GateCheckServiceClient) GetTemplateItems(ctx context.Context, in *GetTemplateItemsRequest, opts ...grpc.CallOption) (*GetTemplateItemsResponse, error) {
	return invoke[GetTemplateItemsResponse](ctx, c.cc, MethodGetTemplateItems, in, opts)
}

func (c *GateCheckServiceClient) GetLatestGateCheck(ctx context.Context, in *GetLatestGateCheckRequest, opts ...grpc.CallOption) (*GateCheckResponse, error) {
	return invoke[GateCheckResponse](ctx, c.cc, MethodGetLatestGateCheck, in, opts)
}

func (c *GateCheckServiceClient) GetGateCheck(ctx context.Context, in *GetGateCheckRequest, opts ...grpc.CallOption) (*GateCheckResponse, error) {
	return invoke[GateCheckResponse](ctx, c.cc, MethodGetGateCheck, in, opts)
}

func (c *GateCheckServiceClient) ListGateChecks(ctx context.Context, in *ListGateChecksRequest, opts ...grpc.CallOption) (*ListGateChecksResponse, error) {
	return invoke[ListGateChecksResponse](ctx, c.cc, MethodListGateChecks, in, opts)
}

func (c *GateCheckServiceClient) StartGateCheck(ctx context.Context, in *StartGateCheckRequest, opts ...grpc.CallOption) (*GateCheckResponse, error) {
	return invoke[GateCheckResponse](ctx, c.cc, MethodStartGateCheck, in, opts)
}

func (c *GateCheckServiceClient) UpdateGateCheckItem(ctx context.Context, in *UpdateGateCheckItemRequest, opts ...grpc.CallOption) (*GateCheckItemResponse, error) {
	return invoke[GateCheckItemResponse](ctx, c.cc, MethodUpdateGateCheckItem, in, opts)
}

func (c *GateCheckServiceClient) CompleteGateCheck(ctx context.Context, in *CompleteGateCheckRequest, opts ...grpc.CallOption) (*GateCheckResponse, error) {
	return invoke[GateCheckResponse](ctx, c.cc, MethodCompleteGateCheck, in, opts)
}

func (c *GateCheckServiceClient) CancelGateCheck(ctx context.Context, in *CancelGateCheckRequest, opts ...grpc.CallOption) (*GateCheckResponse, error) {
	return invoke[GateCheckResponse](ctx, c.cc, MethodCancelGateCheck, in, opts)
}

func (c *GateCheckServiceClient) GetEvents(ctx context.Context, in *GetEventsRequest, opts ...grpc.CallOption) (*GetEventsResponse, error) {
	return invoke[GetEventsResponse](ctx, c.cc, MethodGetEvents, in, opts)
}

func (c *GateCheckServiceClient) ListDeficiencies(ctx context.Context, in *ListDeficienciesRequest, opts ...grpc.CallOption) (*ListDeficienciesResponse, error) {
	return invoke[ListDeficienciesResponse](ctx, c.cc, MethodListDeficiencies, in, opts)
}

func (c *GateCheckServiceClient) GetDeficiency(ctx context.Context, in *GetDeficiencyRequest, opts ...grpc.CallOption) (*DeficiencyResponse, error) {
	return invoke[DeficiencyResponse](ctx, c.cc, MethodGetDeficiency, in, opts)
}

func (c *GateCheckServiceClient) ResolveDeficiency(ctx context.Context, in *ResolveDeficiencyRequest, opts ...grpc.CallOption) (*DeficiencyResponse, error) {
	return invoke[DeficiencyResponse](ctx, c.cc, MethodResolveDeficiency, in, opts)
}

func (c *GateCheckServiceClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c.cc, MethodHealth, in, opts)
}
