package server

import (
	"google.golang.org/grpc"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/rpc"
)

// NewGRPCServer creates a gRPC server with the standard interceptors and
// registers the GateCheckService. When authToken is non-empty every RPC
// except Health requires a matching bearer token.
func NewGRPCServer(gcServer *GateCheckServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)

	rpc.RegisterGateCheckServiceServer(srv, gcServer)

	return srv
}
