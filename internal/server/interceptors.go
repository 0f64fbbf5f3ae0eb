package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/rpc"
)

const bearerPrefix = "Bearer "

// checkBearer validates an Authorization header value against token and
// returns the rejection message, or "" when the caller is allowed in.
func checkBearer(header, token string) string {
	switch {
	case header == "":
		return "missing authorization header"
	case !strings.HasPrefix(header, bearerPrefix):
		return "invalid authorization scheme"
	case subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(header, bearerPrefix)), []byte(token)) != 1:
		return "invalid token"
	}
	return ""
}

// logPanic records a recovered panic with its stack.
func logPanic(where string, rec any, attrs ...any) {
	attrs = append(attrs, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
	slog.Error("panic recovered in "+where, attrs...)
}

// LoggingInterceptor logs every unary RPC with its duration. Failures that
// are the caller's fault log at warn; server faults at error.
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	began := time.Now()
	resp, err := handler(ctx, req)
	attrs := []any{"method", info.FullMethod, "duration", time.Since(began)}

	if err == nil {
		slog.Info("rpc completed", attrs...)
		return resp, nil
	}

	code := status.Code(err)
	level := slog.LevelWarn
	switch code {
	case codes.Internal, codes.Unknown, codes.Unavailable:
		level = slog.LevelError
	}
	slog.Log(ctx, level, "rpc completed", append(attrs, "code", code.String(), "error", err)...)
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic("gRPC handler", rec, "method", info.FullMethod)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// RecoveryMiddleware turns a handler panic into a 500 error body.
// http.ErrAbortHandler is re-raised so net/http can abort the response.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logPanic("HTTP handler", rec, "method", r.Method, "path", r.URL.Path)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// AuthInterceptor requires "authorization: Bearer <token>" metadata on every
// RPC except Health. An empty token disables the check.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	health := rpc.FullMethod(rpc.MethodHealth)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token == "" || info.FullMethod == health {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		var header string
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
		if msg := checkBearer(header, token); msg != "" {
			return nil, status.Error(codes.Unauthenticated, msg)
		}
		return handler(ctx, req)
	}
}

// AuthMiddleware is the HTTP counterpart of AuthInterceptor; GET /v1/health
// is exempt.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exempt := r.Method == http.MethodGet && r.URL.Path == "/v1/health"
		if !exempt {
			if msg := checkBearer(r.Header.Get("Authorization"), token); msg != "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
