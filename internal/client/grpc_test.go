package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/gatecheck"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/server"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store/memory"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/template"
)

// newBufconnClient serves a memory-backed gate check server over an
// in-memory listener and returns a GRPCClient connected to it.
func newBufconnClient(t *testing.T, serverToken, clientToken string) *GRPCClient {
	t.Helper()
	svc := gatecheck.New(memory.New(template.Default()))
	gs := server.NewGRPCServer(server.NewGateCheckServer(svc, nil, nil), serverToken)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", clientToken,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	if err != nil {
		t.Fatalf("NewGRPCClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGRPCClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newBufconnClient(t, "secret", "secret")

	infos, err := c.ListTransitions(ctx)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(infos) != len(model.Transitions) {
		t.Fatalf("expected %d transitions, got %d", len(model.Transitions), len(infos))
	}

	latest, err := c.GetLatestGateCheck(ctx, "lot-9", model.TransitionRoofingToRoughIn)
	if err != nil || latest != nil {
		t.Fatalf("GetLatestGateCheck = (%v, %v), want (nil, nil)", latest, err)
	}

	gc, err := c.StartGateCheck(ctx, "lot-9", model.TransitionRoofingToRoughIn, "foreman-1")
	if err != nil {
		t.Fatalf("StartGateCheck: %v", err)
	}

	_, err = c.StartGateCheck(ctx, "lot-9", model.TransitionRoofingToRoughIn, "foreman-1")
	if !errors.Is(err, model.ErrAlreadyInProgress) {
		t.Fatalf("expected ErrAlreadyInProgress, got %v", err)
	}

	for _, it := range gc.Items {
		if _, err := c.UpdateGateCheckItem(ctx, &UpdateItemRequest{ItemID: it.ID, Result: model.ResultPass, Actor: "foreman-1"}); err != nil {
			t.Fatalf("UpdateGateCheckItem: %v", err)
		}
	}
	done, err := c.CompleteGateCheck(ctx, gc.ID, "foreman-1")
	if err != nil {
		t.Fatalf("CompleteGateCheck: %v", err)
	}
	if done.Status != model.StatusPassed {
		t.Fatalf("expected passed, got %s", done.Status)
	}

	_, err = c.UpdateGateCheckItem(ctx, &UpdateItemRequest{ItemID: gc.Items[0].ID, Result: model.ResultFail})
	if !errors.Is(err, model.ErrGateCheckClosed) {
		t.Fatalf("expected ErrGateCheckClosed, got %v", err)
	}

	_, err = c.GetDeficiency(ctx, "def-missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGRPCClient_MissingToken(t *testing.T) {
	c := newBufconnClient(t, "secret", "")

	if status, err := c.Health(context.Background()); err != nil || status != "ok" {
		t.Fatalf("Health = (%q, %v)", status, err)
	}
	if _, err := c.GetTemplateItems(context.Background(), model.TransitionFramingToRoofing); err == nil {
		t.Fatal("expected unauthenticated error")
	}
}
