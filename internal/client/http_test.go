package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	method string
	path   string
	query  string
	body   string
	auth   string

	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", token)
}

func TestHTTPClient_Requests(t *testing.T) {
	notes := "ok"
	for _, tc := range []struct {
		name       string
		call       func(context.Context, *HTTPClient) error
		response   string
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   string
	}{
		{"ListTransitions", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.ListTransitions(ctx)
			return err
		}, `[]`, "GET", "/v1/transitions", "", ""},
		{"GetTemplateItems", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.GetTemplateItems(ctx, model.TransitionFramingToRoofing)
			return err
		}, `[]`, "GET", "/v1/transitions/framing_to_roofing/template", "", ""},
		{"GetLatestGateCheck", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.GetLatestGateCheck(ctx, "lot 7", model.TransitionFramingToRoofing)
			return err
		}, `null`, "GET", "/v1/lots/lot 7/gate-checks/framing_to_roofing/latest", "", ""},
		{"ListGateChecks", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.ListGateChecks(ctx, "lot-1", model.TransitionFramingToRoofing, 5)
			return err
		}, `[]`, "GET", "/v1/lots/lot-1/gate-checks/framing_to_roofing", "limit=5", ""},
		{"StartGateCheck", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.StartGateCheck(ctx, "lot-1", model.TransitionFramingToRoofing, "foreman-1")
			return err
		}, `{"id":"gc-1"}`, "POST", "/v1/lots/lot-1/gate-checks/framing_to_roofing", "", `{"actor":"foreman-1"}`},
		{"UpdateGateCheckItem", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.UpdateGateCheckItem(ctx, &UpdateItemRequest{ItemID: "gci-1", Result: model.ResultPass, Notes: &notes})
			return err
		}, `{"id":"gci-1"}`, "PATCH", "/v1/gate-check-items/gci-1", "", `{"result":"pass","notes":"ok"}`},
		{"CompleteGateCheck", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.CompleteGateCheck(ctx, "gc-1", "")
			return err
		}, `{"id":"gc-1"}`, "POST", "/v1/gate-checks/gc-1/complete", "", `{}`},
		{"CancelGateCheck", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.CancelGateCheck(ctx, "gc-1", "super-1", "wrong lot")
			return err
		}, `{"id":"gc-1"}`, "POST", "/v1/gate-checks/gc-1/cancel", "", `{"actor":"super-1","reason":"wrong lot"}`},
		{"GetEvents", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.GetEvents(ctx, "gc-1")
			return err
		}, `[]`, "GET", "/v1/gate-checks/gc-1/events", "", ""},
		{"ListDeficiencies", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.ListDeficiencies(ctx, "lot-1", model.DeficiencyOpen)
			return err
		}, `[]`, "GET", "/v1/lots/lot-1/deficiencies", "status=open", ""},
		{"InspectorRoster", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.InspectorRoster(ctx, 15*time.Minute)
			return err
		}, `{"inspectors":[]}`, "GET", "/v1/inspectors/roster", "stale_threshold_secs=900", ""},
		{"ResolveDeficiency", func(ctx context.Context, c *HTTPClient) error {
			_, err := c.ResolveDeficiency(ctx, "def-1", "super-1", "fixed")
			return err
		}, `{"id":"def-1"}`, "POST", "/v1/deficiencies/def-1/resolve", "", `{"actor":"super-1","resolution":"fixed"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{responseBody: tc.response}
			c := newTestClient(t, h, "")
			if err := tc.call(context.Background(), c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.method != tc.wantMethod || h.path != tc.wantPath {
				t.Fatalf("got %s %s, want %s %s", h.method, h.path, tc.wantMethod, tc.wantPath)
			}
			if h.query != tc.wantQuery {
				t.Fatalf("query=%q, want %q", h.query, tc.wantQuery)
			}
			if tc.wantBody != "" && h.body != tc.wantBody {
				t.Fatalf("body=%s, want %s", h.body, tc.wantBody)
			}
		})
	}
}

func TestHTTPClient_LatestNull(t *testing.T) {
	c := newTestClient(t, &testHandler{responseBody: "null\n"}, "")
	gc, err := c.GetLatestGateCheck(context.Background(), "lot-1", model.TransitionFramingToRoofing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gc != nil {
		t.Fatalf("expected nil gate check, got %+v", gc)
	}
}

func TestHTTPClient_AuthHeader(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c := newTestClient(t, h, "secret")
	status, err := c.Health(context.Background())
	if err != nil || status != "ok" {
		t.Fatalf("Health = (%q, %v)", status, err)
	}
	if h.auth != "Bearer secret" {
		t.Fatalf("Authorization=%q", h.auth)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusConflict,
		responseBody: `{"error":"gate check already in progress","code":"already_in_progress"}`,
	}
	c := newTestClient(t, h, "")
	_, err := c.StartGateCheck(context.Background(), "lot-1", model.TransitionFramingToRoofing, "a")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != model.CodeAlreadyInProgress {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if !errors.Is(err, model.ErrAlreadyInProgress) {
		t.Fatal("expected errors.Is(err, ErrAlreadyInProgress)")
	}
}

func TestHTTPClient_NonJSONError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusBadGateway, responseBody: "upstream down"}
	c := newTestClient(t, h, "")
	_, err := c.GetGateCheck(context.Background(), "gc-1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error: %v", err)
	}
	if errors.Is(err, model.ErrNotFound) {
		t.Fatal("uncoded error should not match a sentinel")
	}
}

func TestHTTPClient_StreamEvents(t *testing.T) {
	var lastEventID, topics string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastEventID = r.Header.Get("Last-Event-ID")
		topics = r.URL.Query().Get("topics")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ":keepalive\n\n")
		_, _ = io.WriteString(w, "id:4\nevent:gatecheck.started\ndata:{\"n\":4}\n\n")
		_, _ = io.WriteString(w, "id:5\nevent:gatecheck.completed\ndata:{\"n\":5}\n\n")
	})
	c := newTestClient(t, h, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []StreamEvent
	err := c.StreamEvents(ctx, []string{"gatecheck.>"}, "3", func(evt StreamEvent) error {
		got = append(got, evt)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamEvents: %v", err)
	}
	if lastEventID != "3" || topics != "gatecheck.>" {
		t.Fatalf("request headers: Last-Event-ID=%q topics=%q", lastEventID, topics)
	}
	if len(got) != 2 || got[0].ID != "4" || got[1].Topic != "gatecheck.completed" || string(got[1].Data) != `{"n":5}` {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestHTTPClient_StreamEventsStop(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, strings.Repeat("id:1\nevent:gatecheck.started\ndata:{}\n\n", 3))
	})
	c := newTestClient(t, h, "")

	n := 0
	err := c.StreamEvents(context.Background(), nil, "", func(StreamEvent) error {
		n++
		return ErrStopStream
	})
	if err != nil || n != 1 {
		t.Fatalf("got n=%d err=%v", n, err)
	}
}
