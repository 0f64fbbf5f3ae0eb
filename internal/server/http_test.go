package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/gatecheck"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/metrics"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store/memory"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/template"
)

const (
	testLot        = "lot-42"
	testTransition = "framing_to_roofing"
)

// newTestServer returns a server backed by the in-memory store and the
// default template catalog, with its SSE hub registered as the publisher.
func newTestServer(t *testing.T) (*GateCheckServer, http.Handler) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewGateCheckMetrics(reg)
	if err != nil {
		t.Fatalf("registering metrics: %v", err)
	}
	hub := NewSSEHub()
	svc := gatecheck.New(memory.New(template.Default()),
		gatecheck.WithPublisher(hub),
		gatecheck.WithMetrics(m),
	)
	srv := NewGateCheckServer(svc, hub, reg)
	return srv, srv.NewHTTPHandler("")
}

// doJSON performs an HTTP request against handler with an optional JSON body.
func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// requireStatus asserts the recorder has the expected HTTP status code.
func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected status %d, got %d; body: %s", code, rec.Code, rec.Body.String())
	}
}

// decodeJSON decodes the recorder's response body into v.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// requireErrorCode asserts the recorder carries a JSON error with code.
func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	requireStatus(t, rec, status)
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["code"] != code {
		t.Fatalf("expected code=%q, got %q (error=%q)", code, body["code"], body["error"])
	}
	if body["error"] == "" {
		t.Fatal("expected non-empty error message")
	}
}

// startGateCheck starts a framing_to_roofing check on testLot via HTTP.
func startGateCheck(t *testing.T, h http.Handler) *model.GateCheck {
	t.Helper()
	rec := doJSON(t, h, "POST", "/v1/lots/"+testLot+"/gate-checks/"+testTransition, map[string]any{"actor": "foreman-1"})
	requireStatus(t, rec, http.StatusCreated)
	var gc model.GateCheck
	decodeJSON(t, rec, &gc)
	return &gc
}

// setItem records result on item via HTTP and returns the recorder.
func setItem(t *testing.T, h http.Handler, itemID string, result model.ItemResult) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, h, "PATCH", "/v1/gate-check-items/"+itemID, map[string]any{"result": result, "actor": "foreman-1"})
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, "GET", "/v1/health", nil)
	requireStatus(t, rec, 200)
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
}

func TestHandleListTransitions(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, "GET", "/v1/transitions", nil)
	requireStatus(t, rec, 200)
	var got []transitionInfo
	decodeJSON(t, rec, &got)
	if len(got) != len(model.Transitions) {
		t.Fatalf("expected %d transitions, got %d", len(model.Transitions), len(got))
	}
	for _, info := range got {
		if info.Transition == model.TransitionFramingToRoofing && (info.Items != 5 || info.Blocking != 3) {
			t.Fatalf("framing_to_roofing: got %d items / %d blocking", info.Items, info.Blocking)
		}
	}
}

func TestHandleGetTemplate(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, "GET", "/v1/transitions/"+testTransition+"/template", nil)
	requireStatus(t, rec, 200)
	var items []model.TemplateItem
	decodeJSON(t, rec, &items)
	if len(items) != 5 || items[0].ItemCode != "F1" || !items[0].IsBlocking || items[4].IsBlocking {
		t.Fatalf("unexpected template: %+v", items)
	}
}

func TestHandleGetLatest_AbsentIsNull(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, "GET", "/v1/lots/"+testLot+"/gate-checks/"+testTransition+"/latest", nil)
	requireStatus(t, rec, 200)
	if got := strings.TrimSpace(rec.Body.String()); got != "null" {
		t.Fatalf("expected null, got %s", got)
	}
}

func TestHandleStartGateCheck(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)
	if gc.ID == "" || gc.Status != model.StatusInProgress || gc.LotID != testLot {
		t.Fatalf("unexpected gate check: %+v", gc)
	}
	if len(gc.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(gc.Items))
	}
	for _, it := range gc.Items {
		if it.Result != model.ResultPending {
			t.Fatalf("item %s: expected pending, got %s", it.ItemCode, it.Result)
		}
	}

	rec := doJSON(t, h, "GET", "/v1/lots/"+testLot+"/gate-checks/"+testTransition+"/latest", nil)
	requireStatus(t, rec, 200)
	var latest model.GateCheck
	decodeJSON(t, rec, &latest)
	if latest.ID != gc.ID {
		t.Fatalf("latest=%q, want %q", latest.ID, gc.ID)
	}
}

func TestHandleHTTPErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"Template/InvalidTransition", "GET", "/v1/transitions/framing_to_attic/template", nil, 400, model.CodeInvalidTransition},
		{"Latest/InvalidTransition", "GET", "/v1/lots/lot-1/gate-checks/bogus/latest", nil, 400, model.CodeInvalidTransition},
		{"Start/InvalidTransition", "POST", "/v1/lots/lot-1/gate-checks/bogus", map[string]any{"actor": "a"}, 400, model.CodeInvalidTransition},
		{"Start/MissingActor", "POST", "/v1/lots/lot-1/gate-checks/" + testTransition, map[string]any{}, 400, model.CodeInvalidInput},
		{"Start/BadJSON", "POST", "/v1/lots/lot-1/gate-checks/" + testTransition, "{", 400, model.CodeInvalidInput},
		{"Get/NotFound", "GET", "/v1/gate-checks/gc-missing", nil, 404, model.CodeNotFound},
		{"Item/NotFound", "PATCH", "/v1/gate-check-items/gci-missing", map[string]any{"result": "pass"}, 404, model.CodeNotFound},
		{"Complete/NotFound", "POST", "/v1/gate-checks/gc-missing/complete", nil, 404, model.CodeNotFound},
		{"Deficiency/NotFound", "GET", "/v1/deficiencies/def-missing", nil, 404, model.CodeNotFound},
		{"History/BadLimit", "GET", "/v1/lots/lot-1/gate-checks/" + testTransition + "?limit=-1", nil, 400, model.CodeInvalidInput},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, h := newTestServer(t)
			rec := doJSON(t, h, tc.method, tc.path, tc.body)
			requireErrorCode(t, rec, tc.status, tc.code)
		})
	}
}

func TestHandleStart_AlreadyInProgress(t *testing.T) {
	_, h := newTestServer(t)
	startGateCheck(t, h)
	rec := doJSON(t, h, "POST", "/v1/lots/"+testLot+"/gate-checks/"+testTransition, map[string]any{"actor": "foreman-2"})
	requireErrorCode(t, rec, http.StatusConflict, model.CodeAlreadyInProgress)
}

func TestHandleUpdateItem_InvalidResult(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)
	rec := setItem(t, h, gc.Items[0].ID, "maybe")
	requireErrorCode(t, rec, http.StatusBadRequest, model.CodeInvalidResult)
}

func TestHandleComplete_Incomplete(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)
	requireStatus(t, setItem(t, h, gc.Items[0].ID, model.ResultPass), 200)

	rec := doJSON(t, h, "POST", "/v1/gate-checks/"+gc.ID+"/complete", nil)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, model.CodeIncompleteChecklist)
}

func TestHandleFullFlow_Passed(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)

	for i, it := range gc.Items {
		result := model.ResultPass
		if i == 4 {
			result = model.ResultNA
		}
		rec := setItem(t, h, it.ID, result)
		requireStatus(t, rec, 200)
		var item model.GateCheckItem
		decodeJSON(t, rec, &item)
		if item.Result != result {
			t.Fatalf("item %s: got %s, want %s", item.ItemCode, item.Result, result)
		}
	}

	rec := doJSON(t, h, "POST", "/v1/gate-checks/"+gc.ID+"/complete", map[string]any{"actor": "foreman-1"})
	requireStatus(t, rec, 200)
	var done model.GateCheck
	decodeJSON(t, rec, &done)
	if done.Status != model.StatusPassed {
		t.Fatalf("expected passed, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	// Terminal records reject further item edits.
	rec = setItem(t, h, gc.Items[0].ID, model.ResultFail)
	requireErrorCode(t, rec, http.StatusConflict, model.CodeGateCheckClosed)
}

func TestHandleFullFlow_FailedCreatesDeficiency(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)

	rec := setItem(t, h, gc.Items[0].ID, model.ResultFail)
	requireStatus(t, rec, 200)
	var failed model.GateCheckItem
	decodeJSON(t, rec, &failed)
	if failed.DeficiencyID == "" {
		t.Fatal("expected a deficiency link on a failed blocking item")
	}
	for _, it := range gc.Items[1:] {
		requireStatus(t, setItem(t, h, it.ID, model.ResultPass), 200)
	}

	rec = doJSON(t, h, "POST", "/v1/gate-checks/"+gc.ID+"/complete", nil)
	requireStatus(t, rec, 200)
	var done model.GateCheck
	decodeJSON(t, rec, &done)
	if done.Status != model.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}

	rec = doJSON(t, h, "GET", "/v1/lots/"+testLot+"/deficiencies?status=open", nil)
	requireStatus(t, rec, 200)
	var defs []model.Deficiency
	decodeJSON(t, rec, &defs)
	if len(defs) != 1 || defs[0].ID != failed.DeficiencyID || defs[0].ItemCode != "F1" {
		t.Fatalf("unexpected deficiencies: %+v", defs)
	}

	rec = doJSON(t, h, "POST", "/v1/deficiencies/"+failed.DeficiencyID+"/resolve", map[string]any{"actor": "super-1", "resolution": "re-framed"})
	requireStatus(t, rec, 200)
	var resolved model.Deficiency
	decodeJSON(t, rec, &resolved)
	if resolved.Status != model.DeficiencyResolved || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected deficiency after resolve: %+v", resolved)
	}

	rec = doJSON(t, h, "GET", "/v1/deficiencies/"+failed.DeficiencyID, nil)
	requireStatus(t, rec, 200)

	// A new gate check may start once the failed one is terminal.
	startGateCheck(t, h)
	rec = doJSON(t, h, "GET", "/v1/lots/"+testLot+"/gate-checks/"+testTransition, nil)
	requireStatus(t, rec, 200)
	var history []model.GateCheck
	decodeJSON(t, rec, &history)
	if len(history) != 2 || history[1].ID != gc.ID {
		t.Fatalf("expected newest-first history ending with %q, got %+v", gc.ID, history)
	}
}

func TestHandleCancel(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)

	rec := doJSON(t, h, "POST", "/v1/gate-checks/"+gc.ID+"/cancel", map[string]any{"actor": "super-1"})
	requireErrorCode(t, rec, http.StatusBadRequest, model.CodeInvalidInput)

	rec = doJSON(t, h, "POST", "/v1/gate-checks/"+gc.ID+"/cancel", map[string]any{"actor": "super-1", "reason": "wrong lot"})
	requireStatus(t, rec, 200)
	var cancelled model.GateCheck
	decodeJSON(t, rec, &cancelled)
	if cancelled.Status != model.StatusCancelled || cancelled.CancelReason != "wrong lot" {
		t.Fatalf("unexpected gate check: %+v", cancelled)
	}

	rec = doJSON(t, h, "POST", "/v1/gate-checks/"+gc.ID+"/cancel", map[string]any{"actor": "super-1", "reason": "again"})
	requireErrorCode(t, rec, http.StatusConflict, model.CodeGateCheckClosed)

	startGateCheck(t, h)
}

func TestHandleGetEvents(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)
	requireStatus(t, setItem(t, h, gc.Items[3].ID, model.ResultFail), 200)

	rec := doJSON(t, h, "GET", "/v1/gate-checks/"+gc.ID+"/events", nil)
	requireStatus(t, rec, 200)
	var evts []model.Event
	decodeJSON(t, rec, &evts)
	if len(evts) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evts))
	}
	if evts[0].Topic != "gatecheck.started" || evts[1].Topic != "gatecheck.item.updated" {
		t.Fatalf("unexpected topics: %q, %q", evts[0].Topic, evts[1].Topic)
	}
}

func TestHandleEmptyLists(t *testing.T) {
	_, h := newTestServer(t)
	for _, path := range []string{
		"/v1/lots/" + testLot + "/gate-checks/" + testTransition,
		"/v1/lots/" + testLot + "/deficiencies",
	} {
		rec := doJSON(t, h, "GET", path, nil)
		requireStatus(t, rec, 200)
		if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
			t.Fatalf("%s: expected [], got %s", path, got)
		}
	}
}

func TestHandleMetrics(t *testing.T) {
	_, h := newTestServer(t)
	startGateCheck(t, h)

	rec := doJSON(t, h, "GET", "/metrics", nil)
	requireStatus(t, rec, 200)
	if !strings.Contains(rec.Body.String(), "gatecheck_") {
		t.Fatalf("expected gatecheck metrics, got:\n%s", rec.Body.String())
	}
}

func TestHTTPHandler_Auth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.NewHTTPHandler("secret")

	requireErrorCode(t, doJSON(t, h, "GET", "/v1/transitions", nil), http.StatusUnauthorized, codeUnauthorized)
	requireStatus(t, doJSON(t, h, "GET", "/v1/health", nil), http.StatusOK)

	req := httptest.NewRequest("GET", "/v1/transitions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	requireStatus(t, rec, http.StatusOK)
}

func TestHandleInspectorRoster(t *testing.T) {
	_, h := newTestServer(t)
	gc := startGateCheck(t, h)
	requireStatus(t, setItem(t, h, gc.Items[0].ID, model.ResultPass), http.StatusOK)

	rec := doJSON(t, h, "GET", "/v1/inspectors/roster", nil)
	requireStatus(t, rec, http.StatusOK)
	var body struct {
		Inspectors []presence.Entry `json:"inspectors"`
	}
	decodeJSON(t, rec, &body)
	if len(body.Inspectors) != 1 {
		t.Fatalf("expected 1 inspector, got %d", len(body.Inspectors))
	}
	e := body.Inspectors[0]
	if e.Actor != "foreman-1" || e.LastAction != "update_item" || e.ActionCount != 2 || e.GateCheckID != gc.ID {
		t.Fatalf("unexpected roster entry: %+v", e)
	}

	requireErrorCode(t, doJSON(t, h, "GET", "/v1/inspectors/roster?stale_threshold_secs=x", nil), http.StatusBadRequest, model.CodeInvalidInput)
}
