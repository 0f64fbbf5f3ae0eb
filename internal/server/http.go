package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
)

// maxBodyBytes caps request bodies; the largest legitimate body is an item
// update with notes.
const maxBodyBytes = 1 << 20

// Error codes used only by the transport layer.
const (
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal"
)

// httpStatus maps wire error codes to HTTP status codes.
var httpStatus = map[string]int{
	model.CodeInvalidTransition:    http.StatusBadRequest,
	model.CodeInvalidResult:        http.StatusBadRequest,
	model.CodeInvalidInput:         http.StatusBadRequest,
	model.CodeAlreadyInProgress:    http.StatusConflict,
	model.CodeGateCheckClosed:      http.StatusConflict,
	model.CodeIncompleteChecklist:  http.StatusUnprocessableEntity,
	model.CodeDeficiencyLinkFailed: http.StatusBadGateway,
	model.CodeNotFound:             http.StatusNotFound,
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *GateCheckServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/transitions", s.handleListTransitions)
	mux.HandleFunc("GET /v1/transitions/{transition}/template", s.handleGetTemplate)
	mux.HandleFunc("GET /v1/lots/{lot}/gate-checks/{transition}/latest", s.handleGetLatestGateCheck)
	mux.HandleFunc("GET /v1/lots/{lot}/gate-checks/{transition}", s.handleListGateChecks)
	mux.HandleFunc("POST /v1/lots/{lot}/gate-checks/{transition}", s.handleStartGateCheck)
	mux.HandleFunc("GET /v1/gate-checks/{id}", s.handleGetGateCheck)
	mux.HandleFunc("POST /v1/gate-checks/{id}/complete", s.handleCompleteGateCheck)
	mux.HandleFunc("POST /v1/gate-checks/{id}/cancel", s.handleCancelGateCheck)
	mux.HandleFunc("GET /v1/gate-checks/{id}/events", s.handleGetEvents)
	mux.HandleFunc("PATCH /v1/gate-check-items/{id}", s.handleUpdateGateCheckItem)
	mux.HandleFunc("GET /v1/lots/{lot}/deficiencies", s.handleListDeficiencies)
	mux.HandleFunc("GET /v1/deficiencies/{id}", s.handleGetDeficiency)
	mux.HandleFunc("POST /v1/deficiencies/{id}/resolve", s.handleResolveDeficiency)
	mux.HandleFunc("GET /v1/inspectors/roster", s.handleInspectorRoster)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
			ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
			ErrorHandling: promhttp.HTTPErrorOnError,
		}))
	}
	return RecoveryMiddleware(AuthMiddleware(authToken, mux))
}

// handleHealth handles GET /v1/health.
func (s *GateCheckServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(timeSince(s.started).Seconds()),
		"sse_clients":    s.sseHub.ClientCount(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// writeServiceError translates a service error into its HTTP status and
// wire code. Errors outside the taxonomy are logged and reported as 500
// without their internal detail.
func (s *GateCheckServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := model.ErrorCode(err)
	status, ok := httpStatus[code]
	if !ok {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

// decodeBody decodes a JSON request body into v. An empty body is accepted
// when optional is true and leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return &model.ValidationError{Errors: []model.FieldError{{Field: "body", Message: "invalid JSON body"}}}
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &model.ValidationError{Errors: []model.FieldError{{Field: name, Message: "must be a non-negative integer"}}}
	}
	return n, nil
}
