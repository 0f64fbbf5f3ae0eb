package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/model"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
)

// HTTPClient implements GateCheckClient using the HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Templates ---

func (c *HTTPClient) ListTransitions(ctx context.Context) ([]TransitionInfo, error) {
	var out []TransitionInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/transitions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetTemplateItems(ctx context.Context, transition model.Transition) ([]*model.TemplateItem, error) {
	var items []*model.TemplateItem
	if err := c.doJSON(ctx, http.MethodGet, "/v1/transitions/"+url.PathEscape(string(transition))+"/template", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// --- Gate checks ---

func lotPath(lotID string, transition model.Transition) string {
	return "/v1/lots/" + url.PathEscape(lotID) + "/gate-checks/" + url.PathEscape(string(transition))
}

// GetLatestGateCheck returns nil without error when the lot never started
// the transition.
func (c *HTTPClient) GetLatestGateCheck(ctx context.Context, lotID string, transition model.Transition) (*model.GateCheck, error) {
	var gc *model.GateCheck
	if err := c.doJSON(ctx, http.MethodGet, lotPath(lotID, transition)+"/latest", nil, &gc); err != nil {
		return nil, err
	}
	return gc, nil
}

func (c *HTTPClient) GetGateCheck(ctx context.Context, id string) (*model.GateCheck, error) {
	var gc model.GateCheck
	if err := c.doJSON(ctx, http.MethodGet, "/v1/gate-checks/"+url.PathEscape(id), nil, &gc); err != nil {
		return nil, err
	}
	return &gc, nil
}

func (c *HTTPClient) ListGateChecks(ctx context.Context, lotID string, transition model.Transition, limit int) ([]*model.GateCheck, error) {
	path := lotPath(lotID, transition)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var gcs []*model.GateCheck
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &gcs); err != nil {
		return nil, err
	}
	return gcs, nil
}

func (c *HTTPClient) StartGateCheck(ctx context.Context, lotID string, transition model.Transition, actor string) (*model.GateCheck, error) {
	var gc model.GateCheck
	if err := c.doJSON(ctx, http.MethodPost, lotPath(lotID, transition), map[string]string{"actor": actor}, &gc); err != nil {
		return nil, err
	}
	return &gc, nil
}

func (c *HTTPClient) UpdateGateCheckItem(ctx context.Context, req *UpdateItemRequest) (*model.GateCheckItem, error) {
	var item model.GateCheckItem
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/gate-check-items/"+url.PathEscape(req.ItemID), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) CompleteGateCheck(ctx context.Context, id, actor string) (*model.GateCheck, error) {
	body := map[string]string{}
	if actor != "" {
		body["actor"] = actor
	}
	var gc model.GateCheck
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gate-checks/"+url.PathEscape(id)+"/complete", body, &gc); err != nil {
		return nil, err
	}
	return &gc, nil
}

func (c *HTTPClient) CancelGateCheck(ctx context.Context, id, actor, reason string) (*model.GateCheck, error) {
	body := map[string]string{"actor": actor, "reason": reason}
	var gc model.GateCheck
	if err := c.doJSON(ctx, http.MethodPost, "/v1/gate-checks/"+url.PathEscape(id)+"/cancel", body, &gc); err != nil {
		return nil, err
	}
	return &gc, nil
}

func (c *HTTPClient) GetEvents(ctx context.Context, gateCheckID string) ([]*model.Event, error) {
	var evts []*model.Event
	if err := c.doJSON(ctx, http.MethodGet, "/v1/gate-checks/"+url.PathEscape(gateCheckID)+"/events", nil, &evts); err != nil {
		return nil, err
	}
	return evts, nil
}

// --- Deficiencies ---

func (c *HTTPClient) ListDeficiencies(ctx context.Context, lotID string, status model.DeficiencyStatus) ([]*model.Deficiency, error) {
	path := "/v1/lots/" + url.PathEscape(lotID) + "/deficiencies"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var defs []*model.Deficiency
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (c *HTTPClient) GetDeficiency(ctx context.Context, id string) (*model.Deficiency, error) {
	var d model.Deficiency
	if err := c.doJSON(ctx, http.MethodGet, "/v1/deficiencies/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) ResolveDeficiency(ctx context.Context, id, actor, resolution string) (*model.Deficiency, error) {
	body := map[string]string{"actor": actor, "resolution": resolution}
	var d model.Deficiency
	if err := c.doJSON(ctx, http.MethodPost, "/v1/deficiencies/"+url.PathEscape(id)+"/resolve", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// --- Roster ---

func (c *HTTPClient) InspectorRoster(ctx context.Context, stale time.Duration) ([]presence.Entry, error) {
	path := "/v1/inspectors/roster?stale_threshold_secs=" + strconv.Itoa(int(stale.Seconds()))
	var resp struct {
		Inspectors []presence.Entry `json:"inspectors"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Inspectors, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// APIError is a non-2xx response. It unwraps to the model sentinel named
// by Code, so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return model.ErrorForCode(e.Code)
}

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// apiErrorFrom builds an APIError from resp. A JSON {"error","code"} body
// supplies the message and code; anything else is used as the message.
func apiErrorFrom(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message, apiErr.Code = body.Error, body.Code
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON sends in (when non-nil) as the JSON body and decodes a successful
// response into out (when non-nil).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiErrorFrom(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
