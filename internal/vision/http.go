package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ironsheep/blueprint-mcp/internal/pipeline"
)

// maxResponseSize caps the body read from the remote service.
const maxResponseSize = 64 << 20

// HTTPClient submits stages to a remote analysis endpoint.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient creates a client for endpoint. apiKey may be empty.
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Endpoint returns the base URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Analyze implements pipeline.Service.
func (c *HTTPClient) Analyze(ctx context.Context, req pipeline.Request) (pipeline.Handle, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return pipeline.Handle{}, fmt.Errorf("encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return pipeline.Handle{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	c.authorize(hreq)

	resp, err := c.client.Do(hreq)
	if err != nil {
		return pipeline.Handle{}, fmt.Errorf("submit %s: %w", req.Stage, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return pipeline.Handle{}, fmt.Errorf("submit %s: %w", req.Stage, err)
	}
	if resp.StatusCode/100 != 2 {
		return pipeline.Handle{}, fmt.Errorf("submit %s: %s: %s", req.Stage, resp.Status, strings.TrimSpace(string(data)))
	}

	loc := resp.Header.Get("Operation-Location")
	if loc == "" {
		var ack struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &ack); err != nil || ack.ID == "" {
			return pipeline.Handle{}, fmt.Errorf("submit %s: response has no operation location", req.Stage)
		}
		loc = ack.ID
	}
	return pipeline.Handle{ID: c.resolve(loc), Stage: req.Stage}, nil
}

// PollStatus implements pipeline.Service.
func (c *HTTPClient) PollStatus(ctx context.Context, h pipeline.Handle) (pipeline.PollResult, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.ID, nil)
	if err != nil {
		return pipeline.PollResult{}, err
	}
	c.authorize(hreq)

	resp, err := c.client.Do(hreq)
	if err != nil {
		return pipeline.PollResult{}, fmt.Errorf("poll %s: %w", h.Stage, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return pipeline.PollResult{}, fmt.Errorf("poll %s: %w", h.Stage, err)
	}
	if resp.StatusCode/100 != 2 {
		return pipeline.PollResult{}, fmt.Errorf("poll %s: %s", h.Stage, resp.Status)
	}

	var raw struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return pipeline.PollResult{}, fmt.Errorf("poll %s: %w", h.Stage, err)
	}

	res := pipeline.PollResult{Result: raw.Result, Error: errorText(raw.Error)}
	switch strings.ToLower(raw.Status) {
	case "running", "notstarted", "pending":
		res.Status = pipeline.OpRunning
	case "succeeded", "success", "completed":
		res.Status = pipeline.OpSucceeded
	case "failed", "error":
		res.Status = pipeline.OpFailed
	default:
		return pipeline.PollResult{}, fmt.Errorf("poll %s: unknown status %q", h.Stage, raw.Status)
	}
	return res, nil
}

func (c *HTTPClient) authorize(r *http.Request) {
	if c.apiKey != "" {
		r.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// resolve makes a relative operation location absolute against the
// endpoint.
func (c *HTTPClient) resolve(loc string) string {
	u, err := url.Parse(loc)
	if err != nil || u.IsAbs() {
		return loc
	}
	base, err := url.Parse(c.endpoint + "/")
	if err != nil {
		return loc
	}
	return base.ResolveReference(u).String()
}

// errorText accepts an error given as a string or as {"message": ...}.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
