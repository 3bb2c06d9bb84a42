// Package api implements the HTTP client for the core project backend.
//
// Every endpoint the control surface uses has one method on Client. The
// backend is addressed by a single origin (scheme://host:port); all paths
// live under /core.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shinji-kodama/coredeck/internal/model"
)

// DefaultOrigin is the backend address used when nothing else is configured.
const DefaultOrigin = "http://localhost:8000"

// defaultTimeout bounds every request that does not stream a body.
// Uploads of large folders use the caller's context instead.
const defaultTimeout = 30 * time.Second

// Client talks to the backend over HTTP.
//
// Usage:
//
//	c, err := api.NewClient("http://localhost:8000")
//	if err != nil { /* bad origin */ }
//	st, err := c.Status(ctx)
type Client struct {
	origin  *url.URL
	http    *http.Client
	timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests use the one
// from httptest.Server).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout for non-upload calls.
// A zero or negative value disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a Client for the given origin. The origin must be an
// absolute http or https URL; any path is ignored.
func NewClient(origin string, opts ...Option) (*Client, error) {
	if origin == "" {
		origin = DefaultOrigin
	}
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend origin %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend origin %q: scheme must be http or https", origin)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid backend origin %q: missing host", origin)
	}
	u.Path, u.RawQuery, u.Fragment = "", "", ""

	c := &Client{
		origin:  u,
		http:    &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin returns the backend origin this client is bound to.
func (c *Client) Origin() string {
	return c.origin.String()
}

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Detail is the backend's "detail" message, or the status text when
	// the body carries none.
	Detail string
}

// Error satisfies the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string

	// streaming disables the per-request timeout.
	streaming bool
}

// do executes req and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	if c.timeout > 0 && !req.streaming {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := *c.origin
	u.Path = req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), req.body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

// maxErrorBody caps how much of an error body is read.
const maxErrorBody = 64 << 10

// decodeAPIError builds an APIError from a failed response. The backend
// reports failures as {"detail": "..."}; validation failures carry a
// structured detail, which is kept as compact JSON.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Detail:     http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return apiErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(data))
		return apiErr
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		apiErr.Detail = text
		return apiErr
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err == nil {
		apiErr.Detail = compact.String()
	}
	return apiErr
}

// Status fetches the project status.
func (c *Client) Status(ctx context.Context) (*model.Status, error) {
	var st model.Status
	if err := c.do(ctx, request{method: http.MethodGet, path: "/core/status"}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Tree lists one directory of the uploaded project. An empty dir lists the root.
func (c *Client) Tree(ctx context.Context, dir string) (*model.TreeListing, error) {
	var listing model.TreeListing
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/core/tree",
		query:  url.Values{"dir": {dir}},
	}, &listing)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ReadFile returns the text content of a project file.
func (c *Client) ReadFile(ctx context.Context, path string) (string, error) {
	var fc model.FileContent
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/core/file",
		query:  url.Values{"path": {path}},
	}, &fc)
	if err != nil {
		return "", err
	}
	return fc.Content, nil
}

// SaveFile overwrites a project file with text.
func (c *Client) SaveFile(ctx context.Context, path, text string) error {
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/core/save",
		query:       url.Values{"path": {path}},
		body:        strings.NewReader(text),
		contentType: "text/plain",
	}, nil)
}

// NodeCandidates returns the subdirectories the backend considers
// plausible app roots. A missing list decodes as empty.
func (c *Client) NodeCandidates(ctx context.Context) ([]string, error) {
	var nc model.NodeCandidates
	if err := c.do(ctx, request{method: http.MethodGet, path: "/core/node-candidates"}, &nc); err != nil {
		return nil, err
	}
	return nc.Candidates, nil
}

// StartApps asks the backend to start one container per app descriptor.
func (c *Client) StartApps(ctx context.Context, apps []model.AppDescriptor) error {
	body, err := json.Marshal(model.StartRequest{Apps: apps})
	if err != nil {
		return fmt.Errorf("encode start request: %w", err)
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/core/docker/start-both",
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, nil)
}

// Containers lists the containers the backend currently runs, keyed by
// subdirectory in the order the backend reported them.
func (c *Client) Containers(ctx context.Context) (*model.ContainersMap, error) {
	var resp model.ContainersResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/core/docker/containers"}, &resp); err != nil {
		return nil, err
	}
	return &resp.Containers, nil
}

// Stop stops the container started for subdir.
func (c *Client) Stop(ctx context.Context, subdir string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/core/docker/stop",
		query:  url.Values{"subdir": {subdir}},
	}, nil)
}

// StopAll stops every container started by this tool.
func (c *Client) StopAll(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/core/docker/stop-all"}, nil)
}

// WritePluginFile writes one plugin file at "<slug>/<file>" below the
// backend's plugin directory.
func (c *Client) WritePluginFile(ctx context.Context, path, text string) error {
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/core/plugin/new",
		query:       url.Values{"path": {path}},
		body:        strings.NewReader(text),
		contentType: "text/plain",
	}, nil)
}
