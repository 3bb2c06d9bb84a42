package preview

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTarget(u string, err error) TargetFunc {
	return func(context.Context) (string, error) { return u, err }
}

func doRequest(t *testing.T, s *Server, method, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := s.App().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// TestProxy_ForwardsToTarget verifies path, query and Host forwarding.
func TestProxy_ForwardsToTarget(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Method+" "+r.URL.RequestURI()+" host="+r.Host)
	}))
	t.Cleanup(upstream.Close)

	s := New(fixedTarget(upstream.URL, nil))
	status, body := doRequest(t, s, http.MethodGet, "/assets/app.js?v=2")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GET /assets/app.js?v=2 host="+upstream.Listener.Addr().String(), body)
}

// TestProxy_NoTarget verifies the 503 answers when nothing resolves.
func TestProxy_NoTarget(t *testing.T) {
	tests := []struct {
		name   string
		target TargetFunc
		want   string
	}{
		{name: "nothing running", target: fixedTarget("", nil), want: "No published ports detected yet"},
		{name: "lookup failed", target: fixedTarget("", errors.New("backend down")), want: "backend down"},
		{name: "bad url", target: fixedTarget("::nope", nil), want: "invalid frontend URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, New(tt.target), http.MethodGet, "/")
			assert.Equal(t, http.StatusServiceUnavailable, status)
			assert.Contains(t, body, tt.want)
		})
	}
}

// TestProxy_UpstreamDown verifies a dead upstream answers 502.
func TestProxy_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	dead := upstream.URL
	upstream.Close()

	status, body := doRequest(t, New(fixedTarget(dead, nil)), http.MethodGet, "/")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "preview upstream")
}

// TestTargetEndpoint verifies the JSON target report is answered locally.
func TestTargetEndpoint(t *testing.T) {
	status, body := doRequest(t, New(fixedTarget("http://localhost:3000", nil)), http.MethodGet, TargetPath)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"target":"http://localhost:3000"}`, body)
}
