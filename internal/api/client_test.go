package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/coredeck/internal/model"
)

// newTestClient starts an httptest server around handler and returns a
// Client bound to it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

// TestNewClient validates origin parsing.
func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		origin   string
		want     string
		hasError bool
	}{
		{name: "default", origin: "", want: DefaultOrigin},
		{name: "trailing slash", origin: "http://localhost:8000/", want: "http://localhost:8000"},
		{name: "path is dropped", origin: "https://core.example.com/ui", want: "https://core.example.com"},
		{name: "bad scheme", origin: "ftp://localhost", hasError: true},
		{name: "no host", origin: "http://", hasError: true},
		{name: "relative", origin: "localhost:8000", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.origin)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Origin())
		})
	}
}

// TestClient_Status verifies the status endpoint decoding.
func TestClient_Status(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/core/status", r.URL.Path)
		_, _ = io.WriteString(w, `{"jar_present":true,"project_present":true,"running":false,"pid":null}`)
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.ProjectPresent)
	assert.False(t, st.Running)
	assert.Nil(t, st.PID)
}

// TestClient_Tree verifies the dir query parameter and listing decoding.
func TestClient_Tree(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/core/tree", r.URL.Path)
		assert.Equal(t, "src/app dir", r.URL.Query().Get("dir"))
		_, _ = io.WriteString(w, `{"cwd":"src/app dir","items":[
			{"name":"index.js","path":"src/app dir/index.js","type":"file"},
			{"name":"lib","path":"src/app dir/lib","type":"dir"}]}`)
	})

	listing, err := c.Tree(context.Background(), "src/app dir")
	require.NoError(t, err)
	assert.Equal(t, "src/app dir", listing.Cwd)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, model.ItemDir, listing.Items[1].Type)
}

// TestClient_ReadAndSaveFile verifies the raw text round trip of the editor.
func TestClient_ReadAndSaveFile(t *testing.T) {
	var saved string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/core/file":
			assert.Equal(t, "src/a.js", r.URL.Query().Get("path"))
			_ = json.NewEncoder(w).Encode(model.FileContent{Content: "let a = 1;\n"})
		case "/core/save":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "src/a.js", r.URL.Query().Get("path"))
			assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
			data, _ := io.ReadAll(r.Body)
			saved = string(data)
			_, _ = io.WriteString(w, `{"ok":true}`)
		default:
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()
	content, err := c.ReadFile(ctx, "src/a.js")
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\n", content)

	require.NoError(t, c.SaveFile(ctx, "src/a.js", "let a = 2;\n"))
	assert.Equal(t, "let a = 2;\n", saved)
}

// TestClient_StartApps verifies the start request body shape.
func TestClient_StartApps(t *testing.T) {
	var got model.StartRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/core/docker/start-both", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	apps := []model.AppDescriptor{{
		Subdir: "frontend",
		Image:  "node:18-alpine",
		Env:    map[string]string{"HOST": "0.0.0.0", "PORT": "3000"},
		Ports:  []string{"5000:3000"},
	}}
	require.NoError(t, c.StartApps(context.Background(), apps))
	assert.Equal(t, apps, got.Apps)
}

// TestClient_Containers verifies that the containers map keeps the
// backend's key order.
func TestClient_Containers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"containers":{
			"web":{"id":"a1","name":"core-web","ports":["3000:3000"]},
			"api":{"id":"b2","ports":["0.0.0.0:9090->8088/tcp"]}}}`)
	})

	m, err := c.Containers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "api"}, m.Keys())
}

// TestClient_StopAndPlugin verifies the query-only POST endpoints.
func TestClient_StopAndPlugin(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		calls = append(calls, r.URL.Path+"?"+r.URL.RawQuery)
	})

	ctx := context.Background()
	require.NoError(t, c.Stop(ctx, "frontend"))
	require.NoError(t, c.StopAll(ctx))
	require.NoError(t, c.WritePluginFile(ctx, "about-us/entry.js", "export default {}"))

	assert.Equal(t, []string{
		"/core/docker/stop?subdir=frontend",
		"/core/docker/stop-all?",
		"/core/plugin/new?path=about-us%2Fentry.js",
	}, calls)
}

// TestClient_APIError verifies the detail extraction from error bodies.
func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "string detail", status: 400, body: `{"detail":"No project uploaded"}`, want: "No project uploaded"},
		{name: "structured detail", status: 422, body: `{"detail":[{"loc":["query","path"], "msg":"field required"}]}`, want: `[{"loc":["query","path"],"msg":"field required"}]`},
		{name: "plain text body", status: 500, body: "boom\n", want: "boom"},
		{name: "empty body", status: 503, body: "", want: "Service Unavailable"},
		{name: "json without detail", status: 404, body: `{"error":"x"}`, want: `{"error":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Status(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Detail)
		})
	}
}

// TestIsNotFound checks the 404 helper.
func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.False(t, IsNotFound(&APIError{StatusCode: 500}))
	assert.False(t, IsNotFound(errors.New("x")))
}

// TestClient_Timeout verifies the per-request timeout.
func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// TestClient_UploadFolder verifies the multipart layout: one "files" part
// per file with the relative path as filename, then the root field.
func TestClient_UploadFolder(t *testing.T) {
	type part struct{ field, filename, content string }
	var parts []part

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/core/upload-folder", r.URL.Path)
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			// Part.FileName() strips directories, so read the raw header.
			_, cd, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
			require.NoError(t, err)
			data, _ := io.ReadAll(p)
			parts = append(parts, part{field: cd["name"], filename: cd["filename"], content: string(data)})
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	files := []UploadFile{
		{Name: "shop/frontend/package.json", Open: stringOpener(`{"name":"web"}`)},
		{Name: "shop/backend/server.js", Open: stringOpener("listen(8088)")},
	}

	var lastProgress atomic.Int64
	err := c.UploadFolder(context.Background(), "core_project", files, func(sent int64) {
		lastProgress.Store(sent)
	})
	require.NoError(t, err)

	require.Len(t, parts, 3)
	assert.Equal(t, part{"files", "shop/frontend/package.json", `{"name":"web"}`}, parts[0])
	assert.Equal(t, part{"files", "shop/backend/server.js", "listen(8088)"}, parts[1])
	assert.Equal(t, part{"root", "", "core_project"}, parts[2])
	assert.Greater(t, lastProgress.Load(), int64(0))
}

// TestClient_UploadFolder_OpenError verifies that a file that cannot be
// opened aborts the upload with an error.
func TestClient_UploadFolder_OpenError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	files := []UploadFile{{
		Name: "p/a.txt",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
	}}
	err := c.UploadFolder(context.Background(), "core_project", files, nil)
	assert.Error(t, err)
}

// TestClient_UploadFolder_NoFiles verifies that an empty upload is refused locally.
func TestClient_UploadFolder_NoFiles(t *testing.T) {
	c, err := NewClient("http://localhost:1")
	require.NoError(t, err)
	assert.Error(t, c.UploadFolder(context.Background(), "core_project", nil, nil))
}

func stringOpener(s string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}
