package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/coredeck/internal/config"
	"github.com/shinji-kodama/coredeck/internal/model"
)

// fakeBackend is an in-memory backend that records the requests it saw.
type fakeBackend struct {
	mu       sync.Mutex
	requests []string
	started  []model.AppDescriptor
	plugins  map[string]string

	// candidatesStatus, when set, is returned by the candidates endpoint.
	candidatesStatus int
}

func (f *fakeBackend) saw(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/core/status", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		_, _ = io.WriteString(w, `{"jar_present":false,"project_present":true,"running":false}`)
	})
	mux.HandleFunc("/core/node-candidates", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		if f.candidatesStatus != 0 {
			w.WriteHeader(f.candidatesStatus)
			_, _ = io.WriteString(w, `{"detail":"no project"}`)
			return
		}
		_, _ = io.WriteString(w, `{"candidates":["web-frontend","api-server"]}`)
	})
	mux.HandleFunc("/core/docker/start-both", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		var req model.StartRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.started = req.Apps
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	mux.HandleFunc("/core/docker/containers", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		_, _ = io.WriteString(w, `{"containers":{"web-frontend":{"id":"a1","name":"shop-web","ports":["5000:3000"]}}}`)
	})
	mux.HandleFunc("/core/docker/stop", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		if r.URL.Query().Get("subdir") != "web-frontend" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"no such container"}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	mux.HandleFunc("/core/plugin/new", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.plugins[r.URL.Query().Get("path")] = string(body)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	mux.HandleFunc("/core/tree", func(w http.ResponseWriter, r *http.Request) {
		f.saw(r)
		_, _ = io.WriteString(w, `{"cwd":"ai_plugins","items":[{"name":"demo","path":"ai_plugins/demo","type":"dir"}]}`)
	})
	return mux
}

// runRoot executes the root command against a fresh fake backend.
func runRoot(t *testing.T, args ...string) (*fakeBackend, error) {
	t.Helper()
	f := &fakeBackend{plugins: map[string]string{}}
	return f, runRootAgainst(t, f, args...)
}

// runRootAgainst executes the root command against f.
func runRootAgainst(t *testing.T, f *fakeBackend, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvAPI, "")

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	root := NewRootCommand()
	root.SetArgs(append([]string{"--api", srv.URL}, args...))
	root.SetIn(strings.NewReader(""))
	return root.Execute()
}

// TestStartCommand verifies guessed subdirs and port flags reach the
// start request.
func TestStartCommand(t *testing.T) {
	f, err := runRoot(t, "start", "--front-port", "5000", "--back-port", "")
	require.NoError(t, err)

	require.Len(t, f.started, 2)
	assert.Equal(t, "web-frontend", f.started[0].Subdir)
	assert.Equal(t, []string{"5000:3000"}, f.started[0].Ports)
	assert.Equal(t, "api-server", f.started[1].Subdir)
	assert.Equal(t, []string{"8088:8088"}, f.started[1].Ports)
	assert.Contains(t, f.requests, "GET /core/docker/containers")
}

// TestStartCommand_SkipRole verifies "-" leaves a role out.
func TestStartCommand_SkipRole(t *testing.T) {
	f, err := runRoot(t, "start", "--back", "-")
	require.NoError(t, err)
	require.Len(t, f.started, 1)
	assert.Equal(t, "web-frontend", f.started[0].Subdir)
	assert.Equal(t, []string{"3000:3000"}, f.started[0].Ports)
}

// TestStartCommand_CandidatesUnavailable verifies a failing candidates
// endpoint does not block a start whose subdirs are all given.
func TestStartCommand_CandidatesUnavailable(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		askCandidates bool
		wantSubdirs   []string
	}{
		{
			name:        "both subdirs given",
			args:        []string{"start", "--front", "web", "--back", "api"},
			wantSubdirs: []string{"web", "api"},
		},
		{
			name:          "backend guessed",
			args:          []string{"start", "--front", "web"},
			askCandidates: true,
			wantSubdirs:   []string{"web"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeBackend{plugins: map[string]string{}, candidatesStatus: http.StatusInternalServerError}
			require.NoError(t, runRootAgainst(t, f, tt.args...))

			var subdirs []string
			for _, app := range f.started {
				subdirs = append(subdirs, app.Subdir)
			}
			assert.Equal(t, tt.wantSubdirs, subdirs)
			assert.Equal(t, tt.askCandidates, slices.Contains(f.requests, "GET /core/node-candidates"))
		})
	}
}

// TestStartCommand_CandidatesUnavailablePorts verifies the flag subdirs get
// their default port mappings.
func TestStartCommand_CandidatesUnavailablePorts(t *testing.T) {
	f := &fakeBackend{plugins: map[string]string{}, candidatesStatus: http.StatusInternalServerError}
	require.NoError(t, runRootAgainst(t, f, "start", "--front", "web", "--back", "api"))

	require.Len(t, f.started, 2)
	assert.Equal(t, []string{"3000:3000"}, f.started[0].Ports)
	assert.Equal(t, []string{"8088:8088"}, f.started[1].Ports)
}

// TestURLsCommand_CandidatesUnavailable verifies urls still resolves from
// the containers when the candidates endpoint fails.
func TestURLsCommand_CandidatesUnavailable(t *testing.T) {
	f := &fakeBackend{plugins: map[string]string{}, candidatesStatus: http.StatusInternalServerError}
	require.NoError(t, runRootAgainst(t, f, "urls"))
	assert.Contains(t, f.requests, "GET /core/docker/containers")
}

// TestStopCommand_NotFound verifies a 404 maps to the not-found exit code.
func TestStopCommand_NotFound(t *testing.T) {
	_, err := runRoot(t, "stop", "missing")
	require.Error(t, err)
	assert.Equal(t, model.ExitNotFound, ExitCodeFor(err))
}

// TestStopAllCommand_Declined verifies nothing is stopped without a yes.
func TestStopAllCommand_Declined(t *testing.T) {
	f, err := runRoot(t, "stop-all")
	require.NoError(t, err)
	assert.Empty(t, f.requests)
}

// TestPluginNewCommand verifies the manifest and the entry script are
// both written.
func TestPluginNewCommand(t *testing.T) {
	entry := filepath.Join(t.TempDir(), "entry.js")
	require.NoError(t, os.WriteFile(entry, []byte("export default 1;"), 0o644))

	f, err := runRoot(t, "plugin", "new", "demo", "--title", "Demo", "--entry", entry)
	require.NoError(t, err)

	assert.Contains(t, f.plugins["demo/manifest.json"], `"title": "Demo"`)
	assert.Equal(t, "export default 1;", f.plugins["demo/entry.js"])
}

// TestContainersCommand_BadSource verifies the source flag is validated.
func TestContainersCommand_BadSource(t *testing.T) {
	_, err := runRoot(t, "containers", "--source", "podman")
	require.Error(t, err)
	assert.Equal(t, model.ExitGeneralError, ExitCodeFor(err))
}

// TestUploadCommand_NeedsOneSource verifies a folder and --git are
// mutually exclusive.
func TestUploadCommand_NeedsOneSource(t *testing.T) {
	_, err := runRoot(t, "upload")
	assert.Error(t, err)

	_, err = runRoot(t, "upload", t.TempDir(), "--git", "https://example.com/acme/shop.git")
	assert.Error(t, err)
}

// TestUnreachableBackend verifies transport failures map to their exit code.
func TestUnreachableBackend(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.EnvAPI, "")

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	root := NewRootCommand()
	root.SetArgs([]string{"--api", addr, "status"})
	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, model.ExitBackendUnreachable, ExitCodeFor(err))
}
