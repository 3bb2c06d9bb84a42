package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/coredeck/internal/model"
)

type writeCall struct{ path, text string }

// recordingWriter records writes and optionally fails on a given path.
type recordingWriter struct {
	calls  []writeCall
	failOn string
}

func (w *recordingWriter) WritePluginFile(_ context.Context, path, text string) error {
	if path == w.failOn {
		return errors.New("backend rejected")
	}
	w.calls = append(w.calls, writeCall{path, text})
	return nil
}

type stubLister struct {
	listing *model.TreeListing
	err     error
	gotDir  string
}

func (l *stubLister) Tree(_ context.Context, dir string) (*model.TreeListing, error) {
	l.gotDir = dir
	return l.listing, l.err
}

// TestNewManifest verifies defaults and the title fallback.
func TestNewManifest(t *testing.T) {
	m := NewManifest(" about-us ", "  ")
	assert.Equal(t, model.PluginManifest{
		Name:        "about-us",
		Title:       "about-us",
		Version:     "1.0.0",
		Runtime:     "browser",
		Entry:       "entry.js",
		Permissions: []string{},
	}, m)

	assert.Equal(t, "About Us", NewManifest("about-us", "About Us").Title)
}

// TestMarshalManifest verifies the 2-space layout and the empty permissions array.
func TestMarshalManifest(t *testing.T) {
	text, err := MarshalManifest(NewManifest("demo", "Demo"))
	require.NoError(t, err)

	want := `{
  "name": "demo",
  "title": "Demo",
  "version": "1.0.0",
  "runtime": "browser",
  "entry": "entry.js",
  "permissions": []
}`
	assert.Equal(t, want, text)
}

// TestSave verifies that the manifest is written before the entry script.
func TestSave(t *testing.T) {
	w := &recordingWriter{}
	m, err := Save(context.Background(), w, "demo", "", "export default 1;")
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Title)

	require.Len(t, w.calls, 2)
	assert.Equal(t, "demo/manifest.json", w.calls[0].path)
	assert.Contains(t, w.calls[0].text, `"name": "demo"`)
	assert.Equal(t, writeCall{"demo/entry.js", "export default 1;"}, w.calls[1])
}

// TestSave_ManifestFailure verifies the entry script is not written when
// the manifest write fails.
func TestSave_ManifestFailure(t *testing.T) {
	w := &recordingWriter{failOn: "demo/manifest.json"}
	_, err := Save(context.Background(), w, "demo", "", "x")
	require.Error(t, err)
	assert.Empty(t, w.calls)
}

// TestSave_InvalidSlug verifies slug validation happens before any write.
func TestSave_InvalidSlug(t *testing.T) {
	for _, slug := range []string{"", "  ", "../etc", "a/b"} {
		t.Run(slug, func(t *testing.T) {
			w := &recordingWriter{}
			_, err := Save(context.Background(), w, slug, "", "x")
			assert.Error(t, err)
			assert.Empty(t, w.calls)
		})
	}
}

// TestList verifies that only directories are reported.
func TestList(t *testing.T) {
	l := &stubLister{listing: &model.TreeListing{
		Cwd: "ai_plugins",
		Items: []model.TreeItem{
			{Name: "about-us", Path: "ai_plugins/about-us", Type: model.ItemDir},
			{Name: "README.md", Path: "ai_plugins/README.md", Type: model.ItemFile},
			{Name: "chart", Path: "ai_plugins/chart", Type: model.ItemDir},
		},
	}}

	assert.Equal(t, []string{"about-us", "chart"}, List(context.Background(), l, ""))
	assert.Equal(t, DefaultDir, l.gotDir)
}

// TestList_Failure verifies that a failed listing yields an empty list.
func TestList_Failure(t *testing.T) {
	l := &stubLister{err: errors.New("404")}
	got := List(context.Background(), l, "plugins")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, "plugins", l.gotDir)
}

// TestTitleFromSlug verifies separator replacement.
func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "about us page", TitleFromSlug("about-us_page"))
	assert.Equal(t, "plain", TitleFromSlug("plain"))
}
