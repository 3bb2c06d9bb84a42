// Package plugin creates and lists the browser plugins stored in the
// backend's plugin directory.
//
// A plugin is a directory "<slug>/" holding a manifest.json and an entry.js.
// Both files are written through the backend's plugin endpoint.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shinji-kodama/coredeck/internal/model"
)

const (
	// DefaultDir is the project-relative directory that holds plugins.
	DefaultDir = "ai_plugins"

	// ManifestFile is the manifest file name inside a plugin directory.
	ManifestFile = "manifest.json"

	// EntryFile is the script file name inside a plugin directory.
	EntryFile = "entry.js"

	defaultVersion = "1.0.0"
	defaultRuntime = "browser"
)

// Writer stores one plugin file at "<slug>/<file>".
// *api.Client satisfies this interface.
type Writer interface {
	WritePluginFile(ctx context.Context, path, text string) error
}

// Lister lists a project directory.
// *api.Client satisfies this interface.
type Lister interface {
	Tree(ctx context.Context, dir string) (*model.TreeListing, error)
}

// NewManifest builds the manifest for slug. An empty title falls back to the slug.
func NewManifest(slug, title string) model.PluginManifest {
	slug = strings.TrimSpace(slug)
	title = strings.TrimSpace(title)
	if title == "" {
		title = slug
	}
	return model.PluginManifest{
		Name:        slug,
		Title:       title,
		Version:     defaultVersion,
		Runtime:     defaultRuntime,
		Entry:       EntryFile,
		Permissions: []string{},
	}
}

// MarshalManifest renders m as 2-space indented JSON.
func MarshalManifest(m model.PluginManifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode plugin manifest: %w", err)
	}
	return string(data), nil
}

// Save writes the manifest and then the entry script of a plugin.
// The second write is only attempted once the first has succeeded.
func Save(ctx context.Context, w Writer, slug, title, entryCode string) (model.PluginManifest, error) {
	slug = strings.TrimSpace(slug)
	if err := model.ValidateSlug(slug); err != nil {
		return model.PluginManifest{}, err
	}

	manifest := NewManifest(slug, title)
	text, err := MarshalManifest(manifest)
	if err != nil {
		return model.PluginManifest{}, err
	}

	if err := w.WritePluginFile(ctx, slug+"/"+ManifestFile, text); err != nil {
		return model.PluginManifest{}, fmt.Errorf("failed to write %s/%s: %w", slug, ManifestFile, err)
	}
	if err := w.WritePluginFile(ctx, slug+"/"+EntryFile, entryCode); err != nil {
		return model.PluginManifest{}, fmt.Errorf("failed to write %s/%s: %w", slug, EntryFile, err)
	}
	return manifest, nil
}

// List returns the plugin slugs found under dir, in listing order.
// A missing directory or a failed listing yields an empty list.
func List(ctx context.Context, l Lister, dir string) []string {
	if dir == "" {
		dir = DefaultDir
	}
	listing, err := l.Tree(ctx, dir)
	if err != nil || listing == nil {
		return []string{}
	}

	slugs := make([]string, 0, len(listing.Items))
	for _, item := range listing.Items {
		if item.Type == model.ItemDir {
			slugs = append(slugs, item.Name)
		}
	}
	return slugs
}

// TitleFromSlug derives a display title for an existing plugin.
//
//	TitleFromSlug("about-us_page") → "about us page"
func TitleFromSlug(slug string) string {
	return strings.NewReplacer("-", " ", "_", " ").Replace(slug)
}
