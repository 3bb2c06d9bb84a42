package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// TestDefault verifies the built-in settings.
func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8000", cfg.API)
	assert.Equal(t, "core_project", cfg.UploadRoot)
	assert.Equal(t, "node:18-alpine", cfg.Image)
	assert.Equal(t, "3000", cfg.FrontHostPort)
	assert.Equal(t, "8088", cfg.BackHostPort)
	assert.Equal(t, "ai_plugins", cfg.PluginDir)
	assert.Equal(t, "coredeck.subdir", cfg.ProjectLabel)
	assert.NoError(t, cfg.Validate())
}

// TestLoadFile_JSONC verifies comments and trailing commas are accepted and
// unset fields keep their defaults.
func TestLoadFile_JSONC(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.jsonc", `{
  // remote backend
  "api": "https://core.example.com",
  "frontHostPort": "5000", /* dev server */
  "requestTimeout": "2m",
}`)

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "https://core.example.com", cfg.API)
	assert.Equal(t, "5000", cfg.FrontHostPort)
	assert.Equal(t, "8088", cfg.BackHostPort)
	assert.Equal(t, "core_project", cfg.UploadRoot)
	assert.Equal(t, p, cfg.Path)

	d, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
}

// TestLoadFile_YAML verifies the YAML format and empty-string fallbacks.
func TestLoadFile_YAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", `
api: http://10.0.0.5:8000
image: node:20-alpine
pluginDir: ""
backHostPort: "9090"
`)

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.API)
	assert.Equal(t, "node:20-alpine", cfg.Image)
	assert.Equal(t, "ai_plugins", cfg.PluginDir)
	assert.Equal(t, "9090", cfg.BackHostPort)
}

// TestLoadFile_Errors verifies missing and malformed files.
func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, dir, "bad.json", `{"api": `))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, dir, "bad.yaml", "api: [unterminated"))
	assert.Error(t, err)
}

// TestLoad_Precedence verifies the default search location and the
// environment override.
func TestLoad_Precedence(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(EnvAPI, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.API)
	assert.Empty(t, cfg.Path)

	p := writeFile(t, filepath.Join(xdg, "coredeck"), "config.json", `{"api":"http://from-file:8000"}`)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8000", cfg.API)
	assert.Equal(t, p, cfg.Path)

	t.Setenv(EnvAPI, "http://from-env:8000")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8000", cfg.API)
}

// TestLoad_ExplicitPathMustExist verifies that --config fails loudly.
func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestFindFile verifies the search order.
func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, FindFile(dir))

	yml := writeFile(t, dir, "config.yml", "api: x")
	assert.Equal(t, yml, FindFile(dir))

	jsonc := writeFile(t, dir, "config.jsonc", "{}")
	assert.Equal(t, jsonc, FindFile(dir))
}

// TestValidate verifies rejected settings.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "non numeric front port", mutate: func(c *Config) { c.FrontHostPort = "abc" }},
		{name: "non numeric back port", mutate: func(c *Config) { c.BackHostPort = "80a" }},
		{name: "bad timeout", mutate: func(c *Config) { c.RequestTimeout = "soon" }},
		{name: "negative timeout", mutate: func(c *Config) { c.RequestTimeout = "-1s" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.FrontHostPort = ""
	assert.NoError(t, cfg.Validate())
}
