// Package config loads the coredeck settings file.
//
// Settings are read from a JSONC or YAML file. JSONC files may contain
// comments and trailing commas; github.com/tidwall/jsonc strips them before
// encoding/json parses the result. YAML files are parsed with gopkg.in/yaml.v3.
//
// Precedence, lowest to highest:
//
//	built-in defaults → settings file → COREDECK_API env → --api flag
//
// The flag is applied by the CLI layer after Load returns.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/coredeck/internal/api"
	"github.com/shinji-kodama/coredeck/internal/docker"
	"github.com/shinji-kodama/coredeck/internal/launch"
	"github.com/shinji-kodama/coredeck/internal/plugin"
)

const (
	// EnvAPI overrides the backend origin from the settings file.
	EnvAPI = "COREDECK_API"

	// DefaultUploadRoot is the backend folder uploads are written to.
	DefaultUploadRoot = "core_project"

	// DefaultProjectLabel is the container label holding the subdir key.
	DefaultProjectLabel = docker.DefaultSubdirLabel

	// DefaultTimeout bounds each non-upload backend request.
	DefaultTimeout = "30s"

	appDirName = "coredeck"
)

// fileNames lists the settings file names searched in the config
// directory, in priority order.
var fileNames = []string{"config.jsonc", "config.json", "config.yaml", "config.yml"}

var digitsRegex = regexp.MustCompile(`^\d*$`)

// Config holds the user settings. Zero fields in a settings file keep
// their defaults.
type Config struct {
	// API is the backend origin (e.g. "http://localhost:8000").
	API string `json:"api" yaml:"api"`

	// UploadRoot is the destination folder name sent with every upload.
	UploadRoot string `json:"uploadRoot" yaml:"uploadRoot"`

	// Image is the container image used by the start action.
	Image string `json:"image" yaml:"image"`

	// FrontHostPort and BackHostPort prefill the host port fields.
	FrontHostPort string `json:"frontHostPort" yaml:"frontHostPort"`
	BackHostPort  string `json:"backHostPort" yaml:"backHostPort"`

	// PluginDir is the project-relative plugin directory.
	PluginDir string `json:"pluginDir" yaml:"pluginDir"`

	// ProjectLabel is the Docker label read by "containers --source docker".
	ProjectLabel string `json:"projectLabel" yaml:"projectLabel"`

	// RequestTimeout is a Go duration string ("30s", "2m").
	RequestTimeout string `json:"requestTimeout" yaml:"requestTimeout"`

	// Path is the file the settings were loaded from, empty for defaults.
	Path string `json:"-" yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		API:            api.DefaultOrigin,
		UploadRoot:     DefaultUploadRoot,
		Image:          launch.DefaultImage,
		FrontHostPort:  "3000",
		BackHostPort:   "8088",
		PluginDir:      plugin.DefaultDir,
		ProjectLabel:   DefaultProjectLabel,
		RequestTimeout: DefaultTimeout,
	}
}

// Dir returns the directory searched for a settings file:
// $XDG_CONFIG_HOME/coredeck, falling back to the OS user config dir.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// FindFile returns the first settings file present in dir, or "" when
// there is none.
func FindFile(dir string) string {
	for _, name := range fileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load builds the effective settings. An explicit path must exist; without
// one the default directory is searched and a missing file means defaults.
// The COREDECK_API environment variable is applied last.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		dir, err := Dir()
		if err == nil {
			path = FindFile(dir)
		}
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one settings file on top of the defaults. The format is
// chosen by extension: .yaml/.yml are YAML, anything else is JSONC.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.Path = path
	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. getenv is os.Getenv
// outside of tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPI)); v != "" {
		c.API = v
	}
}

// fillDefaults restores defaults for fields a file set to empty strings.
func (c *Config) fillDefaults() {
	def := Default()
	if c.API == "" {
		c.API = def.API
	}
	if c.UploadRoot == "" {
		c.UploadRoot = def.UploadRoot
	}
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.PluginDir == "" {
		c.PluginDir = def.PluginDir
	}
	if c.ProjectLabel == "" {
		c.ProjectLabel = def.ProjectLabel
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = def.RequestTimeout
	}
}

// Validate checks the settings that cannot be checked later at use time.
func (c *Config) Validate() error {
	if !digitsRegex.MatchString(c.FrontHostPort) {
		return fmt.Errorf("invalid frontHostPort %q: must be digits", c.FrontHostPort)
	}
	if !digitsRegex.MatchString(c.BackHostPort) {
		return fmt.Errorf("invalid backHostPort %q: must be digits", c.BackHostPort)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout returns RequestTimeout parsed as a duration.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout %q: %w", c.RequestTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid requestTimeout %q: must not be negative", c.RequestTimeout)
	}
	return d, nil
}
