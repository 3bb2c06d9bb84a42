package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Status is the backend's view of the uploaded core project, as returned
// by GET /core/status. Optional fields are pointers so that an explicit
// JSON null and an absent key both decode to nil.
type Status struct {
	// JarPresent reports whether the core jar has been built or uploaded.
	JarPresent bool `json:"jar_present"`

	// ProjectPresent reports whether a project folder has been uploaded.
	// The controller clears all container-related state when this is false.
	ProjectPresent bool `json:"project_present"`

	// Running reports whether the core process is currently running.
	Running bool `json:"running"`

	PID     *int           `json:"pid,omitempty"`
	JarPath *string        `json:"jar_path,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	AppURL  *string        `json:"app_url,omitempty"`
}

// ItemType distinguishes files from directories in a tree listing.
type ItemType string

const (
	// ItemFile marks a regular file that can be opened in the editor.
	ItemFile ItemType = "file"

	// ItemDir marks a directory that can be descended into.
	ItemDir ItemType = "dir"
)

// String returns the string representation of ItemType.
func (t ItemType) String() string {
	return string(t)
}

// IsValid checks whether the ItemType is one of the two known kinds.
func (t ItemType) IsValid() bool {
	return t == ItemFile || t == ItemDir
}

// TreeItem is a single entry in a directory listing.
type TreeItem struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Type ItemType `json:"type"`
}

// TreeListing is the response of GET /core/tree.
type TreeListing struct {
	// Cwd is the listed directory relative to the project root.
	// The empty string is the root itself.
	Cwd   string     `json:"cwd"`
	Items []TreeItem `json:"items"`
}

// ParentDir returns the directory one level above cwd, using the same
// slash-separated relative form the backend reports. The root has no
// parent and maps to itself.
//
//	ParentDir("src/components") → "src"
//	ParentDir("src")            → ""
//	ParentDir("")               → ""
func ParentDir(cwd string) string {
	idx := strings.LastIndex(cwd, "/")
	if idx < 0 {
		return ""
	}
	return cwd[:idx]
}

// FileContent is the response of GET /core/file.
type FileContent struct {
	Content string `json:"content"`
}

// NodeCandidates is the response of GET /core/node-candidates. Each entry
// is a subdirectory name the backend considers a plausible app root.
type NodeCandidates struct {
	Candidates []string `json:"candidates"`
}

// AppDescriptor describes one container the backend should start for a
// project subdirectory.
type AppDescriptor struct {
	// Subdir is the subdirectory key; it becomes the key of the running
	// container in ContainersMap.
	Subdir string `json:"subdir"`

	// Image is the container image reference (e.g., "node:18-alpine").
	Image string `json:"image"`

	// Env is injected into the container environment.
	Env map[string]string `json:"env"`

	// Ports holds "-p" style mappings such as "5000:3000".
	Ports []string `json:"ports"`
}

// StartRequest is the body of POST /core/docker/start-both.
type StartRequest struct {
	Apps []AppDescriptor `json:"apps"`
}

// ContainersResponse is the response of GET /core/docker/containers.
type ContainersResponse struct {
	Containers ContainersMap `json:"containers"`
}

// ResolvedURLs holds the externally browsable URLs derived from the
// running containers. Either field may be empty.
type ResolvedURLs struct {
	Frontend string `json:"frontendUrl,omitempty"`
	Backend  string `json:"backendUrl,omitempty"`
}

// IsEmpty reports whether neither URL could be resolved.
func (u ResolvedURLs) IsEmpty() bool {
	return u.Frontend == "" && u.Backend == ""
}

// PluginManifest is the manifest.json written for a browser plugin.
type PluginManifest struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Version     string   `json:"version"`
	Runtime     string   `json:"runtime"`
	Entry       string   `json:"entry"`
	Permissions []string `json:"permissions"`
}

// slugRegex restricts plugin slugs to a single safe path segment.
var slugRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateSlug checks if the given slug can be used as a plugin directory.
// It must be a single path segment so that "<slug>/manifest.json" cannot
// escape the plugin directory.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("plugin slug must not be empty")
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("invalid plugin slug %q: must be a single path segment of letters, digits, '.', '_' or '-'", slug)
	}
	return nil
}

// ExitCode defines the process exit codes returned by the CLI.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitBackendUnreachable indicates the backend could not be contacted.
	ExitBackendUnreachable ExitCode = 2

	// ExitBackendRejected indicates the backend answered with an error status.
	ExitBackendRejected ExitCode = 3

	// ExitPortConflict indicates a requested host port is already bound locally.
	ExitPortConflict ExitCode = 4

	// ExitDockerNotRunning indicates the local Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 5

	// ExitBusy indicates another operation was still in flight.
	ExitBusy ExitCode = 6

	// ExitNotFound indicates a named subdirectory or file does not exist.
	ExitNotFound ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
