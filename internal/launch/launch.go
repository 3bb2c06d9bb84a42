// Package launch turns the user's subdirectory and host-port choices into
// the app descriptors sent to the backend's start endpoint.
//
// The rules are name heuristics: a subdirectory that looks like a backend
// ("back", "api", "server") listens on 8088 inside its container, and
// anything else on 3000. The host port typed by the user is published
// onto that container port.
package launch

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/shinji-kodama/coredeck/internal/model"
)

const (
	// DefaultImage runs the Node.js apps the backend detects.
	DefaultImage = "node:18-alpine"

	// FrontendContainerPort is the container port of a frontend app (CRA default).
	FrontendContainerPort = 3000

	// BackendContainerPort is the container port of a backend app.
	BackendContainerPort = 8088
)

var (
	frontendRegex = regexp.MustCompile(`(?i)front|web|ui|app`)
	backendRegex  = regexp.MustCompile(`(?i)back|api|server`)
	digitsRegex   = regexp.MustCompile(`^\d+$`)
)

// LooksLikeFrontend reports whether a subdirectory name suggests a frontend.
func LooksLikeFrontend(subdir string) bool {
	return frontendRegex.MatchString(subdir)
}

// LooksLikeBackend reports whether a subdirectory name suggests a backend.
func LooksLikeBackend(subdir string) bool {
	return backendRegex.MatchString(subdir)
}

// GuessSubdirs picks the frontend and backend subdirectories from the
// backend's node candidates.
//
// The frontend is the first candidate that looks like one, else the first
// candidate. The backend is the first candidate that looks like one, else
// the second candidate, else empty. Both may name the same candidate.
func GuessSubdirs(candidates []string) (front, back string) {
	for _, c := range candidates {
		if LooksLikeFrontend(c) {
			front = c
			break
		}
	}
	if front == "" && len(candidates) > 0 {
		front = candidates[0]
	}

	for _, c := range candidates {
		if LooksLikeBackend(c) {
			back = c
			break
		}
	}
	if back == "" && len(candidates) > 1 {
		back = candidates[1]
	}
	return front, back
}

// ContainerPortFor returns the port an app in subdir listens on.
// A frontend-looking name wins over a backend-looking one
// (e.g. "web-api" → 3000).
func ContainerPortFor(subdir string) int {
	containerPort := FrontendContainerPort
	if LooksLikeBackend(subdir) {
		containerPort = BackendContainerPort
	}
	if LooksLikeFrontend(subdir) {
		containerPort = FrontendContainerPort
	}
	return containerPort
}

// Target is one subdirectory the user wants started.
type Target struct {
	// Subdir is the project subdirectory; empty targets are skipped.
	Subdir string

	// HostPort is the host port as typed by the user. A value that is not
	// all digits (including empty) publishes the container port as-is.
	HostPort string
}

// BuildApp returns the descriptor for a single target.
func BuildApp(t Target, image string) (model.AppDescriptor, error) {
	if image == "" {
		image = DefaultImage
	}
	containerPort := ContainerPortFor(t.Subdir)
	cp := strconv.Itoa(containerPort)

	mapping := cp + ":" + cp
	if digitsRegex.MatchString(t.HostPort) {
		mapping = t.HostPort + ":" + cp
	}
	if err := validateMapping(mapping); err != nil {
		return model.AppDescriptor{}, fmt.Errorf("subdir %q: %w", t.Subdir, err)
	}

	return model.AppDescriptor{
		Subdir: t.Subdir,
		Image:  image,
		Env: map[string]string{
			"HOST": "0.0.0.0",
			"PORT": cp,
		},
		Ports: []string{mapping},
	}, nil
}

// BuildApps returns one descriptor per non-empty target, in order.
// It fails when no target names a subdirectory.
func BuildApps(targets []Target, image string) ([]model.AppDescriptor, error) {
	apps := make([]model.AppDescriptor, 0, len(targets))
	for _, t := range targets {
		if t.Subdir == "" {
			continue
		}
		app, err := BuildApp(t, image)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("no subdirs selected: upload a project or set the frontend/backend subdir")
	}
	return apps, nil
}

// validateMapping checks a "host:container" spec with the same parser the
// Docker CLI uses for -p, and rejects host ports outside 1-65535.
func validateMapping(mapping string) error {
	specs, err := nat.ParsePortSpec(mapping)
	if err != nil {
		return fmt.Errorf("invalid port mapping %q: %w", mapping, err)
	}
	for _, s := range specs {
		if s.Binding.HostPort == "" {
			continue
		}
		hp, err := strconv.Atoi(s.Binding.HostPort)
		if err != nil || hp < 1 || hp > 65535 {
			return fmt.Errorf("invalid port mapping %q: host port out of range (1-65535)", mapping)
		}
	}
	return nil
}
