package docker

import (
	"strings"

	"github.com/docker/docker/api/types/filters"
)

const (
	// DefaultSubdirLabel is the label whose value names the project
	// subdirectory a container was started for.
	DefaultSubdirLabel = "coredeck.subdir"

	// LabelComposeService is set by Docker Compose on every service
	// container; it is the fallback key when the subdir label is empty.
	LabelComposeService = "com.docker.compose.service"
)

// FilterArgs builds the server-side filter selecting containers that
// carry labelKey, whatever its value.
func FilterArgs(labelKey string) filters.Args {
	return filters.NewArgs(filters.Arg("label", labelKey))
}

// SubdirFromLabels returns the subdirectory key of a container.
// A blank subdir label falls back to the Compose service name.
func SubdirFromLabels(labels map[string]string, labelKey string) (string, bool) {
	if v := strings.TrimSpace(labels[labelKey]); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(labels[LabelComposeService]); v != "" {
		return v, true
	}
	return "", false
}
