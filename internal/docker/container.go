package docker

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"

	"github.com/shinji-kodama/coredeck/internal/model"
)

// shortIDLen matches the ID length printed by "docker ps".
const shortIDLen = 12

// ContainerLister is the part of the Docker API used to list containers.
// *Client satisfies it; tests use a stub.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// ContainerList lists containers through the wrapped SDK client.
func (c *Client) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	return c.inner.ContainerList(ctx, options)
}

// ListProjectContainers returns the running containers that carry
// labelKey, keyed by subdirectory and ordered by container name.
// When two containers claim the same subdirectory the first by name wins.
func ListProjectContainers(ctx context.Context, lister ContainerLister, labelKey string) (*model.ContainersMap, error) {
	if labelKey == "" {
		labelKey = DefaultSubdirLabel
	}

	summaries, err := lister.ContainerList(ctx, container.ListOptions{
		Filters: FilterArgs(labelKey),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return containerName(summaries[i]) < containerName(summaries[j])
	})

	result := model.NewContainersMap()
	for _, s := range summaries {
		subdir, ok := SubdirFromLabels(s.Labels, labelKey)
		if !ok {
			continue
		}
		if _, exists := result.Get(subdir); exists {
			continue
		}
		result.Set(subdir, summaryToRecord(s))
	}
	return result, nil
}

// summaryToRecord converts a Docker API container summary to a
// ContainerRecord. This is a pure mapping function.
func summaryToRecord(s container.Summary) model.ContainerRecord {
	id := s.ID
	if len(id) > shortIDLen {
		id = id[:shortIDLen]
	}
	return model.ContainerRecord{
		ID:    id,
		Name:  containerName(s),
		Image: s.Image,
		Ports: FormatPorts(s.Ports),
	}
}

// containerName strips the leading "/" Docker puts on container names.
func containerName(s container.Summary) string {
	if len(s.Names) == 0 {
		return ""
	}
	return strings.TrimPrefix(s.Names[0], "/")
}

// FormatPorts renders TCP ports in the form "docker ps" prints:
// "<ip>:<public>-><private>/tcp" for published ports and "<private>" for
// exposed but unpublished ones. Ports are ordered by private port, and a
// binding reported for both IPv4 and IPv6 is listed once (IPv4 first).
// Non-TCP ports are omitted because no browsable URL can be derived from them.
func FormatPorts(ports []container.Port) []string {
	tcp := make([]container.Port, 0, len(ports))
	for _, p := range ports {
		if p.Type == "" || p.Type == "tcp" {
			tcp = append(tcp, p)
		}
	}
	sort.SliceStable(tcp, func(i, j int) bool {
		a, b := tcp[i], tcp[j]
		if a.PrivatePort != b.PrivatePort {
			return a.PrivatePort < b.PrivatePort
		}
		if a.PublicPort != b.PublicPort {
			return a.PublicPort < b.PublicPort
		}
		return a.IP < b.IP
	})

	out := make([]string, 0, len(tcp))
	seen := make(map[string]bool)
	for _, p := range tcp {
		key := fmt.Sprintf("%d/%d", p.PublicPort, p.PrivatePort)
		if seen[key] {
			continue
		}
		seen[key] = true

		if p.PublicPort == 0 {
			out = append(out, strconv.Itoa(int(p.PrivatePort)))
			continue
		}
		ip := p.IP
		if ip == "" {
			ip = "0.0.0.0"
		}
		if strings.Contains(ip, ":") {
			ip = "[" + ip + "]"
		}
		out = append(out, fmt.Sprintf("%s:%d->%d/tcp", ip, p.PublicPort, p.PrivatePort))
	}
	return out
}
