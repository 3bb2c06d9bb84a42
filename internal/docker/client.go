package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/coredeck/internal/model"
)

const (
	// defaultPingTimeout bounds the daemon check made before
	// "containers --source docker" lists anything. A paused Docker Desktop
	// would otherwise hang the command.
	defaultPingTimeout = 5 * time.Second

	// pipeDialTimeout bounds the probe of the Windows named pipe.
	pipeDialTimeout = 1 * time.Second

	// windowsPipe is the named pipe Docker Desktop listens on.
	windowsPipe = `//./pipe/docker_engine`
)

// Client is the read-only view of the local Docker daemon used when the
// backend runs on this machine and its containers are read directly.
//
// It only lists containers, filtered by the subdir label the backend sets
// on the apps it starts. Starting and stopping stay with the backend.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* ExitDockerNotRunning */ }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { /* daemon not answering */ }
//	containers, err := docker.ListProjectContainers(ctx, c, label)
type Client struct {
	// inner is the SDK client. It is wrapped so the rest of coredeck only
	// sees ContainerList.
	inner *client.Client

	// host is the daemon address the client was built for, e.g.
	// "unix:///var/run/docker.sock". It is reported in verbose output.
	host string
}

// NewClient creates a Client for the local daemon.
//
// The daemon address is chosen in this order:
//  1. DOCKER_HOST, used as-is when set
//  2. the platform default:
//     - Linux: /var/run/docker.sock
//     - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//     - Windows: npipe:////./pipe/docker_engine
//
// No connection is made here. Call Ping to check the daemon answers.
//
// Returns a model.CLIError with ExitDockerNotRunning when no socket is
// found or the SDK client cannot be built.
func NewClient() (*Client, error) {
	// Step 1: an explicit DOCKER_HOST wins, including remote daemons and
	// rootless sockets the defaults below do not know about.
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		return newClientWithHost(dockerHost)
	}

	// Step 2: probe the sockets Docker installs by default.
	host, err := detectDockerHost()
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker socket not found",
			err,
		)
	}

	return newClientWithHost(host)
}

// newClientWithHost builds the SDK client for host, a Docker connection
// string such as "unix:///var/run/docker.sock" or
// "npipe:////./pipe/docker_engine".
//
// API version negotiation is on, so the client talks to whatever daemon
// version is installed next to the backend.
func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}

	return &Client{inner: c, host: host}, nil
}

// detectDockerHost returns the daemon address for the current platform.
//
// Only existence is checked: a socket file can outlive its daemon, and
// Ping is what reports a stopped daemon.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Docker Desktop may skip the /var/run symlink and only create the
		// per-user socket under ~/.docker/run.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// Named pipes cannot be stat'ed, so probe with a short dial.
		conn, err := net.DialTimeout("pipe", windowsPipe, pipeDialTimeout)
		if err == nil {
			_ = conn.Close()
			return "npipe://" + windowsPipe, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", windowsPipe, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the "unix://" address of the first path that
// exists. Paths are checked in order, most preferred first.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf(
		"Docker socket not found at any of: %v (is Docker running?)",
		paths,
	)
}

// Ping checks that the daemon answers within defaultPingTimeout.
//
// Returns a model.CLIError with ExitDockerNotRunning when it does not.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("Docker daemon at %s is not responding (is Docker running?)", c.host),
			err,
		)
	}
	return nil
}

// Host returns the daemon address the client was built for.
func (c *Client) Host() string {
	return c.host
}

// Close releases the SDK client's connections.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}
