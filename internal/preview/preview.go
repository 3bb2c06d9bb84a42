// Package preview serves a local reverse proxy in front of the project's
// resolved frontend URL.
//
// The target is looked up on every request, so restarting containers on
// new host ports needs no proxy restart. Requests are forwarded with
// net/http/httputil.ReverseProxy, mounted in a fiber app through the
// adaptor middleware.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// DefaultListen is the address the preview listens on by default.
const DefaultListen = "127.0.0.1:7070"

// TargetPath reports the current upstream as JSON. It is answered by the
// proxy itself and never forwarded.
const TargetPath = "/_coredeck/target"

// TargetFunc returns the upstream base URL (e.g. "http://localhost:3000").
// An empty string means nothing is running yet.
type TargetFunc func(ctx context.Context) (string, error)

// Server is the preview proxy.
//
// Usage:
//
//	srv := preview.New(target)
//	go srv.Listen(preview.DefaultListen)
//	defer srv.Shutdown()
type Server struct {
	app    *fiber.App
	target TargetFunc
}

// New creates a Server that forwards to whatever target returns.
func New(target TargetFunc) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			AppName:               "coredeck preview",
		}),
		target: target,
	}
	s.app.Get(TargetPath, s.handleTarget)
	s.app.All("/*", s.handleProxy)
	return s
}

// App exposes the fiber app (used by tests through app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// resolve returns the parsed upstream or a fiber error carrying the
// status to answer with.
func (s *Server) resolve(c *fiber.Ctx) (*url.URL, error) {
	raw, err := s.target(c.UserContext())
	if err != nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable,
			fmt.Sprintf("cannot resolve the frontend URL: %v", err))
	}
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable,
			"No published ports detected yet")
	}
	remote, err := url.Parse(raw)
	if err != nil || remote.Host == "" {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable,
			fmt.Sprintf("invalid frontend URL %q", raw))
	}
	return remote, nil
}

func (s *Server) handleTarget(c *fiber.Ctx) error {
	remote, err := s.resolve(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"target": remote.String()})
}

func (s *Server) handleProxy(c *fiber.Ctx) error {
	remote, err := s.resolve(c)
	if err != nil {
		return err
	}

	proxy := httputil.NewSingleHostReverseProxy(remote)

	// Dev servers often reject unknown Host headers.
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = remote.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprintf(w, "preview upstream %s failed: %v", remote.Host, err)
	}

	return adaptor.HTTPHandler(proxy)(c)
}
