// Package controller owns the state of the coredeck control surface and
// the named operations that change it.
//
// Every user-triggered sequence (refresh, upload, start, ...) acquires the
// Guard first and releases it in a deferred call, so a second trigger while
// one is in flight fails with ErrBusy and the guard is released on every
// exit path. Inside a sequence the backend calls are awaited one after
// another. There is no background polling.
//
// State is guarded by a mutex so the TUI can render a Snapshot while a
// sequence runs on another goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shinji-kodama/coredeck/internal/api"
	"github.com/shinji-kodama/coredeck/internal/launch"
	"github.com/shinji-kodama/coredeck/internal/model"
	"github.com/shinji-kodama/coredeck/internal/plugin"
	"github.com/shinji-kodama/coredeck/internal/port"
)

// ErrNoFileOpen is returned by SaveFile when the editor holds no file.
var ErrNoFileOpen = errors.New("no file is open")

// Backend is the subset of the backend API the controller drives.
// *api.Client satisfies it.
type Backend interface {
	Status(ctx context.Context) (*model.Status, error)
	Tree(ctx context.Context, dir string) (*model.TreeListing, error)
	ReadFile(ctx context.Context, path string) (string, error)
	SaveFile(ctx context.Context, path, text string) error
	UploadFolder(ctx context.Context, root string, files []api.UploadFile, progress api.ProgressFunc) error
	NodeCandidates(ctx context.Context) ([]string, error)
	StartApps(ctx context.Context, apps []model.AppDescriptor) error
	Containers(ctx context.Context) (*model.ContainersMap, error)
	Stop(ctx context.Context, subdir string) error
	StopAll(ctx context.Context) error
	WritePluginFile(ctx context.Context, path, text string) error
}

// PortChecker reports host ports in mappings that are already bound
// locally. *port.Scanner satisfies it.
type PortChecker interface {
	Conflicts(mappings []string) []int
}

// PortSuggester is implemented by PortCheckers that can propose a free
// host port in place of a conflicting one. *port.Allocator satisfies it.
type PortSuggester interface {
	Suggest(port int, taken []int) (int, error)
}

// Options configures a Controller.
type Options struct {
	// UploadRoot is the backend destination folder for uploads.
	UploadRoot string

	// Image is the container image used by Start.
	Image string

	// PluginDir is the project-relative plugin directory.
	PluginDir string

	// FrontHostPort and BackHostPort are the initial host port fields.
	FrontHostPort string
	BackHostPort  string

	// PortChecker, when set, makes Start refuse host ports already bound
	// on this machine.
	PortChecker PortChecker
}

// Controller owns the control surface state.
type Controller struct {
	backend Backend
	opts    Options
	guard   Guard

	mu    sync.Mutex
	state State
}

// New creates a Controller over backend.
func New(backend Backend, opts Options) *Controller {
	if opts.UploadRoot == "" {
		opts.UploadRoot = "core_project"
	}
	if opts.Image == "" {
		opts.Image = launch.DefaultImage
	}
	if opts.PluginDir == "" {
		opts.PluginDir = plugin.DefaultDir
	}
	return &Controller{
		backend: backend,
		opts:    opts,
		state: State{
			FrontHostPort: opts.FrontHostPort,
			BackHostPort:  opts.BackHostPort,
			Containers:    model.NewContainersMap(),
		},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state.clone()
	s.Busy = c.guard.State() == InFlight
	return s
}

// Busy reports whether a sequence is in flight.
func (c *Controller) Busy() bool {
	return c.guard.State() == InFlight
}

// begin acquires the guard for op. The caller must defer the release.
func (c *Controller) begin(op string) (func(), error) {
	release, err := c.guard.Acquire(op)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitBusy, "cannot run "+op, err)
	}
	return release, nil
}

// update applies fn to the state under the lock.
func (c *Controller) update(fn func(s *State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// finish records the outcome of an operation in the notice line and
// returns err unchanged.
func (c *Controller) finish(success string, err error) error {
	c.update(func(s *State) {
		if err != nil {
			s.Notice = err.Error()
		} else {
			s.Notice = success
		}
	})
	return err
}

// resolveLocked recomputes the URLs. c.mu must be held.
func (s *State) resolveLocked() {
	s.URLs = port.ResolveURLs(s.Containers, s.FrontSubdir, s.BackSubdir)
}

// clearContainersLocked drops everything derived from running containers.
func (s *State) clearContainersLocked() {
	s.Containers = model.NewContainersMap()
	s.URLs = model.ResolvedURLs{}
}

// Refresh fetches the project status. When no project is present the
// candidates, guesses, containers and URLs are cleared.
func (c *Controller) Refresh(ctx context.Context) error {
	release, err := c.begin("refresh")
	if err != nil {
		return err
	}
	defer release()
	return c.finish("status refreshed", c.refresh(ctx))
}

func (c *Controller) refresh(ctx context.Context) error {
	st, err := c.backend.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}
	c.update(func(s *State) {
		s.Status = st
		if !st.ProjectPresent {
			s.Candidates = nil
			s.FrontSubdir = ""
			s.BackSubdir = ""
			s.clearContainersLocked()
		}
	})
	return nil
}

// LoadTree lists dir ("" is the project root).
func (c *Controller) LoadTree(ctx context.Context, dir string) error {
	release, err := c.begin("tree")
	if err != nil {
		return err
	}
	defer release()
	return c.finish("", c.loadTree(ctx, dir))
}

func (c *Controller) loadTree(ctx context.Context, dir string) error {
	listing, err := c.backend.Tree(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to list %q: %w", dir, err)
	}
	c.update(func(s *State) {
		s.Cwd = listing.Cwd
		s.Items = listing.Items
	})
	return nil
}

// NavigateUp lists the parent of the current directory.
func (c *Controller) NavigateUp(ctx context.Context) error {
	c.mu.Lock()
	parent := model.ParentDir(c.state.Cwd)
	c.mu.Unlock()
	return c.LoadTree(ctx, parent)
}

// OpenFile loads path into the editor buffer and clears the dirty flag.
func (c *Controller) OpenFile(ctx context.Context, path string) error {
	release, err := c.begin("open")
	if err != nil {
		return err
	}
	defer release()

	content, err := c.backend.ReadFile(ctx, path)
	if err != nil {
		return c.finish("", fmt.Errorf("failed to open %s: %w", path, err))
	}
	c.update(func(s *State) {
		s.OpenPath = path
		s.Buffer = content
		s.Dirty = false
	})
	return c.finish("opened "+path, nil)
}

// Edit replaces the editor buffer and marks it dirty.
func (c *Controller) Edit(text string) {
	c.update(func(s *State) {
		s.Buffer = text
		s.Dirty = true
	})
}

// SaveFile writes the editor buffer back to the open file.
func (c *Controller) SaveFile(ctx context.Context) error {
	release, err := c.begin("save")
	if err != nil {
		return err
	}
	defer release()

	c.mu.Lock()
	path, text := c.state.OpenPath, c.state.Buffer
	c.mu.Unlock()
	if path == "" {
		return c.finish("", ErrNoFileOpen)
	}

	if err := c.backend.SaveFile(ctx, path, text); err != nil {
		return c.finish("", fmt.Errorf("failed to save %s: %w", path, err))
	}
	c.update(func(s *State) {
		// Keep the flag if the buffer changed while saving.
		if s.OpenPath == path && s.Buffer == text {
			s.Dirty = false
		}
	})
	return c.finish("saved "+path, nil)
}

// UploadFolder uploads files and then refreshes the status, the root
// listing, the node candidates and the containers, in that order.
// totalBytes is only used for progress display and may be 0.
func (c *Controller) UploadFolder(ctx context.Context, files []api.UploadFile, totalBytes int64) error {
	release, err := c.begin("upload")
	if err != nil {
		return err
	}
	defer release()

	c.update(func(s *State) {
		s.UploadSent = 0
		s.UploadTotal = totalBytes
		s.Notice = fmt.Sprintf("uploading %d files...", len(files))
	})

	err = c.backend.UploadFolder(ctx, c.opts.UploadRoot, files, func(sent int64) {
		c.update(func(s *State) { s.UploadSent = sent })
	})
	if err != nil {
		return c.finish("", fmt.Errorf("upload failed: %w", err))
	}

	// Each follow-up runs even if an earlier one failed.
	err = errors.Join(
		c.refresh(ctx),
		c.loadTree(ctx, ""),
		c.loadNodeCandidates(ctx),
		c.listContainers(ctx),
	)
	return c.finish(fmt.Sprintf("uploaded %d files", len(files)), err)
}

// LoadNodeCandidates fetches the node app roots and guesses the frontend
// and backend subdirs from them. A subdir that is already set is kept.
func (c *Controller) LoadNodeCandidates(ctx context.Context) error {
	release, err := c.begin("candidates")
	if err != nil {
		return err
	}
	defer release()
	return c.finish("", c.loadNodeCandidates(ctx))
}

func (c *Controller) loadNodeCandidates(ctx context.Context) error {
	cands, err := c.backend.NodeCandidates(ctx)
	if err != nil {
		c.update(func(s *State) { s.Candidates = nil })
		return fmt.Errorf("failed to load node candidates: %w", err)
	}
	front, back := launch.GuessSubdirs(cands)
	c.update(func(s *State) {
		s.Candidates = cands
		if s.FrontSubdir == "" {
			s.FrontSubdir = front
		}
		if s.BackSubdir == "" {
			s.BackSubdir = back
		}
		s.resolveLocked()
	})
	return nil
}

// SetSubdirs overrides the frontend and backend subdir guesses and
// recomputes the URLs.
func (c *Controller) SetSubdirs(front, back string) {
	c.update(func(s *State) {
		s.FrontSubdir = strings.TrimSpace(front)
		s.BackSubdir = strings.TrimSpace(back)
		s.resolveLocked()
	})
}

// SetHostPorts sets the host port fields used by Start.
func (c *Controller) SetHostPorts(front, back string) {
	c.update(func(s *State) {
		s.FrontHostPort = strings.TrimSpace(front)
		s.BackHostPort = strings.TrimSpace(back)
	})
}

// ListContainers replaces the container listing and recomputes the URLs.
// On failure the listing and the URLs are cleared.
func (c *Controller) ListContainers(ctx context.Context) error {
	release, err := c.begin("containers")
	if err != nil {
		return err
	}
	defer release()
	return c.finish("", c.listContainers(ctx))
}

func (c *Controller) listContainers(ctx context.Context) error {
	containers, err := c.backend.Containers(ctx)
	if err != nil {
		c.update(func(s *State) { s.clearContainersLocked() })
		return fmt.Errorf("failed to list containers: %w", err)
	}
	if containers == nil {
		containers = model.NewContainersMap()
	}
	c.update(func(s *State) {
		s.Containers = containers
		s.resolveLocked()
	})
	return nil
}

// Start builds app descriptors from the current subdirs and host ports,
// asks the backend to start them and then lists the containers.
func (c *Controller) Start(ctx context.Context) error {
	release, err := c.begin("start")
	if err != nil {
		return err
	}
	defer release()

	c.mu.Lock()
	targets := []launch.Target{
		{Subdir: c.state.FrontSubdir, HostPort: c.state.FrontHostPort},
		{Subdir: c.state.BackSubdir, HostPort: c.state.BackHostPort},
	}
	c.mu.Unlock()
	// The same subdir guessed for both roles is started once.
	if targets[0].Subdir == targets[1].Subdir {
		targets = targets[:1]
	}

	apps, err := launch.BuildApps(targets, c.opts.Image)
	if err != nil {
		return c.finish("", model.WrapCLIError(model.ExitGeneralError, "cannot start", err))
	}

	if c.opts.PortChecker != nil {
		var mappings []string
		for _, app := range apps {
			mappings = append(mappings, app.Ports...)
		}
		if busy := c.opts.PortChecker.Conflicts(mappings); len(busy) > 0 {
			msg := fmt.Sprintf("host port(s) already in use: %s", joinInts(busy))
			if hint := suggestPorts(c.opts.PortChecker, busy); hint != "" {
				msg += " (free: " + hint + ")"
			}
			return c.finish("", model.NewCLIError(model.ExitPortConflict, msg))
		}
	}

	if err := c.backend.StartApps(ctx, apps); err != nil {
		return c.finish("", fmt.Errorf("failed to start containers: %w", err))
	}
	return c.finish(fmt.Sprintf("started %d app(s)", len(apps)), c.listContainers(ctx))
}

// Stop stops the container of subdir and then lists the containers.
func (c *Controller) Stop(ctx context.Context, subdir string) error {
	release, err := c.begin("stop")
	if err != nil {
		return err
	}
	defer release()

	if err := c.backend.Stop(ctx, subdir); err != nil {
		return c.finish("", fmt.Errorf("failed to stop %s: %w", subdir, err))
	}
	return c.finish("stopped "+subdir, c.listContainers(ctx))
}

// StopAll stops every container and then lists the containers.
func (c *Controller) StopAll(ctx context.Context) error {
	release, err := c.begin("stop-all")
	if err != nil {
		return err
	}
	defer release()

	if err := c.backend.StopAll(ctx); err != nil {
		return c.finish("", fmt.Errorf("failed to stop containers: %w", err))
	}
	return c.finish("stopped all containers", c.listContainers(ctx))
}

// RefreshPlugins lists the plugin directory.
func (c *Controller) RefreshPlugins(ctx context.Context) error {
	release, err := c.begin("plugins")
	if err != nil {
		return err
	}
	defer release()

	c.refreshPlugins(ctx)
	return nil
}

func (c *Controller) refreshPlugins(ctx context.Context) {
	slugs := plugin.List(ctx, c.backend, c.opts.PluginDir)
	c.update(func(s *State) { s.Plugins = slugs })
}

// SavePlugin writes the manifest and entry script of a plugin and then
// lists the plugin directory again.
func (c *Controller) SavePlugin(ctx context.Context, slug, title, entryCode string) (model.PluginManifest, error) {
	release, err := c.begin("plugin")
	if err != nil {
		return model.PluginManifest{}, err
	}
	defer release()

	manifest, err := plugin.Save(ctx, c.backend, slug, title, entryCode)
	if err != nil {
		return model.PluginManifest{}, c.finish("", err)
	}
	c.refreshPlugins(ctx)
	return manifest, c.finish("saved plugin "+manifest.Name, nil)
}

// suggestPorts renders "busy->free" pairs when checker can suggest ports.
// Ports already suggested are not proposed twice.
func suggestPorts(checker PortChecker, busy []int) string {
	suggester, ok := checker.(PortSuggester)
	if !ok {
		return ""
	}
	var (
		pairs []string
		taken []int
	)
	for _, p := range busy {
		alt, err := suggester.Suggest(p, taken)
		if err != nil {
			continue
		}
		taken = append(taken, alt)
		pairs = append(pairs, fmt.Sprintf("%d->%d", p, alt))
	}
	return strings.Join(pairs, ", ")
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
