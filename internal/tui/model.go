// Package tui is the interactive terminal control surface: a bubbletea
// program over the controller.
//
// Update never blocks. Backend sequences run as tea.Cmds and report back
// with an opDoneMsg; while one is in flight the triggers are ignored, as
// the controller's guard would refuse them anyway. View renders a fresh
// controller Snapshot each time.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shinji-kodama/coredeck/internal/controller"
	"github.com/shinji-kodama/coredeck/internal/model"
	"github.com/shinji-kodama/coredeck/internal/project"
)

// pane is the list the cursor moves in.
type pane int

const (
	paneExplorer pane = iota
	paneContainers
)

// promptKind is the question the input line is answering.
type promptKind int

const (
	promptNone promptKind = iota
	promptUpload
	promptFront
	promptBack
	promptPorts
	promptStopAll
)

// previewLines caps the open file preview.
const previewLines = 12

// opDoneMsg reports the end of a backend sequence.
type opDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea model.
type Model struct {
	ctl    *controller.Controller
	ctx    context.Context
	origin string

	focus   pane
	cursor  int
	prompt  promptKind
	input   textinput.Model
	lastErr error

	width    int
	quitting bool
}

// New creates the TUI model. ctx bounds every backend call the program
// makes; origin is only displayed.
func New(ctx context.Context, ctl *controller.Controller, origin string) Model {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 60
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))

	return Model{
		ctl:    ctl,
		ctx:    ctx,
		origin: origin,
		input:  ti,
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, ctl *controller.Controller, origin string) error {
	_, err := tea.NewProgram(New(ctx, ctl, origin), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// Init loads the initial state: status, root listing, candidates and
// containers, one after another.
func (m Model) Init() tea.Cmd {
	return m.run("load", func(ctx context.Context) error {
		if err := m.ctl.Refresh(ctx); err != nil {
			return err
		}
		_ = m.ctl.LoadTree(ctx, "")
		_ = m.ctl.LoadNodeCandidates(ctx)
		return m.ctl.ListContainers(ctx)
	})
}

// run wraps a controller sequence in a tea.Cmd.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case opDoneMsg:
		m.lastErr = msg.err
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

// updateKeys handles keys outside of a prompt.
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		if m.focus == paneExplorer {
			m.focus = paneContainers
		} else {
			m.focus = paneExplorer
		}
		m.cursor = 0
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil
	case "e":
		return m.openPrompt(promptFront, m.ctl.Snapshot().FrontSubdir), nil
	case "b":
		return m.openPrompt(promptBack, m.ctl.Snapshot().BackSubdir), nil
	case "p":
		s := m.ctl.Snapshot()
		return m.openPrompt(promptPorts, strings.TrimSpace(s.FrontHostPort+" "+s.BackHostPort)), nil
	}

	// Everything below talks to the backend.
	if m.ctl.Busy() {
		return m, nil
	}

	switch key {
	case "r":
		cwd := m.ctl.Snapshot().Cwd
		return m, m.run("refresh", func(ctx context.Context) error {
			if err := m.ctl.Refresh(ctx); err != nil {
				return err
			}
			_ = m.ctl.LoadTree(ctx, cwd)
			return m.ctl.ListContainers(ctx)
		})
	case "l":
		return m, m.run("containers", m.ctl.ListContainers)
	case "s":
		return m, m.run("start", m.ctl.Start)
	case "x":
		subdir, ok := m.selectedContainer()
		if !ok {
			return m, nil
		}
		return m, m.run("stop", func(ctx context.Context) error {
			return m.ctl.Stop(ctx, subdir)
		})
	case "X":
		return m.openPrompt(promptStopAll, ""), nil
	case "u":
		return m.openPrompt(promptUpload, ""), nil
	case "enter":
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if item.Type == model.ItemDir {
			m.cursor = 0
			return m, m.run("tree", func(ctx context.Context) error {
				return m.ctl.LoadTree(ctx, item.Path)
			})
		}
		return m, m.run("open", func(ctx context.Context) error {
			return m.ctl.OpenFile(ctx, item.Path)
		})
	case "backspace":
		m.cursor = 0
		return m, m.run("tree", m.ctl.NavigateUp)
	}
	return m, nil
}

// openPrompt focuses the input line for kind, prefilled with value.
func (m Model) openPrompt(kind promptKind, value string) Model {
	m.prompt = kind
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	return m
}

// closePrompt returns to normal key handling.
func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
}

// updatePrompt handles keys while the input line is active.
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt == promptStopAll {
		confirmed := msg.String() == "y" || msg.String() == "Y"
		m.closePrompt()
		if !confirmed || m.ctl.Busy() {
			return m, nil
		}
		return m, m.run("stop-all", m.ctl.StopAll)
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		kind, value := m.prompt, strings.TrimSpace(m.input.Value())
		m.closePrompt()
		return m, m.submitPrompt(kind, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitPrompt applies an answered prompt.
func (m Model) submitPrompt(kind promptKind, value string) tea.Cmd {
	s := m.ctl.Snapshot()
	switch kind {
	case promptFront:
		m.ctl.SetSubdirs(value, s.BackSubdir)
	case promptBack:
		m.ctl.SetSubdirs(s.FrontSubdir, value)
	case promptPorts:
		fields := strings.Fields(strings.ReplaceAll(value, ",", " "))
		front, back := "", ""
		if len(fields) > 0 {
			front = fields[0]
		}
		if len(fields) > 1 {
			back = fields[1]
		}
		m.ctl.SetHostPorts(front, back)
	case promptUpload:
		if value == "" || m.ctl.Busy() {
			return nil
		}
		return m.run("upload", func(ctx context.Context) error {
			files, err := project.Collect(value, project.WithSkipDirs(".git", "node_modules"))
			if err != nil {
				return err
			}
			return m.ctl.UploadFolder(ctx, project.UploadFiles(files), project.TotalSize(files))
		})
	}
	return nil
}

// listLen is the length of the focused list.
func (m Model) listLen() int {
	s := m.ctl.Snapshot()
	if m.focus == paneContainers {
		return s.Containers.Len()
	}
	return len(s.Items)
}

// clampCursor keeps the cursor inside the focused list.
func (m *Model) clampCursor() {
	n := m.listLen()
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// selectedItem returns the explorer entry under the cursor.
func (m Model) selectedItem() (model.TreeItem, bool) {
	if m.focus != paneExplorer {
		return model.TreeItem{}, false
	}
	items := m.ctl.Snapshot().Items
	if m.cursor < 0 || m.cursor >= len(items) {
		return model.TreeItem{}, false
	}
	return items[m.cursor], true
}

// selectedContainer returns the subdir key under the cursor.
func (m Model) selectedContainer() (string, bool) {
	if m.focus != paneContainers {
		return "", false
	}
	keys := m.ctl.Snapshot().Containers.Keys()
	if m.cursor < 0 || m.cursor >= len(keys) {
		return "", false
	}
	return keys[m.cursor], true
}

// promptLabel is shown in front of the input line.
func promptLabel(kind promptKind) string {
	switch kind {
	case promptUpload:
		return "Folder to upload"
	case promptFront:
		return "Frontend subdir"
	case promptBack:
		return "Backend subdir"
	case promptPorts:
		return "Host ports (front back)"
	case promptStopAll:
		return "Stop all containers? (y/N)"
	default:
		return ""
	}
}

// describe is a short, single-line rendering of an error for the status bar.
func describe(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", " ")
}

// formatBytes renders n in a human readable unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
