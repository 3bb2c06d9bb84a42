package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shinji-kodama/coredeck/internal/controller"
	"github.com/shinji-kodama/coredeck/internal/model"
)

// noPortsText is shown when no URL could be resolved.
const noPortsText = "No published ports detected yet"

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.ctl.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(s))
	b.WriteString("\n")

	left := m.renderExplorer(s)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderContainers(s),
		renderURLs(s),
		renderLaunch(s),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")

	if s.OpenPath != "" {
		b.WriteString(renderFile(s))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusLine(s))
	b.WriteString("\n")
	if m.prompt != promptNone {
		b.WriteString(headingStyle.Render(promptLabel(m.prompt)))
		b.WriteString("\n")
		if m.prompt != promptStopAll {
			b.WriteString(m.input.View())
			b.WriteString("\n")
		}
	} else {
		b.WriteString(renderHelp())
	}
	return b.String()
}

func (m Model) renderHeader(s controller.State) string {
	title := titleStyle.Render("coredeck")
	project := mutedStyle.Render("status unknown")
	if s.Status != nil {
		if s.Status.ProjectPresent {
			project = "project uploaded"
		} else {
			project = noticeStyle.Render("no project uploaded")
		}
		if s.Status.Running {
			project += " · core running"
			if s.Status.PID != nil {
				project += fmt.Sprintf(" (pid %d)", *s.Status.PID)
			}
		}
	}
	return fmt.Sprintf("%s %s  %s", title, mutedStyle.Render(m.origin), project)
}

func (m Model) renderExplorer(s controller.State) string {
	var lines []string
	cwd := s.Cwd
	if cwd == "" {
		cwd = "/"
	}
	lines = append(lines, headingStyle.Render("Files ")+mutedStyle.Render(cwd))

	if len(s.Items) == 0 {
		lines = append(lines, mutedStyle.Render("(empty)"))
	}
	for i, item := range s.Items {
		name := fileStyle.Render(item.Name)
		if item.Type == model.ItemDir {
			name = dirStyle.Render(item.Name + "/")
		}
		lines = append(lines, m.cursorMark(paneExplorer, i)+name)
	}
	return m.panel(paneExplorer).Render(strings.Join(lines, "\n"))
}

func (m Model) renderContainers(s controller.State) string {
	lines := []string{headingStyle.Render("Containers")}
	keys := s.Containers.Keys()
	if len(keys) == 0 {
		lines = append(lines, mutedStyle.Render("none running"))
	}
	for i, key := range keys {
		rec, _ := s.Containers.Get(key)
		ports := strings.Join(rec.Ports, ", ")
		if ports == "" {
			ports = "-"
		}
		lines = append(lines, fmt.Sprintf("%s%s %s %s",
			m.cursorMark(paneContainers, i),
			key,
			mutedStyle.Render(rec.DisplayName()),
			ports))
	}
	return m.panel(paneContainers).Render(strings.Join(lines, "\n"))
}

func renderURLs(s controller.State) string {
	lines := []string{headingStyle.Render("Live URLs")}
	if s.URLs.IsEmpty() {
		lines = append(lines, mutedStyle.Render(noPortsText))
	} else {
		if s.URLs.Frontend != "" {
			lines = append(lines, "frontend "+urlStyle.Render(s.URLs.Frontend))
		}
		if s.URLs.Backend != "" {
			lines = append(lines, "backend  "+urlStyle.Render(s.URLs.Backend))
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderLaunch(s controller.State) string {
	orNone := func(v string) string {
		if v == "" {
			return mutedStyle.Render("(none)")
		}
		return v
	}
	lines := []string{
		headingStyle.Render("Start"),
		fmt.Sprintf("frontend %s  host port %s", orNone(s.FrontSubdir), orNone(s.FrontHostPort)),
		fmt.Sprintf("backend  %s  host port %s", orNone(s.BackSubdir), orNone(s.BackHostPort)),
	}
	if len(s.Candidates) > 0 {
		lines = append(lines, mutedStyle.Render("candidates: "+strings.Join(s.Candidates, ", ")))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderFile(s controller.State) string {
	title := s.OpenPath
	if s.Dirty {
		title += " *"
	}
	lines := strings.Split(s.Buffer, "\n")
	more := ""
	if len(lines) > previewLines {
		more = mutedStyle.Render(fmt.Sprintf("... %d more lines", len(lines)-previewLines))
		lines = lines[:previewLines]
	}
	body := strings.Join(lines, "\n")
	if more != "" {
		body += "\n" + more
	}
	return panelStyle.Render(headingStyle.Render(title) + "\n" + body)
}

func (m Model) renderStatusLine(s controller.State) string {
	switch {
	case s.Busy:
		line := busyStyle.Render("working... ")
		if s.UploadTotal > 0 {
			line += fmt.Sprintf("%s / %s ", formatBytes(s.UploadSent), formatBytes(s.UploadTotal))
		}
		return line + noticeStyle.Render(s.Notice)
	case m.lastErr != nil:
		return errorStyle.Render(describe(m.lastErr))
	case s.Notice != "":
		return noticeStyle.Render(s.Notice)
	default:
		return ""
	}
}

func renderHelp() string {
	pairs := [][2]string{
		{"r", "refresh"}, {"l", "list"}, {"s", "start"}, {"x", "stop"}, {"X", "stop all"},
		{"u", "upload"}, {"e/b", "subdirs"}, {"p", "ports"}, {"tab", "pane"},
		{"enter", "open"}, {"⌫", "up"}, {"q", "quit"},
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = helpKeyStyle.Render(p[0]) + " " + helpTextStyle.Render(p[1])
	}
	return strings.Join(parts, "  ")
}

func (m Model) cursorMark(p pane, i int) string {
	if m.focus == p && m.cursor == i {
		return cursorStyle.Render("> ")
	}
	return "  "
}

func (m Model) panel(p pane) lipgloss.Style {
	if m.focus == p {
		return focusedPanelStyle
	}
	return panelStyle
}
