package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E5E7EB")).
			Background(lipgloss.Color("#1D4ED8")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4B5563")).
			Padding(0, 1)

	focusedPanelStyle = panelStyle.
				BorderForeground(lipgloss.Color("#10B981"))

	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#93C5FD"))
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	fileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true)
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Underline(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	busyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
	helpKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	helpTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)
