// Package report renders verification and compliance results for the
// console: styled text, markdown through glamour, or JSON.
package report

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Primary     = lipgloss.Color("#101F38")
	Accent      = lipgloss.Color("#8BC34A")
	Muted       = lipgloss.Color("#6b7686")
	Destructive = lipgloss.Color("#e53935")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
)

// Styles groups the lipgloss styles the text renderer uses.
type Styles struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Box     lipgloss.Style
}

// DefaultStyles returns the standard console styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),

		Section: lipgloss.NewStyle().
			Foreground(Info).
			Bold(true).
			MarginTop(1),

		Label: lipgloss.NewStyle().
			Width(22),

		Muted: lipgloss.NewStyle().
			Foreground(Muted),

		Success: lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Box: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted),
	}
}
