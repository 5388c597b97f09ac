package render

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79FF"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	colorError  = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#F2C94C"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#5FD787"}
)

// Styles groups every lipgloss style the terminal UI uses.
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Reasoning lipgloss.Style
	Error     lipgloss.Style
	Footer    lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	Notice    lipgloss.Style
	Title     lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		User:      lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(colorOK).Bold(true),
		Reasoning: lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Error:     lipgloss.NewStyle().Foreground(colorError),
		Footer:    lipgloss.NewStyle().Foreground(colorMuted).Faint(true),
		Warning:   lipgloss.NewStyle().Foreground(colorWarn),
		Success:   lipgloss.NewStyle().Foreground(colorOK),
		Notice:    lipgloss.NewStyle().Foreground(colorWarn).Bold(true),
		Title:     lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Underline(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		User:      plain,
		Assistant: plain,
		Reasoning: plain,
		Error:     plain,
		Footer:    plain,
		Warning:   plain,
		Success:   plain,
		Notice:    plain,
		Title:     plain,
	}
}
