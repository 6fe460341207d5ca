package styles

import "github.com/charmbracelet/lipgloss"

var (
	Title  = lipgloss.NewStyle().Bold(true)
	Header = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	Footer = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	Box    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	Danger = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	Warn   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	Good   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7AF"))
	Faint  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
)

// Theme is the set of styles used to draw log lines.
type Theme struct {
	Name      string
	Text      lipgloss.Style
	Timestamp lipgloss.Style
	Match     lipgloss.Style
	Emphasis  lipgloss.Style // lines of the highlighted pod
	Gutter    lipgloss.Style
}

var Dark = Theme{
	Name:      "dark",
	Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	Match:     lipgloss.NewStyle().Background(lipgloss.Color("#FFAF00")).Foreground(lipgloss.Color("#000000")),
	Emphasis:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
	Gutter:    lipgloss.NewStyle().Bold(true),
}

var Light = Theme{
	Name:      "light",
	Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("#303446")),
	Timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8FA1")),
	Match:     lipgloss.NewStyle().Background(lipgloss.Color("#F9E2AF")).Foreground(lipgloss.Color("#000000")),
	Emphasis:  lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Bold(true),
	Gutter:    lipgloss.NewStyle().Bold(true),
}

// ThemeFor picks the theme for the dark mode preference.
func ThemeFor(dark bool) Theme {
	if dark {
		return Dark
	}
	return Light
}
