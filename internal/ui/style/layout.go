// internal/ui/style/layout.go
package style

import "github.com/charmbracelet/lipgloss"

var palette = DefaultPalette()

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true)

	SubHeaderStyle = lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1)

	ActivePanelStyle = PanelStyle.
				BorderForeground(palette.Primary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(palette.Warning)
)
