// internal/ui/component/logs.go
package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/tradedesk/internal/logger"
	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// LogSource supplies the newest buffered log entries.
type LogSource interface {
	GetRecentLogs(limit int) []logger.LogEntry
}

// LogPanel shows the last few non-debug log lines.
type LogPanel struct {
	source  LogSource
	lines   int
	width   int
	visible bool

	container lipgloss.Style
	title     lipgloss.Style
	timestamp lipgloss.Style
	levels    map[string]lipgloss.Style
}

// NewLogPanel creates a panel showing up to lines entries from source.
func NewLogPanel(source LogSource, lines int) *LogPanel {
	palette := style.DefaultPalette()
	return &LogPanel{
		source:  source,
		lines:   lines,
		visible: true,

		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Info).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Foreground(palette.Info).
			Bold(true),
		timestamp: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
		levels: map[string]lipgloss.Style{
			"error": lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
			"warn":  lipgloss.NewStyle().Foreground(palette.Warning).Bold(true),
			"info":  lipgloss.NewStyle().Foreground(palette.Info),
		},
	}
}

// SetWidth sets the component width
func (p *LogPanel) SetWidth(width int) {
	p.width = width
}

// Toggle shows or hides the panel.
func (p *LogPanel) Toggle() {
	p.visible = !p.visible
}

// Visible reports whether the panel renders anything.
func (p *LogPanel) Visible() bool {
	return p.visible && p.source != nil
}

// View renders the panel
func (p *LogPanel) View() string {
	if !p.Visible() {
		return ""
	}

	// Over-fetch so debug entries being skipped still leaves enough lines.
	entries := p.source.GetRecentLogs(p.lines * 4)
	var rendered []string
	for i := len(entries) - 1; i >= 0 && len(rendered) < p.lines; i-- {
		if entries[i].Level == "debug" {
			continue
		}
		rendered = append(rendered, p.format(entries[i]))
	}
	for l, r := 0, len(rendered)-1; l < r; l, r = l+1, r-1 {
		rendered[l], rendered[r] = rendered[r], rendered[l]
	}
	if len(rendered) == 0 {
		rendered = append(rendered, p.timestamp.Render("no log entries"))
	}

	container := p.container
	if p.width > 4 {
		container = container.Width(p.width - 2)
	}
	return container.Render(p.title.Render("Logs") + "\n" + strings.Join(rendered, "\n"))
}

func (p *LogPanel) format(e logger.LogEntry) string {
	level, ok := p.levels[e.Level]
	if !ok {
		level = p.timestamp
	}
	return fmt.Sprintf("%s %s %s",
		p.timestamp.Render(e.Timestamp.Format("15:04:05")),
		level.Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level))),
		e.Message)
}
