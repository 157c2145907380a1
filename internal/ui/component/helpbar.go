// internal/ui/component/helpbar.go
package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// HelpBar shows the enabled key bindings on one line per width.
type HelpBar struct {
	keyBindings []key.Binding
	width       int

	keyStyle       lipgloss.Style
	descStyle      lipgloss.Style
	sepStyle       lipgloss.Style
	containerStyle lipgloss.Style
}

// NewHelpBar creates a new help bar component
func NewHelpBar() *HelpBar {
	palette := style.DefaultPalette()

	return &HelpBar{
		width: 80,

		keyStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		descStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		sepStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		containerStyle: lipgloss.NewStyle().
			Padding(0, 1),
	}
}

// SetKeyBindings sets the key bindings to display
func (h *HelpBar) SetKeyBindings(bindings []key.Binding) *HelpBar {
	h.keyBindings = bindings
	return h
}

// SetWidth sets the help bar width
func (h *HelpBar) SetWidth(width int) *HelpBar {
	h.width = width
	return h
}

// View renders the help bar
func (h *HelpBar) View() string {
	items := make([]string, 0, len(h.keyBindings))
	for _, binding := range h.keyBindings {
		if !binding.Enabled() {
			continue
		}
		help := binding.Help()
		if help.Key == "" || help.Desc == "" {
			continue
		}
		items = append(items, h.keyStyle.Render(help.Key)+" "+h.descStyle.Render(help.Desc))
	}
	if len(items) == 0 {
		return ""
	}
	return h.containerStyle.Width(h.width).Render(h.wrap(items, h.width-2))
}

// wrap joins items with separators, breaking lines at maxWidth.
func (h *HelpBar) wrap(items []string, maxWidth int) string {
	separator := h.sepStyle.Render(" • ")
	sepWidth := lipgloss.Width(separator)

	var lines []string
	var current []string
	currentWidth := 0
	for _, item := range items {
		itemWidth := lipgloss.Width(item) + sepWidth
		if currentWidth+itemWidth > maxWidth && len(current) > 0 {
			lines = append(lines, strings.Join(current, separator))
			current, currentWidth = nil, 0
		}
		current = append(current, item)
		currentWidth += itemWidth
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, separator))
	}
	return strings.Join(lines, "\n")
}
