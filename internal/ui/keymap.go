// internal/ui/keymap.go
package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard keyboard shortcuts.
type KeyMap struct {
	Quit       key.Binding
	SwitchPane key.Binding
	NextField  key.Binding
	Submit     key.Binding
	UseQuote   key.Binding
	Refresh    key.Binding
	ToggleLogs key.Binding
	Up         key.Binding
	Down       key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		SwitchPane: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "quote/order"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit order"),
		),
		UseQuote: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "trade symbol"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "toggle logs"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
	}
}

// ContextualHelp returns the bindings that apply to the focused pane.
func (k KeyMap) ContextualHelp(p pane) []key.Binding {
	if p == paneOrder {
		return []key.Binding{k.NextField, k.Up, k.Submit, k.SwitchPane, k.Refresh, k.ToggleLogs, k.Quit}
	}
	return []key.Binding{k.UseQuote, k.Up, k.Down, k.SwitchPane, k.Refresh, k.ToggleLogs, k.Quit}
}
