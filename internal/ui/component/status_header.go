// internal/ui/component/status_header.go
package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// SyncStatus is the outcome of the latest background fetch.
type SyncStatus struct {
	OK       bool
	Target   string
	Message  string
	LastSync time.Time
}

// StatusHeader shows the signed-in user and the sync health.
type StatusHeader struct {
	user   string
	sync   SyncStatus
	width  int
	styles statusHeaderStyles
}

type statusHeaderStyles struct {
	container lipgloss.Style
	title     lipgloss.Style
	user      lipgloss.Style
	good      lipgloss.Style
	bad       lipgloss.Style
}

// NewStatusHeader creates a new status header component
func NewStatusHeader() *StatusHeader {
	palette := style.DefaultPalette()

	return &StatusHeader{
		sync: SyncStatus{OK: true},
		styles: statusHeaderStyles{
			container: lipgloss.NewStyle().
				Foreground(palette.Text).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2),

			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),

			user: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),

			good: lipgloss.NewStyle().
				Foreground(palette.Success).
				Bold(true),

			bad: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),
		},
	}
}

// SetUser sets the display name; empty means signed out.
func (sh *StatusHeader) SetUser(user string) {
	sh.user = user
}

// SetSyncStatus records the latest sync outcome.
func (sh *StatusHeader) SetSyncStatus(status SyncStatus) {
	sh.sync = status
}

// SetWidth sets the component width for responsive layout
func (sh *StatusHeader) SetWidth(width int) {
	sh.width = width
}

// View renders the status header
func (sh *StatusHeader) View() string {
	user := "signed out"
	if sh.user != "" {
		user = sh.user
	}

	content := lipgloss.JoinHorizontal(
		lipgloss.Left,
		sh.styles.title.Render("tradedesk"),
		" | ",
		sh.styles.user.Render("User: "+user),
		" | ",
		sh.renderSync(),
	)

	container := sh.styles.container
	if sh.width > 4 {
		container = container.Width(sh.width - 2)
	}
	return container.Render(content)
}

func (sh *StatusHeader) renderSync() string {
	if !sh.sync.OK {
		return sh.styles.bad.Render(fmt.Sprintf("● %s sync failed: %s", sh.sync.Target, sh.sync.Message))
	}
	if sh.sync.LastSync.IsZero() {
		return sh.styles.user.Render("● waiting for sync")
	}
	return sh.styles.good.Render("● synced " + sh.sync.LastSync.Format("15:04:05"))
}
