// internal/ui/component/summary.go
package component

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// SummaryCards renders cash, stock value, total and unrealized gain side by side.
type SummaryCards struct {
	valuation domain.Valuation
	width     int

	palette style.Palette
	card    lipgloss.Style
	label   lipgloss.Style
}

// NewSummaryCards creates the summary row.
func NewSummaryCards() *SummaryCards {
	palette := style.DefaultPalette()
	return &SummaryCards{
		palette: palette,
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1).
			Align(lipgloss.Center),
		label: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
	}
}

// SetValuation replaces the displayed figures.
func (c *SummaryCards) SetValuation(v domain.Valuation) {
	c.valuation = v
}

// SetWidth sets the width shared by the four cards.
func (c *SummaryCards) SetWidth(width int) {
	c.width = width
}

// View renders the cards
func (c *SummaryCards) View() string {
	cardWidth := 18
	if c.width > 0 {
		cardWidth = max(c.width/4-2, 14)
	}
	card := c.card.Width(cardWidth)
	value := lipgloss.NewStyle().Bold(true).Foreground(c.palette.Text)

	render := func(label, amount string, v lipgloss.Style) string {
		return card.Render(c.label.Render(label) + "\n" + v.Render(amount))
	}

	gain := value.Foreground(c.palette.GainColor(c.valuation.Gain))
	return lipgloss.JoinHorizontal(lipgloss.Top,
		render("Cash", domain.FormatUSD(c.valuation.Cash), value),
		render("Stocks", domain.FormatUSD(c.valuation.Stocks), value),
		render("Total", domain.FormatUSD(c.valuation.Total), value.Foreground(c.palette.Primary)),
		render("Unrealized", domain.FormatUSD(c.valuation.Gain), gain),
	)
}
