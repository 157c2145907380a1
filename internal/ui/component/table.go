// internal/ui/component/table.go
package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row of data
type TableRow struct {
	Data  []string
	Style lipgloss.Style
}

// Table renders rows of text in fixed-width columns.
type Table struct {
	columns     []TableColumn
	rows        []TableRow
	width       int
	selectedRow int
	emptyText   string

	headerStyle      lipgloss.Style
	rowStyle         lipgloss.Style
	selectedRowStyle lipgloss.Style
	borderStyle      lipgloss.Style

	showBorder bool
	selectable bool
}

// NewTable creates a new table component
func NewTable() *Table {
	palette := style.DefaultPalette()

	return &Table{
		emptyText: "Nothing to show",

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		selectedRowStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),

		showBorder: true,
	}
}

// AddColumn adds a column to the table. A zero width shares the space
// left over once SetWidth is called, or fits the widest cell otherwise.
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{Header: header, Width: width, Align: align})
	return t
}

// SetRows replaces all rows.
func (t *Table) SetRows(rows [][]string) *Table {
	t.rows = make([]TableRow, len(rows))
	for i, data := range rows {
		t.rows[i] = TableRow{Data: data, Style: t.rowStyle}
	}
	if t.selectedRow >= len(t.rows) {
		t.selectedRow = max(len(t.rows)-1, 0)
	}
	return t
}

// SetRowForeground colors one row.
func (t *Table) SetRowForeground(index int, color lipgloss.TerminalColor) *Table {
	if index >= 0 && index < len(t.rows) {
		t.rows[index].Style = t.rowStyle.Foreground(color)
	}
	return t
}

// SetWidth sets the total width available to the table.
func (t *Table) SetWidth(width int) *Table {
	t.width = width
	return t
}

// SetEmptyText sets what is shown when there are no rows.
func (t *Table) SetEmptyText(text string) *Table {
	t.emptyText = text
	return t
}

// SetSelectable enables/disables row selection
func (t *Table) SetSelectable(selectable bool) *Table {
	t.selectable = selectable
	return t
}

// SetShowBorder enables/disables table border
func (t *Table) SetShowBorder(show bool) *Table {
	t.showBorder = show
	return t
}

// MoveUp moves selection up
func (t *Table) MoveUp() *Table {
	if t.selectable && t.selectedRow > 0 {
		t.selectedRow--
	}
	return t
}

// MoveDown moves selection down
func (t *Table) MoveDown() *Table {
	if t.selectable && t.selectedRow < len(t.rows)-1 {
		t.selectedRow++
	}
	return t
}

// SelectedRowData returns the data of the selected row, or nil.
func (t *Table) SelectedRowData() []string {
	if !t.selectable || t.selectedRow >= len(t.rows) {
		return nil
	}
	return t.rows[t.selectedRow].Data
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.columnWidths()

	var content strings.Builder
	cells := make([]string, len(t.columns))
	for i, col := range t.columns {
		cells[i] = renderCell(col.Header, widths[i], col.Align, t.headerStyle)
	}
	content.WriteString(strings.Join(cells, "│"))
	content.WriteString("\n")

	seps := make([]string, len(t.columns))
	for i := range t.columns {
		seps[i] = strings.Repeat("─", widths[i]+2)
	}
	content.WriteString(strings.Join(seps, "┼"))

	if len(t.rows) == 0 {
		content.WriteString("\n")
		content.WriteString(t.rowStyle.Foreground(style.DefaultPalette().TextMuted).Render(t.emptyText))
	}

	for rowIndex, row := range t.rows {
		rowStyle := row.Style
		if t.selectable && rowIndex == t.selectedRow {
			rowStyle = t.selectedRowStyle
		}
		for i, col := range t.columns {
			cell := ""
			if i < len(row.Data) {
				cell = row.Data[i]
			}
			cells[i] = renderCell(cell, widths[i], col.Align, rowStyle)
		}
		content.WriteString("\n")
		content.WriteString(strings.Join(cells, "│"))
	}

	result := content.String()
	if t.showBorder {
		result = t.borderStyle.Render(result)
	}
	return result
}

// renderCell pads or truncates content to width, excluding padding.
func renderCell(content string, width int, align lipgloss.Position, style lipgloss.Style) string {
	content = ansi.Truncate(content, width, "…")
	return style.Width(width + 2).Align(align).Render(content)
}

// columnWidths resolves zero widths. With a table width the leftover
// space is split evenly; without one each column fits its widest cell.
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.columns))
	explicit, auto := 0, 0
	for i, col := range t.columns {
		widths[i] = col.Width
		if col.Width > 0 {
			explicit += col.Width
		} else {
			auto++
		}
	}
	if auto == 0 {
		return widths
	}

	if t.width > 0 {
		// Two padding columns per cell plus separators and border.
		avail := t.width - explicit - 3*len(t.columns) - 1
		if t.showBorder {
			avail -= 2
		}
		share := max(avail/auto, 4)
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
		return widths
	}

	for i, col := range t.columns {
		if widths[i] != 0 {
			continue
		}
		w := lipgloss.Width(col.Header)
		for _, row := range t.rows {
			if i < len(row.Data) {
				w = max(w, lipgloss.Width(row.Data[i]))
			}
		}
		widths[i] = w
	}
	return widths
}
