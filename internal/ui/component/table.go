package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow is one row of cells. Style overrides the cell style when set.
type TableRow struct {
	Data  []string
	Style *lipgloss.Style
}

// Table is a selectable, fixed-width data table.
type Table struct {
	columns  []TableColumn
	rows     []TableRow
	selected int

	headerStyle   lipgloss.Style
	rowStyle      lipgloss.Style
	selectedStyle lipgloss.Style
	borderStyle   lipgloss.Style
}

// NewTable creates a new table component
func NewTable(columns ...TableColumn) *Table {
	palette := style.DefaultPalette()
	return &Table{
		columns: columns,
		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),
		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),
	}
}

// SetRows replaces the rows, keeping the selection in range.
func (t *Table) SetRows(rows []TableRow) *Table {
	t.rows = rows
	if t.selected >= len(rows) {
		t.selected = len(rows) - 1
	}
	if t.selected < 0 {
		t.selected = 0
	}
	return t
}

func (t *Table) Selected() int { return t.selected }
func (t *Table) RowCount() int { return len(t.rows) }

// MoveUp moves selection up
func (t *Table) MoveUp() {
	if t.selected > 0 {
		t.selected--
	}
}

// MoveDown moves selection down
func (t *Table) MoveDown() {
	if t.selected < len(t.rows)-1 {
		t.selected++
	}
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return "No columns defined"
	}

	var b strings.Builder
	headers := make([]string, len(t.columns))
	rules := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = renderCell(col.Header, col, t.headerStyle)
		rules[i] = strings.Repeat("─", lipgloss.Width(headers[i]))
	}
	b.WriteString(strings.Join(headers, "│"))
	b.WriteString("\n")
	b.WriteString(strings.Join(rules, "┼"))

	for ri, row := range t.rows {
		cellStyle := t.rowStyle
		if row.Style != nil {
			cellStyle = *row.Style
		}
		if ri == t.selected {
			cellStyle = t.selectedStyle
		}
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			var data string
			if i < len(row.Data) {
				data = row.Data[i]
			}
			cells[i] = renderCell(data, col, cellStyle)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, "│"))
	}
	return t.borderStyle.Render(b.String())
}

func renderCell(content string, col TableColumn, s lipgloss.Style) string {
	if r := []rune(content); len(r) > col.Width {
		if col.Width > 1 {
			content = string(r[:col.Width-1]) + "…"
		} else {
			content = string(r[:col.Width])
		}
	}
	return s.Width(col.Width).Align(col.Align).Render(content)
}
