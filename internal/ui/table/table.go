package table

import (
	"fmt"
	"image/color"

	bubtable "charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"
)

// Re-export common table types so callers can build columns and rows
// without importing bubbles directly.
type Column = bubtable.Column
type Row = bubtable.Row

// minColumnWidth is the narrowest a fitted column gets.
const minColumnWidth = 4

// Model is a generic table that renders values of type V. Rows are shown
// in the order given; filtering and paging belong to the caller.
type Model[V any] struct {
	table   bubtable.Model
	styles  bubtable.Styles
	rows    []V
	titles  []string
	toRow   func(V) Row
	width   int
	height  int
	focused bool
	noColor bool

	headerFG   color.Color
	selectedFG color.Color
	selectedBG color.Color
}

// NewModel creates a table with the given column titles. toRow renders one
// value into cells, one per title.
func NewModel[V any](titles []string, toRow func(V) Row) *Model[V] {
	t := bubtable.New(
		bubtable.WithFocused(true),
		bubtable.WithHeight(5),
	)

	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(1)
	s.Selected = s.Selected.
		PaddingLeft(0).
		PaddingRight(0)
	s.Cell = lipgloss.NewStyle().
		Align(lipgloss.Left).
		PaddingLeft(0).
		PaddingRight(1)
	t.SetStyles(s)

	m := &Model[V]{
		table:   t,
		styles:  s,
		rows:    []V{},
		titles:  titles,
		toRow:   toRow,
		width:   80,
		height:  10,
		focused: true,
	}
	m.refresh()
	return m
}

// SetRows replaces the rows. The cursor is kept when it still points at a
// row and moved to the last row otherwise.
func (m *Model[V]) SetRows(rows []V) {
	if rows == nil {
		rows = []V{}
	}
	m.rows = rows
	m.refresh()
}

// SetTitles replaces the column titles.
func (m *Model[V]) SetTitles(titles []string) {
	m.titles = titles
	m.refresh()
}

// Rows returns the rows as given to SetRows.
func (m *Model[V]) Rows() []V {
	return m.rows
}

// Columns returns the fitted columns.
func (m *Model[V]) Columns() []Column {
	return m.table.Columns()
}

func (m *Model[V]) refresh() {
	cells := make([]Row, len(m.rows))
	for i, v := range m.rows {
		cells[i] = m.toRow(v)
	}
	// Columns must be set before rows so bubbles never renders a row wider
	// than its column set.
	m.table.SetRows(nil)
	m.table.SetColumns(FitColumns(m.titles, cells, m.width))
	m.table.SetRows(cells)
	if n := len(m.rows); n > 0 && m.Cursor() >= n {
		m.SetCursor(n - 1)
	}
}

// FitColumns sizes one column per title so the widest cell fits, then
// shrinks the widest columns until the total fits in width. Widths are
// display cells, so wide runes count double.
func FitColumns(titles []string, rows []Row, width int) []Column {
	widths := make([]int, len(titles))
	for i, t := range titles {
		widths[i] = runewidth.StringWidth(t)
	}
	for _, r := range rows {
		for i := range widths {
			if i < len(r) {
				widths[i] = max(widths[i], runewidth.StringWidth(r[i]))
			}
		}
	}
	// one cell of padding per column
	budget := width - len(titles)
	for total(widths) > budget {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			break
		}
		widths[widest]--
	}
	cols := make([]Column, len(titles))
	for i, t := range titles {
		cols[i] = Column{Title: t, Width: widths[i]}
	}
	return cols
}

func total(ws []int) int {
	n := 0
	for _, w := range ws {
		n += w
	}
	return n
}

// Cursor returns the current cursor position.
func (m *Model[V]) Cursor() int {
	return m.table.Cursor()
}

// SetCursor sets the cursor position.
func (m *Model[V]) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// SelectedRow returns the value under the cursor, or nil if there are no rows.
func (m *Model[V]) SelectedRow() *V {
	cursor := m.Cursor()
	if cursor < 0 || cursor >= len(m.rows) {
		return nil
	}
	return &m.rows[cursor]
}

// SetSize sets the table dimensions and refits the columns.
func (m *Model[V]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(height)
	m.table.SetWidth(width)
	m.refresh()
}

// Focus sets the table focus state.
func (m *Model[V]) Focus() {
	m.focused = true
	m.table.Focus()
}

// Blur removes focus from the table.
func (m *Model[V]) Blur() {
	m.focused = false
	m.table.Blur()
}

// Focused returns true if the table has focus.
func (m *Model[V]) Focused() bool {
	return m.focused
}

// SetNoColor enables/disables color output.
func (m *Model[V]) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets custom theme colors.
func (m *Model[V]) SetColors(headerFG, selectedFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.selectedFG = selectedFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Model[V]) applyColorScheme() {
	s := m.styles

	if m.noColor {
		s.Header = s.Header.UnsetForeground().UnsetBackground()
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Reverse(true)
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	} else {
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.selectedFG != nil {
			s.Selected = s.Selected.Foreground(m.selectedFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}

	m.table.SetStyles(s)
	m.styles = s
}

// Update handles messages and updates the table state.
func (m *Model[V]) Update(msg tea.Msg) (*Model[V], tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table to a string.
func (m *Model[V]) View() string {
	return m.table.View()
}

// String returns a string representation for debugging.
func (m *Model[V]) String() string {
	return fmt.Sprintf("Table[rows=%d, cursor=%d]", len(m.rows), m.Cursor())
}
