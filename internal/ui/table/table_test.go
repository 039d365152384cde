package table

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

type contact struct {
	Name string
	City string
}

func makeModel() *Model[contact] {
	toRow := func(c contact) Row { return Row{c.Name, c.City} }
	return NewModel[contact]([]string{"NAME", "CITY"}, toRow)
}

func TestTable_SetRowsKeepsOrder(t *testing.T) {
	m := makeModel()
	m.SetRows([]contact{{"Zoe", "Mérida"}, {"Ana", "Cancún"}})

	rows := m.Rows()
	if len(rows) != 2 || rows[0].Name != "Zoe" || rows[1].Name != "Ana" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	m.SetRows(nil)
	if m.Rows() == nil || len(m.Rows()) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", m.Rows())
	}
	if m.SelectedRow() != nil {
		t.Fatalf("expected no selected row on empty table")
	}
}

func TestTable_CursorSelection(t *testing.T) {
	m := makeModel()
	m.SetRows([]contact{{"Ana", "Mérida"}, {"Beto", "Progreso"}})

	sel := m.SelectedRow()
	if sel == nil || sel.Name != "Ana" {
		t.Fatalf("expected first row selected, got %+v", sel)
	}

	m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	sel = m.SelectedRow()
	if sel == nil || sel.Name != "Beto" {
		t.Fatalf("expected second row selected, got %+v", sel)
	}

	m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if m.Cursor() > 1 {
		t.Fatalf("cursor out of bounds: %d", m.Cursor())
	}
}

func TestTable_CursorClampedWhenRowsShrink(t *testing.T) {
	m := makeModel()
	m.SetRows([]contact{{"a", ""}, {"b", ""}, {"c", ""}})
	m.SetCursor(2)

	m.SetRows([]contact{{"a", ""}})
	if m.Cursor() != 0 {
		t.Fatalf("expected cursor 0 after shrink, got %d", m.Cursor())
	}
}

func TestFitColumns(t *testing.T) {
	rows := []Row{{"Ana", "Mérida"}, {"Bartolomé de las Casas", "Valladolid"}}

	cols := FitColumns([]string{"NAME", "CITY"}, rows, 80)
	if cols[0].Width != len("Bartolomé de las Casas")-1 {
		// é is two bytes but one cell
		t.Fatalf("expected name column to fit widest cell, got %d", cols[0].Width)
	}
	if cols[1].Width != len("Valladolid") {
		t.Fatalf("expected city width %d, got %d", len("Valladolid"), cols[1].Width)
	}

	narrow := FitColumns([]string{"NAME", "CITY"}, rows, 20)
	sum := narrow[0].Width + narrow[1].Width + 2
	if sum > 20 {
		t.Fatalf("expected columns to fit in 20 cells, got %d", sum)
	}
	for _, c := range narrow {
		if c.Width < minColumnWidth {
			t.Fatalf("column %q narrower than minimum: %d", c.Title, c.Width)
		}
	}
}

func TestFitColumnsCountsWideRunes(t *testing.T) {
	cols := FitColumns([]string{"N"}, []Row{{"東京"}}, 80)
	if cols[0].Width != 4 {
		t.Fatalf("expected double-width runes to count twice, got %d", cols[0].Width)
	}
}

func TestTable_SizeAndFocus(t *testing.T) {
	m := makeModel()
	m.SetRows([]contact{{"k", "v"}})
	m.SetSize(40, 8)

	if lipgloss.Height(m.View()) <= 0 {
		t.Fatalf("expected rendered table")
	}
	if !strings.Contains(m.View(), "NAME") {
		t.Fatalf("expected header in view, got %q", m.View())
	}

	if !m.Focused() {
		t.Fatalf("expected model focused by default")
	}
	m.Blur()
	if m.Focused() {
		t.Fatalf("expected model to be unfocused after Blur")
	}
	m.Focus()
	if !m.Focused() {
		t.Fatalf("expected model to be focused after Focus")
	}
}

func TestTable_ColorScheme(t *testing.T) {
	m := makeModel()
	m.SetRows([]contact{{"k", "v"}})

	m.SetNoColor(true)
	m.SetColors(lipgloss.Color("12"), lipgloss.Color("15"), lipgloss.Color("8"))

	_ = m.View()
	if m.String() == "" {
		t.Fatalf("expected non-empty debug string")
	}
}
