package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/ui/table"
)

// printValue writes v as JSON or YAML. Other formats are rejected so each
// command decides what "table" means for its data.
func printValue(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q (use table, json or yaml)", format)
}

// printRecords writes records as a table of columns, or as JSON/YAML
// documents keeping every field.
func printRecords(w io.Writer, format string, records []model.Record, columns []string, noColor bool, width int) error {
	if format != "table" {
		if records == nil {
			records = []model.Record{}
		}
		return printValue(w, format, records)
	}
	titles := make([]string, 0, len(columns)+1)
	titles = append(titles, "ID")
	for _, c := range columns {
		titles = append(titles, columnHeader(c))
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, 0, len(titles))
		row = append(row, r.ID)
		for _, c := range columns {
			row = append(row, r.Display(c))
		}
		rows[i] = row
	}
	_, err := io.WriteString(w, renderTable(titles, rows, width, noColor))
	return err
}

// printFields writes one record as a two-column field/value table.
func printFields(w io.Writer, format string, rec model.Record, noColor bool, width int) error {
	if format != "table" {
		return printValue(w, format, rec)
	}
	rows := [][]string{{"_id", rec.ID}}
	for _, k := range rec.Keys() {
		rows = append(rows, []string{k, rec.Display(k)})
	}
	_, err := io.WriteString(w, renderTable([]string{"FIELD", "VALUE"}, rows, width, noColor))
	return err
}

// columnHeader turns a field path such as "office.name" into "OFFICE".
func columnHeader(field string) string {
	if i := strings.IndexByte(field, '.'); i > 0 {
		field = field[:i]
	}
	return strings.ToUpper(field)
}

// renderTable lays out rows in columns fitted to width, truncating the
// widest cells first. Widths are measured in terminal cells.
func renderTable(titles []string, rows [][]string, width int, noColor bool) string {
	if width <= 0 {
		width = defaultFallbackTermWidth
	}
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		trows[i] = table.Row(r)
	}
	cols := table.FitColumns(titles, trows, width)

	header := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	line := func(cells []string, style *lipgloss.Style) {
		parts := make([]string, len(cols))
		for i, c := range cols {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			cell = runewidth.FillRight(runewidth.Truncate(cell, c.Width, "…"), c.Width)
			if style != nil && !noColor {
				cell = style.Render(cell)
			}
			parts[i] = cell
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, " "), " "))
		b.WriteString("\n")
	}
	line(titles, &header)
	for _, r := range rows {
		line(r, nil)
	}
	return b.String()
}
