package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/crmx/internal/listview"
)

// Theme defines the colors used across the UI.
type Theme struct {
	Accent     color.Color // Active tab, header title, help keys
	Muted      color.Color // Inactive tabs, footer, help text
	SelectedFG color.Color // Cursor row foreground
	SelectedBG color.Color // Cursor row background
	Checked    color.Color // Selection marker of checked rows
	Info       color.Color
	Success    color.Color
	Warning    color.Color
	Error      color.Color
	Outbound   color.Color // Chat messages we sent
	Inbound    color.Color // Chat messages we received
}

// DefaultTheme returns the dark palette.
func DefaultTheme() Theme {
	return Theme{
		Accent:     lipgloss.Color("81"),  // cyan
		Muted:      lipgloss.Color("244"), // gray
		SelectedFG: lipgloss.Color("250"),
		SelectedBG: lipgloss.Color("24"), // deep teal
		Checked:    lipgloss.Color("114"),
		Info:       lipgloss.Color("81"),
		Success:    lipgloss.Color("114"), // mint
		Warning:    lipgloss.Color("221"),
		Error:      lipgloss.Color("203"), // soft red
		Outbound:   lipgloss.Color("150"),
		Inbound:    lipgloss.Color("252"),
	}
}

// Styles are the lipgloss styles built from a Theme.
type Styles struct {
	noColor bool

	Title       lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Footer      lipgloss.Style
	Checked     lipgloss.Style
	HelpKey     lipgloss.Style
	HelpValue   lipgloss.Style
	Outbound    lipgloss.Style
	Inbound     lipgloss.Style
	Section     lipgloss.Style
	toast       map[listview.Level]lipgloss.Style
	theme       Theme
}

// NewStyles builds the styles for t. With noColor every style is plain
// except for bold and reverse, which survive NO_COLOR terminals.
func NewStyles(t Theme, noColor bool) Styles {
	fg := func(c color.Color) lipgloss.Style {
		if noColor {
			return lipgloss.NewStyle()
		}
		return lipgloss.NewStyle().Foreground(c)
	}
	s := Styles{
		noColor:     noColor,
		theme:       t,
		Title:       fg(t.Accent).Bold(true),
		ActiveTab:   fg(t.Accent).Bold(true).Underline(true),
		InactiveTab: fg(t.Muted),
		Footer:      fg(t.Muted),
		Checked:     fg(t.Checked).Bold(true),
		HelpKey:     fg(t.Accent).Bold(true),
		HelpValue:   fg(t.Muted),
		Outbound:    fg(t.Outbound),
		Inbound:     fg(t.Inbound),
		Section:     fg(t.Accent).Bold(true),
		toast: map[listview.Level]lipgloss.Style{
			listview.LevelInfo:    fg(t.Info),
			listview.LevelSuccess: fg(t.Success),
			listview.LevelWarning: fg(t.Warning).Bold(true),
			listview.LevelError:   fg(t.Error).Bold(true),
		},
	}
	return s
}

// Toast returns the style for a notice of level l.
func (s Styles) Toast(l listview.Level) lipgloss.Style {
	if st, ok := s.toast[l]; ok {
		return st
	}
	return lipgloss.NewStyle()
}

// Theme returns the palette the styles were built from.
func (s Styles) Theme() Theme { return s.theme }

// NoColor reports whether colors are disabled.
func (s Styles) NoColor() bool { return s.noColor }
