package ui

import (
	"strings"

	runewidth "github.com/mattn/go-runewidth"
)

type binding struct {
	keys string
	desc string
}

type bindingGroup struct {
	title    string
	bindings []binding
}

var helpGroups = []bindingGroup{
	{"Global", []binding{
		{"1-9", "switch screen"},
		{"esc", "back"},
		{"q", "back or quit"},
		{"?", "toggle help"},
		{"ctrl+c", "quit"},
	}},
	{"Lists", []binding{
		{"tab / shift+tab", "next / previous tab"},
		{"/", "search"},
		{"] / [", "next / previous page"},
		{"s", "cycle page size"},
		{"space", "toggle selection"},
		{"a", "select all (multi-select screens)"},
		{"esc", "clear selection"},
		{"enter", "open row"},
		{"v e d A", "view, edit, delete, assign selected"},
		{"h c", "call history, chat"},
		{"y", "copy phone or email"},
		{"r", "reload"},
	}},
	{"Detail", []binding{
		{"e", "edit a field"},
		{"o", "open link under cursor"},
		{"h c", "call history, chat"},
	}},
	{"History", []binding{
		{"enter / space", "expand or collapse day"},
		{"E / C", "expand all / collapse all"},
	}},
	{"Chat", []binding{
		{"enter", "send"},
		{"ctrl+r", "retry failed message"},
		{"esc", "back"},
	}},
}

type helpModel struct {
	styles Styles
	width  int
	height int
}

func newHelpModel(styles Styles) *helpModel {
	return &helpModel{styles: styles}
}

func (h *helpModel) SetSize(width, height int) {
	h.width = width
	h.height = height
}

func (h *helpModel) View() string {
	keyWidth := 0
	for _, g := range helpGroups {
		for _, b := range g.bindings {
			keyWidth = max(keyWidth, runewidth.StringWidth(b.keys))
		}
	}
	var lines []string
	for _, g := range helpGroups {
		lines = append(lines, h.styles.Section.Render(g.title))
		for _, b := range g.bindings {
			key := runewidth.FillRight(b.keys, keyWidth)
			lines = append(lines, "  "+h.styles.HelpKey.Render(key)+"  "+h.styles.HelpValue.Render(b.desc))
		}
		lines = append(lines, "")
	}
	if h.height > 0 && len(lines) > h.height {
		lines = lines[:h.height]
	}
	return strings.Join(lines, "\n")
}
