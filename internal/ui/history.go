package ui

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/history"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
)

type callsMsg struct {
	recordID string
	calls    []model.CallRecord
	err      error
}

// historyModel lists a record's calls grouped into collapsible days.
type historyModel struct {
	ctx    context.Context
	deps   *Deps
	styles Styles
	record model.Record

	loading  bool
	err      error
	groups   []history.Group
	sections *history.Sections
	cursor   int
	height   int
}

func newHistoryModel(ctx context.Context, deps *Deps, styles Styles, record model.Record) *historyModel {
	return &historyModel{
		ctx:      ctx,
		deps:     deps,
		styles:   styles,
		record:   record,
		sections: history.NewSections(),
	}
}

func (h *historyModel) Title() string { return "History" }

func (h *historyModel) SetSize(_, height int) { h.height = height }

func (h *historyModel) Init() tea.Cmd {
	h.loading = true
	backend, ctx, id := h.deps.Backend, h.ctx, h.record.ID
	return func() tea.Msg {
		calls, err := backend.Calls(ctx, id)
		return callsMsg{recordID: id, calls: calls, err: err}
	}
}

func (h *historyModel) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	switch msg := msg.(type) {
	case callsMsg:
		if msg.recordID != h.record.ID {
			return h, nil
		}
		h.loading = false
		h.err = msg.err
		if msg.err != nil {
			return h, toast(listview.LevelError, "Could not load history: "+gateway.UserMessage(msg.err))
		}
		h.groups = history.GroupByDate(msg.calls, h.deps.DateLayout, h.deps.Location)
		h.cursor = 0
		return h, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			if h.cursor > 0 {
				h.cursor--
			}
		case "down", "j":
			if h.cursor < len(h.groups)-1 {
				h.cursor++
			}
		case "enter", "space":
			if h.cursor < len(h.groups) {
				h.sections.Toggle(h.groups[h.cursor].Date)
			}
		case "E":
			h.sections.Expand(history.Dates(h.groups)...)
		case "C":
			h.sections.CollapseAll()
		}
	}
	return h, nil
}

func (h *historyModel) Hints() string {
	return "enter toggle day · E expand all · C collapse all · esc back"
}

func (h *historyModel) View() string {
	name := h.record.Name()
	if name == "" {
		name = h.record.ID
	}
	lines := []string{h.styles.Title.Render("Call history · " + name)}
	switch {
	case h.loading:
		return lines[0] + "\nLoading…"
	case h.err != nil:
		return lines[0] + "\n" + h.styles.Toast(listview.LevelError).Render(gateway.UserMessage(h.err))
	case len(h.groups) == 0:
		return lines[0] + "\n" + h.styles.Footer.Render("No calls recorded")
	}

	loc := h.deps.Location
	for i, g := range h.groups {
		arrow := "▸"
		if h.sections.Open(g.Date) {
			arrow = "▾"
		}
		head := fmt.Sprintf("%s %s (%d)", arrow, g.Date, len(g.Records))
		if i == h.cursor {
			head = h.styles.Checked.Render(head)
		} else {
			head = h.styles.Section.Render(head)
		}
		lines = append(lines, head)
		if !h.sections.Open(g.Date) {
			continue
		}
		for _, c := range g.Records {
			at := c.At
			if loc != nil {
				at = at.In(loc)
			}
			line := fmt.Sprintf("    %s  %-8s %4dm  %s", at.Format("15:04"), c.Kind, c.Duration/60, c.Summary)
			if c.Agent != "" {
				line += h.styles.Footer.Render("  · " + c.Agent)
			}
			lines = append(lines, line)
		}
	}
	if h.height > 0 && len(lines) > h.height {
		lines = visibleWindow(lines, h.height, h.cursorLine())
	}
	return strings.Join(lines, "\n")
}

// cursorLine is the rendered line index of the focused section header.
func (h *historyModel) cursorLine() int {
	line := 1
	for i, g := range h.groups {
		if i == h.cursor {
			return line
		}
		line++
		if h.sections.Open(g.Date) {
			line += len(g.Records)
		}
	}
	return line
}

// visibleWindow keeps height lines around focus, always keeping the first
// line as a header.
func visibleWindow(lines []string, height, focus int) []string {
	if height < 2 {
		return lines[:1]
	}
	body := lines[1:]
	focus--
	span := height - 1
	start := max(focus-span/2, 0)
	if start+span > len(body) {
		start = max(len(body)-span, 0)
	}
	end := min(start+span, len(body))
	return append([]string{lines[0]}, body[start:end]...)
}
