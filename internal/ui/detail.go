package ui

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/ui/table"
)

type field struct {
	Key   string
	Value string
}

type recordMsg struct {
	id  string
	rec model.Record
	err error
}

type savedMsg struct {
	id    string
	field string
	rec   model.Record
	err   error
}

// detailModel shows every field of one record and edits them one at a time.
type detailModel struct {
	ctx    context.Context
	deps   *Deps
	styles Styles
	screen string
	tab    model.Tab
	id     string
	edit   bool

	record  model.Record
	loading bool
	err     error
	fields  *table.Model[field]
}

func newDetailModel(ctx context.Context, deps *Deps, styles Styles, screen string, tab model.Tab, id string, edit bool) *detailModel {
	d := &detailModel{
		ctx:    ctx,
		deps:   deps,
		styles: styles,
		screen: screen,
		tab:    tab,
		id:     id,
		edit:   edit,
	}
	d.fields = table.NewModel([]string{"FIELD", "VALUE"}, func(f field) table.Row { return table.Row{f.Key, f.Value} })
	d.fields.SetNoColor(styles.NoColor())
	return d
}

func (d *detailModel) Title() string {
	if name := d.record.Name(); name != "" {
		return name
	}
	return d.id
}

func (d *detailModel) SetSize(width, height int) {
	d.fields.SetSize(width, max(height-2, 3))
}

func (d *detailModel) Init() tea.Cmd {
	d.loading = true
	backend, ctx, tab, id := d.deps.Backend, d.ctx, d.tab, d.id
	return func() tea.Msg {
		rec, err := backend.Get(ctx, tab, id)
		return recordMsg{id: id, rec: rec, err: err}
	}
}

func (d *detailModel) promptID() string { return "edit:" + d.id }

func (d *detailModel) editPrompt() tea.Cmd {
	value := ""
	if f := d.fields.SelectedRow(); f != nil && f.Key != "_id" {
		value = f.Key + "=" + d.record.String(f.Key)
	}
	return openPrompt(newTextPrompt(d.promptID(), "Edit "+d.Title(), "field=value", value, d.styles))
}

func (d *detailModel) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	switch msg := msg.(type) {
	case recordMsg:
		if msg.id != d.id {
			return d, nil
		}
		d.loading = false
		d.err = msg.err
		if msg.err != nil {
			return d, toast(listview.LevelError, "Could not load record: "+gateway.UserMessage(msg.err))
		}
		d.setRecord(msg.rec)
		if d.edit {
			d.edit = false
			return d, d.editPrompt()
		}
		return d, nil

	case promptResultMsg:
		if msg.ID != d.promptID() || !msg.OK {
			return d, nil
		}
		key, value, ok := strings.Cut(msg.Value, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || key == "_id" {
			return d, toast(listview.LevelWarning, "Enter a change as field=value")
		}
		return d, d.save(key, strings.TrimSpace(value))

	case savedMsg:
		if msg.id != d.id {
			return d, nil
		}
		if msg.err != nil {
			return d, toast(listview.LevelError, "Save failed: "+gateway.UserMessage(msg.err))
		}
		d.setRecord(msg.rec)
		return d, tea.Batch(
			toast(listview.LevelSuccess, fmt.Sprintf("Saved %s", msg.field)),
			mutated(events.Mutation{Screen: d.screen, Tab: d.tab, Action: model.ActionEdit, IDs: []string{d.id}}),
		)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "e":
			if d.loading || d.err != nil {
				return d, nil
			}
			return d, d.editPrompt()
		case "h":
			return d, navigate(newHistoryModel(d.ctx, d.deps, d.styles, d.record))
		case "c":
			return d, openChat(d.ctx, d.deps, d.styles, d.record)
		case "o":
			f := d.fields.SelectedRow()
			if f == nil || !isURL(f.Value) {
				return d, nil
			}
			if err := OpenURL(f.Value); err != nil {
				return d, toast(listview.LevelError, "Could not open link: "+err.Error())
			}
			return d, nil
		}
		var cmd tea.Cmd
		d.fields, cmd = d.fields.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d *detailModel) save(key, value string) tea.Cmd {
	backend, ctx, tab, id := d.deps.Backend, d.ctx, d.tab, d.id
	return func() tea.Msg {
		rec, err := backend.Update(ctx, tab, id, map[string]any{key: value})
		return savedMsg{id: id, field: key, rec: rec, err: err}
	}
}

func (d *detailModel) setRecord(rec model.Record) {
	if rec.ID == "" {
		rec.ID = d.id
	}
	d.record = rec
	keys := rec.Keys()
	rows := make([]field, 0, len(keys)+1)
	rows = append(rows, field{Key: "_id", Value: rec.ID})
	for _, k := range keys {
		rows = append(rows, field{Key: k, Value: rec.Display(k)})
	}
	d.fields.SetRows(rows)
}

func (d *detailModel) Hints() string {
	return "e edit · o open link · h history · c chat · esc back"
}

func (d *detailModel) View() string {
	header := d.styles.Title.Render(fmt.Sprintf("%s · %s", d.tab.Label(), d.Title()))
	switch {
	case d.loading:
		return header + "\nLoading…"
	case d.err != nil:
		return header + "\n" + d.styles.Toast(listview.LevelError).Render(gateway.UserMessage(d.err))
	}
	return header + "\n" + d.fields.View()
}
