package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
)

func TestDetailLoadsAndEdits(t *testing.T) {
	env := newTestEnv(t)
	env.api.Seed(model.TabLead, people(model.TabLead, 2)...)
	styles := NewStyles(DefaultTheme(), true)
	d := newDetailModel(context.Background(), env.deps, styles, "leads", model.TabLead, "lead-02", true)
	d.SetSize(100, 20)

	rec, ok := find[recordMsg](collect(d.Init()))
	require.True(t, ok)
	_, cmd := d.Update(rec)
	assert.Equal(t, "Person 02", d.Title())
	assert.Contains(t, d.View(), "p02@example.mx")

	p, ok := find[promptMsg](collect(cmd))
	require.True(t, ok, "opening in edit mode prompts right away")
	assert.Equal(t, "edit:lead-02", p.prompt.id)

	_, cmd = d.Update(promptResultMsg{ID: "edit:lead-02", OK: true, Value: "city = Progreso"})
	saved, ok := find[savedMsg](collect(cmd))
	require.True(t, ok)
	require.NoError(t, saved.err)

	_, cmd = d.Update(saved)
	msgs := collect(cmd)
	mut, ok := find[MutationMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "leads", mut.Mutation.Screen)
	assert.Equal(t, model.ActionEdit, mut.Mutation.Action)
	assert.Equal(t, []string{"lead-02"}, mut.Mutation.IDs)
	assert.Empty(t, mut.Mutation.Origin)
	assert.Contains(t, d.View(), "Progreso")

	for _, r := range env.api.Records(model.TabLead) {
		if r.ID == "lead-02" {
			assert.Equal(t, "Progreso", r.City())
		}
	}
}

func TestDetailRejectsMalformedEdit(t *testing.T) {
	env := newTestEnv(t)
	env.api.Seed(model.TabLead, people(model.TabLead, 1)...)
	d := newDetailModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), "leads", model.TabLead, "lead-01", false)
	rec, _ := find[recordMsg](collect(d.Init()))
	d.Update(rec)

	_, cmd := d.Update(promptResultMsg{ID: "edit:lead-01", OK: true, Value: "Progreso"})
	toasts := findAll[toastMsg](collect(cmd))
	require.Len(t, toasts, 1)
	assert.Equal(t, listview.LevelWarning, toasts[0].Level)
}

func TestDetailMissingRecord(t *testing.T) {
	env := newTestEnv(t)
	d := newDetailModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), "leads", model.TabLead, "nope", false)
	rec, ok := find[recordMsg](collect(d.Init()))
	require.True(t, ok)
	require.Error(t, rec.err)

	_, cmd := d.Update(rec)
	toasts := findAll[toastMsg](collect(cmd))
	require.Len(t, toasts, 1)
	assert.Equal(t, listview.LevelError, toasts[0].Level)

	_, cmd = d.Update(key("e"))
	assert.Nil(t, cmd, "nothing to edit without a record")
}

func TestHistorySections(t *testing.T) {
	env := newTestEnv(t)
	day1 := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	env.api.SeedCalls("lead-01",
		model.CallRecord{ID: "c1", RecordID: "lead-01", At: day1, Kind: "call", Summary: "Quiere visitar", Duration: 300},
		model.CallRecord{ID: "c2", RecordID: "lead-01", At: day2, Kind: "whatsapp", Summary: "Primer contacto"},
		model.CallRecord{ID: "c3", RecordID: "lead-01", At: day1.Add(time.Hour), Kind: "call", Summary: "Confirma cita"},
	)
	rec := model.NewRecord("lead-01", map[string]any{"name": "Ana"})
	h := newHistoryModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), rec)

	calls, ok := find[callsMsg](collect(h.Init()))
	require.True(t, ok)
	h.Update(calls)

	require.Len(t, h.groups, 2)
	assert.Equal(t, "Sat, 02 Mar 2024", h.groups[0].Date)
	assert.Len(t, h.groups[0].Records, 2)
	view := h.View()
	assert.Contains(t, view, "Sat, 02 Mar 2024 (2)")
	assert.NotContains(t, view, "Quiere visitar", "sections start closed")

	h.Update(key("enter"))
	view = h.View()
	assert.Contains(t, view, "Quiere visitar")
	assert.Contains(t, view, "Confirma cita")
	assert.NotContains(t, view, "Primer contacto", "toggling one day leaves the others alone")

	h.Update(key("down"))
	h.Update(key("space"))
	assert.Contains(t, h.View(), "Primer contacto")

	h.Update(key("C"))
	assert.NotContains(t, h.View(), "Quiere visitar")
	h.Update(key("E"))
	assert.Contains(t, h.View(), "Primer contacto")
	assert.Contains(t, h.View(), "Quiere visitar")
}

func TestHistoryEmpty(t *testing.T) {
	env := newTestEnv(t)
	h := newHistoryModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), model.NewRecord("x", nil))
	calls, _ := find[callsMsg](collect(h.Init()))
	h.Update(calls)
	assert.Contains(t, h.View(), "No calls recorded")
}

func TestVisibleWindowKeepsHeader(t *testing.T) {
	lines := []string{"head", "a", "b", "c", "d", "e"}
	got := visibleWindow(lines, 3, 5)
	assert.Equal(t, []string{"head", "d", "e"}, got)
	assert.Equal(t, []string{"head", "a", "b"}, visibleWindow(lines, 3, 1))
}

func TestChatPollsAndSends(t *testing.T) {
	env := newTestEnv(t)
	phone := "+529991112233"
	env.api.AddInbound(phone, "Hola, ¿sigue disponible?")
	c := newChatModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), "Ana", phone)
	c.SetSize(80, 20)

	polled, ok := find[polledMsg](collect(c.Focus()))
	require.True(t, ok)
	require.NoError(t, polled.err)
	assert.Equal(t, 1, polled.added)

	_, cmd := c.Update(polled)
	require.NotNil(t, cmd, "a poll schedules the next tick")
	assert.Contains(t, c.View(), "Hola, ¿sigue disponible?")

	typeText(c, "Sí, aún está")
	_, cmd = c.Update(key("enter"))
	sent, ok := find[sentMsg](collect(cmd))
	require.True(t, ok)
	require.NoError(t, sent.err)

	thread := env.api.Thread(phone)
	require.Len(t, thread, 2)
	assert.Equal(t, "Sí, aún está", thread[1].Body)
	assert.Equal(t, model.Outbound, thread[1].Direction)
	assert.Equal(t, 2, c.thread.Len())
	assert.Contains(t, c.View(), "you: Sí, aún está")
}

func TestChatStopsPollingWhenHidden(t *testing.T) {
	env := newTestEnv(t)
	c := newChatModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), "Ana", "+529990000001")

	polled, ok := find[polledMsg](collect(c.Focus()))
	require.True(t, ok)
	c.Blur()

	_, cmd := c.Update(polled)
	assert.Nil(t, cmd)
	_, cmd = c.Update(pollTickMsg{phone: "+529990000001", gen: polled.gen})
	assert.Nil(t, cmd)
}

func TestChatEscGoesBack(t *testing.T) {
	env := newTestEnv(t)
	c := newChatModel(context.Background(), env.deps, NewStyles(DefaultTheme(), true), "Ana", "+529990000001")
	assert.True(t, c.Capturing())

	_, cmd := c.Update(key("esc"))
	require.NotNil(t, cmd)
	_, ok := cmd().(backMsg)
	assert.True(t, ok)
}

func TestOpenChatNeedsPhone(t *testing.T) {
	env := newTestEnv(t)
	cmd := openChat(context.Background(), env.deps, NewStyles(DefaultTheme(), true), model.NewRecord("x", map[string]any{"name": "Ana"}))
	msg, ok := cmd().(toastMsg)
	require.True(t, ok)
	assert.Equal(t, listview.LevelWarning, msg.Level)

	cmd = openChat(context.Background(), env.deps, NewStyles(DefaultTheme(), true), model.NewRecord("y", map[string]any{"phone": "+529990000009"}))
	_, ok = cmd().(navigateMsg)
	assert.True(t, ok)
	sess, err := env.deps.Store.Load()
	require.NoError(t, err)
	assert.Equal(t, "+529990000009", sess.ClientNumber)
}

func TestPromptKinds(t *testing.T) {
	styles := NewStyles(DefaultTheme(), true)
	result := func(cmd tea.Cmd) promptResultMsg {
		t.Helper()
		require.NotNil(t, cmd)
		res, ok := cmd().(promptResultMsg)
		require.True(t, ok)
		return res
	}

	text := newTextPrompt("t", "Target?", "id", "", styles)
	text.Init()
	typeTextPrompt(text, "coord-1")
	assert.Equal(t, promptResultMsg{ID: "t", OK: true, Value: "coord-1"}, result(text.Update(key("enter"))))

	blank := newTextPrompt("t", "Target?", "id", "   ", styles)
	assert.False(t, result(blank.Update(key("enter"))).OK, "a blank answer counts as dismissed")

	pick := newPickPrompt("p", "Assign to", []Option{{"a", "Ana"}, {"b", "Beto"}}, styles)
	pick.Update(key("down"))
	pick.Update(key("down"))
	assert.Equal(t, "b", result(pick.Update(key("enter"))).Value)
	assert.True(t, strings.Contains(pick.View(), "Beto"))

	confirm := newConfirmPrompt("c", "Delete?", styles)
	assert.False(t, result(confirm.Update(key("n"))).OK)
	assert.False(t, result(confirm.Update(key("esc"))).OK)
	assert.Nil(t, confirm.Update(key("x")))
}

func typeTextPrompt(p *promptModel, text string) {
	for _, r := range text {
		p.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}
