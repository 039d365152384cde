package ui

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/fakeapi"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
)

func leadsScreen() model.Screen {
	return model.Screen{
		Name:          "leads",
		Title:         "Leads",
		Tabs:          []model.Tab{model.TabLead, model.TabProspect},
		DefaultTab:    model.TabLead,
		SearchFields:  []string{"name", "email"},
		Columns:       []string{"name", "email", "phone"},
		Selection:     model.SelectMulti,
		Actions:       []model.Action{model.ActionView, model.ActionDelete, model.ActionAssign},
		AssignTargets: model.TabCoordinator,
	}
}

func people(tab model.Tab, n int) []model.Record {
	out := make([]model.Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.NewRecord(fmt.Sprintf("%s-%02d", tab, i), map[string]any{
			"name":  fmt.Sprintf("Person %02d", i),
			"email": fmt.Sprintf("p%02d@example.mx", i),
			"phone": fmt.Sprintf("+52999000%04d", i),
			"city":  "Mérida",
		}))
	}
	return out
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []events.Mutation
}

func (p *recordingPublisher) PublishMutation(_ context.Context, m events.Mutation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, m)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// closedSubscriber hands out closed channels so waiting on them never blocks.
type closedSubscriber struct{}

func (closedSubscriber) Subscribe(model.Tab) (<-chan events.Mutation, func(), error) {
	ch := make(chan events.Mutation)
	close(ch)
	return ch, func() {}, nil
}

func (closedSubscriber) Close() error { return nil }

type testEnv struct {
	api  *fakeapi.Server
	deps *Deps
	pub  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := fakeapi.New()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	pub := &recordingPublisher{}
	deps := &Deps{
		Screens:      []model.Screen{leadsScreen()},
		Backend:      gateway.NewHTTPClient(gateway.Options{BaseURL: srv.URL}),
		Store:        session.NewStore(t.TempDir()),
		Publisher:    pub,
		Subscriber:   closedSubscriber{},
		ActingUser:   func() string { return "agent-1" },
		SenderPhone:  func() string { return "+529990000000" },
		PollInterval: 50 * time.Millisecond,
		Location:     time.UTC,
	}
	deps.defaults()
	return &testEnv{api: api, deps: deps, pub: pub}
}

func (e *testEnv) list(t *testing.T) *ListModel {
	t.Helper()
	m, err := newListModel(context.Background(), leadsScreen(), e.deps, NewStyles(DefaultTheme(), true))
	if err != nil {
		t.Fatalf("newListModel: %v", err)
	}
	m.SetSize(100, 30)
	return m
}

// settle runs the fetch of the controller's current ticket and applies it.
func settle(m *ListModel) tea.Cmd {
	c := m.ctrl
	res := c.Fetch(context.Background(), listview.Ticket{Tab: c.Tab(), Generation: c.Generation()})
	_, cmd := m.Update(fetchResultMsg{screen: c.Screen().Name, res: res})
	return cmd
}

// collect runs cmd and every command batched inside it, returning the
// messages produced. Commands that block longer than a second are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	var walk func(tea.Cmd)
	walk = func(c tea.Cmd) {
		if c == nil {
			return
		}
		done := make(chan tea.Msg, 1)
		go func() { done <- c() }()
		select {
		case msg := <-done:
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, b := range batch {
					walk(b)
				}
				return
			}
			if msg != nil {
				out = append(out, msg)
			}
		case <-time.After(time.Second):
		}
	}
	walk(cmd)
	return out
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func findAll[T any](msgs []tea.Msg) []T {
	var out []T
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func typeText(m ChildModel, text string) {
	for _, r := range text {
		m.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func key(s string) tea.KeyPressMsg {
	switch s {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "space":
		return tea.KeyPressMsg{Code: tea.KeySpace, Text: " "}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}
	}
	r := []rune(s)[0]
	return tea.KeyPressMsg{Code: r, Text: s}
}
