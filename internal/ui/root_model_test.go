package ui

import (
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/listview"
)

// Mock ChildModel for testing
type mockChild struct {
	id          string
	title       string
	capturing   bool
	initCalls   int
	updateCalls int
	lastMsg     tea.Msg
	focused     bool
	width       int
	height      int
}

func newMockChild(id, title string) *mockChild {
	return &mockChild{id: id, title: title}
}

func (m *mockChild) Init() tea.Cmd {
	m.initCalls++
	return nil
}

func (m *mockChild) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	m.updateCalls++
	m.lastMsg = msg
	return m, nil
}

func (m *mockChild) View() string { return m.title + " view" }

func (m *mockChild) Title() string { return m.title }

func (m *mockChild) Capturing() bool { return m.capturing }

func (m *mockChild) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *mockChild) Focus() tea.Cmd {
	m.focused = true
	return nil
}

func (m *mockChild) Blur() { m.focused = false }

func (m *mockChild) Focused() bool { return m.focused }

// Mock Maker for testing
type mockMaker struct {
	created map[string]*mockChild
	makes   int
}

func newMockMaker() *mockMaker {
	return &mockMaker{created: make(map[string]*mockChild)}
}

func (m *mockMaker) Make(id string, width, height int) (ChildModel, tea.Cmd) {
	m.makes++
	child := newMockChild(id, "Mock "+id)
	child.SetSize(width, height)
	m.created[id] = child
	return child, child.Init()
}

func newTestRoot(maker Maker) *RootModel {
	return NewRootModel(RootOptions{
		Screens: []string{"leads", "clients"},
		Titles:  map[string]string{"leads": "Leads", "clients": "Clients"},
		Maker:   maker,
		Styles:  NewStyles(DefaultTheme(), true),
	})
}

func viewText(m *RootModel) string {
	return fmt.Sprint(m.View().Content)
}

func press(code rune, text string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code, Text: text}
}

func TestSwitchScreenCachesModels(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)

	m.SwitchScreen("leads")
	if m.ActiveScreen() != "leads" || m.Depth() != 1 {
		t.Fatalf("expected leads at depth 1, got %q at %d", m.ActiveScreen(), m.Depth())
	}
	leads := maker.created["leads"]
	if !leads.focused {
		t.Errorf("expected new screen to be focused")
	}

	m.Update(press('2', "2"))
	if m.ActiveScreen() != "clients" {
		t.Fatalf("expected key 2 to switch to clients, got %q", m.ActiveScreen())
	}
	if leads.focused {
		t.Errorf("expected previous screen to be blurred")
	}

	m.Update(press('1', "1"))
	if maker.makes != 2 {
		t.Errorf("expected leads to come from the cache, maker ran %d times", maker.makes)
	}
	if leads.initCalls != 1 {
		t.Errorf("expected cached screen not to re-init, got %d inits", leads.initCalls)
	}
}

func TestSwitchScreenUnknown(t *testing.T) {
	m := newTestRoot(newMockMaker())
	cmd := m.SwitchScreen("nope")
	if cmd == nil {
		t.Fatal("expected a toast command")
	}
	msg, ok := cmd().(toastMsg)
	if !ok || msg.Level != listview.LevelWarning {
		t.Fatalf("expected warning toast, got %#v", msg)
	}
}

func TestNavigationStack(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("leads")
	list := maker.created["leads"]

	detail := newMockChild("detail", "Ana")
	m.Update(navigateMsg{model: detail})
	if m.Depth() != 2 || m.current() != detail {
		t.Fatalf("expected detail on top, depth %d", m.Depth())
	}
	if detail.initCalls != 1 || !detail.focused || list.focused {
		t.Errorf("expected focus to move to detail")
	}

	m.Update(press(tea.KeyEscape, ""))
	if m.Depth() != 1 || m.current() != list {
		t.Fatalf("expected esc to pop back to the list")
	}
	if !list.focused || detail.focused {
		t.Errorf("expected focus back on the list")
	}

	if _, ok := m.NavigateBack(); ok {
		t.Errorf("the screen list must never be popped")
	}
}

func TestEscAtRootGoesToList(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("leads")

	m.Update(press(tea.KeyEscape, ""))
	list := maker.created["leads"]
	if list.updateCalls != 1 {
		t.Fatalf("expected esc to reach the list, got %d updates", list.updateCalls)
	}
}

func TestQuitAndCapture(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("leads")
	list := maker.created["leads"]

	list.capturing = true
	_, cmd := m.Update(press('q', "q"))
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatal("q must reach a capturing child instead of quitting")
		}
	}
	if list.updateCalls != 1 || m.Mode() != SearchMode {
		t.Errorf("expected key routed to child in search mode, mode=%v", m.Mode())
	}

	list.capturing = false
	_, cmd = m.Update(press('q', "q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Errorf("expected tea.QuitMsg")
	}
}

func TestHelpMode(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("leads")

	m.Update(press('?', "?"))
	if m.Mode() != HelpMode {
		t.Fatalf("expected help mode")
	}
	if !strings.Contains(viewText(m), "switch screen") {
		t.Errorf("expected help text in view")
	}

	m.Update(press('j', "j"))
	if maker.created["leads"].updateCalls != 0 {
		t.Errorf("keys must not reach the list while help is open")
	}

	m.Update(press('?', "?"))
	if m.Mode() != NormalMode {
		t.Errorf("expected help to close")
	}
}

func TestPromptFlow(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("leads")
	list := maker.created["leads"]

	p := newConfirmPrompt("leads:delete", "Delete lead l1?", m.styles)
	m.Update(promptMsg{prompt: p})
	if m.Mode() != PromptMode {
		t.Fatalf("expected prompt mode")
	}
	if !strings.Contains(viewText(m), "Delete lead l1?") {
		t.Errorf("expected prompt in view")
	}

	_, cmd := m.Update(press('y', "y"))
	if cmd == nil {
		t.Fatal("expected prompt result command")
	}
	res, ok := cmd().(promptResultMsg)
	if !ok || !res.OK || res.ID != "leads:delete" {
		t.Fatalf("unexpected prompt result %#v", res)
	}
	if list.updateCalls != 0 {
		t.Errorf("keys must not reach the list while a prompt is open")
	}

	m.Update(res)
	if m.Mode() != NormalMode {
		t.Errorf("expected normal mode after the prompt closed")
	}
	if _, ok := list.lastMsg.(promptResultMsg); !ok {
		t.Errorf("expected the list to receive the prompt result, got %#v", list.lastMsg)
	}
}

func TestToastLifecycle(t *testing.T) {
	m := newTestRoot(newMockMaker())
	m.SwitchScreen("leads")

	m.Update(toastMsg{Notice: listview.Notice{Level: listview.LevelSuccess, Text: "Deleted l1"}})
	first := m.toastID
	m.Update(toastMsg{Notice: listview.Notice{Level: listview.LevelError, Text: "Assign failed"}})

	m.Update(toastClearMsg{ID: first})
	if m.Toast().Text != "Assign failed" {
		t.Errorf("a stale clear must not remove the newer toast, got %q", m.Toast().Text)
	}
	if !strings.Contains(viewText(m), "Assign failed") {
		t.Errorf("expected toast in view")
	}

	m.Update(toastClearMsg{ID: m.toastID})
	if m.Toast().Text != "" {
		t.Errorf("expected toast cleared, got %q", m.Toast().Text)
	}
}

func TestBroadcastReachesEveryLiveModel(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("clients")
	m.SwitchScreen("leads")
	detail := newMockChild("detail", "Ana")
	m.Update(navigateMsg{model: detail})

	type ping struct{}
	m.Update(ping{})

	for _, c := range []*mockChild{maker.created["leads"], maker.created["clients"], detail} {
		if _, ok := c.lastMsg.(ping); !ok {
			t.Errorf("%s did not receive the broadcast", c.id)
		}
	}
	if maker.created["leads"].updateCalls != 1 {
		t.Errorf("a model in both the stack and the cache must get the message once")
	}
}

func TestWindowResize(t *testing.T) {
	maker := newMockMaker()
	m := newTestRoot(maker)
	m.SwitchScreen("leads")

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	list := maker.created["leads"]
	if list.width != 120 || list.height != 40-chromeHeight {
		t.Errorf("expected list sized 120x%d, got %dx%d", 40-chromeHeight, list.width, list.height)
	}

	detail := newMockChild("detail", "Ana")
	m.NavigateTo(detail)
	if detail.width != 120 {
		t.Errorf("expected pushed child sized on push, got %d", detail.width)
	}
}

func TestViewRendering(t *testing.T) {
	m := newTestRoot(newMockMaker())
	m.status = func() string { return "Oficina Centro" }
	m.SwitchScreen("leads")
	m.Update(navigateMsg{model: newMockChild("detail", "Ana")})

	v := m.View()
	if !v.AltScreen {
		t.Errorf("expected alt screen")
	}
	for _, want := range []string{"1 Leads", "2 Clients", "› Ana", "Ana view", "Oficina Centro", "q quit"} {
		if !strings.Contains(fmt.Sprint(v.Content), want) {
			t.Errorf("view missing %q:\n%s", want, fmt.Sprint(v.Content))
		}
	}
}
