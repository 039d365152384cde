package ui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/crmx/internal/listview"
)

// Mode controls where key presses are routed.
type Mode int

const (
	// NormalMode routes keys to the current child after the global bindings.
	NormalMode Mode = iota
	// SearchMode routes every key to the current child, which owns a text input.
	SearchMode
	// PromptMode routes every key to the open prompt.
	PromptMode
	// HelpMode shows the key binding overlay.
	HelpMode
)

// chromeHeight is the header plus the status and footer lines.
const chromeHeight = 4

// RootOptions configure a RootModel.
type RootOptions struct {
	// Screens are the screen names in switching order; keys 1-9 jump to them.
	Screens []string
	Titles  map[string]string
	// Maker builds the list model of a screen.
	Maker  Maker
	Styles Styles
	// Status, when set, is shown on the right of the header.
	Status func() string
}

// RootModel hosts one list screen at the bottom of a navigation stack and
// the detail, history and chat views pushed on top of it. It owns the
// prompt, help overlay and toast line.
type RootModel struct {
	mode Mode

	screens *CachedMaker
	names   []string
	titles  map[string]string
	active  string
	stack   []ChildModel

	help   *helpModel
	prompt *promptModel

	styles  Styles
	status  func() string
	toast   listview.Notice
	toastID int

	width    int
	height   int
	quitting bool
}

// NewRootModel creates a root model. Nothing is shown until SwitchScreen.
func NewRootModel(opts RootOptions) *RootModel {
	titles := opts.Titles
	if titles == nil {
		titles = map[string]string{}
	}
	return &RootModel{
		mode:    NormalMode,
		screens: NewCachedMaker(opts.Maker),
		names:   opts.Screens,
		titles:  titles,
		styles:  opts.Styles,
		status:  opts.Status,
		help:    newHelpModel(opts.Styles),
		width:   80,
		height:  24,
	}
}

// Init initializes the current child.
func (m *RootModel) Init() tea.Cmd {
	if cur := m.current(); cur != nil {
		return cur.Init()
	}
	return nil
}

func (m *RootModel) current() ChildModel {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

func (m *RootModel) bodyHeight() int {
	return max(m.height-chromeHeight, 3)
}

// SwitchScreen replaces the whole stack with the list model of screen.
func (m *RootModel) SwitchScreen(name string) tea.Cmd {
	if !slices.Contains(m.names, name) {
		return toast(listview.LevelWarning, fmt.Sprintf("Unknown screen %q", name))
	}
	if name == m.active && len(m.stack) == 1 {
		return nil
	}
	for _, c := range m.stack {
		if f, ok := c.(ModelWithFocus); ok {
			f.Blur()
		}
	}
	child, initCmd := m.screens.Make(name, m.width, m.bodyHeight())
	m.active = name
	m.stack = []ChildModel{child}
	m.mode = NormalMode
	cmds := []tea.Cmd{initCmd}
	if f, ok := child.(ModelWithFocus); ok {
		cmds = append(cmds, f.Focus())
	}
	return tea.Batch(cmds...)
}

// ActiveScreen returns the name of the screen at the bottom of the stack.
func (m *RootModel) ActiveScreen() string { return m.active }

// NavigateTo pushes child on top of the stack.
func (m *RootModel) NavigateTo(child ChildModel) tea.Cmd {
	if cur := m.current(); cur != nil {
		if f, ok := cur.(ModelWithFocus); ok {
			f.Blur()
		}
	}
	if sized, ok := child.(ModelWithSize); ok {
		sized.SetSize(m.width, m.bodyHeight())
	}
	m.stack = append(m.stack, child)
	m.mode = NormalMode
	cmds := []tea.Cmd{child.Init()}
	if f, ok := child.(ModelWithFocus); ok {
		cmds = append(cmds, f.Focus())
	}
	return tea.Batch(cmds...)
}

// NavigateBack pops the top child. The screen list is never popped.
func (m *RootModel) NavigateBack() (tea.Cmd, bool) {
	if len(m.stack) < 2 {
		return nil, false
	}
	if f, ok := m.current().(ModelWithFocus); ok {
		f.Blur()
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.mode = NormalMode
	if f, ok := m.current().(ModelWithFocus); ok {
		return f.Focus(), true
	}
	return nil, true
}

// Depth returns the size of the navigation stack.
func (m *RootModel) Depth() int { return len(m.stack) }

// Mode returns the current UI mode.
func (m *RootModel) Mode() Mode { return m.mode }

// Toast returns the notice on the status line.
func (m *RootModel) Toast() listview.Notice { return m.toast }

// live returns every model that receives broadcast messages: the stack and
// the cached lists of other screens.
func (m *RootModel) live() []ChildModel {
	out := slices.Clone(m.stack)
	for _, c := range m.screens.Models() {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Update handles global messages and routes the rest to the children.
func (m *RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, c := range m.live() {
			if sized, ok := c.(ModelWithSize); ok {
				sized.SetSize(m.width, m.bodyHeight())
			}
		}
		m.help.SetSize(m.width, m.bodyHeight())
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case navigateMsg:
		return m, m.NavigateTo(msg.model)

	case backMsg:
		cmd, _ := m.NavigateBack()
		return m, cmd

	case promptMsg:
		msg.prompt.SetSize(m.width, m.bodyHeight())
		m.prompt = msg.prompt
		m.mode = PromptMode
		return m, m.prompt.Init()

	case promptResultMsg:
		m.prompt = nil
		m.mode = NormalMode
		return m, m.updateCurrent(msg)

	case toastMsg:
		m.toastID++
		m.toast = msg.Notice
		return m, clearToastAfter(m.toastID, toastDelay)

	case toastClearMsg:
		if msg.ID == m.toastID {
			m.toast = listview.Notice{}
		}
		return m, nil
	}

	return m, m.broadcast(msg)
}

func (m *RootModel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case HelpMode:
		if key == "?" || key == "esc" || key == "q" {
			m.mode = NormalMode
		}
		return m, nil

	case PromptMode:
		if m.prompt == nil {
			m.mode = NormalMode
			return m, nil
		}
		return m, m.prompt.Update(msg)
	}

	if in, ok := m.current().(ModelWithInput); ok && in.Capturing() {
		m.mode = SearchMode
		return m, m.updateCurrent(msg)
	}
	m.mode = NormalMode

	switch key {
	case "?":
		m.mode = HelpMode
		return m, nil
	case "q":
		if cmd, ok := m.NavigateBack(); ok {
			return m, cmd
		}
		m.quitting = true
		return m, tea.Quit
	case "esc":
		if cmd, ok := m.NavigateBack(); ok {
			return m, cmd
		}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.names) && n <= 9 {
		return m, m.SwitchScreen(m.names[n-1])
	}
	cmd := m.updateCurrent(msg)
	if in, ok := m.current().(ModelWithInput); ok && in.Capturing() {
		m.mode = SearchMode
	}
	return m, cmd
}

func (m *RootModel) updateCurrent(msg tea.Msg) tea.Cmd {
	if len(m.stack) == 0 {
		return nil
	}
	i := len(m.stack) - 1
	var cmd tea.Cmd
	m.stack[i], cmd = m.stack[i].Update(msg)
	return cmd
}

func (m *RootModel) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, c := range m.live() {
		_, cmd := c.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// View renders the header, the current child and the status lines.
func (m *RootModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	body := ""
	switch {
	case m.mode == HelpMode:
		body = m.help.View()
	case m.current() != nil:
		body = m.current().View()
	}
	if m.mode == PromptMode && m.prompt != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.prompt.View())
	}
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.styles.Toast(m.toast.Level).Render(m.toast.Text))
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render(m.footer()))

	v := tea.NewView(b.String())
	v.AltScreen = true
	return v
}

func (m *RootModel) header() string {
	parts := make([]string, 0, len(m.names))
	for i, name := range m.names {
		label := fmt.Sprintf("%d %s", i+1, m.title(name))
		if name == m.active {
			parts = append(parts, m.styles.ActiveTab.Render(label))
		} else {
			parts = append(parts, m.styles.InactiveTab.Render(label))
		}
	}
	left := m.styles.Title.Render("crmx") + "  " + strings.Join(parts, "  ")
	if len(m.stack) > 1 {
		crumbs := make([]string, 0, len(m.stack)-1)
		for _, c := range m.stack[1:] {
			if t, ok := c.(ModelWithTitle); ok {
				crumbs = append(crumbs, t.Title())
			}
		}
		left += m.styles.Footer.Render("  › " + strings.Join(crumbs, " › "))
	}
	if m.status == nil {
		return left
	}
	right := m.styles.Footer.Render(m.status())
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *RootModel) title(name string) string {
	if t := m.titles[name]; t != "" {
		return t
	}
	return name
}

func (m *RootModel) footer() string {
	switch m.mode {
	case PromptMode:
		return "enter confirm · esc cancel"
	case HelpMode:
		return "? close help"
	}
	h, ok := m.current().(interface{ Hints() string })
	switch {
	case ok && m.mode == SearchMode:
		return h.Hints()
	case ok:
		return h.Hints() + " · ? help · q quit"
	}
	return "? help · q quit"
}
