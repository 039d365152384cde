package ui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/listview"
	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/ui/table"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// listChrome is the tab bar, search line and page line around the table.
const listChrome = 4

// fetchResultMsg carries a finished fetch back to the list that started it.
type fetchResultMsg struct {
	screen string
	res    listview.Result
}

// executedMsg carries a finished delete or assign.
type executedMsg struct {
	screen string
	res    listview.MutationResult
}

// targetsMsg carries the assignees loaded for an assign prompt.
type targetsMsg struct {
	screen  string
	options []Option
	err     error
}

// remoteMutationMsg is a change announced by another client. ok is false
// once the subscription channel is closed.
type remoteMutationMsg struct {
	screen string
	seq    int
	m      events.Mutation
	ok     bool
}

type viewSavedMsg struct{}

// subscription tracks the live remote-change feed of the active tab.
type subscription struct {
	tab    model.Tab
	seq    int
	ch     <-chan events.Mutation
	cancel func()
}

// ListModel is the list of one screen. It drives a listview.Controller:
// state changes happen on the event loop, backend calls run as commands.
type ListModel struct {
	ctx    context.Context
	deps   *Deps
	ctrl   *listview.Controller
	styles Styles

	table     *table.Model[model.Record]
	search    textinput.Model
	searching bool
	preSearch string
	spinner   spinner.Model

	notices []listview.Notice
	state   *listview.State
	pending listview.BulkRequest
	sub     subscription

	width   int
	height  int
	focused bool
}

func newListModel(ctx context.Context, screen model.Screen, deps *Deps, styles Styles) (*ListModel, error) {
	m := &ListModel{
		ctx:    logger.WithLogger(ctx, logger.WithValues(logger.FromContext(ctx), logger.ScreenKey, screen.Name)),
		deps:   deps,
		styles: styles,
	}
	ctrl, err := listview.New(listview.Options{
		Screen:        screen,
		Backend:       deps.Backend,
		PageSizes:     deps.PageSizes,
		PageSize:      deps.PageSize,
		ActingUser:    deps.ActingUser,
		Publisher:     deps.Publisher,
		ReloadContext: deps.ReloadContext,
		Notifier:      listview.NotifierFunc(func(n listview.Notice) { m.notices = append(m.notices, n) }),
		OnStateChange: func(st listview.State) { m.state = &st },
	})
	if err != nil {
		return nil, err
	}
	m.ctrl = ctrl

	titles := []string{""}
	for _, c := range screen.Columns {
		titles = append(titles, columnTitle(c))
	}
	m.table = table.NewModel(titles, m.row)
	if !styles.NoColor() {
		th := styles.Theme()
		m.table.SetColors(th.Accent, th.SelectedFG, th.SelectedBG)
	} else {
		m.table.SetNoColor(true)
	}

	m.search = textinput.New()
	m.search.Prompt = "/ "
	m.search.Placeholder = "search " + strings.Join(screen.SearchFields, ", ")
	m.search.CharLimit = 128

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot

	if deps.Store != nil {
		if sess, err := deps.Store.Load(); err == nil {
			if raw := sess.View(screen.Name); raw != "" {
				size := deps.PageSize
				if size == 0 {
					size = ctrl.Window().Size
				}
				ctrl.Restore(m.ctx, listview.ParseState(raw, screen, size))
			}
		}
	}
	m.state = nil
	return m, nil
}

func columnTitle(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[:i]
	}
	return strings.ToUpper(field)
}

func (m *ListModel) row(r model.Record) table.Row {
	marker := "[ ]"
	if !m.ctrl.Screen().Multi() {
		marker = "( )"
	}
	if m.ctrl.IsSelected(r.ID) {
		marker = strings.Replace(marker, " ", "x", 1)
	}
	cells := table.Row{marker}
	for _, c := range m.ctrl.Screen().Columns {
		cells = append(cells, r.Display(c))
	}
	return cells
}

// Controller exposes the list's controller.
func (m *ListModel) Controller() *listview.Controller { return m.ctrl }

func (m *ListModel) Title() string { return m.ctrl.Screen().Title }

func (m *ListModel) Capturing() bool { return m.searching }

func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.SetWidth(max(width-4, 10))
	m.table.SetSize(width, max(height-listChrome, 3))
}

func (m *ListModel) Focus() tea.Cmd {
	m.focused = true
	m.table.Focus()
	return nil
}

func (m *ListModel) Blur() {
	m.focused = false
	m.table.Blur()
}

func (m *ListModel) Focused() bool { return m.focused }

// Init fetches the active tab and subscribes to its remote changes.
func (m *ListModel) Init() tea.Cmd {
	return m.activate(m.ctrl.Tab())
}

func (m *ListModel) activate(tab model.Tab) tea.Cmd {
	t, err := m.ctrl.Begin(m.ctx, tab)
	if err != nil {
		return toast(listview.LevelError, err.Error())
	}
	m.refreshTable()
	return tea.Batch(m.fetch(t), m.subscribe(tab), m.spinner.Tick)
}

func (m *ListModel) fetch(t listview.Ticket) tea.Cmd {
	ctrl, ctx, screen := m.ctrl, m.ctx, m.ctrl.Screen().Name
	return func() tea.Msg {
		return fetchResultMsg{screen: screen, res: ctrl.Fetch(ctx, t)}
	}
}

func (m *ListModel) subscribe(tab model.Tab) tea.Cmd {
	if m.sub.ch != nil && m.sub.tab == tab {
		return nil
	}
	if m.sub.cancel != nil {
		m.sub.cancel()
	}
	ch, cancel, err := m.deps.Subscriber.Subscribe(tab)
	if err != nil {
		logger.FromContext(m.ctx).Error(err, "subscribing to remote changes", logger.TabKey, tab)
		m.sub = subscription{seq: m.sub.seq + 1}
		return nil
	}
	m.sub = subscription{tab: tab, seq: m.sub.seq + 1, ch: ch, cancel: cancel}
	return m.waitForMutation()
}

func (m *ListModel) waitForMutation() tea.Cmd {
	ch, seq, screen := m.sub.ch, m.sub.seq, m.ctrl.Screen().Name
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		mut, ok := <-ch
		return remoteMutationMsg{screen: screen, seq: seq, m: mut, ok: ok}
	}
}

// Close stops the remote-change subscription.
func (m *ListModel) Close() {
	if m.sub.cancel != nil {
		m.sub.cancel()
	}
	m.sub = subscription{seq: m.sub.seq + 1}
}

func (m *ListModel) Update(msg tea.Msg) (ChildModel, tea.Cmd) {
	cmd := m.update(msg)
	return m, tea.Batch(cmd, m.drainNotices(), m.saveState())
}

func (m *ListModel) update(msg tea.Msg) tea.Cmd {
	screen := m.ctrl.Screen().Name
	switch msg := msg.(type) {
	case fetchResultMsg:
		if msg.screen != screen {
			return nil
		}
		m.ctrl.Apply(m.ctx, msg.res)
		m.refreshTable()
		return nil

	case executedMsg:
		if msg.screen != screen {
			return nil
		}
		t, ok := m.ctrl.Complete(m.ctx, msg.res)
		m.refreshTable()
		if !ok {
			return nil
		}
		return tea.Batch(m.fetch(t), m.spinner.Tick)

	case targetsMsg:
		if msg.screen != screen {
			return nil
		}
		if msg.err != nil {
			return toast(listview.LevelError, "Could not load assignees: "+msg.err.Error())
		}
		q := fmt.Sprintf("Assign %d record(s) to", len(m.pending.IDs))
		return openPrompt(newPickPrompt(m.promptID(model.ActionAssign), q, msg.options, m.styles))

	case promptResultMsg:
		return m.handlePrompt(msg)

	case MutationMsg:
		if msg.Mutation.Screen != screen {
			return nil
		}
		return m.mutationCompleted(msg.Mutation)

	case remoteMutationMsg:
		if msg.screen != screen || msg.seq != m.sub.seq {
			return nil
		}
		if !msg.ok {
			m.sub = subscription{seq: m.sub.seq + 1}
			return nil
		}
		cmds := []tea.Cmd{m.waitForMutation()}
		if !msg.m.FromSelf() && msg.m.Tab == m.ctrl.Tab() {
			logger.FromContext(m.ctx).V(1).Info("remote change", logger.TabKey, msg.m.Tab, "action", msg.m.Action)
			cmds = append(cmds, m.mutationCompleted(msg.m))
		}
		return tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.ctrl.Loading() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyPressMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}
	return nil
}

func (m *ListModel) mutationCompleted(mut events.Mutation) tea.Cmd {
	t, ok := m.ctrl.MutationCompleted(m.ctx, mut)
	m.refreshTable()
	if !ok {
		return nil
	}
	return tea.Batch(m.fetch(t), m.spinner.Tick)
}

func (m *ListModel) handleSearchKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.preSearch)
		m.ctrl.SetSearchTerm(m.ctx, m.preSearch)
		m.refreshTable()
		return nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.ctrl.SearchTerm() {
		m.ctrl.SetSearchTerm(m.ctx, m.search.Value())
		m.refreshTable()
	}
	return cmd
}

func (m *ListModel) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	screen := m.ctrl.Screen()
	switch msg.String() {
	case "tab", "right", "l":
		return m.switchTab(1)
	case "shift+tab", "left":
		return m.switchTab(-1)
	case "/":
		m.searching = true
		m.preSearch = m.ctrl.SearchTerm()
		m.search.SetValue(m.preSearch)
		return m.search.Focus()
	case "]", "pgdown":
		m.ctrl.Paginate(listview.Next)
		m.refreshTable()
		m.table.SetCursor(0)
		return nil
	case "[", "pgup":
		m.ctrl.Paginate(listview.Previous)
		m.refreshTable()
		m.table.SetCursor(0)
		return nil
	case "s":
		m.ctrl.CyclePageSize()
		m.refreshTable()
		return toast(listview.LevelInfo, fmt.Sprintf("%s per page", m.ctrl.Window().Size))
	case "space":
		if r := m.table.SelectedRow(); r != nil {
			m.ctrl.ToggleSelection(m.ctx, r.ID)
			m.refreshTable()
		}
		return nil
	case "a":
		if m.ctrl.SelectAll(m.ctx) {
			m.refreshTable()
			return toast(listview.LevelInfo, fmt.Sprintf("%d selected", len(m.ctrl.Selected())))
		}
		return nil
	case "esc":
		m.ctrl.ClearSelection()
		m.refreshTable()
		return nil
	case "r":
		return m.activate(m.ctrl.Tab())
	case "enter":
		if r := m.table.SelectedRow(); r != nil {
			return navigate(newDetailModel(m.ctx, m.deps, m.styles, screen.Name, m.ctrl.Tab(), r.ID, false))
		}
		return nil
	case "v":
		return m.bulk(model.ActionView)
	case "e":
		return m.bulk(model.ActionEdit)
	case "d":
		return m.bulk(model.ActionDelete)
	case "A":
		return m.bulk(model.ActionAssign)
	case "h":
		if r := m.table.SelectedRow(); r != nil {
			return navigate(newHistoryModel(m.ctx, m.deps, m.styles, *r))
		}
		return nil
	case "c":
		if r := m.table.SelectedRow(); r != nil {
			return openChat(m.ctx, m.deps, m.styles, *r)
		}
		return nil
	case "y":
		if r := m.table.SelectedRow(); r != nil {
			return copyContact(*r)
		}
		return nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

// copyContact copies the row's phone, or its email when there is no phone.
func copyContact(r model.Record) tea.Cmd {
	text := r.Phone()
	if text == "" {
		text = r.Email()
	}
	if text == "" {
		return toast(listview.LevelWarning, "Nothing to copy")
	}
	if err := CopyToClipboard(text); err != nil {
		return toast(listview.LevelError, "Copy failed: "+err.Error())
	}
	return toast(listview.LevelSuccess, "Copied "+text)
}

func (m *ListModel) switchTab(step int) tea.Cmd {
	tabs := m.ctrl.Screen().Tabs
	if len(tabs) < 2 {
		return nil
	}
	i := 0
	for j, t := range tabs {
		if t == m.ctrl.Tab() {
			i = j
		}
	}
	i = (i + step + len(tabs)) % len(tabs)
	m.table.SetCursor(0)
	return m.activate(tabs[i])
}

func (m *ListModel) promptID(action model.Action) string {
	return m.ctrl.Screen().Name + ":" + string(action)
}

// bulk starts action on the selection. Skipped actions surface as a
// warning toast through the controller's notices.
func (m *ListModel) bulk(action model.Action) tea.Cmd {
	req, ok := m.ctrl.RequestBulk(m.ctx, action)
	if !ok {
		return nil
	}
	m.pending = req
	switch action {
	case model.ActionView, model.ActionEdit:
		return navigate(newDetailModel(m.ctx, m.deps, m.styles, m.ctrl.Screen().Name, req.Tab, req.IDs[0], action == model.ActionEdit))
	case model.ActionDelete:
		return openPrompt(newConfirmPrompt(m.promptID(action), req.Prompt(), m.styles))
	case model.ActionAssign:
		return m.loadTargets(m.ctrl.Screen().AssignTargets)
	}
	return nil
}

func (m *ListModel) loadTargets(tab model.Tab) tea.Cmd {
	backend, ctx, screen := m.deps.Backend, m.ctx, m.ctrl.Screen().Name
	return func() tea.Msg {
		recs, err := backend.List(ctx, tab)
		if err != nil {
			return targetsMsg{screen: screen, err: err}
		}
		opts := make([]Option, 0, len(recs))
		for _, r := range recs {
			label := r.ID
			if name := r.Name(); name != "" {
				label = fmt.Sprintf("%s (%s)", name, r.ID)
			}
			opts = append(opts, Option{Value: r.ID, Label: label})
		}
		return targetsMsg{screen: screen, options: opts}
	}
}

func (m *ListModel) handlePrompt(msg promptResultMsg) tea.Cmd {
	var action model.Action
	switch msg.ID {
	case m.promptID(model.ActionDelete):
		action = model.ActionDelete
	case m.promptID(model.ActionAssign):
		action = model.ActionAssign
	default:
		return nil
	}
	req := m.pending
	m.pending = listview.BulkRequest{}
	if !msg.OK || req.Action != action {
		metrics.BulkActionsTotal.WithLabelValues(string(action), "cancelled").Inc()
		return nil
	}
	if action == model.ActionAssign {
		req.Target = msg.Value
	}
	ctrl, ctx, screen := m.ctrl, m.ctx, m.ctrl.Screen().Name
	return func() tea.Msg {
		return executedMsg{screen: screen, res: ctrl.Execute(ctx, req)}
	}
}

func (m *ListModel) drainNotices() tea.Cmd {
	if len(m.notices) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(m.notices))
	for _, n := range m.notices {
		cmds = append(cmds, toast(n.Level, n.Text))
	}
	m.notices = nil
	return tea.Batch(cmds...)
}

func (m *ListModel) saveState() tea.Cmd {
	if m.state == nil || m.deps.Store == nil {
		m.state = nil
		return nil
	}
	st := *m.state
	m.state = nil
	store, ctx, screen := m.deps.Store, m.ctx, m.ctrl.Screen().Name
	return func() tea.Msg {
		if err := store.SaveView(ctx, screen, st.Encode()); err != nil {
			logger.FromContext(ctx).Error(err, "saving view state")
		}
		return viewSavedMsg{}
	}
}

func (m *ListModel) refreshTable() {
	m.table.SetRows(m.ctrl.Rows())
}

// Hints lists the keys that apply right now.
func (m *ListModel) Hints() string {
	if m.searching {
		return "enter keep search · esc cancel"
	}
	hints := []string{"/ search", "[ ] page", "s size", "space select"}
	if len(m.ctrl.Screen().Tabs) > 1 {
		hints = append([]string{"tab switch"}, hints...)
	}
	for _, a := range m.ctrl.Screen().Actions {
		switch a {
		case model.ActionView:
			hints = append(hints, "v view")
		case model.ActionEdit:
			hints = append(hints, "e edit")
		case model.ActionDelete:
			hints = append(hints, "d delete")
		case model.ActionAssign:
			hints = append(hints, "A assign")
		}
	}
	return strings.Join(hints, " · ")
}

func (m *ListModel) View() string {
	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteString("\n")
	switch {
	case m.searching:
		b.WriteString(m.search.View())
	case m.ctrl.SearchTerm() != "":
		b.WriteString(m.styles.Footer.Render("search: " + m.ctrl.SearchTerm()))
	}
	b.WriteString("\n")

	switch {
	case m.ctrl.Loading():
		b.WriteString(m.spinner.View() + " Loading " + m.ctrl.Tab().Label() + "…")
	case m.ctrl.Err() != nil && len(m.ctrl.Records()) == 0:
		b.WriteString(m.styles.Toast(listview.LevelError).Render("Could not load records. Press r to retry."))
	case len(m.ctrl.Filtered()) == 0:
		b.WriteString(m.styles.Footer.Render("No records"))
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(m.pageLine())
	return b.String()
}

func (m *ListModel) tabBar() string {
	var parts []string
	for _, t := range m.ctrl.Screen().Tabs {
		if t == m.ctrl.Tab() {
			parts = append(parts, m.styles.ActiveTab.Render(t.Label()))
		} else {
			parts = append(parts, m.styles.InactiveTab.Render(t.Label()))
		}
	}
	return strings.Join(parts, "  ")
}

func (m *ListModel) pageLine() string {
	w := m.ctrl.Window()
	total := len(m.ctrl.Filtered())
	parts := []string{
		fmt.Sprintf("page %d/%d", w.Page, max(m.ctrl.TotalPages(), 1)),
		fmt.Sprintf("%s per page", w.Size),
		fmt.Sprintf("%d records", total),
	}
	if n := len(m.ctrl.Selected()); n > 0 {
		parts = append(parts, m.styles.Checked.Render(fmt.Sprintf("%d selected", n)))
	}
	if f := m.ctrl.FilterExpr(); f != "" {
		parts = append(parts, "filter: "+f)
	}
	return m.styles.Footer.Render(strings.Join(parts, " · "))
}
