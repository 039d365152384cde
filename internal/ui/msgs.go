package ui

import (
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/listview"
)

// toastDelay is how long a toast stays on screen.
const toastDelay = 4 * time.Second

// navigateMsg pushes a child onto the navigation stack.
type navigateMsg struct {
	model ChildModel
}

// backMsg pops the navigation stack.
type backMsg struct{}

// promptMsg opens a modal prompt.
type promptMsg struct {
	prompt *promptModel
}

// promptResultMsg is sent when a prompt closes. OK is false when the user
// dismissed it.
type promptResultMsg struct {
	ID    string
	OK    bool
	Value string
}

// toastMsg shows a notice in the status line.
type toastMsg struct {
	listview.Notice
}

// toastClearMsg clears the toast with the given id after its delay.
type toastClearMsg struct {
	ID int
}

// MutationMsg announces a change made from this client, such as a saved
// edit. The list of the named screen runs its mutation-completed hook.
type MutationMsg struct {
	Mutation events.Mutation
}

func navigate(m ChildModel) tea.Cmd {
	return func() tea.Msg { return navigateMsg{model: m} }
}

func back() tea.Msg { return backMsg{} }

func openPrompt(p *promptModel) tea.Cmd {
	return func() tea.Msg { return promptMsg{prompt: p} }
}

func toast(level listview.Level, text string) tea.Cmd {
	return func() tea.Msg {
		return toastMsg{Notice: listview.Notice{Level: level, Text: text}}
	}
}

func mutated(m events.Mutation) tea.Cmd {
	return func() tea.Msg { return MutationMsg{Mutation: m} }
}

func clearToastAfter(id int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return toastClearMsg{ID: id}
	})
}
