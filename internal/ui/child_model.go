package ui

import tea "charm.land/bubbletea/v2"

// ChildModel is one screen in the tree of models. The root routes
// messages to the child on top of its navigation stack.
type ChildModel interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (ChildModel, tea.Cmd)
	View() string
}

// ModelWithTitle is implemented by children that name themselves in the
// header breadcrumb.
type ModelWithTitle interface {
	Title() string
}

// ModelWithSize is implemented by children that respond to resize events.
type ModelWithSize interface {
	SetSize(width, height int)
}

// ModelWithFocus is implemented by children that start or stop background
// work when they become or stop being the visible screen.
type ModelWithFocus interface {
	Focus() tea.Cmd
	Blur()
	Focused() bool
}

// ModelWithInput is implemented by children that own a text input. While
// Capturing reports true the root forwards every key to the child instead
// of handling its global bindings.
type ModelWithInput interface {
	Capturing() bool
}
