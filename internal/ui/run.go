// Package ui is the interactive terminal front end: one list per screen,
// with detail, call history and chat views pushed on top.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/crmx/internal/chat"
	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
	"github.com/oakwood-commons/crmx/internal/session"
)

// Deps is everything the views need from the rest of the program.
type Deps struct {
	Screens   []model.Screen
	Backend   gateway.Gateway
	PageSizes []pager.Size
	PageSize  pager.Size

	// PollInterval is the chat refresh period; zero means chat.DefaultInterval.
	PollInterval time.Duration
	DateLayout   string
	Location     *time.Location

	// Store persists each list's view state; nil disables it.
	Store      *session.Store
	Publisher  events.Publisher
	Subscriber events.Subscriber

	// ActingUser returns the signed-in user's id.
	ActingUser func() string
	// SenderPhone returns the number outgoing chat messages are sent from.
	SenderPhone func() string
	// ReloadContext refreshes session-wide context after mutations on
	// screens that ask for it.
	ReloadContext func(ctx context.Context) error
	// Status is shown on the right of the header, e.g. the selected office.
	Status func() string

	NoColor bool
}

func (d *Deps) defaults() {
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}
	if d.Subscriber == nil {
		d.Subscriber = events.NoopSubscriber{}
	}
	if d.PollInterval <= 0 {
		d.PollInterval = chat.DefaultInterval
	}
	if d.ActingUser == nil {
		d.ActingUser = func() string { return "" }
	}
	if d.SenderPhone == nil {
		d.SenderPhone = func() string { return "" }
	}
}

func (d Deps) screen(name string) (model.Screen, bool) {
	for _, s := range d.Screens {
		if s.Name == name {
			return s, true
		}
	}
	return model.Screen{}, false
}

// NewRoot builds the root model with the list of screen start selected.
// An empty start means the first screen.
func NewRoot(ctx context.Context, deps Deps, start string) (*RootModel, tea.Cmd, error) {
	if len(deps.Screens) == 0 {
		return nil, nil, errors.New("no screens configured")
	}
	if deps.Backend == nil {
		return nil, nil, errors.New("backend is required")
	}
	deps.defaults()
	if start == "" {
		start = deps.Screens[0].Name
	}
	if _, ok := deps.screen(start); !ok {
		return nil, nil, fmt.Errorf("unknown screen %q", start)
	}

	styles := NewStyles(DefaultTheme(), deps.NoColor)
	names := make([]string, len(deps.Screens))
	titles := make(map[string]string, len(deps.Screens))
	for i, s := range deps.Screens {
		names[i] = s.Name
		titles[s.Name] = s.Title
	}

	var makeErr error
	maker := MakerFunc(func(id string, width, height int) (ChildModel, tea.Cmd) {
		screen, _ := deps.screen(id)
		lm, err := newListModel(ctx, screen, &deps, styles)
		if err != nil {
			makeErr = err
			return newErrorModel(err), nil
		}
		lm.SetSize(width, height)
		return lm, lm.Init()
	})

	root := NewRootModel(RootOptions{
		Screens: names,
		Titles:  titles,
		Maker:   maker,
		Styles:  styles,
		Status:  deps.Status,
	})
	cmd := root.SwitchScreen(start)
	if makeErr != nil {
		return nil, nil, makeErr
	}
	return root, cmd, nil
}

// Run starts the terminal UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, deps Deps, start string, opts ...tea.ProgramOption) error {
	root, startCmd, err := NewRoot(ctx, deps, start)
	if err != nil {
		return err
	}
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	prog := tea.NewProgram(&startModel{RootModel: root, start: startCmd}, opts...)
	_, err = prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// startModel hands the first screen's init command to the program. The
// screen was already made by NewRoot, so the root's own Init is skipped.
type startModel struct {
	*RootModel
	start tea.Cmd
}

func (s *startModel) Init() tea.Cmd { return s.start }

// errorModel stands in for a screen that could not be built.
type errorModel struct {
	err error
}

func newErrorModel(err error) *errorModel { return &errorModel{err: err} }

func (e *errorModel) Init() tea.Cmd { return nil }

func (e *errorModel) Update(tea.Msg) (ChildModel, tea.Cmd) { return e, nil }

func (e *errorModel) View() string { return "error: " + e.err.Error() }
