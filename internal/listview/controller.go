// Package listview is the controller behind every entity list screen: it
// binds a screen to the active tab's remote collection and derives the
// searched, paged and selectable view the front ends render.
//
// A Controller is not safe for concurrent use. Event loops call Begin and
// Apply on their own goroutine and run Fetch (which only touches the
// backend) wherever they like; ActivateTab is the blocking composition.
package listview

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/oakwood-commons/crmx/internal/cel"
	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/metrics"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

// ErrUnknownTab is returned for a tab outside the screen's set.
var ErrUnknownTab = errors.New("unknown tab")

// Backend is the slice of the gateway the controller needs.
type Backend interface {
	List(ctx context.Context, tab model.Tab) ([]model.Record, error)
	Delete(ctx context.Context, tab model.Tab, id string) error
	Assign(ctx context.Context, req gateway.AssignRequest) error
}

// Options configure a Controller.
type Options struct {
	Screen  model.Screen
	Backend Backend
	// PageSizes are the allowed window sizes; empty means pager.DefaultSizes.
	PageSizes []pager.Size
	// PageSize is the initial window size; zero means the first allowed size.
	PageSize pager.Size
	// ActingUser returns the id sent as the acting user on assignments.
	ActingUser func() string
	Notifier   Notifier
	Publisher  events.Publisher
	// ReloadContext refreshes session-wide context after a mutation on
	// screens that set ReloadOnMutation.
	ReloadContext func(ctx context.Context) error
	// OnStateChange receives the bookmarkable state after every change.
	OnStateChange func(State)
}

// Ticket identifies one fetch. Only the ticket of the latest Begin applies.
type Ticket struct {
	Tab        model.Tab
	Generation uint64
}

// Result is the outcome of a fetch.
type Result struct {
	Ticket  Ticket
	Records []model.Record
	Err     error
}

// Direction is a pagination step.
type Direction int

const (
	Previous Direction = iota
	Next
)

// Controller owns the list state of one screen.
type Controller struct {
	opts   Options
	screen model.Screen
	sizes  []pager.Size

	tab        model.Tab
	generation uint64
	loading    bool
	err        error
	records    []model.Record

	term      string
	filter    *cel.Filter
	filtered  []model.Record
	window    pager.Window
	selection *Selection
	// allSelected is set by SelectAll; the selection then spans every
	// filtered record instead of the rendered page.
	allSelected bool
	evaluator   *cel.Evaluator
}

// New validates the screen and returns a controller parked on its default
// tab. Nothing is fetched until ActivateTab or Begin.
func New(opts Options) (*Controller, error) {
	if err := opts.Screen.Validate(); err != nil {
		return nil, err
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("listview: backend is required")
	}
	sizes := opts.PageSizes
	if len(sizes) == 0 {
		sizes = pager.DefaultSizes
	}
	size := opts.PageSize
	if size == 0 {
		size = sizes[0]
	}
	window := pager.New(size)
	if err := window.Validate(sizes); err != nil {
		return nil, err
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NoopPublisher{}
	}
	return &Controller{
		opts:      opts,
		screen:    opts.Screen,
		sizes:     sizes,
		tab:       opts.Screen.DefaultTab,
		window:    window,
		selection: NewSelection(opts.Screen.Selection),
		filtered:  []model.Record{},
	}, nil
}

// --- accessors ---

func (c *Controller) Screen() model.Screen    { return c.screen }
func (c *Controller) Tab() model.Tab          { return c.tab }
func (c *Controller) Loading() bool           { return c.loading }
func (c *Controller) Err() error              { return c.err }
func (c *Controller) SearchTerm() string      { return c.term }
func (c *Controller) Window() pager.Window    { return c.window }
func (c *Controller) PageSizes() []pager.Size { return slices.Clone(c.sizes) }
func (c *Controller) Generation() uint64      { return c.generation }

// FilterExpr returns the active CEL filter, or "".
func (c *Controller) FilterExpr() string {
	if c.filter == nil {
		return ""
	}
	return c.filter.String()
}

// Records returns the fetched records, untouched by search or paging.
func (c *Controller) Records() []model.Record { return slices.Clone(c.records) }

// Filtered returns every record that passes the search term and filter.
func (c *Controller) Filtered() []model.Record { return slices.Clone(c.filtered) }

// Rows returns the records rendered on the current page.
func (c *Controller) Rows() []model.Record {
	return slices.Clone(pager.Slice(c.window, c.filtered))
}

// TotalPages is ceil(filtered / window size).
func (c *Controller) TotalPages() int { return c.window.TotalPages(len(c.filtered)) }

// Selected returns the selected ids.
func (c *Controller) Selected() []string { return c.selection.IDs() }

// IsSelected reports whether id is checked.
func (c *Controller) IsSelected(id string) bool { return c.selection.Has(id) }

// State returns the bookmarkable state.
func (c *Controller) State() State {
	return State{Tab: c.tab, Search: c.term, Page: c.window.Page, Size: c.window.Size}
}

// --- fetching ---

// Begin starts a fetch of tab: it marks the list loading, drops the
// previous records and selection, and bumps the generation so any fetch
// still in flight is discarded when it lands. Switching to a different
// tab also returns to page 1.
func (c *Controller) Begin(ctx context.Context, tab model.Tab) (Ticket, error) {
	if !c.screen.HasTab(tab) {
		return Ticket{}, fmt.Errorf("%w %q for screen %q", ErrUnknownTab, tab, c.screen.Name)
	}
	if tab != c.tab {
		c.window = c.window.Reset()
	}
	c.generation++
	c.tab = tab
	c.loading = true
	c.err = nil
	c.records = nil
	c.filtered = []model.Record{}
	c.clearSelection()
	c.emitState()
	logger.FromContext(ctx).V(1).Info("fetching tab", logger.ScreenKey, c.screen.Name, logger.TabKey, tab, "generation", c.generation)
	return Ticket{Tab: tab, Generation: c.generation}, nil
}

// Fetch runs the backend call for t. It does not touch controller state.
func (c *Controller) Fetch(ctx context.Context, t Ticket) Result {
	recs, err := c.opts.Backend.List(ctx, t.Tab)
	return Result{Ticket: t, Records: recs, Err: err}
}

// Apply stores a fetch result if its ticket is still current and reports
// whether it was applied. Failures leave an empty list and are logged; the
// notifier, when set, also gets them.
func (c *Controller) Apply(ctx context.Context, res Result) bool {
	lgr := logger.FromContext(ctx)
	tab := string(res.Ticket.Tab)
	if res.Ticket.Generation != c.generation {
		lgr.V(1).Info("discarding stale fetch", logger.TabKey, tab, "generation", res.Ticket.Generation, "current", c.generation)
		metrics.FetchesTotal.WithLabelValues(tab, "stale").Inc()
		return false
	}
	c.loading = false
	if res.Err != nil {
		c.err = res.Err
		c.records = nil
		lgr.Error(res.Err, "fetch failed", logger.ScreenKey, c.screen.Name, logger.TabKey, tab)
		metrics.FetchesTotal.WithLabelValues(tab, "error").Inc()
		c.notify(LevelError, fmt.Sprintf("Could not load %s: %s", res.Ticket.Tab.Label(), gateway.UserMessage(res.Err)))
	} else {
		c.err = nil
		c.records = res.Records
		metrics.FetchesTotal.WithLabelValues(tab, "applied").Inc()
	}
	c.refilter(ctx)
	c.window = c.window.Clamp(len(c.filtered))
	c.emitState()
	return true
}

// ActivateTab fetches tab and waits for the result. The fetch error, if
// any, is returned after being applied.
func (c *Controller) ActivateTab(ctx context.Context, tab model.Tab) error {
	t, err := c.Begin(ctx, tab)
	if err != nil {
		return err
	}
	res := c.Fetch(ctx, t)
	c.Apply(ctx, res)
	return res.Err
}

// Refetch reloads the active tab.
func (c *Controller) Refetch(ctx context.Context) error {
	return c.ActivateTab(ctx, c.tab)
}

// Restore applies a saved state without fetching. Call Refetch afterwards.
func (c *Controller) Restore(ctx context.Context, st State) {
	if c.screen.HasTab(st.Tab) {
		c.tab = st.Tab
	}
	c.term = st.Search
	window := pager.Window{Page: st.Page, Size: st.Size}
	if window.Validate(c.sizes) != nil {
		window = pager.New(c.window.Size)
	}
	c.window = window
	c.clearSelection()
	c.refilter(ctx)
}

// --- search and filter ---

// SetSearchTerm changes the search term, returns to page 1 and clears the
// selection. The fetched records are not modified.
func (c *Controller) SetSearchTerm(ctx context.Context, term string) {
	c.term = term
	c.window = c.window.Reset()
	c.clearSelection()
	c.refilter(ctx)
	c.emitState()
}

// SetFilterExpr installs a CEL filter that applies on top of the search
// term. An empty expression removes it.
func (c *Controller) SetFilterExpr(ctx context.Context, expr string) error {
	if expr == "" {
		c.filter = nil
	} else {
		if c.evaluator == nil {
			ev, err := cel.NewEvaluator()
			if err != nil {
				return err
			}
			c.evaluator = ev
		}
		f, err := c.evaluator.Compile(expr)
		if err != nil {
			return err
		}
		c.filter = f
	}
	c.window = c.window.Reset()
	c.clearSelection()
	c.refilter(ctx)
	c.emitState()
	return nil
}

func (c *Controller) refilter(ctx context.Context) {
	out := make([]model.Record, 0, len(c.records))
	evalErrors := 0
	for _, r := range c.records {
		if !r.Matches(c.term, c.screen.SearchFields) {
			continue
		}
		if c.filter != nil {
			ok, err := c.filter.Match(r)
			if err != nil {
				evalErrors++
				continue
			}
			if !ok {
				continue
			}
		}
		out = append(out, r)
	}
	if evalErrors > 0 {
		logger.FromContext(ctx).V(1).Info("filter skipped records", "expr", c.filter.String(), "count", evalErrors)
	}
	c.filtered = out
}

// --- paging ---

// SetPageSize changes the window size and returns to page 1.
func (c *Controller) SetPageSize(size pager.Size) error {
	w := c.window.WithSize(size)
	if err := w.Validate(c.sizes); err != nil {
		return err
	}
	c.window = w
	c.pruneSelection()
	c.emitState()
	return nil
}

// CyclePageSize moves to the next allowed window size.
func (c *Controller) CyclePageSize() {
	_ = c.SetPageSize(pager.Cycle(c.window.Size, c.sizes))
}

// Paginate moves one page, clamped to [1, TotalPages].
func (c *Controller) Paginate(dir Direction) {
	before := c.window.Page
	if dir == Next {
		c.window = c.window.Next(len(c.filtered))
	} else {
		c.window = c.window.Prev()
	}
	if c.window.Page != before {
		c.pruneSelection()
		c.emitState()
	}
}

// GoToPage jumps to page p, clamped.
func (c *Controller) GoToPage(p int) {
	c.window.Page = p
	c.window = c.window.Clamp(len(c.filtered))
	c.pruneSelection()
	c.emitState()
}

// --- selection ---

func (c *Controller) rendered(id string) bool {
	return slices.ContainsFunc(pager.Slice(c.window, c.filtered), func(r model.Record) bool { return r.ID == id })
}

// pruneSelection drops selected ids that left the rendered page. A
// select-all selection follows the filtered list instead.
func (c *Controller) pruneSelection() {
	if c.allSelected {
		return
	}
	page := make(map[string]bool)
	for _, r := range pager.Slice(c.window, c.filtered) {
		page[r.ID] = true
	}
	c.selection.Retain(func(id string) bool { return page[id] })
}

func (c *Controller) clearSelection() {
	c.allSelected = false
	c.selection.Clear()
}

// ToggleSelection flips id if it is rendered on the current page and
// reports whether anything changed.
func (c *Controller) ToggleSelection(ctx context.Context, id string) bool {
	if !c.rendered(id) {
		logger.FromContext(ctx).V(1).Info("ignoring selection of a row that is not rendered", "id", id)
		return false
	}
	if c.allSelected {
		c.allSelected = false
		c.pruneSelection()
	}
	c.selection.Toggle(id)
	return true
}

// SetSelection replaces the selection with the rendered subset of ids.
func (c *Controller) SetSelection(ids []string) {
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if c.rendered(id) {
			kept = append(kept, id)
		}
	}
	c.allSelected = false
	c.selection.Set(kept)
}

// SelectAll checks every filtered record on multi-select screens.
func (c *Controller) SelectAll(ctx context.Context) bool {
	if !c.screen.Multi() {
		logger.FromContext(ctx).Info("select all needs a multi-select screen", logger.ScreenKey, c.screen.Name)
		return false
	}
	c.selection.Set(model.IDs(c.filtered))
	c.allSelected = true
	return true
}

// ClearSelection unchecks everything.
func (c *Controller) ClearSelection() { c.clearSelection() }

func (c *Controller) notify(level Level, text string) {
	if c.opts.Notifier != nil {
		c.opts.Notifier.Notify(Notice{Level: level, Text: text})
	}
}

func (c *Controller) emitState() {
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(c.State())
	}
}
