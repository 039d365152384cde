package listview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/pager"
)

func leadsScreen() model.Screen {
	return model.Screen{
		Name:          "leads",
		Tabs:          []model.Tab{model.TabLead, model.TabProspect, model.TabBuyer},
		DefaultTab:    model.TabLead,
		SearchFields:  []string{"name", "email"},
		Selection:     model.SelectMulti,
		Actions:       []model.Action{model.ActionView, model.ActionDelete, model.ActionAssign},
		AssignTargets: model.TabCoordinator,
	}
}

func clientsScreen() model.Screen {
	return model.Screen{
		Name:         "clients",
		Tabs:         []model.Tab{model.TabClient},
		DefaultTab:   model.TabClient,
		SearchFields: []string{"name", "email", "city"},
		Selection:    model.SelectSingle,
		Actions:      []model.Action{model.ActionView, model.ActionEdit, model.ActionDelete},
	}
}

func newController(t *testing.T, screen model.Screen, backend *fakeBackend, mutate ...func(*Options)) *Controller {
	t.Helper()
	opts := Options{Screen: screen, Backend: backend, ActingUser: func() string { return "agent-1" }}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{Screen: model.Screen{Name: "broken"}, Backend: newFakeBackend()})
	require.Error(t, err)

	_, err = New(Options{Screen: leadsScreen()})
	require.Error(t, err)

	_, err = New(Options{Screen: leadsScreen(), Backend: newFakeBackend(), PageSize: 15})
	require.Error(t, err)
}

func TestActivateTabReplacesRecords(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 3, "lead.mx")
	backend.data[model.TabProspect] = people(model.TabProspect, 2, "prospect.mx")
	c := newController(t, leadsScreen(), backend)

	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	assert.False(t, c.Loading())
	assert.Len(t, c.Records(), 3)

	require.NoError(t, c.ActivateTab(ctx, model.TabProspect))
	assert.Equal(t, model.TabProspect, c.Tab())
	assert.Equal(t, []string{"prospecto-01", "prospecto-02"}, model.IDs(c.Records()))
}

func TestActivateTabRejectsUnknownTab(t *testing.T) {
	c := newController(t, leadsScreen(), newFakeBackend())
	err := c.ActivateTab(context.Background(), model.TabOffice)
	assert.ErrorIs(t, err, ErrUnknownTab)
	assert.Equal(t, model.TabLead, c.Tab())
}

func TestFetchFailureLeavesEmptyListAndNotifies(t *testing.T) {
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 3, "x")
	var notices []Notice
	c := newController(t, leadsScreen(), backend, func(o *Options) {
		o.Notifier = NotifierFunc(func(n Notice) { notices = append(notices, n) })
	})
	require.NoError(t, c.ActivateTab(context.Background(), model.TabLead))

	backend.listErr = &gateway.APIError{StatusCode: 500, Message: "db down"}
	err := c.Refetch(context.Background())
	require.Error(t, err)
	assert.Empty(t, c.Records())
	assert.Empty(t, c.Rows())
	assert.Equal(t, err, c.Err())
	require.Len(t, notices, 1)
	assert.Equal(t, LevelError, notices[0].Level)
	assert.Contains(t, notices[0].Text, "db down")
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 5, "lead.mx")
	backend.data[model.TabBuyer] = people(model.TabBuyer, 2, "buyer.mx")
	c := newController(t, leadsScreen(), backend)

	slow, err := c.Begin(ctx, model.TabLead)
	require.NoError(t, err)
	fast, err := c.Begin(ctx, model.TabBuyer)
	require.NoError(t, err)

	slowRes := c.Fetch(ctx, slow)
	fastRes := c.Fetch(ctx, fast)

	assert.True(t, c.Apply(ctx, fastRes))
	assert.False(t, c.Apply(ctx, slowRes), "late response for the superseded tab must not apply")
	assert.Equal(t, model.TabBuyer, c.Tab())
	assert.Equal(t, []string{"comprador-01", "comprador-02"}, model.IDs(c.Records()))
}

func TestBeginClearsListAndSetsLoading(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 4, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	_, err := c.Begin(ctx, model.TabLead)
	require.NoError(t, err)
	assert.True(t, c.Loading())
	assert.Empty(t, c.Records())
	assert.Empty(t, c.Rows())
}

func TestFilterCorrectness(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	recs := []model.Record{
		model.NewRecord("1", map[string]any{"name": "Ana Ruiz", "email": "ana@uno.mx", "city": "Xalapa"}),
		model.NewRecord("2", map[string]any{"name": "Beto", "email": "BETO@XOOM.com", "city": "Puebla"}),
		model.NewRecord("3", map[string]any{"name": "Carla", "email": "carla@dos.mx", "city": "Xico"}),
		model.NewRecord("4", map[string]any{"email": "x@anon.mx"}),
	}
	backend.data[model.TabLead] = recs
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	for _, term := range []string{"", "x", "ANA", "xoom", "mx", "zzz"} {
		t.Run(term, func(t *testing.T) {
			c.SetSearchTerm(ctx, term)
			var want []string
			lower := strings.ToLower(term)
			for _, r := range recs {
				if strings.Contains(strings.ToLower(r.Name()), lower) || strings.Contains(strings.ToLower(r.Email()), lower) {
					want = append(want, r.ID)
				}
			}
			got := model.IDs(c.Filtered())
			if len(want) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, want, got)
			}
			assert.Len(t, c.Records(), len(recs), "search never mutates fetched records")
		})
	}
}

func TestSearchIncludesScreenFields(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabClient] = []model.Record{
		model.NewRecord("1", map[string]any{"name": "Ana", "email": "a@a.mx", "city": "Mérida"}),
		model.NewRecord("2", map[string]any{"name": "Beto", "email": "b@b.mx", "city": "Puebla"}),
	}
	c := newController(t, clientsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabClient))

	c.SetSearchTerm(ctx, "mérida")
	assert.Equal(t, []string{"1"}, model.IDs(c.Filtered()))
}

func TestSearchResetsPage(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	recs := people(model.TabLead, 25, "plain.com")
	for i := 0; i < 12; i++ {
		recs[i*2].Fields["email"] = fmt.Sprintf("match%02d@x.mx", i)
	}
	backend.data[model.TabLead] = recs
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	require.NoError(t, c.SetPageSize(10))
	c.Paginate(Next)
	c.Paginate(Next)
	require.Equal(t, 3, c.Window().Page)

	c.SetSearchTerm(ctx, "x")
	require.Len(t, c.Filtered(), 12)
	assert.Equal(t, 1, c.Window().Page)
	assert.Equal(t, model.IDs(c.Filtered()[:10]), model.IDs(c.Rows()))
	assert.Equal(t, 2, c.TotalPages())
}

func TestPaginationCoverageAndBounds(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 23, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	c.Paginate(Previous)
	assert.Equal(t, 1, c.Window().Page)

	var seen []string
	for p := 1; p <= c.TotalPages(); p++ {
		c.GoToPage(p)
		seen = append(seen, model.IDs(c.Rows())...)
	}
	assert.Equal(t, model.IDs(c.Filtered()), seen)
	assert.Equal(t, 3, c.TotalPages())

	c.GoToPage(3)
	c.Paginate(Next)
	assert.Equal(t, 3, c.Window().Page)
}

func TestPageSizeAllAndReset(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 37, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.GoToPage(3)

	require.NoError(t, c.SetPageSize(pager.All))
	assert.Equal(t, 1, c.Window().Page)
	assert.Equal(t, 1, c.TotalPages())
	assert.Len(t, c.Rows(), 37)

	assert.Error(t, c.SetPageSize(15))
	c.CyclePageSize()
	assert.Equal(t, pager.Size(10), c.Window().Size)
}

func TestTabSwitchClearsSelectionAndPage(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 30, "x")
	backend.data[model.TabBuyer] = people(model.TabBuyer, 30, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.Paginate(Next)
	require.True(t, c.ToggleSelection(ctx, "lead-11"))

	require.NoError(t, c.ActivateTab(ctx, model.TabBuyer))
	assert.Empty(t, c.Selected())
	assert.Equal(t, 1, c.Window().Page)

	require.True(t, c.ToggleSelection(ctx, "comprador-01"))
	require.NoError(t, c.Refetch(ctx))
	assert.Empty(t, c.Selected(), "refetch replaces the list and the selection with it")
}

func TestSingleSelectToggle(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabClient] = people(model.TabClient, 3, "x")
	c := newController(t, clientsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabClient))

	before := c.Selected()
	c.ToggleSelection(ctx, "client-01")
	c.ToggleSelection(ctx, "client-01")
	assert.Equal(t, before, c.Selected())

	c.ToggleSelection(ctx, "client-01")
	c.ToggleSelection(ctx, "client-02")
	assert.Equal(t, []string{"client-02"}, c.Selected())

	assert.False(t, c.SelectAll(ctx))
	assert.False(t, c.ToggleSelection(ctx, "not-rendered"))
}

func TestMultiSelect(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 12, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	c.ToggleSelection(ctx, "lead-01")
	c.ToggleSelection(ctx, "lead-02")
	c.ToggleSelection(ctx, "lead-01")
	assert.Equal(t, []string{"lead-02"}, c.Selected())

	c.SetSelection([]string{"lead-03", "lead-11", "lead-03"})
	assert.Equal(t, []string{"lead-03"}, c.Selected(), "ids off the current page are dropped")

	c.SetSearchTerm(ctx, "person 1")
	require.True(t, c.SelectAll(ctx))
	assert.Equal(t, model.IDs(c.Filtered()), c.Selected())

	c.ClearSelection()
	assert.Empty(t, c.Selected())
}

func TestSetFilterExpr(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	recs := people(model.TabLead, 4, "x")
	recs[1].Fields["status"] = "cerrado"
	recs[3].Fields["status"] = "cerrado"
	backend.data[model.TabLead] = recs
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	require.NoError(t, c.SetFilterExpr(ctx, `"status" in record && record.status == "cerrado"`))
	assert.Equal(t, []string{"lead-02", "lead-04"}, model.IDs(c.Filtered()))
	assert.NotEmpty(t, c.FilterExpr())

	c.SetSearchTerm(ctx, "04")
	assert.Equal(t, []string{"lead-04"}, model.IDs(c.Filtered()))

	require.Error(t, c.SetFilterExpr(ctx, "record.name =="))
	require.NoError(t, c.SetFilterExpr(ctx, ""))
	assert.Len(t, c.Filtered(), 1)
}

func TestStateChangesAreEmitted(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabProspect] = people(model.TabProspect, 25, "x")
	var last State
	c := newController(t, leadsScreen(), backend, func(o *Options) {
		o.OnStateChange = func(s State) { last = s }
	})

	require.NoError(t, c.ActivateTab(ctx, model.TabProspect))
	c.Paginate(Next)
	assert.Equal(t, State{Tab: model.TabProspect, Page: 2, Size: 10}, last)

	c.SetSearchTerm(ctx, "person")
	assert.Equal(t, "q=person&selected=prospecto&size=10", last.Encode())
}

func TestRestoreThenRefetch(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabBuyer] = people(model.TabBuyer, 25, "x")
	c := newController(t, leadsScreen(), backend)

	c.Restore(ctx, ParseState("selected=comprador&page=3&size=10&q=person", leadsScreen(), 10))
	require.NoError(t, c.Refetch(ctx))
	assert.Equal(t, model.TabBuyer, c.Tab())
	assert.Equal(t, 3, c.Window().Page)
	assert.Len(t, c.Rows(), 5)

	backend.data[model.TabBuyer] = people(model.TabBuyer, 12, "x")
	require.NoError(t, c.Refetch(ctx))
	assert.Equal(t, 2, c.Window().Page, "page is clamped when the list shrinks")
}

func TestParseStateDefaults(t *testing.T) {
	st := ParseState("selected=office&page=-2&size=7", leadsScreen(), 20)
	assert.Equal(t, State{Tab: model.TabLead, Page: 1, Size: 7}, st)

	st = ParseState("%%%", leadsScreen(), 20)
	assert.Equal(t, State{Tab: model.TabLead, Page: 1, Size: 20}, st)

	st = ParseState("?selected=comprador&size=all", leadsScreen(), 20)
	assert.Equal(t, model.TabBuyer, st.Tab)
	assert.Equal(t, pager.All, st.Size)
}

func TestErrorsAreWrapped(t *testing.T) {
	c := newController(t, leadsScreen(), newFakeBackend())
	_, err := c.Begin(context.Background(), "office")
	assert.True(t, errors.Is(err, ErrUnknownTab))
}

func TestPagingDropsSelectionOffThePage(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabClient] = people(model.TabClient, 25, "x")
	c := newController(t, clientsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabClient))

	require.True(t, c.ToggleSelection(ctx, "client-01"))
	c.Paginate(Next)
	assert.Empty(t, c.Selected())

	host := &fakeHost{confirm: true}
	require.NoError(t, c.RunBulkAction(ctx, model.ActionDelete, host, nil))
	assert.Empty(t, backend.deletes, "nothing rendered is selected, so nothing is deleted")
	assert.Equal(t, 0, host.confirms)

	require.True(t, c.ToggleSelection(ctx, "client-12"))
	c.GoToPage(1)
	c.GoToPage(2)
	assert.Empty(t, c.Selected(), "returning to a page does not bring the selection back")
}

func TestShrinkingPageSizeDropsSelection(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabClient] = people(model.TabClient, 25, "x")
	c := newController(t, clientsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabClient))
	require.NoError(t, c.SetPageSize(pager.All))

	require.True(t, c.ToggleSelection(ctx, "client-20"))
	require.NoError(t, c.SetPageSize(10))
	assert.Empty(t, c.Selected())

	require.True(t, c.ToggleSelection(ctx, "client-03"))
	require.NoError(t, c.SetPageSize(20))
	assert.Equal(t, []string{"client-03"}, c.Selected(), "ids still on the page stay selected")
}

func TestSelectAllSpansPagesUntilNarrowed(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 15, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	require.True(t, c.SelectAll(ctx))
	c.Paginate(Next)
	assert.Len(t, c.Selected(), 15)

	require.True(t, c.ToggleSelection(ctx, "lead-11"))
	assert.Equal(t, []string{"lead-12", "lead-13", "lead-14", "lead-15"}, c.Selected())
}

func TestSetFilterExprEmitsState(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 25, "x")
	var last State
	c := newController(t, leadsScreen(), backend, func(o *Options) {
		o.OnStateChange = func(s State) { last = s }
	})
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.GoToPage(3)
	require.Equal(t, 3, last.Page)

	require.NoError(t, c.SetFilterExpr(ctx, `record.name != ""`))
	assert.Equal(t, 1, last.Page)
}
