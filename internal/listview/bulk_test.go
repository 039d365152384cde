package listview

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/events"
	"github.com/oakwood-commons/crmx/internal/fakeapi"
	"github.com/oakwood-commons/crmx/internal/gateway"
	"github.com/oakwood-commons/crmx/internal/model"
)

func TestViewGuardNeedsExactlyOne(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 5, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	nav := &fakeNav{}
	host := &fakeHost{confirm: true}

	require.NoError(t, c.RunBulkAction(ctx, model.ActionView, host, nav))
	assert.Empty(t, nav.opened)

	c.SetSelection([]string{"lead-01", "lead-02"})
	require.NoError(t, c.RunBulkAction(ctx, model.ActionView, host, nav))
	assert.Empty(t, nav.opened)
	assert.Equal(t, 0, host.confirms)

	c.SetSelection([]string{"lead-02"})
	require.NoError(t, c.RunBulkAction(ctx, model.ActionView, host, nav))
	assert.Equal(t, []string{"lead-02"}, nav.opened)
	assert.Equal(t, 1, backend.listCalls[model.TabLead], "view never refetches")
}

func TestRequestBulkRejectsActionsNotOffered(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabClient] = people(model.TabClient, 2, "x")
	c := newController(t, clientsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabClient))
	c.ToggleSelection(ctx, "client-01")

	_, ok := c.RequestBulk(ctx, model.ActionAssign)
	assert.False(t, ok)

	req, ok := c.RequestBulk(ctx, model.ActionEdit)
	require.True(t, ok)
	assert.Equal(t, BulkRequest{Action: model.ActionEdit, Tab: model.TabClient, IDs: []string{"client-01"}}, req)
}

func TestDeleteThenRefetch(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 4, "x")
	var notices []Notice
	pub := &recordingPublisher{}
	c := newController(t, leadsScreen(), backend, func(o *Options) {
		o.Notifier = NotifierFunc(func(n Notice) { notices = append(notices, n) })
		o.Publisher = pub
	})
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	listsBefore := backend.listCalls[model.TabLead]
	c.ToggleSelection(ctx, "lead-03")
	host := &fakeHost{confirm: true}

	require.NoError(t, c.RunBulkAction(ctx, model.ActionDelete, host, nil))
	assert.Equal(t, []string{"lead-03"}, backend.deletes)
	assert.Equal(t, listsBefore+1, backend.listCalls[model.TabLead])
	assert.Equal(t, "Delete lead lead-03?", host.lastPrompt)
	assert.NotContains(t, model.IDs(c.Records()), "lead-03")
	assert.Empty(t, c.Selected())

	require.Len(t, notices, 1)
	assert.Equal(t, LevelSuccess, notices[0].Level)
	require.Len(t, pub.published, 1)
	m := pub.published[0]
	assert.Equal(t, model.ActionDelete, m.Action)
	assert.Equal(t, []string{"lead-03"}, m.IDs)
	assert.False(t, m.At.IsZero())
}

func TestDeleteCancelledDoesNothing(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 2, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.ToggleSelection(ctx, "lead-01")

	require.NoError(t, c.RunBulkAction(ctx, model.ActionDelete, &fakeHost{}, nil))
	assert.Empty(t, backend.deletes)
	assert.Equal(t, 1, backend.listCalls[model.TabLead])
	assert.Equal(t, []string{"lead-01"}, c.Selected())
}

func TestDeleteWithTwoSelectedIsSkipped(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 2, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.SetSelection([]string{"lead-01", "lead-02"})
	host := &fakeHost{confirm: true}

	require.NoError(t, c.RunBulkAction(ctx, model.ActionDelete, host, nil))
	assert.Equal(t, 0, host.confirms)
	assert.Empty(t, backend.deletes)
}

func TestDeleteFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 3, "x")
	backend.deleteErr = &gateway.APIError{StatusCode: 409, Message: "has open deals"}
	var notices []Notice
	pub := &recordingPublisher{}
	c := newController(t, leadsScreen(), backend, func(o *Options) {
		o.Notifier = NotifierFunc(func(n Notice) { notices = append(notices, n) })
		o.Publisher = pub
	})
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.ToggleSelection(ctx, "lead-02")

	err := c.RunBulkAction(ctx, model.ActionDelete, &fakeHost{confirm: true}, nil)
	require.Error(t, err)
	assert.Len(t, c.Records(), 3)
	assert.Equal(t, 1, backend.listCalls[model.TabLead])
	assert.Empty(t, pub.published)
	require.Len(t, notices, 1)
	assert.Equal(t, LevelError, notices[0].Level)
	assert.Contains(t, notices[0].Text, "has open deals")
}

func TestAssignSendsActingUserAndTarget(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 4, "x")
	reloads := 0
	screen := leadsScreen()
	screen.ReloadOnMutation = true
	c := newController(t, screen, backend, func(o *Options) {
		o.ReloadContext = func(context.Context) error { reloads++; return nil }
	})
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.SetSelection([]string{"lead-01", "lead-04"})
	host := &fakeHost{target: "coord-7"}

	require.NoError(t, c.RunBulkAction(ctx, model.ActionAssign, host, nil))
	require.Len(t, backend.assignments, 1)
	assert.Equal(t, gateway.AssignRequest{
		Tab:        model.TabLead,
		ActingUser: "agent-1",
		Target:     "coord-7",
		IDs:        []string{"lead-01", "lead-04"},
	}, backend.assignments[0])
	assert.Equal(t, 1, host.picks)
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 2, backend.listCalls[model.TabLead])
}

func TestAssignDismissedPicker(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 2, "x")
	c := newController(t, leadsScreen(), backend)
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))
	c.ToggleSelection(ctx, "lead-01")

	require.NoError(t, c.RunBulkAction(ctx, model.ActionAssign, &fakeHost{}, nil))
	assert.Empty(t, backend.assignments)
}

func TestExecuteViewHasNoBackendCall(t *testing.T) {
	c := newController(t, leadsScreen(), newFakeBackend())
	res := c.Execute(context.Background(), BulkRequest{Action: model.ActionView, Tab: model.TabLead, IDs: []string{"a"}})
	assert.True(t, errors.Is(res.Err, ErrNoBackendCall))
}

func TestRemoteMutationRefetchesWithoutRepublishing(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data[model.TabLead] = people(model.TabLead, 2, "x")
	pub := &recordingPublisher{}
	c := newController(t, leadsScreen(), backend, func(o *Options) { o.Publisher = pub })
	require.NoError(t, c.ActivateTab(ctx, model.TabLead))

	backend.data[model.TabLead] = people(model.TabLead, 3, "x")
	ticket, ok := c.MutationCompleted(ctx, events.Mutation{Tab: model.TabLead, Action: model.ActionDelete, Origin: "other-process"})
	require.True(t, ok)
	assert.True(t, c.Loading())
	assert.True(t, c.Apply(ctx, c.Fetch(ctx, ticket)))
	assert.Len(t, c.Records(), 3)
	assert.Empty(t, pub.published)
}

func TestBulkAgainstHTTPGateway(t *testing.T) {
	ctx := context.Background()
	api := fakeapi.New()
	api.Seed(model.TabProspect, people(model.TabProspect, 3, "api.mx")...)
	api.SetEnveloped(model.TabProspect, true)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := gateway.NewHTTPClient(gateway.Options{BaseURL: srv.URL})
	c := newController(t, leadsScreen(), &fakeBackend{}, func(o *Options) { o.Backend = client })

	require.NoError(t, c.ActivateTab(ctx, model.TabProspect))
	require.Len(t, c.Records(), 3)
	c.ToggleSelection(ctx, "prospecto-02")

	require.NoError(t, c.RunBulkAction(ctx, model.ActionDelete, &fakeHost{confirm: true}, nil))
	assert.Equal(t, []string{"prospecto-02"}, api.Deletes())
	assert.Equal(t, 2, api.ListCalls(model.TabProspect))
	assert.Equal(t, []string{"prospecto-01", "prospecto-03"}, model.IDs(c.Records()))
}
