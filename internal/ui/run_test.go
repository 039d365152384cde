package ui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/model"
)

func TestNewRoot(t *testing.T) {
	env := newTestEnv(t)
	clients := leadsScreen()
	clients.Name, clients.Title = "clients", "Clients"
	clients.Tabs, clients.DefaultTab = []model.Tab{model.TabClient}, model.TabClient
	deps := *env.deps
	deps.Screens = append(deps.Screens, clients)

	root, cmd, err := NewRoot(context.Background(), deps, "clients")
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, "clients", root.ActiveScreen())
	assert.Equal(t, 1, root.Depth())

	start := &startModel{RootModel: root, start: cmd}
	assert.NotNil(t, start.Init(), "the program starts with the first screen's fetch")
}

func TestNewRootErrors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := NewRoot(context.Background(), Deps{Backend: env.deps.Backend}, "")
	assert.ErrorContains(t, err, "no screens")

	_, _, err = NewRoot(context.Background(), Deps{Screens: env.deps.Screens}, "")
	assert.ErrorContains(t, err, "backend")

	_, _, err = NewRoot(context.Background(), *env.deps, "offices")
	assert.ErrorContains(t, err, `unknown screen "offices"`)
}
