package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/fakeapi"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
)

func seedOffices(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	api, dir := newBackend(t)
	signedIn(t, dir)
	api.Seed(model.TabOffice,
		model.NewRecord("office-1", map[string]any{"name": "Centro", "phone": "+529990000001", "city": "Mérida", "state": "Yucatán"}),
		model.NewRecord("office-2", map[string]any{"name": "Norte", "phone": "+528110000002", "city": "Monterrey", "state": "Nuevo León"}),
	)
	return api, dir
}

func TestOfficeSelectAndShow(t *testing.T) {
	_, dir := seedOffices(t)

	_, err := runCLI(t, "", "office", "show")
	require.ErrorContains(t, err, "no office selected")

	res, err := runCLI(t, "", "office", "select", "office-2")
	require.NoError(t, err)
	assert.Equal(t, "Working under Norte (Monterrey, Nuevo León)\n", res.out)

	sess, err := session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "+528110000002", sess.OfficeContext().Phone)

	res, err = runCLI(t, "", "office", "show", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Monterrey, Nuevo León")

	res, err = runCLI(t, "", "office", "list", "--no-color")
	require.NoError(t, err)
	for _, line := range strings.Split(res.out, "\n") {
		if strings.Contains(line, "office-2") {
			assert.True(t, strings.HasPrefix(line, "*"), "current office is marked: %q", line)
		}
		if strings.Contains(line, "office-1") {
			assert.False(t, strings.HasPrefix(line, "*"), line)
		}
	}

	_, err = runCLI(t, "", "office", "clear")
	require.NoError(t, err)
	sess, err = session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.True(t, sess.Office.IsZero())
}

func TestOfficeSelectUnknown(t *testing.T) {
	seedOffices(t)
	_, err := runCLI(t, "", "office", "select", "office-9")
	require.Error(t, err)
}

func TestUserMutationReloadsOfficeContext(t *testing.T) {
	api, dir := seedOffices(t)
	api.Seed(model.TabUser, model.NewRecord("u-1", map[string]any{"name": "Luis"}))
	_, err := runCLI(t, "", "office", "select", "office-1")
	require.NoError(t, err)

	_, err = runCLI(t, "", "delete", "offices", "office-1", "--yes")
	require.NoError(t, err)
	sess, err := session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "office-1", sess.Office.ID, "the offices screen does not reload context")

	_, err = runCLI(t, "", "delete", "users", "u-1", "--yes")
	require.NoError(t, err)
	sess, err = session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.True(t, sess.Office.IsZero(), "a vanished office is dropped on reload")
}
