package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/auth"
	"github.com/oakwood-commons/crmx/internal/fakeapi"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/internal/session"
)

func addAgent(api *fakeapi.Server) {
	api.AddAccount(fakeapi.Account{
		Email:    "ana@example.mx",
		Password: "secreto1",
		User:     model.User{ID: "user-ana", Email: "ana@example.mx", Name: "Ana Pérez", Role: "seller"},
	})
}

func TestLoginStoresSession(t *testing.T) {
	api, dir := newBackend(t)
	addAgent(api)

	res, err := runCLI(t, "secreto1\n", "login", "--email", "ana@example.mx", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Signed in as ana@example.mx")
	assert.Contains(t, res.err, "No office selected yet")

	sess, err := session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "ana@example.mx", sess.Email)
	assert.Equal(t, "user-ana", sess.UserID)
	assert.Equal(t, "Ana Pérez", sess.Name)
	assert.NotEmpty(t, sess.Token)

	res, err = runCLI(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.mx\n", res.out)
}

func TestLoginPromptsForEmailAndPassword(t *testing.T) {
	api, _ := newBackend(t)
	addAgent(api)

	orig := readPassword
	defer func() { readPassword = orig }()
	readPassword = func() (string, error) { return "secreto1", nil }

	res, err := runCLI(t, "ana@example.mx\n", "login")
	require.NoError(t, err)
	assert.Contains(t, res.err, "Email: ")
	assert.Contains(t, res.err, "Password: ")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api, dir := newBackend(t)
	addAgent(api)

	_, err := runCLI(t, "nope\n", "login", "--email", "ana@example.mx", "--password-stdin")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = runCLI(t, "secreto1\n", "login", "--email", "not-an-email", "--password-stdin")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "not a valid address", verr.Fields["email"])

	sess, err := session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.False(t, sess.SignedIn(), "failed sign-ins write nothing")
}

func TestLogoutKeepsOffice(t *testing.T) {
	_, dir := newBackend(t)
	signedIn(t, dir, withOffice)

	res, err := runCLI(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, res.out, "Signed out")

	sess, err := session.NewStore(dir).Load()
	require.NoError(t, err)
	assert.False(t, sess.SignedIn())
	assert.Empty(t, sess.Token)
	assert.Equal(t, "office-1", sess.Office.ID)
}

func TestWhoamiJSON(t *testing.T) {
	_, dir := newBackend(t)
	signedIn(t, dir, withOffice, func(s *session.Session) { s.ClientNumber = clientPhone })

	res, err := runCLI(t, "", "whoami", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"email": "demo@example.com",
		"userId": "user-demo",
		"clientNumber": "+529991112233",
		"office": {"ID": "office-1", "Name": "Centro", "Phone": "+529990000001", "City": "Mérida", "State": "Yucatán"}
	}`, res.out)
}
