package console_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/console"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/db"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/service"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/store/memory"
	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type consoleEnv struct {
	ts     *httptest.Server
	roster *service.RosterService
	reg    *service.RegistrationService
}

func newConsole(t *testing.T, delay time.Duration) consoleEnv {
	t.Helper()
	roster := service.NewRosterService(memory.NewUserStore(db.DemoRoster()))
	rfid := service.NewRFIDService(memory.NewCredentialStore(), nil)
	reg := service.NewRegistrationService(roster, rfid, delay, nil)

	mux := http.NewServeMux()
	mux.Handle("/console/", http.StripPrefix("/console", console.NewHandler(roster, reg, rfid, nil).Routes()))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return consoleEnv{ts: ts, roster: roster, reg: reg}
}

// noRedirect keeps 303 responses visible to the test.
var noRedirect = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func get(t *testing.T, u string) (int, string) {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func postForm(t *testing.T, u string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := noRedirect.PostForm(u, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestRegisterPage_RendersTabs(t *testing.T) {
	env := newConsole(t, 0)
	status, body := get(t, env.ts.URL+"/console/register/face")
	assert.Equal(t, http.StatusOK, status)
	for _, want := range []string{"Face ID", "RFID", "Fingerprint", "Registered Users", `name="fullName"`} {
		assert.Contains(t, body, want)
	}
}

func TestRegisterPage_UnknownModality(t *testing.T) {
	env := newConsole(t, 0)
	status, _ := get(t, env.ts.URL+"/console/register/iris")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRegisterSubmit_MissingFieldsAlerts(t *testing.T) {
	env := newConsole(t, 0)
	resp, body := postForm(t, env.ts.URL+"/console/register/face", url.Values{"fullName": {"A"}, "idNumber": {" "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `alert("Please fill in all fields");`)

	users, err := env.roster.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 5)
}

func TestRegisterSubmit_CreatesAndRedirects(t *testing.T) {
	env := newConsole(t, 0)
	resp, _ := postForm(t, env.ts.URL+"/console/register/fingerprint",
		url.Values{"fullName": {"A B"}, "idNumber": {"STU010"}, "role": {"Admin"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/console/register/fingerprint?ok="))

	users, err := env.roster.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "STU010", users[0].IDNumber)
	assert.Equal(t, "Admin", users[0].Role)
}

func TestRegisterPage_DisablesSubmitWhileScanning(t *testing.T) {
	env := newConsole(t, 300*time.Millisecond)
	p, err := env.reg.Submit(context.Background(), types.ModalityFace, types.RegistrationForm{FullName: "A", IDNumber: "X1"})
	require.NoError(t, err)

	_, body := get(t, env.ts.URL+"/console/register/fingerprint")
	assert.Contains(t, body, "disabled")
	assert.Contains(t, body, "Face ID scan in progress.")

	_, body = get(t, env.ts.URL+"/console/register/face")
	assert.Contains(t, body, "Scanning...")

	_, err = p.Wait(context.Background())
	require.NoError(t, err)
}

func TestAutoRefresh_OnlyOnRegisterTabs(t *testing.T) {
	env := newConsole(t, 300*time.Millisecond)
	p, err := env.reg.Submit(context.Background(), types.ModalityRFID, types.RegistrationForm{FullName: "A", IDNumber: "X1"})
	require.NoError(t, err)

	_, body := get(t, env.ts.URL+"/console/register/face")
	assert.Contains(t, body, `http-equiv="refresh"`)

	_, body = get(t, env.ts.URL+"/console/users/1001/edit")
	assert.Contains(t, body, "John Doe")
	assert.NotContains(t, body, `http-equiv="refresh"`)

	_, body = get(t, env.ts.URL+"/console/users")
	assert.NotContains(t, body, `http-equiv="refresh"`)

	_, err = p.Wait(context.Background())
	require.NoError(t, err)

	_, body = get(t, env.ts.URL+"/console/register/face")
	assert.NotContains(t, body, `http-equiv="refresh"`)
}

func TestUsersList_ServerFilter(t *testing.T) {
	env := newConsole(t, 0)
	_, body := get(t, env.ts.URL+"/console/users?q=jane")
	assert.Contains(t, body, "Jane Smith")
	assert.NotContains(t, body, "John Doe")
	assert.Contains(t, body, "Are you sure you want to delete this user?")
}

func TestEditSubmit_SavesBuffer(t *testing.T) {
	env := newConsole(t, 0)

	status, body := get(t, env.ts.URL+"/console/users/1005/edit")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `value="Michael Wilson"`)

	resp, _ := postForm(t, env.ts.URL+"/console/users/1005/edit", url.Values{
		"fullName": {"Michael W."},
		"idNumber": {"FAC002"},
		"role":     {"Faculty"},
		"status":   {"Inactive"},
		"method":   {"rfid"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	u, err := env.roster.Get(context.Background(), "1005")
	require.NoError(t, err)
	assert.Equal(t, "Michael W.", u.FullName)
	assert.Equal(t, "Faculty", u.Role)
	assert.Equal(t, types.StatusInactive, u.Status)
	assert.Equal(t, []types.Modality{types.ModalityRFID}, u.AuthMethods)
	assert.Equal(t, "2024-01-19", u.RegisteredAt)
}

func TestDeleteSubmit(t *testing.T) {
	env := newConsole(t, 0)
	resp, _ := postForm(t, env.ts.URL+"/console/users/1001/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, err := env.roster.Get(context.Background(), "1001")
	assert.Error(t, err)

	resp, _ = postForm(t, env.ts.URL+"/console/users/1001/delete", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTapSubmit_ShowsInLog(t *testing.T) {
	env := newConsole(t, 0)
	resp, _ := postForm(t, env.ts.URL+"/console/rfid/tap", url.Values{"uid": {"CAFEBABE"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := get(t, env.ts.URL+"/console/register/rfid")
	assert.Contains(t, body, "CAFEBABE")
	assert.Contains(t, body, "Access Log (1)")
}

func TestTapSubmit_EmptyUID(t *testing.T) {
	env := newConsole(t, 0)
	resp, _ := postForm(t, env.ts.URL+"/console/rfid/tap", url.Values{"uid": {""}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
