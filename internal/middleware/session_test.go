package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionApp(t *testing.T) (*session.Registry, *testutil.HTTPTestClient) {
	t.Helper()
	reg := testutil.NewTestRegistry(t, testutil.NewFakeIdentity(), testutil.RoleBackend(t, nil).URL)

	app := drift.New()
	app.Use(Session(reg, testutil.TestSessionTokens(), false, nil))
	app.Get("/whoami", func(c *drift.Context) {
		s := GetSession(c)
		_ = c.JSON(http.StatusOK, map[string]string{"session_id": s.ID.String()})
	})
	return reg, testutil.NewHTTPTestClient(t, app)
}

func sessionIDFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	testutil.ParseJSON(t, rec, &body)
	return body["session_id"]
}

func TestSession_NewVisitorGetsCookie(t *testing.T) {
	_, client := sessionApp(t)

	rec := client.GET("/whoami", nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	setCookie := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	assert.True(t, strings.HasPrefix(setCookie, CookieName+"="))
	assert.Contains(t, setCookie, "HttpOnly")
	assert.Contains(t, setCookie, "SameSite=Lax")
	assert.NotEmpty(t, sessionIDFrom(t, rec))
}

func TestSession_CookieReopensSameSession(t *testing.T) {
	_, client := sessionApp(t)

	first := client.GET("/whoami", nil)
	cookie := strings.SplitN(first.Header().Get("Set-Cookie"), ";", 2)[0]
	id := sessionIDFrom(t, first)

	second := client.GET("/whoami", map[string]string{"Cookie": cookie})
	testutil.AssertStatus(t, second, http.StatusOK)
	assert.Empty(t, second.Header().Get("Set-Cookie"))
	assert.Equal(t, id, sessionIDFrom(t, second))
}

func TestSession_IssuedCookieOpensExistingSession(t *testing.T) {
	reg, client := sessionApp(t)
	s, err := reg.Create()
	require.NoError(t, err)

	rec := client.GET("/whoami", map[string]string{"Cookie": testutil.SessionCookie(t, s.ID)})

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
	assert.Equal(t, s.ID.String(), sessionIDFrom(t, rec))
}

func TestSession_TamperedCookieStartsFresh(t *testing.T) {
	_, client := sessionApp(t)

	first := client.GET("/whoami", nil)
	id := sessionIDFrom(t, first)

	rec := client.GET("/whoami", map[string]string{"Cookie": CookieName + "=not-a-jwt"})
	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))
	assert.NotEqual(t, id, sessionIDFrom(t, rec))
}

func TestSession_CookieForUnknownIDIsRebuilt(t *testing.T) {
	_, client := sessionApp(t)

	first := client.GET("/whoami", nil)
	id := sessionIDFrom(t, first)

	// A restarted process has never seen the ID but still honours the cookie.
	_, other := sessionApp(t)
	cookie := strings.SplitN(first.Header().Get("Set-Cookie"), ";", 2)[0]
	rec := other.GET("/whoami", map[string]string{"Cookie": cookie})

	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Equal(t, id, sessionIDFrom(t, rec))
}

func TestGetSession_Missing(t *testing.T) {
	app := drift.New()
	var found bool
	app.Get("/", func(c *drift.Context) {
		found = GetSession(c) != nil
		_ = c.JSON(http.StatusOK, nil)
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, found)
}
