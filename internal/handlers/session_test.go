package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/internal/sse"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
	"github.com/programmerrakibul/book-wagon-client/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionClient(t *testing.T, s *session.Session) *testutil.HTTPTestClient {
	t.Helper()
	h := NewSessionHandler(sse.NewHub())

	app := drift.New()
	app.Use(func(c *drift.Context) {
		c.Set(middleware.SessionKey, s)
		c.Next()
	})
	app.Get("/session", h.Get)
	return testutil.NewHTTPTestClient(t, app)
}

func TestSessionHandler_SignedOut(t *testing.T) {
	reg := testutil.NewTestRegistry(t, testutil.NewFakeIdentity(), testutil.RoleBackend(t, nil).URL)
	s := newSession(t, reg)

	rec := sessionClient(t, s).GET("/session", nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.SessionResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.False(t, resp.Authenticated)
	assert.False(t, resp.Loading)
	assert.Nil(t, resp.User)
	assert.Equal(t, roles.Unresolved.String(), resp.RoleState)
}

func TestSessionHandler_ResolvedRole(t *testing.T) {
	reg := testutil.NewTestRegistry(t, testutil.NewFakeIdentity(), testutil.RoleBackend(t, map[string]string{
		"lib@example.com": "librarian",
	}).URL)
	s := testutil.SignedInSession(t, reg, "lib@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Equal(t, roles.Resolved, s.Roles.Wait(ctx, s.Store.Snapshot().Principal).State)

	rec := sessionClient(t, s).GET("/session", nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.SessionResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.User)
	assert.Equal(t, "lib@example.com", resp.User.Email)
	assert.Equal(t, "librarian", resp.Role)
	assert.Equal(t, roles.Resolved.String(), resp.RoleState)
}

func TestPageHandler_Dashboards(t *testing.T) {
	reg := testutil.NewTestRegistry(t, testutil.NewFakeIdentity(), testutil.RoleBackend(t, map[string]string{
		"boss@example.com": "admin",
	}).URL)
	s := testutil.SignedInSession(t, reg, "boss@example.com")

	cfg := middleware.GuardConfig{LoginPath: "/auth/login", Wait: 2 * time.Second}
	pages := NewPageHandler()

	app := drift.New()
	app.Use(func(c *drift.Context) {
		c.Set(middleware.SessionKey, s)
		c.Next()
	})
	admin := app.Group("/dashboard/admin")
	admin.Use(middleware.AdminRoute(cfg))
	admin.Get("/overview", pages.Admin)
	librarian := app.Group("/dashboard/librarian")
	librarian.Use(middleware.LibrarianRoute(cfg))
	librarian.Get("/overview", pages.Librarian)

	client := testutil.NewHTTPTestClient(t, app)

	rec := client.GET("/dashboard/admin/overview", nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "Admin dashboard")
	assert.Contains(t, rec.Body.String(), "(admin)")

	rec = client.GET("/dashboard/librarian/overview", nil)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	assert.Contains(t, rec.Body.String(), "librarian accounts")
}
