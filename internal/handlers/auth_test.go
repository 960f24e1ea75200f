package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/config"
	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/oauth"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
	"github.com/programmerrakibul/book-wagon-client/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	reg      *session.Registry
	active   *session.Session
	ident    *testutil.FakeIdentity
	users    *testutil.MockUserService
	provider *testutil.MockOAuthProvider
	client   *testutil.HTTPTestClient
}

func newSession(t *testing.T, reg *session.Registry) *session.Session {
	t.Helper()
	s, err := reg.Create()
	require.NoError(t, err)
	_, err = s.Store.WaitReady(context.Background())
	require.NoError(t, err)
	return s
}

func setupAuth(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		ident:    testutil.NewFakeIdentity(),
		users:    new(testutil.MockUserService),
		provider: new(testutil.MockOAuthProvider),
	}
	f.reg = testutil.NewTestRegistry(t, f.ident, testutil.RoleBackend(t, map[string]string{
		"reader@example.com": "reader",
	}).URL)
	f.active = newSession(t, f.reg)
	f.provider.On("Name").Return("google")

	h := NewAuthHandler(&config.Config{LoginPath: "/auth/login"}, f.users, nil)
	h.AddProvider(f.provider)

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(func(c *drift.Context) {
		c.Set(middleware.SessionKey, f.active)
		c.Next()
	})

	app.Get("/auth/login", h.LoginPage)

	auth := app.Group("/api/v1/auth")
	auth.Post("/login", h.Login)
	auth.Post("/register", h.Register)
	auth.Post("/logout", h.Logout)
	auth.Get("/:provider/consent", h.GetConsentURL)
	auth.Get("/:provider/callback", h.Callback)

	me := app.Group("/api/v1/users")
	me.Use(middleware.PrivateRoute(middleware.GuardConfig{LoginPath: "/auth/login", Wait: time.Second, JSON: true}))
	me.Get("/me", h.GetMe)
	me.Patch("/me", h.UpdateMe)

	f.client = testutil.NewHTTPTestClient(t, app)
	return f
}

func TestAuthHandler_Login_Success(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.POST("/api/v1/auth/login", dto.LoginRequest{
		Email:    "reader@example.com",
		Password: "secret",
		Next:     "/dashboard/orders",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.AuthResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, "reader@example.com", resp.User.Email)
	assert.Equal(t, "/dashboard/orders", resp.Redirect)

	state := f.active.Store.Snapshot()
	assert.True(t, state.Authenticated())
	assert.False(t, state.Loading)
	f.users.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Login_RejectsOffsiteNext(t *testing.T) {
	f := setupAuth(t)

	for _, next := range []string{"//evil.example", "https://evil.example", "/\\evil.example", ""} {
		rec := f.client.POST("/api/v1/auth/login", dto.LoginRequest{
			Email:    "reader@example.com",
			Password: "secret",
			Next:     next,
		}, nil)
		testutil.AssertStatus(t, rec, http.StatusOK)

		var resp dto.AuthResponse
		testutil.ParseJSON(t, rec, &resp)
		assert.Equal(t, "/", resp.Redirect, "next=%q", next)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	f := setupAuth(t)
	f.ident.SignInErr = &identity.AuthError{Code: identity.CodeInvalidCredential}

	rec := f.client.POST("/api/v1/auth/login", dto.LoginRequest{
		Email:    "reader@example.com",
		Password: "wrong",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	var resp dto.AuthErrorResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, identity.CodeInvalidCredential, resp.Code)
	assert.Equal(t, identity.UserMessage(f.ident.SignInErr), resp.Error)
	assert.False(t, f.active.Store.Snapshot().Authenticated())
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.POST("/api/v1/auth/login", dto.LoginRequest{Email: "reader@example.com"}, nil)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestAuthHandler_Login_ClearsPendingNavigation(t *testing.T) {
	f := setupAuth(t)
	f.active.Navigate.To("/auth/login")

	rec := f.client.POST("/api/v1/auth/login", dto.LoginRequest{
		Email:    "reader@example.com",
		Password: "secret",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	_, pending := f.active.Navigate.Take()
	assert.False(t, pending)
}

func TestAuthHandler_Register_SetsProfileAndSyncs(t *testing.T) {
	f := setupAuth(t)
	f.users.On("Sync", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Principal) bool {
		return p.Email == "new@example.com" && p.DisplayName == "New Reader"
	})).Return(nil)

	rec := f.client.POST("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "New Reader",
		Email:    "new@example.com",
		Password: "secret123",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var resp dto.AuthResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, "New Reader", resp.User.DisplayName)
	assert.Equal(t, "New Reader", f.active.Store.Snapshot().Principal.DisplayName)

	f.users.AssertExpectations(t)
}

func TestAuthHandler_Register_SyncFailureKeepsSignIn(t *testing.T) {
	f := setupAuth(t)
	f.users.On("Sync", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("backend down"))

	rec := f.client.POST("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "New Reader",
		Email:    "new@example.com",
		Password: "secret123",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusCreated)
	assert.True(t, f.active.Store.Snapshot().Authenticated())
}

func TestAuthHandler_Register_EmailInUse(t *testing.T) {
	f := setupAuth(t)
	f.ident.SignInErr = &identity.AuthError{Code: identity.CodeEmailAlreadyInUse}

	rec := f.client.POST("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "Dup",
		Email:    "dup@example.com",
		Password: "secret123",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusConflict)
}

func TestAuthHandler_Register_RequiresName(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.POST("/api/v1/auth/register", dto.RegisterRequest{
		Email:    "new@example.com",
		Password: "secret123",
	}, nil)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "name is required")
}

func TestAuthHandler_GetConsentURL_UnsupportedProvider(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.GET("/api/v1/auth/github/consent", nil)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "unsupported provider")
}

// startConsent runs the consent step and returns the state it generated.
func startConsent(t *testing.T, f *authFixture, next string) string {
	t.Helper()
	f.provider.On("GetConsentURL", mock.Anything).Return("https://accounts.example/consent").Once()

	rec := f.client.GET("/api/v1/auth/google/consent?next="+url.QueryEscape(next), nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.ConsentURLResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, "https://accounts.example/consent", resp.URL)

	var state string
	for _, call := range f.provider.Calls {
		if call.Method == "GetConsentURL" {
			state = call.Arguments.String(0)
		}
	}
	require.NotEmpty(t, state)
	return state
}

func TestAuthHandler_GoogleFlow(t *testing.T) {
	f := setupAuth(t)
	state := startConsent(t, f, "/wishlist")

	f.provider.On("ExchangeCode", mock.Anything, "auth-code").Return(&oauth.Consent{
		IDToken:  "google-user@example.com",
		Provider: "google",
	}, nil)
	f.users.On("Sync", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Principal) bool {
		return p.Email == "google-user@example.com"
	})).Return(nil)

	rec := f.client.GET("/api/v1/auth/google/callback?state="+url.QueryEscape(state)+"&code=auth-code", nil)
	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	assert.Equal(t, "/wishlist", rec.Header().Get("Location"))

	assert.Equal(t, "google-user@example.com", f.active.Store.Snapshot().Principal.Email)
	f.provider.AssertExpectations(t)
	f.users.AssertExpectations(t)

	// The state is single use.
	rec = f.client.GET("/api/v1/auth/google/callback?state="+url.QueryEscape(state)+"&code=auth-code", nil)
	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/login?error="))
}

func TestAuthHandler_Callback_InvalidState(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.GET("/api/v1/auth/google/callback?state=bogus&code=auth-code", nil)
	testutil.AssertStatus(t, rec, http.StatusSeeOther)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", loc.Path)
	assert.Equal(t, "invalid or expired state", loc.Query().Get("error"))
	f.provider.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestAuthHandler_Callback_OtherBrowserSession(t *testing.T) {
	f := setupAuth(t)
	state := startConsent(t, f, "/")

	f.active = newSession(t, f.reg)

	rec := f.client.GET("/api/v1/auth/google/callback?state="+url.QueryEscape(state)+"&code=auth-code", nil)
	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
	assert.False(t, f.active.Store.Snapshot().Authenticated())
}

func TestAuthHandler_Callback_ConsentDenied(t *testing.T) {
	f := setupAuth(t)
	state := startConsent(t, f, "/")

	rec := f.client.GET("/api/v1/auth/google/callback?state="+url.QueryEscape(state)+"&error=access_denied", nil)
	testutil.AssertStatus(t, rec, http.StatusSeeOther)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, identity.UserMessage(&identity.AuthError{Code: identity.CodePopupClosed}), loc.Query().Get("error"))
}

func TestAuthHandler_Logout(t *testing.T) {
	f := setupAuth(t)
	_, err := f.active.Store.SignIn(context.Background(), "reader@example.com", "secret")
	require.NoError(t, err)

	rec := f.client.POST("/api/v1/auth/logout", nil, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "/auth/login")
	assert.False(t, f.active.Store.Snapshot().Authenticated())
}

func TestAuthHandler_GetMe(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.GET("/api/v1/users/me", nil)
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	_, err := f.active.Store.SignIn(context.Background(), "reader@example.com", "secret")
	require.NoError(t, err)

	rec = f.client.GET("/api/v1/users/me", nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.UserResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, "reader@example.com", resp.Email)
	assert.Equal(t, "uid-reader@example.com", resp.UID)
}

func TestAuthHandler_UpdateMe(t *testing.T) {
	f := setupAuth(t)
	_, err := f.active.Store.SignIn(context.Background(), "reader@example.com", "secret")
	require.NoError(t, err)
	f.users.On("Sync", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	name := "Renamed"
	rec := f.client.PATCH("/api/v1/users/me", dto.UpdateProfileRequest{DisplayName: &name}, nil)
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.UserResponse
	testutil.ParseJSON(t, rec, &resp)
	assert.Equal(t, "Renamed", resp.DisplayName)
	assert.Equal(t, "Renamed", f.active.Store.Snapshot().Principal.DisplayName)

	rec = f.client.PATCH("/api/v1/users/me", dto.UpdateProfileRequest{}, nil)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestAuthHandler_LoginPage(t *testing.T) {
	f := setupAuth(t)

	rec := f.client.GET("/auth/login?next=/orders&error=Wrong+password", nil)
	testutil.AssertStatus(t, rec, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "Wrong password")
	assert.Contains(t, rec.Body.String(), "Continue with Google")

	_, err := f.active.Store.SignIn(context.Background(), "reader@example.com", "secret")
	require.NoError(t, err)

	rec = f.client.GET("/auth/login?next=/orders", nil)
	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))
}

func TestAuthHandler_RunCleanupDropsExpiredStatesAndStops(t *testing.T) {
	h := NewAuthHandler(&config.Config{LoginPath: "/auth/login"}, new(testutil.MockUserService), nil)
	h.states.Store("expired", stateData{sessionID: uuid.New(), next: "/", expiresAt: time.Now().Add(-time.Minute)})
	h.states.Store("fresh", stateData{sessionID: uuid.New(), next: "/", expiresAt: time.Now().Add(time.Minute)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.RunCleanup(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := h.states.Load("expired")
		return !ok
	}, time.Second, 5*time.Millisecond)
	_, ok := h.states.Load("fresh")
	assert.True(t, ok)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop after cancel")
	}
}
