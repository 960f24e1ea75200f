package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
)

// FakeIdentity is an in-memory identity provider. Any password signs in;
// set SignInErr to make every sign-in fail.
type FakeIdentity struct {
	mu        sync.Mutex
	accounts  map[string]*identity.Account // by id token
	SignInErr error
	IdpErr    error

	calls atomic.Int32
}

// Calls reports how many provider requests were made.
func (f *FakeIdentity) Calls() int {
	return int(f.calls.Load())
}

func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{accounts: make(map[string]*identity.Account)}
}

func (f *FakeIdentity) issue(email, name string) *identity.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "token-" + email
	f.accounts[token] = &identity.Account{LocalID: "uid-" + email, Email: email, DisplayName: name}
	return &identity.Credentials{LocalID: "uid-" + email, Email: email, DisplayName: name, IDToken: token}
}

// TokenFor returns the id token a sign-in for email produces.
func (f *FakeIdentity) TokenFor(email string) string {
	return "token-" + email
}

func (f *FakeIdentity) SignUp(_ context.Context, email, _ string) (*identity.Credentials, error) {
	f.calls.Add(1)
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	return f.issue(email, ""), nil
}

func (f *FakeIdentity) SignInWithPassword(_ context.Context, email, _ string) (*identity.Credentials, error) {
	f.calls.Add(1)
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	return f.issue(email, ""), nil
}

// SignInWithIdp treats the federated token as the email.
func (f *FakeIdentity) SignInWithIdp(_ context.Context, _, idpToken, _ string) (*identity.Credentials, error) {
	f.calls.Add(1)
	if f.IdpErr != nil {
		return nil, f.IdpErr
	}
	return f.issue(idpToken, ""), nil
}

func (f *FakeIdentity) Lookup(_ context.Context, idToken string) (*identity.Account, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[idToken]
	if !ok {
		return nil, &identity.AuthError{Code: identity.CodeUserTokenExpired}
	}
	cp := *acct
	return &cp, nil
}

func (f *FakeIdentity) Update(_ context.Context, idToken string, update models.ProfileUpdate) error {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[idToken]
	if !ok {
		return &identity.AuthError{Code: identity.CodeUserTokenExpired}
	}
	if update.DisplayName != nil {
		acct.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		acct.PhotoURL = *update.PhotoURL
	}
	return nil
}

// FakeBackend is a fake BookWagon backend that counts the requests it gets.
type FakeBackend struct {
	*httptest.Server
	hits atomic.Int32
}

func (b *FakeBackend) Hits() int {
	return int(b.hits.Load())
}

// RoleBackend starts a fake backend that answers role lookups from roles
// (email -> role) and everything else with 200 and an empty JSON object.
func RoleBackend(t *testing.T, roles map[string]string) *FakeBackend {
	t.Helper()
	b := &FakeBackend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		for email, role := range roles {
			if r.URL.Path == "/users/"+email+"/role" {
				_, _ = fmt.Fprintf(w, `{"role":%q}`, role)
				return
			}
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(b.Close)
	return b
}

// NewTestRegistry builds a session registry over an in-memory store.
func NewTestRegistry(t *testing.T, provider identity.Provider, backendURL string) *session.Registry {
	t.Helper()
	reg := session.NewRegistry(session.Deps{
		Identity:    provider,
		Backend:     storage.NewMemoryBackend(),
		APIBaseURL:  backendURL,
		RoleTimeout: time.Second,
		LoginPath:   "/auth/login",
	}, time.Hour)
	t.Cleanup(reg.Close)
	return reg
}

// SignedInSession opens a fresh browser session and signs email in.
func SignedInSession(t *testing.T, reg *session.Registry, email string) *session.Session {
	t.Helper()
	s, err := reg.Create()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Store.WaitReady(ctx); err != nil {
		t.Fatalf("session never became ready: %v", err)
	}
	if _, err := s.Store.SignIn(ctx, email, "password"); err != nil {
		t.Fatalf("failed to sign in %s: %v", email, err)
	}
	return s
}

// Principal builds a principal for email.
func Principal(email string) *models.Principal {
	return &models.Principal{
		UID:         "uid-" + email,
		Email:       email,
		DisplayName: email,
	}
}
