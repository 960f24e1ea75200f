package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/programmerrakibul/book-wagon-client/internal/apiclient"
	"github.com/programmerrakibul/book-wagon-client/internal/authstate"
	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"go.uber.org/zap"
)

// Events receives state changes of every browser session. *sse.Hub
// implements it.
type Events interface {
	SessionChanged(sessionID uuid.UUID, state authstate.State)
	RoleSettled(sessionID uuid.UUID, email string, res roles.Result)
}

// Deps is what every browser session is built from.
type Deps struct {
	Identity identity.Provider
	Backend  storage.Backend
	Events   Events
	Logger   *zap.Logger

	APIBaseURL     string
	RequestTimeout time.Duration
	RoleTimeout    time.Duration
	RoleCacheSize  int
	LoginPath      string
	RequestURI     string

	// APITransport overrides the HTTP transport of the backend client.
	APITransport http.RoundTripper
}

// Session is one visitor's client state: auth adapter, session context,
// backend client, role resolver and pending navigation.
type Session struct {
	ID       uuid.UUID
	Adapter  *identity.Adapter
	Store    *authstate.Store
	API      *apiclient.Client
	Roles    *roles.Resolver
	Navigate *Navigator

	tokens    storage.Storage
	loginPath string
	logger    *zap.Logger
	unwatch   func()

	// invalidateMu makes concurrent auth failures collapse into one
	// sign-out.
	invalidateMu sync.Mutex
	lastSeen     atomic.Int64
	closeOnce    sync.Once
}

func Namespace(id uuid.UUID) string {
	return "session:" + id.String()
}

// New builds a browser session and starts restoring its auth state from
// storage. The restore runs in the background; callers wait on
// Store.WaitReady.
func New(id uuid.UUID, deps Deps) (*Session, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", id.String()))

	s := &Session{
		ID:        id,
		Navigate:  &Navigator{},
		tokens:    storage.Scope(deps.Backend, Namespace(id)),
		loginPath: deps.LoginPath,
		logger:    logger,
	}
	if s.loginPath == "" {
		s.loginPath = "/auth/login"
	}
	s.touch(time.Now())

	adapterOpts := []identity.AdapterOption{identity.WithLogger(logger)}
	if deps.RequestURI != "" {
		adapterOpts = append(adapterOpts, identity.WithRequestURI(deps.RequestURI))
	}
	s.Adapter = identity.NewAdapter(deps.Identity, s.tokens, adapterOpts...)
	s.Store = authstate.NewStore(s.Adapter, logger)

	apiOpts := []apiclient.Option{
		apiclient.WithLogger(logger),
		apiclient.WithAuthFailureHandler(s.invalidate),
	}
	if deps.RequestTimeout > 0 {
		apiOpts = append(apiOpts, apiclient.WithTimeout(deps.RequestTimeout))
	}
	if deps.APITransport != nil {
		apiOpts = append(apiOpts, apiclient.WithBaseTransport(deps.APITransport))
	}
	s.API = apiclient.New(deps.APIBaseURL, s.tokens, apiOpts...)

	roleOpts := []roles.Option{roles.WithLogger(logger)}
	if deps.RoleTimeout > 0 {
		roleOpts = append(roleOpts, roles.WithTimeout(deps.RoleTimeout))
	}
	if deps.Events != nil {
		roleOpts = append(roleOpts, roles.WithNotify(func(email string, res roles.Result) {
			deps.Events.RoleSettled(id, email, res)
		}))
	}
	cacheSize := deps.RoleCacheSize
	if cacheSize <= 0 {
		cacheSize = 16
	}
	resolver, err := roles.NewResolver(s.API, cacheSize, roleOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create role resolver: %w", err)
	}
	s.Roles = resolver

	s.unwatch = s.Store.Watch(func(state authstate.State) {
		s.Roles.SetActive(state.Principal)
		if state.Principal != nil {
			s.Roles.Resolve(state.Principal)
		}
		if deps.Events != nil {
			deps.Events.SessionChanged(id, state)
		}
	})
	if err := s.Store.Subscribe(); err != nil {
		s.unwatch()
		return nil, fmt.Errorf("failed to subscribe session store: %w", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout(deps.RequestTimeout))
		defer cancel()
		s.Adapter.Restore(ctx)
	}()

	return s, nil
}

func restoreTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout > 0 {
		return requestTimeout
	}
	return 15 * time.Second
}

// invalidate handles a 401/403 from the backend, or an authenticated request
// that found no stored token (token is empty then). It signs out and queues a
// navigation to the login page, but only while a principal is signed in and
// token is still the stored one. Later failures carrying the same token are
// no-ops.
func (s *Session) invalidate(token string) {
	s.invalidateMu.Lock()
	defer s.invalidateMu.Unlock()

	if s.Store.Snapshot().Principal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := s.tokens.Get(ctx, storage.TokenKey)
	if token == "" {
		if err == nil && current != "" {
			return
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return
		}
		s.logger.Info("session token missing from storage, signing out")
	} else {
		if err != nil || current != token {
			return
		}
		s.logger.Info("backend rejected session token, signing out")
	}

	if err := s.Store.SignOut(ctx); err != nil {
		s.logger.Warn("sign-out after auth failure failed", zap.Error(err))
	}
	s.Navigate.To(s.loginPath)
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.touch(time.Now())
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Close unregisters the auth listener and cancels in-flight role fetches.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.unwatch()
		s.Store.Close()
		s.Roles.Close()
	})
}

// Navigator holds the navigation the session owes the browser. The next
// page request consumes it.
type Navigator struct {
	mu      sync.Mutex
	pending string
	count   int
}

func (n *Navigator) To(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = path
	n.count++
}

// Take returns and clears the pending navigation.
func (n *Navigator) Take() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == "" {
		return "", false
	}
	path := n.pending
	n.pending = ""
	return path, true
}

// Peek returns the pending navigation without clearing it.
func (n *Navigator) Peek() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

// Count reports how many navigations were ever queued.
func (n *Navigator) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}
