package authstate

import (
	"context"
	"errors"
	"sync"

	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"go.uber.org/zap"
)

var (
	ErrAlreadySubscribed = errors.New("store is already subscribed")
	ErrClosed            = errors.New("store is closed")
)

// Auth is the part of the identity adapter the store depends on.
type Auth interface {
	OnAuthStateChange(l identity.Listener) (unsubscribe func())
	CreateAccount(ctx context.Context, email, password string) (*models.Principal, error)
	SignIn(ctx context.Context, email, password string) (*models.Principal, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Principal, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Principal, error)
}

// State is what consumers observe. Loading false with a nil Principal means
// not authenticated.
type State struct {
	Principal *models.Principal
	Loading   bool
	Seq       uint64
}

func (s State) Authenticated() bool {
	return !s.Loading && s.Principal != nil
}

type watcher struct {
	id uint64
	fn func(State)
}

// Store holds who is signed in for one browser session.
type Store struct {
	auth   Auth
	logger *zap.Logger

	// notifyMu keeps watcher callbacks in receipt order.
	notifyMu sync.Mutex

	mu          sync.Mutex
	state       State
	lastSeq     uint64
	ready       chan struct{}
	unsubscribe func()
	closed      bool
	watchers    []watcher
	nextID      uint64
}

func NewStore(auth Auth, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		auth:   auth,
		logger: logger,
		state:  State{Loading: true},
		ready:  make(chan struct{}),
	}
}

// Subscribe registers the store's single listener with the adapter.
func (s *Store) Subscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return ErrAlreadySubscribed
	}
	// Reserve the slot before registering: the adapter may deliver the
	// current state synchronously from inside OnAuthStateChange.
	s.unsubscribe = func() {}
	s.mu.Unlock()

	unsubscribe := s.auth.OnAuthStateChange(s.apply)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		unsubscribe()
		return ErrClosed
	}
	s.unsubscribe = unsubscribe
	return nil
}

// Close unregisters the adapter listener and drops all watchers.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.watchers = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) apply(n identity.Notification) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if n.Seq <= s.lastSeq {
		s.mu.Unlock()
		s.logger.Debug("ignoring stale auth notification",
			zap.Uint64("seq", n.Seq), zap.Uint64("last_seq", s.lastSeq))
		return
	}

	s.state.Loading = true
	s.state.Principal = n.Principal.Clone()
	s.state.Loading = false
	s.state.Seq = n.Seq
	s.lastSeq = n.Seq

	select {
	case <-s.ready:
	default:
		close(s.ready)
	}

	snapshot := s.snapshotLocked()
	watchers := make([]watcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	for _, w := range watchers {
		w.fn(snapshot)
	}
}

func (s *Store) snapshotLocked() State {
	return State{Principal: s.state.Principal.Clone(), Loading: s.state.Loading, Seq: s.state.Seq}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch registers fn for every applied state change. fn runs on the
// adapter's delivery goroutine and must not block for long.
func (s *Store) Watch(fn func(State)) (unwatch func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, w := range s.watchers {
				if w.id == id {
					s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
					break
				}
			}
		})
	}
}

// WaitReady blocks until the first notification has been applied.
func (s *Store) WaitReady(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

func (s *Store) CreateAccount(ctx context.Context, email, password string) (*models.Principal, error) {
	return s.auth.CreateAccount(ctx, email, password)
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	return s.auth.SignIn(ctx, email, password)
}

func (s *Store) SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Principal, error) {
	return s.auth.SignInWithGoogle(ctx, googleIDToken)
}

func (s *Store) SignOut(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

func (s *Store) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Principal, error) {
	return s.auth.UpdateProfile(ctx, update)
}
