package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRegistryClosed = errors.New("session registry is closed")

// Registry owns the browser sessions of the process, keyed by session ID.
type Registry struct {
	deps   Deps
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool
}

func NewRegistry(deps Deps, ttl time.Duration) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		deps:     deps,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a new browser session with a fresh ID.
func (r *Registry) Create() (*Session, error) {
	return r.Open(uuid.New())
}

// Open returns the session for id, building it if this process has not seen
// it yet. A rebuilt session restores its principal from stored tokens.
func (r *Registry) Open(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if s, ok := r.sessions[id]; ok {
		s.touch(r.now())
		return s, nil
	}

	s, err := New(id, r.deps)
	if err != nil {
		return nil, err
	}
	s.touch(r.now())
	r.sessions[id] = s
	r.logger.Debug("browser session opened", zap.String("session_id", id.String()))
	return s, nil
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle longer than the TTL and deletes their stored
// tokens. It returns how many were removed.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
		if err := r.deps.Backend.DeleteNamespace(ctx, Namespace(s.ID)); err != nil {
			r.logger.Warn("failed to delete expired session storage",
				zap.String("session_id", s.ID.String()), zap.Error(err))
		}
	}
	if len(expired) > 0 {
		r.logger.Info("expired idle browser sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps on every tick of interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Close tears down every session. Stored tokens are kept so sessions can be
// restored by the next process.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.closed = true
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
