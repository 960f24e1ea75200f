package roles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/programmerrakibul/book-wagon-client/internal/apiclient"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type State int

const (
	Unresolved State = iota
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unresolved"
	}
}

// Result is the role answer for one principal. Role is empty unless State is
// Resolved.
type Result struct {
	State State
	Role  models.Role
}

// Fetcher is the authenticated backend call the resolver needs.
// *apiclient.Client implements it.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, out any) error
}

const (
	defaultAttempts = 3
	defaultBackoff  = 250 * time.Millisecond
)

var errSuperseded = errors.New("role fetch superseded by principal change")

// Resolver answers "what role does the current principal have" for one
// browser session. Only the active principal's fetches are applied.
type Resolver struct {
	fetcher  Fetcher
	cache    *lru.Cache[string, models.Role]
	group    singleflight.Group
	logger   *zap.Logger
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	notify   func(email string, r Result)

	mu        sync.Mutex
	active    string
	gen       uint64
	activeCtx context.Context
	cancel    context.CancelFunc
	failed    map[string]bool
}

type Option func(*Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithTimeout bounds how long a role may stay unresolved before it is
// reported as Failed.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) { r.backoff = d }
}

// WithNotify registers fn to run whenever the active principal's role
// settles.
func WithNotify(fn func(email string, r Result)) Option {
	return func(r *Resolver) { r.notify = fn }
}

func NewResolver(fetcher Fetcher, cacheSize int, opts ...Option) (*Resolver, error) {
	cache, err := lru.New[string, models.Role](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create role cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Resolver{
		fetcher:   fetcher,
		cache:     cache,
		logger:    zap.NewNop(),
		timeout:   10 * time.Second,
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
		activeCtx: ctx,
		cancel:    cancel,
		failed:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetActive records which principal the session currently holds. Fetches for
// any other email are cancelled and their results dropped. A nil principal
// clears the active email.
func (r *Resolver) SetActive(p *models.Principal) {
	email := ""
	if p != nil {
		email = p.Email
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if email == r.active {
		return
	}

	r.cancel()
	if r.active != "" {
		r.group.Forget(r.active)
	}
	r.activeCtx, r.cancel = context.WithCancel(context.Background())
	r.gen++
	r.active = email
	clear(r.failed)
}

// Active returns the email the resolver currently serves.
func (r *Resolver) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Resolve returns the role state for p without blocking. If the role is not
// known yet, a fetch is started for the active principal. p must not be nil.
func (r *Resolver) Resolve(p *models.Principal) Result {
	res, _ := r.resolve(p)
	return res
}

func (r *Resolver) resolve(p *models.Principal) (Result, <-chan singleflight.Result) {
	if p == nil {
		panic("roles: Resolve called without a principal")
	}

	if role, ok := r.cache.Get(p.Email); ok {
		return Result{State: Resolved, Role: role}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed[p.Email] {
		return Result{State: Failed}, nil
	}
	if p.Email != r.active {
		return Result{State: Unresolved}, nil
	}

	email, gen, ctx := r.active, r.gen, r.activeCtx
	ch := r.group.DoChan(email, func() (any, error) {
		return r.fetch(ctx, gen, email)
	})
	return Result{State: Unresolved}, ch
}

// Wait blocks until p's role settles or ctx is done, and returns the state
// at that point.
func (r *Resolver) Wait(ctx context.Context, p *models.Principal) Result {
	for {
		res, ch := r.resolve(p)
		if res.State != Unresolved || ch == nil {
			return res
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return r.Resolve(p)
		}
	}
}

func (r *Resolver) fetch(ctx context.Context, gen uint64, email string) (models.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		role, err := r.fetchOnce(ctx, email)
		if err == nil {
			if !r.apply(gen, email, Result{State: Resolved, Role: role}) {
				return "", errSuperseded
			}
			return role, nil
		}
		lastErr = err
		r.logger.Debug("role fetch attempt failed",
			zap.String("email", email), zap.Int("attempt", attempt), zap.Error(err))

		if errors.Is(err, apiclient.ErrNoToken) || apiclient.IsAuthFailure(err) || ctx.Err() != nil {
			break
		}
		if attempt < r.attempts {
			select {
			case <-time.After(r.backoff * time.Duration(attempt)):
			case <-ctx.Done():
			}
		}
	}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return "", errSuperseded
	}
	if !r.apply(gen, email, Result{State: Failed}) {
		return "", errSuperseded
	}
	r.logger.Warn("role could not be resolved", zap.String("email", email), zap.Error(lastErr))
	return "", lastErr
}

func (r *Resolver) fetchOnce(ctx context.Context, email string) (models.Role, error) {
	var resp struct {
		Role string `json:"role"`
	}
	if err := r.fetcher.GetJSON(ctx, "/users/"+url.PathEscape(email)+"/role", &resp); err != nil {
		return "", err
	}
	return models.ParseRole(resp.Role)
}

// apply stores res if email is still the active principal of generation gen.
func (r *Resolver) apply(gen uint64, email string, res Result) bool {
	r.mu.Lock()
	if gen != r.gen || email != r.active {
		r.mu.Unlock()
		r.logger.Debug("discarding role result for inactive principal", zap.String("email", email))
		return false
	}
	switch res.State {
	case Resolved:
		r.cache.Add(email, res.Role)
	case Failed:
		r.failed[email] = true
	}
	notify := r.notify
	r.mu.Unlock()

	if notify != nil {
		notify(email, res)
	}
	return true
}

// Close cancels any in-flight fetch.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	r.gen++
	r.active = ""
}
