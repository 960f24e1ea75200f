package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"go.uber.org/zap"
)

// Provider is the account API the adapter drives. *Client implements it.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error)
	SignInWithIdp(ctx context.Context, providerID, idpToken, requestURI string) (*Credentials, error)
	Lookup(ctx context.Context, idToken string) (*Account, error)
	Update(ctx context.Context, idToken string, update models.ProfileUpdate) error
}

// Notification is one auth-state change. Seq increases by one per emission,
// so receivers can drop anything older than what they already applied.
type Notification struct {
	Seq       uint64
	Principal *models.Principal
	At        time.Time
}

type Listener func(Notification)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Adapter is the auth instance of one browser session. It persists the bearer
// token and tells listeners who is signed in.
type Adapter struct {
	provider   Provider
	tokens     storage.Storage
	requestURI string
	logger     *zap.Logger
	now        func() time.Time

	// emitMu serializes deliveries so every listener sees notifications in
	// Seq order. Listeners must not call back into the adapter.
	emitMu sync.Mutex

	mu          sync.Mutex
	seq         uint64
	initialized bool
	current     *models.Principal
	listeners   []listenerEntry
	nextID      uint64
}

type AdapterOption func(*Adapter)

func WithLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// WithRequestURI sets the redirect URI reported to the provider on federated
// sign-in.
func WithRequestURI(uri string) AdapterOption {
	return func(a *Adapter) { a.requestURI = uri }
}

func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

func NewAdapter(provider Provider, tokens storage.Storage, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		provider:   provider,
		tokens:     tokens,
		requestURI: "http://localhost",
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnAuthStateChange registers l. If the adapter has already resolved its
// state, l receives the current principal right away.
func (a *Adapter) OnAuthStateChange(l Listener) (unsubscribe func()) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners = append(a.listeners, listenerEntry{id: id, fn: l})
	initialized := a.initialized
	n := Notification{Seq: a.seq, Principal: a.current.Clone(), At: a.now()}
	a.mu.Unlock()

	if initialized {
		l(n)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			for i, e := range a.listeners {
				if e.id == id {
					a.listeners = append(a.listeners[:i], a.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// ListenerCount reports how many listeners are registered.
func (a *Adapter) ListenerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

func (a *Adapter) Current() *models.Principal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.Clone()
}

// Restore resolves the initial auth state from a persisted token. If a
// sign-in or sign-out happens while the lookup is in flight, the lookup
// result is dropped.
func (a *Adapter) Restore(ctx context.Context) {
	a.mu.Lock()
	startSeq := a.seq
	a.mu.Unlock()

	var principal *models.Principal
	token, err := a.tokens.Get(ctx, storage.TokenKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		a.logger.Warn("failed to read stored token", zap.Error(err))
	default:
		account, err := a.provider.Lookup(ctx, token)
		if err != nil {
			a.logger.Info("stored token rejected, clearing", zap.String("code", Code(err)))
			if derr := a.tokens.Delete(ctx, storage.TokenKey); derr != nil {
				a.logger.Warn("failed to clear stored token", zap.Error(derr))
			}
		} else {
			principal = account.Principal()
		}
	}

	if !a.emitIfUnchanged(startSeq, principal) {
		a.logger.Debug("restore superseded by a newer auth change")
	}
}

func (a *Adapter) CreateAccount(ctx context.Context, email, password string) (*models.Principal, error) {
	creds, err := a.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, creds)
}

func (a *Adapter) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	creds, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, creds)
}

// SignInWithGoogle completes a Google sign-in with the ID token obtained from
// the consent flow.
func (a *Adapter) SignInWithGoogle(ctx context.Context, googleIDToken string) (*models.Principal, error) {
	if googleIDToken == "" {
		return nil, &AuthError{Code: CodePopupClosed, Message: "no google credential"}
	}
	creds, err := a.provider.SignInWithIdp(ctx, GoogleProviderID, googleIDToken, a.requestURI)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, creds)
}

func (a *Adapter) SignOut(ctx context.Context) error {
	err := a.tokens.Delete(ctx, storage.TokenKey)
	a.emit(nil)
	if err != nil {
		return &AuthError{Code: CodeInternal, Message: "failed to clear token", Err: err}
	}
	return nil
}

func (a *Adapter) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Principal, error) {
	current := a.Current()
	if current == nil {
		return nil, &AuthError{Code: CodeNoCurrentUser}
	}

	token, err := a.tokens.Get(ctx, storage.TokenKey)
	if err != nil {
		return nil, &AuthError{Code: CodeUserTokenExpired, Message: "no stored token", Err: err}
	}

	if err := a.provider.Update(ctx, token, update); err != nil {
		return nil, err
	}

	updated := current.Clone()
	if update.DisplayName != nil {
		updated.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		updated.PhotoURL = *update.PhotoURL
	}
	a.emit(updated)
	return updated.Clone(), nil
}

// establish persists the token and announces the signed-in principal.
func (a *Adapter) establish(ctx context.Context, creds *Credentials) (*models.Principal, error) {
	if err := a.tokens.Set(ctx, storage.TokenKey, creds.IDToken); err != nil {
		return nil, &AuthError{Code: CodeInternal, Message: "failed to persist token", Err: err}
	}

	var principal *models.Principal
	account, err := a.provider.Lookup(ctx, creds.IDToken)
	if err != nil {
		a.logger.Warn("account lookup failed after sign-in", zap.String("email", creds.Email), zap.Error(err))
		principal = &models.Principal{
			UID:           creds.LocalID,
			Email:         creds.Email,
			DisplayName:   creds.DisplayName,
			PhotoURL:      creds.PhotoURL,
			EmailVerified: creds.EmailVerified,
			LastSignInAt:  a.now().UTC(),
		}
	} else {
		principal = account.Principal()
	}

	a.emit(principal)
	return principal.Clone(), nil
}

func (a *Adapter) emit(p *models.Principal) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	a.deliverLocked(p)
}

func (a *Adapter) emitIfUnchanged(expectedSeq uint64, p *models.Principal) bool {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	stale := a.seq != expectedSeq
	a.mu.Unlock()
	if stale {
		return false
	}
	a.deliverLocked(p)
	return true
}

// deliverLocked must be called with emitMu held.
func (a *Adapter) deliverLocked(p *models.Principal) {
	a.mu.Lock()
	a.seq++
	a.current = p.Clone()
	a.initialized = true
	n := Notification{Seq: a.seq, Principal: p.Clone(), At: a.now()}
	listeners := make([]listenerEntry, len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	for _, e := range listeners {
		e.fn(Notification{Seq: n.Seq, Principal: n.Principal.Clone(), At: n.At})
	}
}
