package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]*Account // by id token
	signInErr error
	lookupErr error
	updates   []models.ProfileUpdate

	// lookupGate, when set, blocks Lookup until closed.
	lookupGate chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: make(map[string]*Account)}
}

func (f *fakeProvider) addAccount(token, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[token] = &Account{LocalID: "uid-" + email, Email: email, DisplayName: email}
}

func (f *fakeProvider) credsFor(email string) (*Credentials, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	token := "token-" + email
	f.addAccount(token, email)
	return &Credentials{LocalID: "uid-" + email, Email: email, IDToken: token}, nil
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string) (*Credentials, error) {
	return f.credsFor(email)
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, _ string) (*Credentials, error) {
	return f.credsFor(email)
}

func (f *fakeProvider) SignInWithIdp(_ context.Context, _, idpToken, _ string) (*Credentials, error) {
	return f.credsFor(idpToken + "@gmail.com")
}

func (f *fakeProvider) Lookup(_ context.Context, idToken string) (*Account, error) {
	if f.lookupGate != nil {
		<-f.lookupGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	acct, ok := f.accounts[idToken]
	if !ok {
		return nil, &AuthError{Code: CodeUserTokenExpired}
	}
	cp := *acct
	return &cp, nil
}

func (f *fakeProvider) Update(_ context.Context, _ string, update models.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return nil
}

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) listen(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

func setupAdapter(t *testing.T) (*Adapter, *fakeProvider, storage.Storage) {
	t.Helper()
	provider := newFakeProvider()
	tokens := storage.Scope(storage.NewMemoryBackend(), "session")
	return NewAdapter(provider, tokens), provider, tokens
}

func TestAdapter_SignInPersistsTokenAndNotifies(t *testing.T) {
	adapter, _, tokens := setupAdapter(t)
	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)

	p, err := adapter.SignIn(context.Background(), "reader@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", p.Email)

	token, err := tokens.Get(context.Background(), storage.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "token-reader@example.com", token)

	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Equal(t, uint64(1), notes[0].Seq)
	assert.Equal(t, "reader@example.com", notes[0].Principal.Email)
}

func TestAdapter_SignInErrorLeavesStateUntouched(t *testing.T) {
	adapter, provider, tokens := setupAdapter(t)
	provider.signInErr = &AuthError{Code: CodeInvalidCredential}
	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)

	_, err := adapter.SignIn(context.Background(), "reader@example.com", "wrong")

	assert.Equal(t, CodeInvalidCredential, Code(err))
	assert.Empty(t, rec.all())
	_, err = tokens.Get(context.Background(), storage.TokenKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdapter_SignOutClearsToken(t *testing.T) {
	adapter, _, tokens := setupAdapter(t)
	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	_, err := adapter.SignIn(ctx, "reader@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, adapter.SignOut(ctx))

	_, err = tokens.Get(ctx, storage.TokenKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Nil(t, adapter.Current())

	notes := rec.all()
	require.Len(t, notes, 2)
	assert.Nil(t, notes[1].Principal)
	assert.Greater(t, notes[1].Seq, notes[0].Seq)
}

func TestAdapter_LookupFailureFallsBackToCredentials(t *testing.T) {
	adapter, provider, _ := setupAdapter(t)
	provider.lookupErr = errors.New("lookup down")

	p, err := adapter.SignIn(context.Background(), "reader@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "uid-reader@example.com", p.UID)
}

func TestAdapter_SignInWithGoogle(t *testing.T) {
	adapter, _, _ := setupAdapter(t)

	p, err := adapter.SignInWithGoogle(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@gmail.com", p.Email)

	_, err = adapter.SignInWithGoogle(context.Background(), "")
	assert.Equal(t, CodePopupClosed, Code(err))
}

func TestAdapter_UpdateProfile(t *testing.T) {
	adapter, provider, _ := setupAdapter(t)
	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	_, err := adapter.UpdateProfile(ctx, models.ProfileUpdate{})
	assert.Equal(t, CodeNoCurrentUser, Code(err))

	_, err = adapter.SignIn(ctx, "reader@example.com", "secret")
	require.NoError(t, err)

	photo := "https://img.example.com/me.png"
	p, err := adapter.UpdateProfile(ctx, models.ProfileUpdate{PhotoURL: &photo})

	require.NoError(t, err)
	assert.Equal(t, photo, p.PhotoURL)
	assert.Equal(t, "reader@example.com", p.DisplayName)
	assert.Len(t, provider.updates, 1)

	notes := rec.all()
	require.Len(t, notes, 2)
	assert.Equal(t, photo, notes[1].Principal.PhotoURL)
}

func TestAdapter_RestoreFromStoredToken(t *testing.T) {
	adapter, provider, tokens := setupAdapter(t)
	ctx := context.Background()
	provider.addAccount("stored", "back@example.com")
	require.NoError(t, tokens.Set(ctx, storage.TokenKey, "stored"))

	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)
	adapter.Restore(ctx)

	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "back@example.com", notes[0].Principal.Email)
}

func TestAdapter_RestoreClearsRejectedToken(t *testing.T) {
	adapter, _, tokens := setupAdapter(t)
	ctx := context.Background()
	require.NoError(t, tokens.Set(ctx, storage.TokenKey, "expired"))

	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)
	adapter.Restore(ctx)

	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].Principal)

	_, err := tokens.Get(ctx, storage.TokenKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdapter_SlowRestoreDoesNotOverwriteLaterSignIn(t *testing.T) {
	adapter, provider, tokens := setupAdapter(t)
	ctx := context.Background()
	provider.addAccount("stored", "old@example.com")
	require.NoError(t, tokens.Set(ctx, storage.TokenKey, "stored"))

	gate := make(chan struct{})
	provider.lookupGate = gate

	rec := &recorder{}
	adapter.OnAuthStateChange(rec.listen)

	done := make(chan struct{})
	go func() {
		adapter.Restore(ctx)
		close(done)
	}()

	// Let the restore block on lookup, then sign out (no lookup needed).
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, adapter.SignOut(ctx))
	close(gate)
	<-done

	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].Principal)
	assert.Nil(t, adapter.Current())
}

func TestAdapter_LateListenerGetsCurrentState(t *testing.T) {
	adapter, _, _ := setupAdapter(t)
	rec := &recorder{}

	adapter.Restore(context.Background())
	adapter.OnAuthStateChange(rec.listen)

	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].Principal)
	assert.Equal(t, uint64(1), notes[0].Seq)
}

func TestAdapter_Unsubscribe(t *testing.T) {
	adapter, _, _ := setupAdapter(t)
	rec := &recorder{}

	unsubscribe := adapter.OnAuthStateChange(rec.listen)
	assert.Equal(t, 1, adapter.ListenerCount())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, adapter.ListenerCount())

	_, err := adapter.SignIn(context.Background(), "reader@example.com", "secret")
	require.NoError(t, err)
	assert.Empty(t, rec.all())
}
