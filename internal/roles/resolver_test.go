package roles

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/apiclient"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, path string) (string, error)
}

func (f *fakeFetcher) GetJSON(ctx context.Context, path string, out any) error {
	f.calls.Add(1)
	role, err := f.fn(ctx, path)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(`{"role":"`+role+`"}`), out)
}

func roleFor(roles map[string]string) *fakeFetcher {
	return &fakeFetcher{fn: func(_ context.Context, path string) (string, error) {
		return roles[path], nil
	}}
}

func principal(email string) *models.Principal {
	return &models.Principal{UID: "uid-" + email, Email: email}
}

func newResolver(t *testing.T, f Fetcher, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithBackoff(time.Millisecond)}, opts...)
	r, err := NewResolver(f, 8, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestResolver_ResolvesAndCaches(t *testing.T) {
	fetcher := roleFor(map[string]string{"/users/lib@example.com/role": "librarian"})
	r := newResolver(t, fetcher)
	p := principal("lib@example.com")
	r.SetActive(p)

	res := r.Wait(context.Background(), p)
	assert.Equal(t, Result{State: Resolved, Role: models.RoleLibrarian}, res)

	assert.Equal(t, Result{State: Resolved, Role: models.RoleLibrarian}, r.Resolve(p))
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestResolver_FirstResolveIsUnresolved(t *testing.T) {
	release := make(chan struct{})
	fetcher := &fakeFetcher{fn: func(ctx context.Context, _ string) (string, error) {
		<-release
		return "reader", nil
	}}
	r := newResolver(t, fetcher)
	p := principal("reader@example.com")
	r.SetActive(p)

	assert.Equal(t, Result{State: Unresolved}, r.Resolve(p))
	assert.Equal(t, Result{State: Unresolved}, r.Resolve(p))
	close(release)

	assert.Equal(t, models.RoleReader, r.Wait(context.Background(), p).Role)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestResolver_InactivePrincipalIsNotFetched(t *testing.T) {
	fetcher := roleFor(nil)
	r := newResolver(t, fetcher)

	res := r.Resolve(principal("nobody@example.com"))

	assert.Equal(t, Unresolved, res.State)
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestResolver_NilPrincipalPanics(t *testing.T) {
	r := newResolver(t, roleFor(nil))
	assert.Panics(t, func() { r.Resolve(nil) })
}

func TestResolver_LateResultForPreviousPrincipalIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fetcher := &fakeFetcher{fn: func(ctx context.Context, path string) (string, error) {
		if path == "/users/old@example.com/role" {
			once.Do(func() { close(started) })
			<-release
			return "admin", nil
		}
		return "reader", nil
	}}
	var notified []string
	var mu sync.Mutex
	r := newResolver(t, fetcher, WithNotify(func(email string, _ Result) {
		mu.Lock()
		notified = append(notified, email)
		mu.Unlock()
	}))

	old := principal("old@example.com")
	r.SetActive(old)
	r.Resolve(old)
	<-started

	r.SetActive(nil)
	close(release)

	next := principal("new@example.com")
	r.SetActive(next)
	res := r.Wait(context.Background(), next)
	assert.Equal(t, models.RoleReader, res.Role)

	// Give the old fetch time to finish and try to apply.
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"new@example.com"}, notified)
	mu.Unlock()

	r.SetActive(old)
	assert.Equal(t, Unresolved, r.Resolve(old).State, "the admin role must not have been cached")
}

func TestResolver_RetriesThenResolves(t *testing.T) {
	var n atomic.Int32
	fetcher := &fakeFetcher{fn: func(context.Context, string) (string, error) {
		if n.Add(1) < 3 {
			return "", &apiclient.APIError{Status: 503}
		}
		return "admin", nil
	}}
	r := newResolver(t, fetcher)
	p := principal("admin@example.com")
	r.SetActive(p)

	res := r.Wait(context.Background(), p)

	assert.Equal(t, Result{State: Resolved, Role: models.RoleAdmin}, res)
	assert.Equal(t, int32(3), fetcher.calls.Load())
}

func TestResolver_FailsAfterAttempts(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}}
	r := newResolver(t, fetcher)
	p := principal("reader@example.com")
	r.SetActive(p)

	res := r.Wait(context.Background(), p)

	assert.Equal(t, Failed, res.State)
	assert.Empty(t, res.Role)
	assert.Equal(t, int32(3), fetcher.calls.Load())
}

func TestResolver_AuthFailureIsNotRetried(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(context.Context, string) (string, error) {
		return "", &apiclient.APIError{Status: 401}
	}}
	r := newResolver(t, fetcher)
	p := principal("reader@example.com")
	r.SetActive(p)

	assert.Equal(t, Failed, r.Wait(context.Background(), p).State)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestResolver_TimeoutFails(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	r := newResolver(t, fetcher, WithTimeout(20*time.Millisecond))
	p := principal("slow@example.com")
	r.SetActive(p)

	res := r.Wait(context.Background(), p)

	assert.Equal(t, Failed, res.State)
}

func TestResolver_UnknownRoleFails(t *testing.T) {
	fetcher := roleFor(map[string]string{"/users/x@example.com/role": "superuser"})
	r := newResolver(t, fetcher, WithAttempts(1))
	p := principal("x@example.com")
	r.SetActive(p)

	assert.Equal(t, Failed, r.Wait(context.Background(), p).State)
}

func TestResolver_WaitHonoursContext(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	r := newResolver(t, fetcher)
	p := principal("reader@example.com")
	r.SetActive(p)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Equal(t, Unresolved, r.Wait(ctx, p).State)
}

func TestResolver_SwitchingPrincipalFetchesFresh(t *testing.T) {
	fetcher := roleFor(map[string]string{
		"/users/a@example.com/role": "admin",
		"/users/b@example.com/role": "reader",
	})
	r := newResolver(t, fetcher)
	a, b := principal("a@example.com"), principal("b@example.com")

	r.SetActive(a)
	assert.Equal(t, models.RoleAdmin, r.Wait(context.Background(), a).Role)

	r.SetActive(b)
	assert.Equal(t, models.RoleReader, r.Wait(context.Background(), b).Role)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}
