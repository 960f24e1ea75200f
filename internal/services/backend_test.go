package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/programmerrakibul/book-wagon-client/internal/apiclient"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// setupBackend starts a fake backend answering every request with status
// and body, and returns a signed-in client for it.
func setupBackend(t *testing.T, status int, body string) (*apiclient.Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		requests = append(requests, rec)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	tokens := storage.Scope(storage.NewMemoryBackend(), "test")
	require.NoError(t, tokens.Set(context.Background(), storage.TokenKey, "T1"))

	return apiclient.New(server.URL, tokens), &requests
}
