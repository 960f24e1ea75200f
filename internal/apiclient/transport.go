package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"golang.org/x/oauth2"
)

// storageTokenSource reads the bearer token from client storage on every
// call, so a token written between two requests is used by the second.
// onMissing runs whenever no token is stored.
type storageTokenSource struct {
	tokens    storage.Storage
	timeout   time.Duration
	onMissing func()
}

func (s *storageTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	value, err := s.tokens.Get(ctx, storage.TokenKey)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && value == "") {
		if s.onMissing != nil {
			s.onMissing()
		}
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: value, TokenType: "Bearer"}, nil
}

// authFailureTransport sits under oauth2.Transport and reports 401/403
// answers along with the token that was sent. The response itself is passed
// through so the caller still sees the failure.
type authFailureTransport struct {
	base      http.RoundTripper
	onFailure func(token string)
}

func (t *authFailureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if isAuthFailureStatus(resp.StatusCode) && t.onFailure != nil {
		token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		t.onFailure(token)
	}
	return resp, nil
}
