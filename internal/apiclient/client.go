package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const maxErrorBody = 4 << 10

// Client talks to the BookWagon backend. It is built once per browser
// session; the bearer token is looked up at send time.
type Client struct {
	baseURL string
	authed  *http.Client
	public  *http.Client
	logger  *zap.Logger

	timeout   time.Duration
	base      http.RoundTripper
	onFailure func(token string)
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithAuthFailureHandler sets the function called once per 401/403 answer
// with the token the failed request carried. It is also called with an empty
// token when an authenticated request finds no token in storage.
func WithAuthFailureHandler(fn func(token string)) Option {
	return func(c *Client) { c.onFailure = fn }
}

func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func New(baseURL string, tokens storage.Storage, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		timeout: 15 * time.Second,
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.authed = &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: &storageTokenSource{tokens: tokens, timeout: c.timeout, onMissing: c.missingToken},
			Base:   &authFailureTransport{base: c.base, onFailure: c.onFailure},
		},
	}
	c.public = &http.Client{Timeout: c.timeout, Transport: c.base}
	return c
}

func (c *Client) missingToken() {
	if c.onFailure != nil {
		c.onFailure("")
	}
}

// Do sends an authenticated request. body and out are JSON encoded and
// decoded when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, c.authed, method, path, body, out)
}

// DoPublic sends a request without a bearer token.
func (c *Client) DoPublic(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, c.public, method, path, body, out)
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) PatchJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) DeleteJSON(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp)}
		c.logger.Debug("backend rejected request",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}
