package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/programmerrakibul/book-wagon-client/internal/config"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
)

const GoogleProviderID = "google.com"

// Credentials is the token material returned by a successful sign-in.
type Credentials struct {
	LocalID       string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	IDToken       string
	RefreshToken  string
	ExpiresIn     time.Duration
}

// Account is the provider's full user record.
type Account struct {
	LocalID       string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	CreatedAt     time.Time
	LastLoginAt   time.Time
}

func (a *Account) Principal() *models.Principal {
	return &models.Principal{
		UID:           a.LocalID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		PhotoURL:      a.PhotoURL,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		LastSignInAt:  a.LastLoginAt,
	}
}

// Client talks to the identity provider's account REST API. It is stateless
// and shared by every browser session.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg config.IdentityConfig, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
}

func (r *tokenResponse) credentials() *Credentials {
	secs, _ := strconv.Atoi(r.ExpiresIn)
	return &Credentials{
		LocalID:       r.LocalID,
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		PhotoURL:      r.PhotoURL,
		EmailVerified: r.EmailVerified,
		IDToken:       r.IDToken,
		RefreshToken:  r.RefreshToken,
		ExpiresIn:     time.Duration(secs) * time.Second,
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	var resp tokenResponse
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.credentials(), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error) {
	var resp tokenResponse
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.credentials(), nil
}

// SignInWithIdp exchanges a federated provider's ID token for provider
// credentials. requestURI must be the redirect URI used for consent.
func (c *Client) SignInWithIdp(ctx context.Context, providerID, idpToken, requestURI string) (*Credentials, error) {
	postBody := url.Values{}
	postBody.Set("id_token", idpToken)
	postBody.Set("providerId", providerID)

	var resp tokenResponse
	err := c.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.credentials(), nil
}

func (c *Client) Lookup(ctx context.Context, idToken string) (*Account, error) {
	var resp struct {
		Users []struct {
			LocalID       string `json:"localId"`
			Email         string `json:"email"`
			DisplayName   string `json:"displayName"`
			PhotoURL      string `json:"photoUrl"`
			EmailVerified bool   `json:"emailVerified"`
			CreatedAt     string `json:"createdAt"`
			LastLoginAt   string `json:"lastLoginAt"`
		} `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, &AuthError{Code: CodeUserNotFound, Message: "no account for token"}
	}

	u := resp.Users[0]
	return &Account{
		LocalID:       u.LocalID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
		CreatedAt:     parseMillis(u.CreatedAt),
		LastLoginAt:   parseMillis(u.LastLoginAt),
	}, nil
}

func (c *Client) Update(ctx context.Context, idToken string, update models.ProfileUpdate) error {
	body := map[string]any{
		"idToken":           idToken,
		"returnSecureToken": false,
	}
	if update.DisplayName != nil {
		body["displayName"] = *update.DisplayName
	}
	if update.PhotoURL != nil {
		body["photoUrl"] = *update.PhotoURL
	}
	return c.post(ctx, "accounts:update", body, nil)
}

func (c *Client) post(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", c.baseURL, method, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Code: CodeNetworkFailed, Message: method + " request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error.Message == "" {
			return &AuthError{Code: CodeInternal, Message: fmt.Sprintf("%s returned status %d", method, resp.StatusCode)}
		}
		return &AuthError{Code: codeFromProvider(apiErr.Error.Message), Message: apiErr.Error.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &AuthError{Code: CodeInternal, Message: "failed to decode " + method + " response", Err: err}
	}
	return nil
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
