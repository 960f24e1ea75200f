package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/config"
	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/oauth"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/internal/views"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
	"go.uber.org/zap"
)

const stateTTL = 10 * time.Minute

type AuthHandler struct {
	loginPath   string
	providers   map[string]oauth.Provider
	userService UserServiceInterface
	logger      *zap.Logger
	states      sync.Map
}

type stateData struct {
	sessionID uuid.UUID
	next      string
	expiresAt time.Time
}

func NewAuthHandler(cfg *config.Config, userService UserServiceInterface, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &AuthHandler{
		loginPath:   cfg.LoginPath,
		providers:   make(map[string]oauth.Provider),
		userService: userService,
		logger:      logger,
	}

	if cfg.Google.ClientID != "" {
		h.AddProvider(oauth.NewGoogleProvider(cfg.Google))
	}

	return h
}

// AddProvider enables a federated consent provider under its name.
func (h *AuthHandler) AddProvider(p oauth.Provider) {
	h.providers[p.Name()] = p
}

// RunCleanup drops expired consent states every interval until ctx is done.
func (h *AuthHandler) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.sweepStates(now)
		}
	}
}

func (h *AuthHandler) sweepStates(now time.Time) {
	h.states.Range(func(key, value interface{}) bool {
		if sd, ok := value.(stateData); ok && now.After(sd.expiresAt) {
			h.states.Delete(key)
		}
		return true
	})
}

// LoginPage renders the sign-in form. A signed-in visitor goes straight on.
func (h *AuthHandler) LoginPage(c *drift.Context) {
	next := safeNext(c.QueryParam("next"))

	if s := middleware.GetSession(c); s != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		state, _ := s.Store.WaitReady(ctx)
		cancel()
		if state.Authenticated() {
			redirect(c, next)
			return
		}
	}

	_, google := h.providers["google"]
	_ = c.HTML(http.StatusOK, views.Login(next, google, c.QueryParam("error")))
}

func (h *AuthHandler) Login(c *drift.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	p, err := s.Store.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(c, err)
		return
	}

	h.signedIn(c, s, p, req.Next, false)
}

func (h *AuthHandler) Register(c *drift.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	var req dto.RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.BadRequest("name is required")
		return
	}

	ctx := c.Request.Context()

	p, err := s.Store.CreateAccount(ctx, req.Email, req.Password)
	if err != nil {
		h.authError(c, err)
		return
	}

	update := models.ProfileUpdate{DisplayName: &req.Name}
	if req.PhotoURL != "" {
		update.PhotoURL = &req.PhotoURL
	}
	if updated, err := s.Store.UpdateProfile(ctx, update); err != nil {
		h.logger.Warn("failed to set profile after sign-up", zap.String("email", req.Email), zap.Error(err))
	} else {
		p = updated
	}

	h.signedIn(c, s, p, req.Next, true)
}

func (h *AuthHandler) GetConsentURL(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		c.BadRequest("unsupported provider: " + provider)
		return
	}

	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	state, err := oauth.GenerateState()
	if err != nil {
		c.InternalServerError("failed to generate state")
		return
	}

	h.states.Store(state, stateData{
		sessionID: s.ID,
		next:      safeNext(c.QueryParam("next")),
		expiresAt: time.Now().Add(stateTTL),
	})

	_ = c.JSON(http.StatusOK, dto.ConsentURLResponse{
		URL: p.GetConsentURL(state),
	})
}

func (h *AuthHandler) Callback(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		h.redirectWithError(c, "unsupported provider")
		return
	}

	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	state := c.QueryParam("state")
	if state == "" {
		h.redirectWithError(c, "missing state parameter")
		return
	}

	sd, ok := h.states.LoadAndDelete(state)
	if !ok {
		h.redirectWithError(c, "invalid or expired state")
		return
	}

	sdTyped, ok := sd.(stateData)
	if !ok || time.Now().After(sdTyped.expiresAt) {
		h.redirectWithError(c, "state expired")
		return
	}
	if sdTyped.sessionID != s.ID {
		h.redirectWithError(c, "sign-in started in another browser")
		return
	}

	if c.QueryParam("error") != "" {
		h.redirectWithError(c, identity.UserMessage(&identity.AuthError{Code: identity.CodePopupClosed}))
		return
	}

	code := c.QueryParam("code")
	if code == "" {
		h.redirectWithError(c, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	consent, err := p.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.Warn("consent exchange failed", zap.String("provider", provider), zap.Error(err))
		h.redirectWithError(c, "failed to complete sign-in")
		return
	}

	principal, err := s.Store.SignInWithGoogle(ctx, consent.IDToken)
	if err != nil {
		h.redirectWithError(c, identity.UserMessage(err))
		return
	}

	s.Navigate.Take()
	h.sync(ctx, s, principal)
	redirect(c, sdTyped.next)
}

func (h *AuthHandler) Logout(c *drift.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	if err := s.Store.SignOut(c.Request.Context()); err != nil {
		h.logger.Warn("sign-out did not clear stored token", zap.String("session_id", s.ID.String()), zap.Error(err))
	}

	_ = c.JSON(http.StatusOK, map[string]string{
		"message":  "logged out",
		"redirect": h.loginPath,
	})
}

func (h *AuthHandler) GetMe(c *drift.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		c.Unauthorized("not authenticated")
		return
	}
	_ = c.JSON(http.StatusOK, userResponse(p))
}

func (h *AuthHandler) UpdateMe(c *drift.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.DisplayName == nil && req.PhotoURL == nil {
		c.BadRequest("nothing to update")
		return
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		c.BadRequest("display_name cannot be empty")
		return
	}

	p, err := s.Store.UpdateProfile(c.Request.Context(), models.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		h.authError(c, err)
		return
	}

	h.sync(c.Request.Context(), s, p)
	_ = c.JSON(http.StatusOK, userResponse(p))
}

// signedIn finishes a successful sign-in. Any navigation queued by an
// earlier rejected token is stale now.
func (h *AuthHandler) signedIn(c *drift.Context, s *session.Session, p *models.Principal, next string, created bool) {
	s.Navigate.Take()
	if created {
		h.sync(c.Request.Context(), s, p)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	_ = c.JSON(status, dto.AuthResponse{
		User:     userResponse(p),
		Redirect: safeNext(next),
	})
}

// sync records the principal with the backend. Failure does not undo the
// sign-in.
func (h *AuthHandler) sync(ctx context.Context, s *session.Session, p *models.Principal) {
	if err := h.userService.Sync(ctx, s.API, p); err != nil {
		h.logger.Warn("failed to sync user with backend", zap.String("email", p.Email), zap.Error(err))
	}
}

func (h *AuthHandler) authError(c *drift.Context, err error) {
	status := http.StatusUnauthorized
	switch identity.Code(err) {
	case identity.CodeEmailAlreadyInUse:
		status = http.StatusConflict
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		status = http.StatusBadRequest
	case identity.CodeTooManyRequests:
		status = http.StatusTooManyRequests
	case identity.CodeNetworkFailed, identity.CodeInternal:
		status = http.StatusBadGateway
	}

	_ = c.JSON(status, dto.AuthErrorResponse{
		Error: identity.UserMessage(err),
		Code:  identity.Code(err),
	})
}

func (h *AuthHandler) redirectWithError(c *drift.Context, errMsg string) {
	redirect(c, h.loginPath+"?error="+url.QueryEscape(errMsg))
}

func redirect(c *drift.Context, target string) {
	c.Response.Header().Set("Location", target)
	c.Response.WriteHeader(http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func userResponse(p *models.Principal) *dto.UserResponse {
	resp := &dto.UserResponse{
		UID:           p.UID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		PhotoURL:      p.PhotoURL,
		EmailVerified: p.EmailVerified,
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		resp.CreatedAt = &t
	}
	if !p.LastSignInAt.IsZero() {
		t := p.LastSignInAt
		resp.LastSignInAt = &t
	}
	return resp
}
