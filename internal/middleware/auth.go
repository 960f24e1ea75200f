package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/authstate"
	"github.com/programmerrakibul/book-wagon-client/internal/guard"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
	"github.com/programmerrakibul/book-wagon-client/internal/views"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

const (
	DecisionKey  = "guard_decision"
	PrincipalKey = "principal"
)

type GuardConfig struct {
	LoginPath string
	// Wait bounds how long a guard waits for the session and the role
	// before answering Pending.
	Wait time.Duration
	// JSON switches the guard to API answers instead of HTML pages.
	JSON bool
}

// PrivateRoute lets any signed-in principal through and redirects everyone
// else to the login page.
func PrivateRoute(cfg GuardConfig) drift.HandlerFunc {
	return Guard(guard.Authenticated, cfg)
}

// LibrarianRoute and AdminRoute render a forbidden view in place instead of
// redirecting.
func LibrarianRoute(cfg GuardConfig) drift.HandlerFunc {
	return Guard(guard.Librarian, cfg)
}

func AdminRoute(cfg GuardConfig) drift.HandlerFunc {
	return Guard(guard.Admin, cfg)
}

func Guard(req guard.Requirement, cfg GuardConfig) drift.HandlerFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	return func(c *drift.Context) {
		s := GetSession(c)
		if s == nil {
			c.InternalServerError("no browser session")
			return
		}

		// A navigation queued by a rejected token wins over the page.
		if target, ok := s.Navigate.Take(); ok && target != c.Request.URL.Path {
			redirectToLogin(c, cfg, target)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Wait)
		defer cancel()

		state, _ := s.Store.WaitReady(ctx)
		role := roles.Result{}
		if req.NeedsRole() && state.Principal != nil {
			role = s.Roles.Wait(ctx, state.Principal)

			// The session may have changed while waiting on the role.
			latest := s.Store.Snapshot()
			if !models.SameUser(latest.Principal, state.Principal) {
				role = roles.Result{}
				if latest.Principal != nil {
					role = s.Roles.Resolve(latest.Principal)
				}
			}
			state = latest
		}

		decision := guard.Evaluate(state, role, req)
		c.Set(DecisionKey, decision)

		switch decision {
		case guard.Granted:
			c.Set(PrincipalKey, state.Principal)
			c.Next()
		case guard.Redirect:
			redirectToLogin(c, cfg, cfg.LoginPath)
		case guard.Denied:
			deny(c, cfg, req)
		default:
			pending(c, cfg, state)
		}
	}
}

func redirectToLogin(c *drift.Context, cfg GuardConfig, loginPath string) {
	target := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())

	if cfg.JSON {
		_ = c.JSON(http.StatusUnauthorized, dto.UnauthorizedResponse{
			Error:    "not authenticated",
			Redirect: target,
		})
		c.Abort()
		return
	}

	// 303 so the login page replaces the guarded page in history.
	c.Response.Header().Set("Location", target)
	c.Response.WriteHeader(http.StatusSeeOther)
	c.Abort()
}

func deny(c *drift.Context, cfg GuardConfig, req guard.Requirement) {
	if cfg.JSON {
		_ = c.JSON(http.StatusForbidden, map[string]string{
			"error":         "forbidden",
			"required_role": req.Role.String(),
		})
	} else {
		_ = c.HTML(http.StatusForbidden, views.Forbidden(req.Role.String()))
	}
	c.Abort()
}

func pending(c *drift.Context, cfg GuardConfig, state authstate.State) {
	if cfg.JSON {
		c.Response.Header().Set("Retry-After", "1")
		_ = c.JSON(http.StatusAccepted, map[string]any{
			"status":  "pending",
			"loading": state.Loading,
		})
	} else {
		_ = c.HTML(http.StatusAccepted, views.Loading(c.Request.URL.RequestURI(), 1))
	}
	c.Abort()
}

// GetPrincipal returns the principal a guard granted access to.
func GetPrincipal(c *drift.Context) *models.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*models.Principal); ok {
			return p
		}
	}
	return nil
}
