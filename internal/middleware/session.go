package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"go.uber.org/zap"
)

const (
	SessionKey = "browser_session"
	CookieName = "bookwagon_session"
)

// SessionSource hands out browser sessions. *session.Registry implements it.
type SessionSource interface {
	Create() (*session.Session, error)
	Open(id uuid.UUID) (*session.Session, error)
}

// SessionTokens signs and checks the session cookie.
// *services.SessionTokenService implements it.
type SessionTokens interface {
	Issue(sessionID uuid.UUID) (string, error)
	Validate(token string) (uuid.UUID, error)
	TTL() time.Duration
}

// Session attaches the visitor's browser session to the request, starting a
// new one when the cookie is missing or invalid.
func Session(sessions SessionSource, tokens SessionTokens, secure bool, logger *zap.Logger) drift.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *drift.Context) {
		var s *session.Session

		if cookie, err := c.Request.Cookie(CookieName); err == nil {
			if id, err := tokens.Validate(cookie.Value); err == nil {
				s, err = sessions.Open(id)
				if err != nil {
					logger.Warn("failed to open browser session", zap.String("session_id", id.String()), zap.Error(err))
					c.InternalServerError("failed to open session")
					return
				}
			}
		}

		if s == nil {
			created, err := sessions.Create()
			if err != nil {
				logger.Error("failed to create browser session", zap.Error(err))
				c.InternalServerError("failed to create session")
				return
			}
			token, err := tokens.Issue(created.ID)
			if err != nil {
				logger.Error("failed to issue session cookie", zap.Error(err))
				c.InternalServerError("failed to create session")
				return
			}
			setSessionCookie(c, token, tokens.TTL(), secure)
			s = created
		}

		s.Touch()
		c.Set(SessionKey, s)
		c.Next()
	}
}

func setSessionCookie(c *drift.Context, token string, ttl time.Duration, secure bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	c.Response.Header().Add("Set-Cookie", cookie.String())
}

func GetSession(c *drift.Context) *session.Session {
	if v, ok := c.Get(SessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}
