package handlers

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
	"github.com/programmerrakibul/book-wagon-client/internal/views"
)

// PageHandler renders the dashboard shells behind the route guards.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Dashboard sits behind PrivateRoute only, so the role may still be
// resolving. It is shown if already known.
func (h *PageHandler) Dashboard(c *drift.Context) {
	role := "signed in"
	if s, p := middleware.GetSession(c), middleware.GetPrincipal(c); s != nil && p != nil {
		if res := s.Roles.Resolve(p); res.State == roles.Resolved {
			role = res.Role.String()
		}
	}
	h.render(c, "My dashboard", role)
}

func (h *PageHandler) Librarian(c *drift.Context) {
	h.render(c, "Librarian dashboard", models.RoleLibrarian.String())
}

func (h *PageHandler) Admin(c *drift.Context) {
	h.render(c, "Admin dashboard", models.RoleAdmin.String())
}

func (h *PageHandler) render(c *drift.Context, title, role string) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		c.Unauthorized("not authenticated")
		return
	}

	name := p.DisplayName
	if name == "" {
		name = p.Email
	}
	_ = c.HTML(http.StatusOK, views.Dashboard(title, name, role))
}
