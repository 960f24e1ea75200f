package handlers

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type AdminHandler struct {
	userService UserServiceInterface
	loginPath   string
}

func NewAdminHandler(userService UserServiceInterface, loginPath string) *AdminHandler {
	return &AdminHandler{userService: userService, loginPath: loginPath}
}

func (h *AdminHandler) ListUsers(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	users, err := h.userService.List(c.Request.Context(), api)
	if err != nil {
		respondError(c, h.loginPath, err)
		return
	}
	if users == nil {
		users = []models.UserRecord{}
	}

	_ = c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) SetRole(c *drift.Context) {
	api, ok := backend(c)
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	email := c.Param("email")
	if p := middleware.GetPrincipal(c); p != nil && p.Email == email && role != models.RoleAdmin {
		c.BadRequest("admins cannot demote themselves")
		return
	}

	if err := h.userService.SetRole(c.Request.Context(), api, email, role); err != nil {
		respondError(c, h.loginPath, err)
		return
	}

	_ = c.JSON(http.StatusOK, map[string]string{"email": email, "role": role.String()})
}
