package handlers

import (
	"errors"
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/apiclient"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/services"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

// backend returns the authenticated client of the request's browser session.
func backend(c *drift.Context) (services.Backend, bool) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return nil, false
	}
	return s.API, true
}

// respondError maps a service error to an HTTP answer. A rejected or missing
// token has already signed the session out; the caller is sent to login.
func respondError(c *drift.Context, loginPath string, err error) {
	var apiErr *apiclient.APIError

	switch {
	case errors.Is(err, apiclient.ErrNoToken), apiclient.IsAuthFailure(err):
		_ = c.JSON(http.StatusUnauthorized, dto.UnauthorizedResponse{
			Error:    "session expired",
			Redirect: loginPath,
		})
	case errors.Is(err, services.ErrInvalidInput):
		c.BadRequest(err.Error())
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		c.NotFound(apiErr.Message)
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		_ = c.JSON(apiErr.Status, map[string]string{"error": apiErr.Message})
	default:
		_ = c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}
