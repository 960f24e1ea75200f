package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoToken is returned when an authenticated request is attempted with no
// stored bearer token. No network call is made.
var ErrNoToken = errors.New("no bearer token stored")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// IsAuthFailure reports whether err is a 401 or 403 from the backend.
func IsAuthFailure(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return isAuthFailureStatus(apiErr.Status)
}

func isAuthFailureStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
