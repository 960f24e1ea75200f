// Package guard decides what a gated route shows from the session state and
// the principal's role.
package guard

import (
	"github.com/programmerrakibul/book-wagon-client/internal/authstate"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
)

type Decision int

const (
	Pending Decision = iota
	Redirect
	Denied
	Granted
)

func (d Decision) String() string {
	switch d {
	case Redirect:
		return "redirect"
	case Denied:
		return "denied"
	case Granted:
		return "granted"
	default:
		return "pending"
	}
}

// Requirement is what a route asks of the principal. The zero value only
// asks for a signed-in principal.
type Requirement struct {
	Role models.Role
}

var (
	Authenticated = Requirement{}
	Librarian     = Requirement{Role: models.RoleLibrarian}
	Admin         = Requirement{Role: models.RoleAdmin}
)

func (r Requirement) NeedsRole() bool {
	return r.Role != ""
}

// Evaluate is pure: the same inputs always give the same decision.
//
// Authenticated-only routes redirect an absent principal to login. Role routes
// deny in place instead.
func Evaluate(state authstate.State, role roles.Result, req Requirement) Decision {
	if state.Loading {
		return Pending
	}

	if !req.NeedsRole() {
		if state.Principal == nil {
			return Redirect
		}
		return Granted
	}

	if state.Principal == nil {
		return Denied
	}
	switch role.State {
	case roles.Unresolved:
		return Pending
	case roles.Failed:
		return Denied
	}
	if role.Role == req.Role {
		return Granted
	}
	return Denied
}
