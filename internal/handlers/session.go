package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/programmerrakibul/book-wagon-client/internal/authstate"
	"github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
	"github.com/programmerrakibul/book-wagon-client/internal/sse"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type SessionHandler struct {
	hub *sse.Hub
}

func NewSessionHandler(hub *sse.Hub) *SessionHandler {
	return &SessionHandler{hub: hub}
}

// Get reports the session as it is right now. It never waits on the role.
func (h *SessionHandler) Get(c *drift.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	state := s.Store.Snapshot()
	role := roles.Result{}
	if state.Principal != nil {
		role = s.Roles.Resolve(state.Principal)
	}

	_ = c.JSON(http.StatusOK, sessionResponse(state, role))
}

// Events streams session_changed and role_settled events for the caller's
// browser session.
func (h *SessionHandler) Events(c *drift.Context) {
	s := middleware.GetSession(c)
	if s == nil {
		c.InternalServerError("no browser session")
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &sse.Client{
		ID:        clientID,
		SessionID: s.ID,
		Send:      make(chan []byte, 64),
	}

	if !h.hub.Register(client) {
		return
	}
	defer h.hub.Unregister(client)

	state := s.Store.Snapshot()
	role := roles.Result{}
	if state.Principal != nil {
		role = s.Roles.Resolve(state.Principal)
	}
	if err := sseCtx.SendJSON(map[string]any{
		"type":      "connected",
		"client_id": clientID,
		"session":   sessionResponse(state, role),
	}, "system", ""); err != nil {
		return
	}

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func sessionResponse(state authstate.State, role roles.Result) dto.SessionResponse {
	resp := dto.SessionResponse{
		Authenticated: state.Authenticated(),
		Loading:       state.Loading,
		RoleState:     role.State.String(),
	}
	if state.Principal != nil {
		resp.User = userResponse(state.Principal)
	}
	if role.State == roles.Resolved {
		resp.Role = role.Role.String()
	}
	return resp
}
