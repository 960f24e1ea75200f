package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/programmerrakibul/book-wagon-client/internal/authstate"
	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/internal/roles"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type SessionChangedEvent struct {
	Authenticated bool              `json:"authenticated"`
	Loading       bool              `json:"loading"`
	Principal     *models.Principal `json:"principal,omitempty"`
	Seq           uint64            `json:"seq"`
}

type RoleSettledEvent struct {
	Email string      `json:"email"`
	State string      `json:"state"`
	Role  models.Role `json:"role,omitempty"`
}

type Client struct {
	ID        string
	SessionID uuid.UUID
	Send      chan []byte
}

// Hub fans session events out to the event streams open for that browser
// session.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *SessionMessage
	done       chan struct{}
	mu         sync.RWMutex
}

type SessionMessage struct {
	SessionID uuid.UUID
	Event     Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *SessionMessage, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.SessionID == msg.SessionID {
					select {
					case client.Send <- data:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// publish never blocks: it runs on the auth delivery path.
func (h *Hub) publish(msg *SessionMessage) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

func (h *Hub) SessionChanged(sessionID uuid.UUID, state authstate.State) {
	h.publish(&SessionMessage{
		SessionID: sessionID,
		Event: Event{
			Type: "session_changed",
			Data: SessionChangedEvent{
				Authenticated: state.Authenticated(),
				Loading:       state.Loading,
				Principal:     state.Principal,
				Seq:           state.Seq,
			},
		},
	})
}

func (h *Hub) RoleSettled(sessionID uuid.UUID, email string, res roles.Result) {
	h.publish(&SessionMessage{
		SessionID: sessionID,
		Event: Event{
			Type: "role_settled",
			Data: RoleSettledEvent{
				Email: email,
				State: res.State.String(),
				Role:  res.Role,
			},
		},
	})
}
