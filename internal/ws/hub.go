package ws

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/manpreetbhatti/sketchrooms/internal/room"
	"github.com/samber/lo"
)

// Hub routes inbound events of every connected session to the room the
// session is bound to. A session is bound to at most one room at a time.
type Hub struct {
	registry *room.Registry
	config   Config

	// Connected sessions by id
	sessions map[string]*Client

	// Room each session is currently bound to
	bindings map[string]*room.Room

	mu  sync.RWMutex
	log *slog.Logger
}

func NewHub(registry *room.Registry, config Config, log *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		config:   config.withDefaults(),
		sessions: make(map[string]*Client),
		bindings: make(map[string]*room.Room),
		log:      log,
	}
}

// Register adds a session and sends it the room directory
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.sessions[c.id] = c
	total := len(h.sessions)
	h.mu.Unlock()

	h.log.Info("Session connected", "session", c.id, "sessions", total)
	h.sendRoomList(c)
}

// Unregister drops a session, leaving its room first
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.sessions[c.id]
	delete(h.sessions, c.id)
	total := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.leave(c)
	c.close()
	h.log.Info("Session disconnected", "session", c.id, "sessions", total)
}

// HandleMessage decodes one inbound frame and applies it
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		h.log.Warn("Invalid message", "session", c.id, "error", err)
		return
	}

	switch env.Event {
	case protocol.EventCreateRoom:
		h.handleCreate(c, env)
	case protocol.EventJoinRoom:
		h.handleJoin(c, env)
	case protocol.EventLeaveRoom:
		h.leave(c)
	case protocol.EventRequestRoomList:
		h.sendRoomList(c)
	case protocol.EventDrawing:
		h.handleDrawing(c, env)
	case protocol.EventClientCoordinates:
		var coord protocol.Coordinates
		if !h.decode(c, env, &coord) {
			return
		}
		h.inRoom(c, env.Event, func(r *room.Room) error { return r.Coordinates(c.id, coord) })
	case protocol.EventClearMyDrawing:
		h.inRoom(c, env.Event, func(r *room.Room) error {
			_, err := r.ClearMine(c.id)
			return err
		})
	case protocol.EventUndo:
		h.inRoom(c, env.Event, func(r *room.Room) error {
			_, err := r.Undo(c.id)
			return err
		})
	case protocol.EventRedo:
		h.inRoom(c, env.Event, func(r *room.Room) error {
			_, err := r.Redo(c.id)
			return err
		})
	default:
		h.log.Warn("Unknown event", "session", c.id, "event", env.Event)
	}
}

func (h *Hub) decode(c *Client, env protocol.Envelope, v any) bool {
	if err := env.Payload(v); err != nil {
		h.log.Warn("Invalid payload", "session", c.id, "event", env.Event, "error", err)
		return false
	}
	return true
}

func (h *Hub) handleCreate(c *Client, env protocol.Envelope) {
	var req protocol.CreateRoom
	if !h.decode(c, env, &req) {
		return
	}
	// Zero selects the registry default
	maxUsers := 0
	if req.MaxUsers != nil {
		maxUsers = *req.MaxUsers
	}

	id := h.registry.Create(maxUsers)
	c.sendEvent(protocol.EventRoomCreated, protocol.RoomCreated{RoomID: id})
	h.RefreshLobby()
}

func (h *Hub) handleJoin(c *Client, env protocol.Envelope) {
	var req protocol.JoinRoom
	if !h.decode(c, env, &req) {
		return
	}

	if h.boundRoom(c) != nil {
		c.sendEvent(protocol.EventRoomError, protocol.RoomError{Error: room.ErrAlreadyInRoom.Error()})
		return
	}

	r, _, err := h.registry.Join(req.RoomID, c)
	if err != nil {
		h.log.Info("Join refused", "session", c.id, "room", req.RoomID, "error", err)
		c.sendEvent(protocol.EventRoomError, protocol.RoomError{Error: err.Error()})
		return
	}

	// The session may have been unregistered while the join was in flight
	h.mu.Lock()
	_, connected := h.sessions[c.id]
	if connected {
		h.bindings[c.id] = r
	}
	h.mu.Unlock()

	if !connected {
		if _, err := h.registry.Leave(r.ID, c.id); err != nil {
			h.log.Debug("Leave after room was gone", "session", c.id, "room", r.ID, "error", err)
		}
	}
	h.RefreshLobby()
}

func (h *Hub) handleDrawing(c *Client, env protocol.Envelope) {
	var d protocol.Drawing
	if !h.decode(c, env, &d) {
		return
	}
	h.inRoom(c, env.Event, func(r *room.Room) error {
		_, err := r.Draw(c.id, d.Stroke(c.id))
		return err
	})
}

// Runs fn against the session's room. Events from unbound sessions are dropped.
func (h *Hub) inRoom(c *Client, event protocol.EventType, fn func(*room.Room) error) {
	r := h.boundRoom(c)
	if r == nil {
		h.log.Debug("Ignoring event outside a room", "session", c.id, "event", event)
		return
	}
	if err := fn(r); err != nil {
		if errors.Is(err, room.ErrNotInRoom) {
			h.log.Debug("Ignoring event outside a room", "session", c.id, "event", event)
			return
		}
		h.log.Warn("Room event failed", "session", c.id, "room", r.ID, "event", event, "error", err)
	}
}

// Unbinds the session and removes it from its room, if any
func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	r, ok := h.bindings[c.id]
	delete(h.bindings, c.id)
	h.mu.Unlock()

	if !ok {
		return
	}

	if _, err := h.registry.Leave(r.ID, c.id); err != nil {
		h.log.Debug("Leave after room was gone", "session", c.id, "room", r.ID, "error", err)
	}
	h.RefreshLobby()
}

func (h *Hub) boundRoom(c *Client) *room.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bindings[c.id]
}

func (h *Hub) sendRoomList(c *Client) {
	c.sendEvent(protocol.EventRoomList, h.registry.List())
}

// RefreshLobby pushes the current room directory to every session that is not
// in a room.
func (h *Hub) RefreshLobby() {
	h.mu.RLock()
	lobby := lo.Filter(lo.Values(h.sessions), func(c *Client, _ int) bool {
		_, bound := h.bindings[c.id]
		return !bound
	})
	h.mu.RUnlock()

	if len(lobby) == 0 {
		return
	}

	data := protocol.MustEncode(protocol.EventRoomList, h.registry.List())
	for _, c := range lobby {
		if err := c.Send(data); err != nil {
			h.log.Debug("Room list not delivered", "session", c.id, "error", err)
		}
	}
}

// SessionCount returns the number of connected sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown disconnects every session
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := lo.Values(h.sessions)
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}
