package room

import (
	"log/slog"
	"sync"
	"time"

	"github.com/manpreetbhatti/sketchrooms/internal/canvas"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
)

// Peer is a session handle bound to a room. Send must not block.
type Peer interface {
	ID() string
	Send(data []byte) error
}

type member struct {
	peer  Peer
	color string
}

type JoinResult struct {
	Color     string
	UserCount int
	Snapshot  []canvas.Stroke
}

type LeaveResult struct {
	Remaining int
	Closed    bool
}

// A collaborative drawing session. Every mutation and the fan-out it causes
// happen under mu, so members observe room transitions in one order.
type Room struct {
	ID        string
	MaxUsers  int
	CreatedAt time.Time

	mu        sync.Mutex
	members   map[string]*member
	colors    *canvas.ColorSet
	allocator *canvas.ColorAllocator
	drawings  *canvas.DrawLog
	history   *canvas.History
	batch     int
	closed    bool
	log       *slog.Logger
}

func newRoom(id string, maxUsers int, createdAt time.Time, allocator *canvas.ColorAllocator, batch int, log *slog.Logger) *Room {
	return &Room{
		ID:        id,
		MaxUsers:  maxUsers,
		CreatedAt: createdAt,
		members:   make(map[string]*member),
		colors:    canvas.NewColorSet(),
		allocator: allocator,
		drawings:  canvas.NewDrawLog(),
		history:   canvas.NewHistory(),
		batch:     batch,
		log:       log.With("room", id),
	}
}

// Admits peer, then sends it the room state and tells everyone else.
func (r *Room) join(peer Peer) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrRoomNotFound
	}
	if _, ok := r.members[peer.ID()]; ok {
		return JoinResult{}, ErrAlreadyInRoom
	}
	if len(r.members) >= r.MaxUsers {
		return JoinResult{}, ErrRoomFull
	}

	color := r.allocator.Allocate(r.colors)
	r.members[peer.ID()] = &member{peer: peer, color: color}
	count := len(r.members)
	snapshot := r.drawings.Snapshot()

	r.sendTo(peer, protocol.EventConnected, protocol.Connected{
		UserID:    peer.ID(),
		Color:     color,
		RoomID:    r.ID,
		UserCount: count,
	})
	r.sendTo(peer, protocol.EventCanvasState, snapshot)
	r.broadcast(protocol.EventUserJoined, protocol.Presence{UserID: peer.ID(), UserCount: count}, peer.ID())

	r.log.Info("User joined room", "session", peer.ID(), "users", count)
	return JoinResult{Color: color, UserCount: count, Snapshot: snapshot}, nil
}

// Removes the session with everything it drew. The room closes when the last
// member leaves.
func (r *Room) leave(sessionID string) (LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sessionID]
	if !ok {
		return LeaveResult{}, ErrNotInRoom
	}

	delete(r.members, sessionID)
	r.colors.Release(m.color)
	r.history.Forget(sessionID)
	purged := r.drawings.RemoveOwner(sessionID)

	remaining := len(r.members)
	r.log.Info("User left room", "session", sessionID, "remaining", remaining, "purged", purged)

	if remaining == 0 {
		r.closed = true
		return LeaveResult{Closed: true}, nil
	}

	r.broadcast(protocol.EventUserLeft, protocol.Presence{UserID: sessionID, UserCount: remaining}, "")
	r.broadcast(protocol.EventRedrawCanvas, r.drawings.Snapshot(), "")
	return LeaveResult{Remaining: remaining}, nil
}

// Draw appends a stroke and forwards it to every other member
func (r *Room) Draw(sessionID string, s canvas.Stroke) (canvas.Stroke, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[sessionID]; !ok {
		return canvas.Stroke{}, ErrNotInRoom
	}

	s.ID = 0
	s.OwnerID = sessionID
	s = r.drawings.Append(s)
	r.history.RecordDraw(s)

	r.broadcast(protocol.EventDrawingFromOther, protocol.DrawingFromOther{Item: s}, sessionID)
	return s, nil
}

// ClearMine purges the session's strokes and history and redraws everyone,
// the sender included.
func (r *Room) ClearMine(sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[sessionID]; !ok {
		return 0, ErrNotInRoom
	}

	removed := r.drawings.RemoveOwner(sessionID)
	r.history.Reset(sessionID)

	r.broadcast(protocol.EventRedrawCanvas, r.drawings.Snapshot(), "")
	return removed, nil
}

func (r *Room) Undo(sessionID string) ([]canvas.Stroke, error) {
	return r.toggle(sessionID, r.history.Undo)
}

func (r *Room) Redo(sessionID string) ([]canvas.Stroke, error) {
	return r.toggle(sessionID, r.history.Redo)
}

func (r *Room) toggle(sessionID string, op func(string, int, *canvas.DrawLog) []canvas.Stroke) ([]canvas.Stroke, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[sessionID]; !ok {
		return nil, ErrNotInRoom
	}

	changed := op(sessionID, r.batch, r.drawings)

	r.broadcast(protocol.EventRedrawCanvas, r.drawings.Snapshot(), "")
	return changed, nil
}

// Coordinates relays a cursor position to the other members
func (r *Room) Coordinates(sessionID string, coord protocol.Coordinates) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sessionID]
	if !ok {
		return ErrNotInRoom
	}

	r.broadcast(protocol.EventOtherUserCoordinates, protocol.OtherUserCoordinates{
		ID:    sessionID,
		Color: m.color,
		Coord: coord,
	}, sessionID)
	return nil
}

// Returns all stored strokes for catch-up
func (r *Room) Snapshot() []canvas.Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawings.Snapshot()
}

func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Color returns the color assigned to a member
func (r *Room) Color(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[sessionID]
	if !ok {
		return "", false
	}
	return m.color, true
}

func (r *Room) Summary() protocol.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return protocol.RoomSummary{
		RoomID:    r.ID,
		UserCount: len(r.members),
		MaxUsers:  r.MaxUsers,
		IsFull:    len(r.members) >= r.MaxUsers,
		CreatedAt: r.CreatedAt,
	}
}

// Closes the room if it is empty and older than maxAge
func (r *Room) closeIfStale(now time.Time, maxAge time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if len(r.members) > 0 || now.Sub(r.CreatedAt) <= maxAge {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) sendTo(peer Peer, event protocol.EventType, payload any) {
	if err := peer.Send(protocol.MustEncode(event, payload)); err != nil {
		r.log.Warn("Failed to deliver event", "event", event, "session", peer.ID(), "error", err)
	}
}

// Delivers one event to every member except the one with id except.
// A failing member never prevents delivery to the others.
func (r *Room) broadcast(event protocol.EventType, payload any, except string) {
	data := protocol.MustEncode(event, payload)
	for id, m := range r.members {
		if id == except {
			continue
		}
		if err := m.peer.Send(data); err != nil {
			r.log.Warn("Failed to deliver event", "event", event, "session", id, "error", err)
		}
	}
}
