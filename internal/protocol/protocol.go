package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/manpreetbhatti/sketchrooms/internal/canvas"
)

// Represents the name of an event on the wire
type EventType string

// Inbound events, sent by clients
const (
	EventCreateRoom        EventType = "create-room"
	EventJoinRoom          EventType = "join-room"
	EventLeaveRoom         EventType = "leave-room"
	EventClientCoordinates EventType = "client-coordinates"
	EventDrawing           EventType = "drawing-event"
	EventClearMyDrawing    EventType = "clear-my-drawing"
	EventUndo              EventType = "undo"
	EventRedo              EventType = "redo"
	EventRequestRoomList   EventType = "request-room-list"
)

// Outbound events, sent by the server
const (
	EventRoomList             EventType = "room-list"
	EventRoomCreated          EventType = "room-created"
	EventRoomError            EventType = "room-error"
	EventConnected            EventType = "connected"
	EventUserJoined           EventType = "user-joined"
	EventUserLeft             EventType = "user-left"
	EventOtherUserCoordinates EventType = "other-user-coordinates"
	EventDrawingFromOther     EventType = "drawing-from-other-user"
	EventCanvasState          EventType = "canvas-state"
	EventRedrawCanvas         EventType = "redraw-canvas"
)

var ErrEmptyMessage = errors.New("empty message")

// Envelope is the frame exchanged in both directions
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads

type CreateRoom struct {
	MaxUsers *int `json:"maxUsers" validate:"omitempty,min=1,max=100"`
}

type JoinRoom struct {
	RoomID string `json:"roomId" validate:"required,alphanum,max=16"`
}

type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Drawing struct {
	Size      float64      `json:"size" validate:"gt=0,lte=500"`
	Color     string       `json:"color" validate:"required,max=32"`
	Brush     string       `json:"brush" validate:"required,brush"`
	PrevPoint canvas.Point `json:"prevPoint"`
	CurrPoint canvas.Point `json:"currPoint"`
}

// Stroke builds the stroke this drawing event describes
func (d Drawing) Stroke(owner string) canvas.Stroke {
	return canvas.Stroke{
		OwnerID: owner,
		Brush:   canvas.BrushKind(d.Brush),
		Size:    d.Size,
		Color:   d.Color,
		Prev:    d.PrevPoint,
		Curr:    d.CurrPoint,
	}
}

// Outbound payloads

type RoomSummary struct {
	RoomID    string    `json:"roomId"`
	UserCount int       `json:"userCount"`
	MaxUsers  int       `json:"maxUsers"`
	IsFull    bool      `json:"isFull"`
	CreatedAt time.Time `json:"createdAt"`
}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type RoomError struct {
	Error string `json:"error"`
}

type Connected struct {
	UserID    string `json:"userId"`
	Color     string `json:"color"`
	RoomID    string `json:"roomId"`
	UserCount int    `json:"userCount"`
}

// Sent as user-joined and user-left
type Presence struct {
	UserID    string `json:"userId"`
	UserCount int    `json:"userCount"`
}

type OtherUserCoordinates struct {
	ID    string      `json:"id"`
	Color string      `json:"color"`
	Coord Coordinates `json:"coord"`
}

type DrawingFromOther struct {
	Item canvas.Stroke `json:"item"`
}

// Encode wraps payload into an envelope for event
func Encode(event EventType, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// MustEncode is Encode for payloads that always marshal
func MustEncode(event EventType, payload any) []byte {
	data, err := Encode(event, payload)
	if err != nil {
		panic(err)
	}
	return data
}

// Decode parses a raw frame into its envelope
func Decode(raw []byte) (Envelope, error) {
	if len(raw) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event")
	}
	return env, nil
}

// Payload unmarshals the envelope data into v and validates it.
// A missing data field leaves v at its zero value.
func (e Envelope) Payload(v any) error {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		if err := json.Unmarshal(e.Data, v); err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Event, err)
		}
	}
	return Validate(v)
}
