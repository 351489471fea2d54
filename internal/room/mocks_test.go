package room

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/manpreetbhatti/sketchrooms/internal/canvas"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/stretchr/testify/mock"
)

// --- Peer ---

type fakePeer struct {
	id       string
	mu       sync.Mutex
	received []protocol.Envelope
	sendErr  error
}

func newPeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(data []byte) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	env, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, env)
	return nil
}

func (p *fakePeer) events() []protocol.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]protocol.EventType, len(p.received))
	for i, env := range p.received {
		out[i] = env.Event
	}
	return out
}

// last decodes the payload of the most recent event of the given type
func (p *fakePeer) last(event protocol.EventType, v any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.received) - 1; i >= 0; i-- {
		if p.received[i].Event == event {
			return json.Unmarshal(p.received[i].Data, v) == nil
		}
	}
	return false
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = nil
}

var errBroken = errors.New("broken pipe")

// --- IDGenerator ---

type MockIDGenerator struct {
	mock.Mock
}

func (m *MockIDGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

// --- Journal ---

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) RecordRoomCreated(roomID string, maxUsers int, at time.Time) error {
	args := m.Called(roomID, maxUsers, at)
	return args.Error(0)
}

func (m *MockJournal) RecordJoin(roomID, sessionID string, at time.Time) error {
	args := m.Called(roomID, sessionID, at)
	return args.Error(0)
}

func (m *MockJournal) RecordRoomClosed(roomID, reason string, at time.Time) error {
	args := m.Called(roomID, reason, at)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStroke() canvas.Stroke {
	return canvas.Stroke{
		Brush: canvas.BrushNormal,
		Size:  3,
		Color: "#000000",
		Prev:  canvas.Point{X: 0, Y: 0},
		Curr:  canvas.Point{X: 5, Y: 5},
	}
}
