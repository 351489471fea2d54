package room

import (
	"cmp"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/manpreetbhatti/sketchrooms/internal/canvas"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/samber/lo"
)

// Close reasons recorded in the journal
const (
	ReasonEmpty = "empty"
	ReasonStale = "stale"
)

// Journal records room lifecycle activity. It is never read back to rebuild rooms.
type Journal interface {
	RecordRoomCreated(roomID string, maxUsers int, at time.Time) error
	RecordJoin(roomID, sessionID string, at time.Time) error
	RecordRoomClosed(roomID, reason string, at time.Time) error
}

type Config struct {
	DefaultMaxUsers int
	UndoBatchSize   int
	ColorAttempts   int
	IDLength        int
}

func DefaultConfig() Config {
	return Config{
		DefaultMaxUsers: 10,
		UndoBatchSize:   canvas.DefaultBatchSize,
		ColorAttempts:   canvas.DefaultColorAttempts,
		IDLength:        DefaultIDLength,
	}
}

type Option func(*Registry)

func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithJournal(j Journal) Option {
	return func(r *Registry) { r.journal = j }
}

func WithColorSource(src rand.Source) Option {
	return func(r *Registry) { r.colorSource = src }
}

// Registry owns every live room, keyed by id
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	config      Config
	ids         IDGenerator
	allocator   *canvas.ColorAllocator
	colorSource rand.Source
	journal     Journal
	now         func() time.Time
	log         *slog.Logger
}

func NewRegistry(config Config, log *slog.Logger, opts ...Option) *Registry {
	defaults := DefaultConfig()
	if config.DefaultMaxUsers <= 0 {
		config.DefaultMaxUsers = defaults.DefaultMaxUsers
	}
	if config.UndoBatchSize <= 0 {
		config.UndoBatchSize = defaults.UndoBatchSize
	}

	r := &Registry{
		rooms:  make(map[string]*Room),
		config: config,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ids == nil {
		r.ids = NewRandomIDs(config.IDLength, nil)
	}
	r.allocator = canvas.NewColorAllocator(config.ColorAttempts, r.colorSource)
	return r
}

// Create registers a new empty room and returns its id. A non-positive
// maxUsers falls back to the configured default.
func (reg *Registry) Create(maxUsers int) string {
	if maxUsers <= 0 {
		maxUsers = reg.config.DefaultMaxUsers
	}
	createdAt := reg.now()

	reg.mu.Lock()
	id := reg.ids.Generate()
	for _, taken := reg.rooms[id]; taken; _, taken = reg.rooms[id] {
		id = reg.ids.Generate()
	}
	reg.rooms[id] = newRoom(id, maxUsers, createdAt, reg.allocator, reg.config.UndoBatchSize, reg.log)
	total := len(reg.rooms)
	reg.mu.Unlock()

	reg.log.Info("Room created", "room", id, "max_users", maxUsers, "rooms", total)
	if reg.journal != nil {
		if err := reg.journal.RecordRoomCreated(id, maxUsers, createdAt); err != nil {
			reg.log.Warn("Journal write failed", "room", id, "error", err)
		}
	}
	return id
}

// Get looks a room up by id
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[NormalizeID(roomID)]
	return r, ok
}

// Join admits peer into the room. It fails with ErrRoomNotFound or ErrRoomFull.
func (reg *Registry) Join(roomID string, peer Peer) (*Room, JoinResult, error) {
	r, ok := reg.Get(roomID)
	if !ok {
		return nil, JoinResult{}, ErrRoomNotFound
	}

	res, err := r.join(peer)
	if err != nil {
		return nil, JoinResult{}, err
	}

	if reg.journal != nil {
		if err := reg.journal.RecordJoin(r.ID, peer.ID(), reg.now()); err != nil {
			reg.log.Warn("Journal write failed", "room", r.ID, "error", err)
		}
	}
	return r, res, nil
}

// Leave removes the session from the room and deletes the room once empty
func (reg *Registry) Leave(roomID, sessionID string) (LeaveResult, error) {
	r, ok := reg.Get(roomID)
	if !ok {
		return LeaveResult{}, ErrRoomNotFound
	}

	res, err := r.leave(sessionID)
	if err != nil {
		return LeaveResult{}, err
	}
	if res.Closed {
		reg.remove(r, ReasonEmpty)
	}
	return res, nil
}

func (reg *Registry) remove(r *Room, reason string) {
	reg.mu.Lock()
	if reg.rooms[r.ID] == r {
		delete(reg.rooms, r.ID)
	}
	reg.mu.Unlock()

	reg.log.Info("Room deleted", "room", r.ID, "reason", reason)
	if reg.journal != nil {
		if err := reg.journal.RecordRoomClosed(r.ID, reason, reg.now()); err != nil {
			reg.log.Warn("Journal write failed", "room", r.ID, "error", err)
		}
	}
}

// List describes every room, oldest first
func (reg *Registry) List() []protocol.RoomSummary {
	reg.mu.RLock()
	rooms := lo.Values(reg.rooms)
	reg.mu.RUnlock()

	summaries := lo.Map(rooms, func(r *Room, _ int) protocol.RoomSummary { return r.Summary() })
	slices.SortFunc(summaries, func(a, b protocol.RoomSummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.RoomID, b.RoomID)
	})
	return summaries
}

// Sweep deletes empty rooms created more than maxAge ago and returns their ids
func (reg *Registry) Sweep(maxAge time.Duration) []string {
	now := reg.now()

	reg.mu.Lock()
	var swept []string
	for id, r := range reg.rooms {
		if r.closeIfStale(now, maxAge) {
			delete(reg.rooms, id)
			swept = append(swept, id)
		}
	}
	reg.mu.Unlock()

	for _, id := range swept {
		reg.log.Info("Room deleted", "room", id, "reason", ReasonStale)
		if reg.journal != nil {
			if err := reg.journal.RecordRoomClosed(id, ReasonStale, now); err != nil {
				reg.log.Warn("Journal write failed", "room", id, "error", err)
			}
		}
	}
	return swept
}

// Occupancy returns the number of rooms and of members across all of them
func (reg *Registry) Occupancy() (rooms, users int) {
	reg.mu.RLock()
	all := lo.Values(reg.rooms)
	reg.mu.RUnlock()

	return len(all), lo.SumBy(all, func(r *Room) int { return r.UserCount() })
}
