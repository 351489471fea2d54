package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Database is the activity journal. It records which rooms existed and who
// joined them. Canvas content is never stored.
type Database struct {
	db *sql.DB
}

type RoomRecord struct {
	ID          string     `json:"id"`
	MaxUsers    int        `json:"maxUsers"`
	CreatedAt   time.Time  `json:"createdAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	CloseReason string     `json:"closeReason,omitempty"`
	Joins       int        `json:"joins"`
}

type Stats struct {
	RoomsCreated int `json:"roomsCreated"`
	RoomsClosed  int `json:"roomsClosed"`
	Joins        int `json:"joins"`
}

func New(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		max_users INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		closed_at DATETIME,
		close_reason TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS room_joins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		joined_at DATETIME NOT NULL,
		FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_room_joins_room_id ON room_joins(room_id);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// RecordRoomCreated stores a new room. Ids are reused across restarts, so an
// existing row is reopened.
func (d *Database) RecordRoomCreated(roomID string, maxUsers int, at time.Time) error {
	_, err := d.db.Exec(`
		INSERT INTO rooms (id, max_users, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			max_users = excluded.max_users,
			created_at = excluded.created_at,
			closed_at = NULL,
			close_reason = ''
	`, roomID, maxUsers, at.UTC())
	return err
}

func (d *Database) RecordJoin(roomID, sessionID string, at time.Time) error {
	_, err := d.db.Exec(
		"INSERT INTO room_joins (room_id, session_id, joined_at) VALUES (?, ?, ?)",
		roomID, sessionID, at.UTC(),
	)
	return err
}

func (d *Database) RecordRoomClosed(roomID, reason string, at time.Time) error {
	_, err := d.db.Exec(
		"UPDATE rooms SET closed_at = ?, close_reason = ? WHERE id = ?",
		at.UTC(), reason, roomID,
	)
	return err
}

// GetRoom returns the journal entry of a room, or nil if it was never recorded
func (d *Database) GetRoom(roomID string) (*RoomRecord, error) {
	row := d.db.QueryRow(`
		SELECT r.id, r.max_users, r.created_at, r.closed_at, r.close_reason,
			(SELECT COUNT(*) FROM room_joins j WHERE j.room_id = r.id)
		FROM rooms r WHERE r.id = ?
	`, roomID)

	var rec RoomRecord
	var closedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.MaxUsers, &rec.CreatedAt, &closedAt, &rec.CloseReason, &rec.Joins)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		rec.ClosedAt = &closedAt.Time
	}
	return &rec, nil
}

func (d *Database) GetStats() (Stats, error) {
	var stats Stats
	err := d.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM rooms),
			(SELECT COUNT(*) FROM rooms WHERE closed_at IS NOT NULL),
			(SELECT COUNT(*) FROM room_joins)
	`).Scan(&stats.RoomsCreated, &stats.RoomsClosed, &stats.Joins)
	return stats, err
}
