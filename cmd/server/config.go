package main

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
)

var ErrNoOrigins = errors.New("ALLOWED_ORIGINS lists no origin")

type Config struct {
	Host              string        `env:"HOST"`
	Port              int           `env:"PORT,default=3000"`
	AllowedOrigins    string        `env:"ALLOWED_ORIGINS,default=http://127.0.0.1:5500"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	JournalPath       string        `env:"JOURNAL_PATH,default=./data/sketchrooms.db"`
	DefaultMaxUsers   int           `env:"DEFAULT_MAX_USERS,default=10"`
	UndoBatchSize     int           `env:"UNDO_BATCH_SIZE,default=5"`
	ColorAttempts     int           `env:"COLOR_ATTEMPTS,default=100"`
	RoomIDLength      int           `env:"ROOM_ID_LENGTH,default=6"`
	ReclaimInterval   time.Duration `env:"RECLAIM_INTERVAL,default=1h"`
	ReclaimMaxAge     time.Duration `env:"RECLAIM_MAX_AGE,default=24h"`
	MessagesPerSecond float64       `env:"MESSAGES_PER_SECOND,default=100"`
	MessageBurst      int           `env:"MESSAGE_BURST,default=200"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Origins splits the comma separated allow-list
func (c Config) Origins() []string {
	origins := lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	})
	return lo.Compact(origins)
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	if len(c.Origins()) == 0 {
		return ErrNoOrigins
	}
	return nil
}
