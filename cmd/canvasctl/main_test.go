package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manpreetbhatti/sketchrooms/internal/api"
	"github.com/manpreetbhatti/sketchrooms/internal/db"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]protocol.RoomSummary{
			{RoomID: "ABC123", UserCount: 2, MaxUsers: 2, IsFull: true, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		})
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.StatsResponse{
			ActiveRooms:    1,
			ActiveUsers:    2,
			ActiveSessions: 3,
			Journal:        &db.Stats{RoomsCreated: 7, RoomsClosed: 6, Joins: 12},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Rooms(t *testing.T) {
	srv := fakeServer(t)
	t.Setenv("CANVAS_SERVER", srv.URL)
	t.Setenv("CANVAS_COLOURS", "false")
	var out bytes.Buffer

	require.NoError(t, run(nil, &out))

	assert.Contains(t, out.String(), "Rooms (1)")
	assert.Contains(t, out.String(), "ABC123")
	assert.Contains(t, out.String(), "2024-01-01T00:00:00Z")
}

func TestRun_Stats(t *testing.T) {
	srv := fakeServer(t)
	t.Setenv("CANVAS_SERVER", srv.URL)
	t.Setenv("CANVAS_COLOURS", "false")
	var out bytes.Buffer

	require.NoError(t, run([]string{"stats"}, &out))

	assert.Contains(t, out.String(), "Server stats")
	assert.Contains(t, out.String(), "12")
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Setenv("CANVAS_COLOURS", "false")

	err := run([]string{"paint"}, &bytes.Buffer{})

	assert.ErrorContains(t, err, "unknown command")
}

func TestRun_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	t.Setenv("CANVAS_SERVER", srv.URL)

	err := run(nil, &bytes.Buffer{})

	assert.ErrorContains(t, err, "unexpected status")
}
