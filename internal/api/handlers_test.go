package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/manpreetbhatti/sketchrooms/internal/db"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/manpreetbhatti/sketchrooms/internal/room"
	"github.com/manpreetbhatti/sketchrooms/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allowedOrigins = []string{"http://127.0.0.1:5500", "https://draw.example.com"}

type testServer struct {
	router   *gin.Engine
	registry *room.Registry
	journal  *db.Database
}

func setupTestAPI(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	journal, err := db.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := room.NewRegistry(room.DefaultConfig(), log, room.WithJournal(journal))
	hub := ws.NewHub(registry, ws.Config{AllowedOrigins: allowedOrigins}, log)

	r := CreateServer(allowedOrigins)
	New(hub, registry, journal, log).Routes(r)

	return testServer{router: r, registry: registry, journal: journal}
}

func (s testServer) do(method, path, origin, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	srv := setupTestAPI(t)

	w := srv.do(http.MethodGet, "/health", "http://evil.com", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["timestamp"])
}

func TestOriginProtection(t *testing.T) {
	srv := setupTestAPI(t)

	tests := []struct {
		name           string
		origin         string
		expectedStatus int
	}{
		{name: "No origin is a non-browser client", origin: "", expectedStatus: http.StatusOK},
		{name: "Allowed origin passes", origin: "https://draw.example.com", expectedStatus: http.StatusOK},
		{name: "Unknown origin is forbidden", origin: "http://evil.com", expectedStatus: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := srv.do(http.MethodGet, "/api/rooms", tc.origin, "")
			assert.Equal(t, tc.expectedStatus, w.Code)
		})
	}
}

func TestCORSHeadersForAllowedOrigin(t *testing.T) {
	srv := setupTestAPI(t)

	w := srv.do(http.MethodGet, "/api/rooms", "http://127.0.0.1:5500", "")

	assert.Equal(t, "http://127.0.0.1:5500", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateAndListRooms(t *testing.T) {
	req := require.New(t)
	srv := setupTestAPI(t)

	w := srv.do(http.MethodPost, "/api/rooms", "", `{"maxUsers": 3}`)
	req.Equal(http.StatusCreated, w.Code)
	var created protocol.RoomCreated
	req.NoError(json.Unmarshal(w.Body.Bytes(), &created))
	req.Len(created.RoomID, room.DefaultIDLength)

	w = srv.do(http.MethodGet, "/api/rooms", "", "")
	req.Equal(http.StatusOK, w.Code)
	var list []protocol.RoomSummary
	req.NoError(json.Unmarshal(w.Body.Bytes(), &list))
	req.Len(list, 1)
	req.Equal(created.RoomID, list[0].RoomID)
	req.Equal(3, list[0].MaxUsers)
	req.False(list[0].IsFull)
}

func TestCreateRoomWithoutBodyUsesDefault(t *testing.T) {
	srv := setupTestAPI(t)

	w := srv.do(http.MethodPost, "/api/rooms", "", "")

	require.Equal(t, http.StatusCreated, w.Code)
	var created protocol.RoomCreated
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	r, ok := srv.registry.Get(created.RoomID)
	require.True(t, ok)
	assert.Equal(t, 10, r.MaxUsers)
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	srv := setupTestAPI(t)

	for _, body := range []string{`{"maxUsers": 0}`, `{"maxUsers": 1000}`, `{"maxUsers": "many"}`, `not json`} {
		w := srv.do(http.MethodPost, "/api/rooms", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, srv.registry.List())
}

func TestGetRoom(t *testing.T) {
	req := require.New(t)
	srv := setupTestAPI(t)
	id := srv.registry.Create(5)

	w := srv.do(http.MethodGet, "/api/rooms/"+strings.ToLower(id), "", "")
	req.Equal(http.StatusOK, w.Code)
	var summary protocol.RoomSummary
	req.NoError(json.Unmarshal(w.Body.Bytes(), &summary))
	req.Equal(id, summary.RoomID)
	req.Equal(5, summary.MaxUsers)

	w = srv.do(http.MethodGet, "/api/rooms/NOPE42", "", "")
	req.Equal(http.StatusNotFound, w.Code)
	req.Contains(w.Body.String(), "Room not found")
}

func TestStatsHandler(t *testing.T) {
	req := require.New(t)
	srv := setupTestAPI(t)
	srv.registry.Create(2)
	srv.registry.Create(2)

	w := srv.do(http.MethodGet, "/api/stats", "", "")

	req.Equal(http.StatusOK, w.Code)
	var stats StatsResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &stats))
	req.Equal(2, stats.ActiveRooms)
	req.Zero(stats.ActiveUsers)
	req.Zero(stats.ActiveSessions)
	req.NotNil(stats.Journal)
	req.Equal(2, stats.Journal.RoomsCreated)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	srv := setupTestAPI(t)

	w := srv.do(http.MethodGet, "/ws", "http://evil.com", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWildcardOriginIsEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := CreateServer([]string{"*"})
	r.GET("/testroute", func(ctx *gin.Context) { ctx.String(http.StatusOK, "success") })

	req := httptest.NewRequest(http.MethodGet, "/testroute", nil)
	req.Header.Set("Origin", "https://any.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://any.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEmptyAllowListForbidsBrowsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var r *gin.Engine
	require.NotPanics(t, func() { r = CreateServer(nil) })
	r.GET("/testroute", func(ctx *gin.Context) { ctx.String(http.StatusOK, "success") })

	req := httptest.NewRequest(http.MethodGet, "/testroute", nil)
	req.Header.Set("Origin", "https://draw.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
