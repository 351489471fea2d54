package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/manpreetbhatti/sketchrooms/internal/db"
	"github.com/manpreetbhatti/sketchrooms/internal/protocol"
	"github.com/manpreetbhatti/sketchrooms/internal/room"
	"github.com/manpreetbhatti/sketchrooms/internal/ws"
)

// JournalStats exposes the activity totals shown on /api/stats
type JournalStats interface {
	GetStats() (db.Stats, error)
}

type API struct {
	hub      *ws.Hub
	registry *room.Registry
	journal  JournalStats
	log      *slog.Logger
}

// New wires the handlers. journal may be nil when no journal is configured.
func New(hub *ws.Hub, registry *room.Registry, journal JournalStats, log *slog.Logger) *API {
	return &API{
		hub:      hub,
		registry: registry,
		journal:  journal,
		log:      log,
	}
}

// CreateServer builds the router. Requests carrying an Origin header outside
// allowedOrigins are rejected before reaching any handler except /health,
// which also skips CORS. The websocket upgrader applies the same policy.
func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	corsHandler := cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return ws.OriginAllowed(allowedOrigins, origin)
		},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	})

	r.Use(func(ctx *gin.Context) {
		if ctx.Request.URL.Path == "/health" {
			ctx.Next()
			return
		}
		if !ws.OriginAllowed(allowedOrigins, ctx.Request.Header.Get("Origin")) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden origin"})
			return
		}
		corsHandler(ctx)
	})

	return r
}

// Routes registers every endpoint on r
func (a *API) Routes(r *gin.Engine) {
	r.GET("/health", a.HealthHandler)
	r.GET("/ws", a.WebsocketHandler)

	api := r.Group("/api")
	api.GET("/stats", a.StatsHandler)
	api.GET("/rooms", a.ListRoomsHandler)
	api.POST("/rooms", a.CreateRoomHandler)
	api.GET("/rooms/:id", a.GetRoomHandler)
}

func errorResponse(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}

func (a *API) HealthHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type StatsResponse struct {
	ActiveRooms    int       `json:"activeRooms"`
	ActiveUsers    int       `json:"activeUsers"`
	ActiveSessions int       `json:"activeSessions"`
	Journal        *db.Stats `json:"journal,omitempty"`
	Timestamp      string    `json:"timestamp"`
}

func (a *API) StatsHandler(ctx *gin.Context) {
	rooms, users := a.registry.Occupancy()
	stats := StatsResponse{
		ActiveRooms:    rooms,
		ActiveUsers:    users,
		ActiveSessions: a.hub.SessionCount(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	if a.journal != nil {
		totals, err := a.journal.GetStats()
		if err != nil {
			a.log.Warn("Journal stats unavailable", "error", err)
		} else {
			stats.Journal = &totals
		}
	}

	ctx.JSON(http.StatusOK, stats)
}

func (a *API) ListRoomsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, a.registry.List())
}

func (a *API) GetRoomHandler(ctx *gin.Context) {
	r, ok := a.registry.Get(ctx.Param("id"))
	if !ok {
		errorResponse(ctx, http.StatusNotFound, room.ErrRoomNotFound.Error())
		return
	}
	ctx.JSON(http.StatusOK, r.Summary())
}

func (a *API) CreateRoomHandler(ctx *gin.Context) {
	var req protocol.CreateRoom
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(ctx, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := protocol.Validate(&req); err != nil {
		errorResponse(ctx, http.StatusBadRequest, "maxUsers must be between 1 and 100")
		return
	}

	maxUsers := 0
	if req.MaxUsers != nil {
		maxUsers = *req.MaxUsers
	}
	id := a.registry.Create(maxUsers)
	a.hub.RefreshLobby()

	ctx.JSON(http.StatusCreated, protocol.RoomCreated{RoomID: id})
}

func (a *API) WebsocketHandler(ctx *gin.Context) {
	ws.ServeWs(a.hub, ctx.Writer, ctx.Request)
}
