package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Mr8lueSky/cooplook-back/internal/auth"
	"github.com/Mr8lueSky/cooplook-back/internal/config"
	"github.com/Mr8lueSky/cooplook-back/internal/metrics"
	"github.com/Mr8lueSky/cooplook-back/internal/room"
	"github.com/Mr8lueSky/cooplook-back/internal/store"
)

// sourceFactory materializes video sources for rooms created or updated
// through the API.
type sourceFactory interface {
	FromRecord(ctx context.Context, rec *store.RoomRecord) (room.VideoSource, error)
}

// Server represents the REST API server
type Server struct {
	router   *gin.Engine
	rooms    *store.RoomRepository
	storage  *room.Storage
	authSvc  *auth.Service
	factory  sourceFactory
	metrics  *metrics.Metrics // may be nil
	upgrader websocket.Upgrader

	torrentFilesPath   string
	maxTorrentFileSize int64
}

// NewServer creates a new API server
func NewServer(
	rooms *store.RoomRepository,
	storage *room.Storage,
	authSvc *auth.Service,
	factory sourceFactory,
	cfg *config.TorrentConfig,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		rooms:   rooms,
		storage: storage,
		authSvc: authSvc,
		factory: factory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		torrentFilesPath:   cfg.TorrentFilesPath,
		maxTorrentFileSize: cfg.MaxTorrentFileSize,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// SetMetrics configures request instrumentation
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(func(c *gin.Context) {
		c.Next()
		slog.Info("API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	})

	// CORS for development
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	// Auth
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/auth/logout", s.logout)

	// Everything else requires a valid token cookie
	authed := api.Group("", s.authSvc.Middleware())

	// Rooms
	authed.GET("/rooms", s.listRooms)
	authed.POST("/rooms", s.createRoom)
	authed.GET("/rooms/:room_id", s.getRoom)
	authed.PUT("/rooms/:room_id", s.updateRoom)
	authed.PUT("/rooms/:room_id/source", s.updateRoomSource)
	authed.DELETE("/rooms/:room_id", s.deleteRoom)

	// Playback surfaces live outside /api: players and websockets hit
	// them directly.
	s.router.GET("/ws/:room_id", s.authSvc.Middleware(), s.roomWebsocket)
	s.router.GET("/files/:room_id/:file_ind", s.authSvc.Middleware(), s.serveFile)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Error response helper
func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
