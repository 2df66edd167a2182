package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/ayato-h/albumdrop/api/controllers"
	"github.com/ayato-h/albumdrop/api/middlewares"
	"github.com/ayato-h/albumdrop/api/notifyhub"
	"github.com/ayato-h/albumdrop/registry"
	"github.com/ayato-h/albumdrop/store"
	"github.com/ayato-h/albumdrop/tool"
)

// Server is the HTTP control API: thin session CRUD over the registry, album
// read/create over the store, plus the realtime websocket endpoint. All
// ingestion logic lives elsewhere.
type Server struct {
	port    int
	reg     *registry.Registry
	hub     *notifyhub.Hub
	st      store.Store
	host    string // advertised in session grants
	ftpPort int

	engine *gin.Engine
	server *http.Server
	mu     sync.RWMutex
}

func NewServer(port int, reg *registry.Registry, hub *notifyhub.Hub, st store.Store, host string, ftpPort int) *Server {
	return &Server{
		port:    port,
		reg:     reg,
		hub:     hub,
		st:      st,
		host:    host,
		ftpPort: ftpPort,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	sessionCtrl := controllers.NewSessionController(s.reg, s.host, s.ftpPort)
	albumCtrl := controllers.NewAlbumController(s.st)

	drop := engine.Group("/api/drop/v1", middlewares.OnlyAllowLocal)
	{
		drop.POST("/sessions", sessionCtrl.HandleStartSession)
		drop.GET("/sessions", sessionCtrl.HandleListSessions)
		drop.DELETE("/sessions", sessionCtrl.HandleResetAll)
		drop.POST("/test-credentials", sessionCtrl.HandleTestCredentials)
		drop.GET("/sessions/:username/qr", sessionCtrl.HandleSessionQR)
		drop.POST("/albums", albumCtrl.HandleCreateAlbum)
		drop.GET("/albums/:id", albumCtrl.HandleGetAlbum)
		drop.GET("/albums/:id/photos", albumCtrl.HandleListPhotos)
		drop.GET("/notify-ws", notifyhub.HandleNotifyWS(s.hub))
	}

	return engine
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: engine,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting control API on http://127.0.0.1:%d", s.port)
	return srv.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
