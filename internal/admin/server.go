// Package admin implements the operator-only HTTP/websocket surface
// added by this expansion (C9): health and stats endpoints plus a
// live-stats feed, never reachable by game clients or game servers.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/admin/handlers"
	"github.com/classiccounter/gcserver/internal/admin/middleware"
	adminws "github.com/classiccounter/gcserver/internal/admin/websocket"
)

const statsBroadcastInterval = 5 * time.Second

// Server is the admin HTTP/websocket listener, entirely separate from
// the game-facing transports.
type Server struct {
	httpServer *http.Server
	hub        *adminws.Hub
	source     handlers.StatsSource
	log        *zap.Logger
	stopCh     chan struct{}
}

func New(bindAddr string, corsOrigins []string, source handlers.StatsSource, log *zap.Logger) *Server {
	hub := adminws.NewHub(log)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(log))
	if len(corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}
	router.Use(middleware.RateLimit(20, 5))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/stats", handlers.NewStatsHandler(source).Stats)
	router.GET("/ws", func(c *gin.Context) {
		adminws.ServeWs(hub, log, c.Writer, c.Request)
	})

	return &Server{
		httpServer: &http.Server{Addr: bindAddr, Handler: router},
		hub:        hub,
		source:     source,
		log:        log,
		stopCh:     make(chan struct{}),
	}
}

// Run starts the HTTP listener, the websocket hub's dispatch loop, and
// the periodic stats broadcaster. Blocks until ListenAndServe returns.
func (s *Server) Run() error {
	go s.hub.Run(s.stopCh)
	go s.broadcastLoop()

	s.log.Info("admin surface listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(statsBroadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			total, available := s.source.ServerCounts()
			s.hub.Broadcast("stats", adminws.StatsSnapshot{
				QueueDepth:       s.source.QueueDepth(),
				ActiveMatches:    s.source.ActiveMatchCount(),
				ServersTotal:     total,
				ServersAvailable: available,
				SessionsOnline:   s.source.SessionsOnline(),
			})
		case <-s.stopCh:
			return
		}
	}
}

// Shutdown gracefully stops the HTTP listener and the hub/broadcast
// loop workers.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopCh)
	return s.httpServer.Shutdown(ctx)
}
