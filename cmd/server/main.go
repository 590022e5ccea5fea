package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/admin"
	adminhandlers "github.com/classiccounter/gcserver/internal/admin/handlers"
	"github.com/classiccounter/gcserver/internal/auth"
	"github.com/classiccounter/gcserver/internal/config"
	"github.com/classiccounter/gcserver/internal/gameserver"
	"github.com/classiccounter/gcserver/internal/matchmaking"
	"github.com/classiccounter/gcserver/internal/moderation"
	"github.com/classiccounter/gcserver/internal/protocol"
	"github.com/classiccounter/gcserver/internal/repository/postgres"
	"github.com/classiccounter/gcserver/internal/session"
	"github.com/classiccounter/gcserver/internal/social"
	"github.com/classiccounter/gcserver/internal/transport"
	"github.com/classiccounter/gcserver/pkg/database"
	"github.com/classiccounter/gcserver/pkg/distributed"
	"github.com/classiccounter/gcserver/pkg/logger"
	"github.com/classiccounter/gcserver/pkg/ratelimit"
)

const (
	inboundQueueDepth    = 4096
	sessionSweepInterval = 10 * time.Second
	serverSweepInterval  = 15 * time.Second
	itemPollInterval     = 30 * time.Second
	redisDialTimeout     = 2 * time.Second
	shutdownGrace        = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.Init(cfg.LogLevel) // package-level logger used by pkg/database

	log.Info("starting gc server",
		zap.String("env", cfg.Env),
		zap.Int("platform_app_id", config.PlatformAppID),
		zap.String("bind", net.JoinHostPort(cfg.BindIP, cfg.Port)),
	)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("database connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.New(db)
	inventory := postgres.NewInventoryRepository(db)

	rdb := connectRedis(cfg.RedisURL, log)
	locks := newLockManager(rdb)

	matchLog, err := matchmaking.NewMatchLogWriter(cfg.MatchLogPath)
	if err != nil {
		log.Error("match log open failed", zap.Error(err))
		os.Exit(1)
	}
	defer matchLog.Close()

	serverRegistry := gameserver.NewRegistry(locks, log)

	bindAddr := net.JoinHostPort(cfg.BindIP, cfg.Port)
	tcpTransport := transport.NewTCP(bindAddr, inboundQueueDepth, log)
	p2pTransport := transport.NewP2P(bindAddr, inboundQueueDepth, log)

	router := protocol.NewRouter(tcpTransport, p2pTransport, serverRegistry, log)

	engine := matchmaking.NewEngine(cfg.Matchmaking, repo, serverRegistry, router, matchLog, log)

	sessions := session.NewRegistry(cfg.IdleTimeout, auth.NewTicketValidator(log), engine, log)
	if rdb != nil {
		sessions.SetFloodLimiter(ratelimit.NewRedisRateLimiterWithClient(rdb, "gc:flood:", 0, 0))
	}

	fanout := moderation.NewFanout(cfg.DiscordWebhookURL, cfg.ModeratorRoleID, log)
	socialSvc := social.NewService(repo, fanout, log)

	dispatcher := protocol.NewDispatcher(sessions, engine, socialSvc, serverRegistry, repo, inventory, router, log)
	itemPoller := session.NewItemPoller(inventory, rdb, router, log)

	stats := &statsSource{engine: engine, servers: serverRegistry, sessions: sessions}
	adminServer := admin.New(cfg.AdminBind, cfg.AdminCORSOrigins, stats, log)

	ctx, cancel := context.WithCancel(context.Background())

	engine.Start()
	defer engine.Stop()

	go runTransport(ctx, tcpTransport, dispatcher, log)
	go runTransport(ctx, p2pTransport, dispatcher, log)

	go func() {
		if err := adminServer.Run(); err != nil {
			log.Error("admin server exited", zap.Error(err))
		}
	}()

	stopWorkers := make(chan struct{})
	go runPeriodicWorkers(ctx, stopWorkers, sessions, serverRegistry, itemPoller, router, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	close(stopWorkers)
	cancel()
	tcpTransport.Shutdown()
	p2pTransport.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("admin server shutdown error", zap.Error(err))
	}

	log.Info("gc server exited cleanly")
}

// connectRedis attempts to reach Redis, used both for C7's distributed
// reservation lock and C3's item-cursor cache; an unset or unreachable
// URL degrades to nil, and every caller below treats a nil client as
// in-memory-only / uncached behavior.
func connectRedis(redisURL string, log *zap.Logger) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("redis url invalid, continuing without redis", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, continuing without redis", zap.Error(err))
		return nil
	}
	return client
}

func newLockManager(rdb *redis.Client) *distributed.RedisLockManager {
	if rdb == nil {
		return nil
	}
	return distributed.NewRedisLockManager(rdb)
}

// runTransport starts t's accept loop and feeds every inbound message
// to the dispatcher until ctx is cancelled.
func runTransport(ctx context.Context, t transport.Transport, dispatcher *protocol.Dispatcher, log *zap.Logger) {
	go func() {
		if err := t.Run(ctx); err != nil {
			log.Fatal("transport run exited", zap.Error(err))
		}
	}()

	for {
		msg, err := t.NextMessage(ctx)
		if err != nil {
			return
		}
		dispatcher.Dispatch(ctx, msg.Peer, msg.Data)
	}
}

// runPeriodicWorkers drives the session idle sweep, the game-server
// heartbeat sweep, and the per-session item-change poll, each on its
// own ticker per a one-worker-per-concern discipline.
func runPeriodicWorkers(
	ctx context.Context,
	stop <-chan struct{},
	sessions *session.Registry,
	servers *gameserver.Registry,
	itemPoller *session.ItemPoller,
	router *protocol.Router,
	log *zap.Logger,
) {
	sessionTicker := time.NewTicker(sessionSweepInterval)
	serverTicker := time.NewTicker(serverSweepInterval)
	itemTicker := time.NewTicker(itemPollInterval)
	defer sessionTicker.Stop()
	defer serverTicker.Stop()
	defer itemTicker.Stop()

	for {
		select {
		case <-sessionTicker.C:
			for _, peer := range sessions.SweepIdle(time.Now()) {
				log.Debug("idle session dropped", zap.String("peer", string(peer)))
				router.Disconnect(peer)
			}
		case <-serverTicker.C:
			servers.SweepIdle()
		case <-itemTicker.C:
			itemPoller.Tick(ctx, sessions.AuthenticatedSessions())
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// statsSource adapts the engine, game-server registry, and session
// registry into the narrow surface the admin stats endpoint needs
// (internal/admin/handlers.StatsSource), without that package importing
// any of the three directly.
type statsSource struct {
	engine   *matchmaking.Engine
	servers  *gameserver.Registry
	sessions *session.Registry
}

func (s *statsSource) QueueDepth() int          { return s.engine.QueueDepth() }
func (s *statsSource) ActiveMatchCount() int    { return s.engine.ActiveMatchCount() }
func (s *statsSource) ServerCounts() (int, int) { return s.servers.Count() }
func (s *statsSource) SessionsOnline() int      { return s.sessions.Count() }

var _ adminhandlers.StatsSource = (*statsSource)(nil)
