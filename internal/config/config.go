package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/classiccounter/gcserver/internal/matchmaking"
)

// PlatformAppID is fixed; no environment override exists.
const PlatformAppID = 730

type Config struct {
	// Game-facing transport
	BindIP string
	Port   string

	// Admin surface (C9), separate listener from the game-facing one.
	AdminBind        string
	AdminCORSOrigins []string

	Env      string
	LogLevel string

	// Repository (C4)
	DatabaseURL string

	// Redis (C3 item-id cache, C7 distributed reservation lock);
	// optional — both degrade to in-memory-only behavior if unset or
	// unreachable at startup.
	RedisURL string

	// Moderation fan-out (C8)
	DiscordWebhookURL    string
	ModeratorRoleID      string

	// Session registry (C3)
	IdleTimeout time.Duration

	// Matchmaking (C6)
	Matchmaking  matchmaking.Config
	MatchLogPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BindIP:            getEnv("GC_BIND_IP", "0.0.0.0"),
		Port:              getEnv("GC_PORT", "27016"),
		AdminBind:         getEnv("GC_ADMIN_BIND", "127.0.0.1:27017"),
		AdminCORSOrigins:  splitCSV(getEnv("GC_ADMIN_CORS_ORIGINS", "")),
		Env:               getEnv("GC_ENV", "production"),
		LogLevel:          getEnv("GC_LOG_LEVEL", "info"),
		DatabaseURL:       getEnv("GC_DATABASE_URL", ""),
		RedisURL:          getEnv("GC_REDIS_URL", "redis://localhost:6379"),
		DiscordWebhookURL: getEnv("GC_DISCORD_WEBHOOK_URL", ""),
		ModeratorRoleID:   getEnv("GC_MODERATOR_ROLE_ID", ""),
		IdleTimeout:       parseDuration(getEnv("GC_IDLE_TIMEOUT", "60s")),
		Matchmaking:       matchmaking.DefaultConfig(),
		MatchLogPath:      getEnv("GC_MATCH_LOG_PATH", "matchlog.jsonl"),
	}

	cfg.Matchmaking.PlayersPerTeam = getEnvInt("GC_PLAYERS_PER_TEAM", cfg.Matchmaking.PlayersPerTeam)
	cfg.Matchmaking.ReadyUpTime = parseDuration(getEnv("GC_READY_UP_TIME", cfg.Matchmaking.ReadyUpTime.String()))
	cfg.Matchmaking.QueueCheckInterval = parseDuration(getEnv("GC_QUEUE_CHECK_INTERVAL", cfg.Matchmaking.QueueCheckInterval.String()))
	cfg.Matchmaking.MatchCleanupAge = parseDuration(getEnv("GC_MATCH_CLEANUP_AGE", cfg.Matchmaking.MatchCleanupAge.String()))
	cfg.Matchmaking.BaseMMRSpread = uint32(getEnvInt("GC_BASE_MMR_SPREAD", int(cfg.Matchmaking.BaseMMRSpread)))
	cfg.Matchmaking.MMRSpreadPerWaitStep = uint32(getEnvInt("GC_MMR_SPREAD_PER_WAIT_STEP", int(cfg.Matchmaking.MMRSpreadPerWaitStep)))
	cfg.Matchmaking.MMRSpreadWaitStep = parseDuration(getEnv("GC_MMR_SPREAD_WAIT_STEP", cfg.Matchmaking.MMRSpreadWaitStep.String()))

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
