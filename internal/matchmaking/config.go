package matchmaking

import "time"

// MapPool is the nine canonical competitive maps, grounded on
// matchmaking_manager.hpp's fixed pool.
var MapPool = []string{
	"de_dust2", "de_mirage", "de_inferno", "de_nuke", "de_overpass",
	"de_cache", "de_train", "de_vertigo", "de_ancient",
}

// Config holds the matchmaking engine's tunables, all defaulted; every
// field except MapPool is overridable via environment in
// internal/config. Window selection uses BaseMMRSpread alone; the two
// wait-step fields are carried but not applied.
type Config struct {
	PlayersPerTeam       int
	ReadyUpTime          time.Duration
	QueueCheckInterval   time.Duration
	MatchCleanupAge      time.Duration
	BaseMMRSpread        uint32
	MMRSpreadPerWaitStep uint32 // per MMRSpreadWaitStep elapsed
	MMRSpreadWaitStep    time.Duration
	MapPool              []string
}

func DefaultConfig() Config {
	return Config{
		PlayersPerTeam:       5,
		ReadyUpTime:          30 * time.Second,
		QueueCheckInterval:   5 * time.Second,
		MatchCleanupAge:      5 * time.Minute,
		BaseMMRSpread:        300,
		MMRSpreadPerWaitStep: 100,
		MMRSpreadWaitStep:    30 * time.Second,
		MapPool:              MapPool,
	}
}

func (c Config) MatchSize() int {
	return 2 * c.PlayersPerTeam
}
