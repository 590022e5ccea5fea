// Package repository defines the GC's persistence contract. Every
// operation takes scalar parameters only; no caller may build SQL by
// concatenation.
package repository

import (
	"context"
	"time"

	"github.com/classiccounter/gcserver/internal/domain"
)

// Repository is the full persistence contract. The
// matchmaking, social, and moderation components depend only on this
// interface so they can be tested against an in-memory fake.
type Repository interface {
	GetPlayerRating(ctx context.Context, steamID uint64) (domain.PlayerSkillRating, error)
	UpdatePlayerRating(ctx context.Context, steamID uint64, rating domain.PlayerSkillRating) error
	LogMatch(ctx context.Context, m *domain.Match) error

	GetCommends(ctx context.Context, target uint64) (domain.CommendFlags, error)
	GetCommendTokens(ctx context.Context, sender uint64) (int, error)
	ListCommends(ctx context.Context, sender, target uint64, within time.Duration) (domain.CommendFlags, error)
	InsertCommend(ctx context.Context, sender, target uint64, typ domain.CommendType) error
	DeleteCommend(ctx context.Context, sender, target uint64, typ domain.CommendType) error

	GetReportTokens(ctx context.Context, sender uint64) (int, error)
	CountReports(ctx context.Context, sender, target uint64, within time.Duration) (int, error)
	InsertReport(ctx context.Context, sender, target uint64, types []domain.ReportType, matchID uint64) error

	IsBanned(ctx context.Context, steamID2 string) (bool, error)
	GetLatestCooldown(ctx context.Context, steamID2 string) (*domain.Cooldown, error)
	ListMedals(ctx context.Context, steamID2 string) ([]Medal, error)
}

// Medal is one entry in a player's displayable medal case: an
// equippable item def-index, optionally featured on both sides.
type Medal struct {
	DefIndex uint32
	Featured bool
}

// InventoryRepository backs C3's per-session item-change poll. It is
// kept separate from Repository because the original source queries it
// against a distinct database (networking.hpp's m_mysql2 "inventory"
// connection, versus m_mysql1 "classiccounter" for the rest).
type InventoryRepository interface {
	// MaxItemID returns the highest item id currently owned by steamID,
	// used to seed a session's cursor at connect time.
	MaxItemID(ctx context.Context, steamID uint64) (uint64, error)
	// ItemsNewerThan returns item ids owned by steamID with id > sinceID.
	ItemsNewerThan(ctx context.Context, steamID uint64, sinceID uint64) ([]uint64, error)
}
