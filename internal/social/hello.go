// Package social implements the player social service:
// hello/profile responses and the commend/report flows, all backed by
// the abstract repository contract.
package social

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/repository"
	"github.com/classiccounter/gcserver/internal/steamid"
)

const commendWindow = 90 * 24 * time.Hour // "3 months"
const reportWindow = 7 * 24 * time.Hour

// Service builds hello/profile responses and drives the commend and
// report flows. It depends only on repository.Repository so it can be
// exercised against an in-memory fake in tests.
type Service struct {
	repo repository.Repository
	log  *zap.Logger

	moderation ReportSink
}

// ReportSink is C8's consumption point: a successful report enqueues
// one ReportData per flagged type onto the moderation fan-out's
// pending batch.
type ReportSink interface {
	Enqueue(data domain.ReportData)
}

func NewService(repo repository.Repository, moderation ReportSink, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, moderation: moderation}
}

// HelloResponse is the payload built per session on RequestHello
//.
type HelloResponse struct {
	AccountID uint32

	PlayersOnline   int
	ServersAvail    int
	OngoingMatches  int
	SearchAvgSecs   int

	VACBanned bool
	RankID    uint32
	TotalWins uint32

	Friendly bool
	Teaching bool
	Leader   bool

	Cooldown *domain.Cooldown
}

// BuildHello assembles the hello payload for the given player. Global
// counters are left zero-valued; callers wiring the admin stats
// surface may populate them separately.
func (s *Service) BuildHello(ctx context.Context, steamID uint64) (HelloResponse, error) {
	accountID := steamid.AccountID(steamID)
	id2 := steamid.ID2(steamID)

	rating, err := s.repo.GetPlayerRating(ctx, steamID)
	if err != nil {
		s.log.Warn("rating lookup failed, using default", zap.Uint64("steam_id", steamID), zap.Error(err))
		rating = domain.DefaultRating()
	}

	banned, err := s.repo.IsBanned(ctx, id2)
	if err != nil {
		s.log.Warn("ban lookup failed", zap.Uint64("steam_id", steamID), zap.Error(err))
	}

	flags, err := s.repo.GetCommends(ctx, steamID)
	if err != nil {
		s.log.Warn("commend lookup failed", zap.Uint64("steam_id", steamID), zap.Error(err))
	}

	resp := HelloResponse{
		AccountID: accountID,
		VACBanned: banned,
		RankID:    rating.Rank,
		TotalWins: rating.Wins,
		Friendly:  flags.Friendly,
		Teaching:  flags.Teaching,
		Leader:    flags.Leader,
	}

	cooldown, err := s.repo.GetLatestCooldown(ctx, id2)
	if err != nil {
		s.log.Warn("cooldown lookup failed", zap.Uint64("steam_id", steamID), zap.Error(err))
	} else if cooldown != nil {
		resp.Cooldown = cooldown
	}

	return resp, nil
}

// ProfileView is the response to ViewProfile(accountId).
type ProfileView struct {
	AccountID     uint32
	RankID        uint32
	TotalWins     uint32
	Friendly      bool
	Teaching      bool
	Leader        bool
	Medals        []repository.Medal
	FeaturedIndex *uint32
}

// ViewProfile responds with a target's rank, wins, commendations, and
// display medals, including the single def-index equipped on both T
// and CT sides (if any) as the optional featured medal.
func (s *Service) ViewProfile(ctx context.Context, accountID uint32) (ProfileView, error) {
	targetSteamID := steamid.Synthetic(accountID)
	id2 := steamid.ID2(targetSteamID)

	rating, err := s.repo.GetPlayerRating(ctx, targetSteamID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("profile rating lookup: %w", err)
	}
	flags, err := s.repo.GetCommends(ctx, targetSteamID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("profile commend lookup: %w", err)
	}
	medals, err := s.repo.ListMedals(ctx, id2)
	if err != nil {
		return ProfileView{}, fmt.Errorf("profile medal lookup: %w", err)
	}

	view := ProfileView{
		AccountID: accountID,
		RankID:    rating.Rank,
		TotalWins: rating.Wins,
		Friendly:  flags.Friendly,
		Teaching:  flags.Teaching,
		Leader:    flags.Leader,
		Medals:    medals,
	}
	for _, m := range medals {
		if m.Featured {
			idx := m.DefIndex
			view.FeaturedIndex = &idx
			break
		}
	}
	return view, nil
}
