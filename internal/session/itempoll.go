package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/repository"
)

// ItemNotifier is implemented by whatever sends a notification frame
// over the transport; kept abstract here so this package doesn't need
// to know about protocol or transport types.
type ItemNotifier interface {
	NotifyNewItems(peer domain.PeerHandle, itemIDs []uint64)
}

// ItemPoller runs the periodic per-session inventory scan. A Redis
// cache holds each player's last-seen max item id; it is read only when
// seeding a session whose cursor is not yet initialised, and every tick
// on an initialised cursor still queries the inventory repository. A
// cache miss or Redis outage just falls through to the repository, so
// the poll degrades gracefully rather than failing.
type ItemPoller struct {
	log    *zap.Logger
	repo   repository.InventoryRepository
	redis  *redis.Client
	notify ItemNotifier
}

func NewItemPoller(repo repository.InventoryRepository, rdb *redis.Client, notify ItemNotifier, log *zap.Logger) *ItemPoller {
	return &ItemPoller{log: log, repo: repo, redis: rdb, notify: notify}
}

func cursorCacheKey(steamID uint64) string {
	return "gc:itemcursor:" + strconv.FormatUint(steamID, 10)
}

// Tick scans every authenticated session once.
func (p *ItemPoller) Tick(ctx context.Context, sessions []*domain.Session) {
	for _, s := range sessions {
		p.scanOne(ctx, s)
	}
}

func (p *ItemPoller) scanOne(ctx context.Context, s *domain.Session) {
	steamID := s.SteamID

	if _, initialized := s.ItemCursor(); !initialized {
		seed, err := p.cachedOrFetchMax(ctx, steamID)
		if err != nil {
			p.log.Warn("item poll: seed cursor failed", zap.Uint64("steam_id", steamID), zap.Error(err))
			return
		}
		s.InitItemCursor(seed)
		return
	}

	cursor, _ := s.ItemCursor()
	newIDs, err := p.repo.ItemsNewerThan(ctx, steamID, cursor)
	if err != nil {
		p.log.Warn("item poll: scan failed", zap.Uint64("steam_id", steamID), zap.Error(err))
		return
	}
	if len(newIDs) == 0 {
		return
	}

	max := cursor
	for _, id := range newIDs {
		if id > max {
			max = id
		}
	}
	s.AdvanceItemCursor(max)
	p.setCache(ctx, steamID, max)

	if p.notify != nil {
		p.notify.NotifyNewItems(s.Peer, newIDs)
	}
}

func (p *ItemPoller) cachedOrFetchMax(ctx context.Context, steamID uint64) (uint64, error) {
	if p.redis != nil {
		if v, err := p.redis.Get(ctx, cursorCacheKey(steamID)).Uint64(); err == nil {
			return v, nil
		}
	}
	max, err := p.repo.MaxItemID(ctx, steamID)
	if err != nil {
		return 0, err
	}
	p.setCache(ctx, steamID, max)
	return max, nil
}

func (p *ItemPoller) setCache(ctx context.Context, steamID, value uint64) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Set(ctx, cursorCacheKey(steamID), value, time.Hour).Err(); err != nil {
		p.log.Debug("item poll: cache set failed, continuing without cache", zap.Error(err))
	}
}
