// Package gameserver implements the game-server registry: registration, heartbeats, availability, and reservation of
// dedicated servers to matches.
package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/pkg/distributed"
)

// heartbeatTimeout is the interval after which a server with no
// heartbeat is considered disconnected.
const heartbeatTimeout = 30 * time.Second

const lockTTL = 10 * time.Second

// lockOwner identifies this process instance's locks; distinguishing
// who holds a reservation lock only matters across GC instances, which
// this single-process registry never is, but the lock primitive
// requires a value.
const lockOwner = "gc-registry"

// Registry tracks every connected dedicated server and reserves them
// to matches. The in-process mutex guards the map; the optional
// distributed lock (when Redis is reachable) guards the reservation
// decision across any future multi-instance GC deployment without
// changing single-instance behavior.
type Registry struct {
	mu      sync.RWMutex
	servers map[uint64]*domain.GameServerInfo // keyed by serverSteamId

	locks *distributed.RedisLockManager // nil if redis unavailable
	log   *zap.Logger
}

func NewRegistry(locks *distributed.RedisLockManager, log *zap.Logger) *Registry {
	return &Registry{
		servers: make(map[uint64]*domain.GameServerInfo),
		locks:   locks,
		log:     log,
	}
}

// Register records a newly connected, authenticated dedicated server.
func (r *Registry) Register(serverSteamID uint64, address string, port uint16, peer domain.PeerHandle) *domain.GameServerInfo {
	info := domain.NewGameServerInfo(serverSteamID, address, port, peer)
	info.IsAuthenticated = true

	r.mu.Lock()
	r.servers[serverSteamID] = info
	r.mu.Unlock()

	r.log.Info("game server registered",
		zap.Uint64("server_steam_id", serverSteamID),
		zap.String("address", address),
		zap.Uint16("port", port),
	)
	return info
}

// Unregister removes a server on disconnect.
func (r *Registry) Unregister(serverSteamID uint64) {
	r.mu.Lock()
	delete(r.servers, serverSteamID)
	r.mu.Unlock()
}

// Heartbeat resets a server's lastHeartbeat.
func (r *Registry) Heartbeat(serverSteamID uint64) {
	r.mu.RLock()
	info, ok := r.servers[serverSteamID]
	r.mu.RUnlock()
	if ok {
		info.Heartbeat()
	}
}

// FindAvailableServer returns any server with isAvailable=true and
// isAuthenticated=true. Selection policy is first-seen wins; iteration
// order over a Go map is randomized, which is an acceptable substitute
// for "first-seen" absent a second index, since any authenticated,
// available server satisfies the contract.
func (r *Registry) FindAvailableServer() (*domain.GameServerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.servers {
		if info.IsAuthenticated && info.IsAvailable() {
			return info, true
		}
	}
	return nil, false
}

// AssignMatchToServer atomically flips a server to unavailable and
// records the match id, guarded first by the in-process mutex (always)
// and, when Redis is reachable, additionally by a distributed lock so
// a future multi-instance GC deployment can't double-book a server.
func (r *Registry) AssignMatchToServer(serverSteamID, matchID uint64) bool {
	r.mu.RLock()
	info, ok := r.servers[serverSteamID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if r.locks != nil {
		lockKey := fmt.Sprintf("gcserver:reservation:%d", serverSteamID)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lock, err := r.locks.AcquireLock(ctx, lockKey, lockOwner, lockTTL)
		cancel()
		if err != nil {
			r.log.Warn("reservation lock unavailable, proceeding on in-process mutex only",
				zap.Uint64("server_steam_id", serverSteamID), zap.Error(err))
		} else {
			defer func() {
				releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer releaseCancel()
				_ = lock.Release(releaseCtx)
			}()
		}
	}

	return info.Reserve(matchID)
}

// ReleaseServer is the inverse of AssignMatchToServer.
func (r *Registry) ReleaseServer(serverSteamID uint64) {
	r.mu.RLock()
	info, ok := r.servers[serverSteamID]
	r.mu.RUnlock()
	if ok {
		info.Release()
	}
}

// ReleaseByMatch releases whichever server currently holds matchID,
// satisfying the matchmaking package's optional matchReleaser
// capability — the engine only knows a match id, not which server
// holds it.
func (r *Registry) ReleaseByMatch(matchID uint64) {
	r.mu.RLock()
	var target *domain.GameServerInfo
	for _, info := range r.servers {
		if !info.IsAvailable() && info.CurrentMatchID == matchID {
			target = info
			break
		}
	}
	r.mu.RUnlock()
	if target != nil {
		target.Release()
	}
}

// SweepIdle releases (and logs) any server that hasn't sent a
// heartbeat within heartbeatTimeout, clearing whatever match it held.
func (r *Registry) SweepIdle() {
	now := time.Now()

	r.mu.Lock()
	var stale []uint64
	for id, info := range r.servers {
		if info.IdleSince(now) > heartbeatTimeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(r.servers, id)
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.log.Warn("game server missed heartbeat, dropping", zap.Uint64("server_steam_id", id))
	}
}

// FindByAddress looks up a server by its advertised address and port,
// used by protocol.Router to recover a game server's peer handle when
// all the engine itself tracked for a match is address/port (see
// matchmaking/readyup.go's releaseServerFor comment on the same split).
func (r *Registry) FindByAddress(address string, port uint16) (*domain.GameServerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.servers {
		if info.Address == address && info.Port == port {
			return info, true
		}
	}
	return nil, false
}

// Count returns the number of currently registered servers, for admin
// stats.
func (r *Registry) Count() (total, available int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.servers {
		total++
		if info.IsAvailable() {
			available++
		}
	}
	return total, available
}
