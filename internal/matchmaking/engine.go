// Package matchmaking implements the GC's skill-based matchmaking
// engine: queue buckets, candidate-window selection,
// match creation, the ready-up state machine, and periodic cleanup.
package matchmaking

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/repository"
)

// ServerAllocator is C7's surface the engine needs: find a free server
// and reserve/release it atomically. Kept as an interface so this
// package never imports internal/gameserver directly.
type ServerAllocator interface {
	FindAvailableServer() (*domain.GameServerInfo, bool)
	AssignMatchToServer(serverSteamID, matchID uint64) bool
	ReleaseServer(serverSteamID uint64)
}

// Notifier is the wire-facing surface the engine drives; its
// implementation lives above internal/protocol and internal/transport.
type Notifier interface {
	SendMatchFound(peer domain.PeerHandle, match *domain.Match)
	SendMatchReady(peer domain.PeerHandle, match *domain.Match)
	SendServerReserve(server *domain.GameServerInfo, match *domain.Match, players []domain.MatchPlayer)
}

// Engine owns the queue buckets and active matches. Lock ordering
// matches the design note's discipline: queueLock -> matchLock ->
// serversLock (serversLock lives inside the ServerAllocator
// implementation) -> sessionsLock (owned by internal/session).
type Engine struct {
	cfg Config
	log *zap.Logger

	repo     repository.Repository
	servers  ServerAllocator
	notifier Notifier
	ratings  *RatingUpdater
	matchLog *MatchLogWriter

	queueLock sync.RWMutex
	buckets   map[uint32][]*domain.QueueEntry
	byPlayer  map[uint64]*domain.QueueEntry

	matchLock      sync.RWMutex
	matches        map[uint64]*domain.Match
	playerToMatch  map[uint64]uint64
	matchIDCounter atomic.Uint64

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewEngine(cfg Config, repo repository.Repository, servers ServerAllocator, notifier Notifier, matchLog *MatchLogWriter, log *zap.Logger) *Engine {
	return &Engine{
		cfg:           cfg,
		log:           log,
		repo:          repo,
		servers:       servers,
		notifier:      notifier,
		ratings:       NewRatingUpdater(),
		matchLog:      matchLog,
		buckets:       make(map[uint32][]*domain.QueueEntry),
		byPlayer:      make(map[uint64]*domain.QueueEntry),
		matches:       make(map[uint64]*domain.Match),
		playerToMatch: make(map[uint64]uint64),
		stopChan:      make(chan struct{}),
	}
}

func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.log.Info("starting matchmaking engine", zap.Duration("interval", e.cfg.QueueCheckInterval))
	e.wg.Add(1)
	go e.tickLoop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.stopChan)
	e.wg.Wait()
	e.log.Info("matchmaking engine stopped")
}

func (e *Engine) tickLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.QueueCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick()
		case <-e.stopChan:
			return
		}
	}
}

// tick runs the three periodic tasks in order.
func (e *Engine) tick() {
	ctx := context.Background()
	e.processQueue(ctx)
	e.checkReadyUpTimeouts()
	e.cleanupAbandonedMatches()
}

// Enqueue inserts a player into their skill bucket and immediately
// attempts a synchronous match. Returns gcerr.ErrConflict if the player is already
// queued or in a non-terminal match.
func (e *Engine) Enqueue(entry *domain.QueueEntry) error {
	e.queueLock.Lock()
	if _, already := e.byPlayer[entry.SteamID]; already {
		e.queueLock.Unlock()
		return errAlreadyQueued
	}
	e.matchLock.RLock()
	_, inMatch := e.playerToMatch[entry.SteamID]
	e.matchLock.RUnlock()
	if inMatch {
		e.queueLock.Unlock()
		return errAlreadyQueued
	}
	bracket := domain.Bracket(entry.Rating.MMR)
	e.buckets[bracket] = append(e.buckets[bracket], entry)
	e.byPlayer[entry.SteamID] = entry
	e.queueLock.Unlock()

	e.processQueue(context.Background())
	return nil
}

// DropPlayer removes a player from their queue bucket (if queued) and,
// if they're in a non-terminal match, leaves match cleanup to the
// ready-up timeout / abandonment path rather than forcing a state
// transition here — satisfies session.MembershipTracker.
func (e *Engine) DropPlayer(steamID uint64) {
	e.queueLock.Lock()
	if entry, ok := e.byPlayer[steamID]; ok {
		bracket := domain.Bracket(entry.Rating.MMR)
		e.removeFromBucketLocked(bracket, steamID)
		delete(e.byPlayer, steamID)
	}
	e.queueLock.Unlock()

	e.matchLock.RLock()
	matchID, inMatch := e.playerToMatch[steamID]
	e.matchLock.RUnlock()
	if inMatch {
		if m, ok := e.Match(matchID); ok {
			m.SetDeclined(steamID)
		}
	}
}

func (e *Engine) removeFromBucketLocked(bracket uint32, steamID uint64) {
	entries := e.buckets[bracket]
	for i, en := range entries {
		if en.SteamID == steamID {
			e.buckets[bracket] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(e.buckets[bracket]) == 0 {
		delete(e.buckets, bracket)
	}
}

func (e *Engine) Match(matchID uint64) (*domain.Match, bool) {
	e.matchLock.RLock()
	defer e.matchLock.RUnlock()
	m, ok := e.matches[matchID]
	return m, ok
}

func (e *Engine) MatchForPlayer(steamID uint64) (*domain.Match, bool) {
	e.matchLock.RLock()
	matchID, ok := e.playerToMatch[steamID]
	e.matchLock.RUnlock()
	if !ok {
		return nil, false
	}
	return e.Match(matchID)
}

// QueueDepth returns the total number of queued players, for admin
// stats.
func (e *Engine) QueueDepth() int {
	e.queueLock.RLock()
	defer e.queueLock.RUnlock()
	return len(e.byPlayer)
}

// ActiveMatchCount returns the number of non-terminal matches, for
// admin stats.
func (e *Engine) ActiveMatchCount() int {
	e.matchLock.RLock()
	defer e.matchLock.RUnlock()
	n := 0
	for _, m := range e.matches {
		if !m.State().Terminal() {
			n++
		}
	}
	return n
}

func sortedByMMR(entries []*domain.QueueEntry) []*domain.QueueEntry {
	out := make([]*domain.QueueEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Rating.MMR < out[j].Rating.MMR })
	return out
}
