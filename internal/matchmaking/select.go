package matchmaking

import (
	"context"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

// processQueue repeatedly selects and commits a match; re-entrant, so
// after creating a match it loops to attempt another. Each iteration's
// selection and commit happen under a single held queueLock (see
// selectAndCommit), so two concurrent processQueue passes — one from
// the tick loop, one from a direct Enqueue call on another goroutine —
// can never select overlapping windows over the same queue snapshot.
func (e *Engine) processQueue(ctx context.Context) {
	for {
		m, ok := e.selectAndCommit(ctx)
		if !ok {
			return
		}
		// Send outside queueLock/matchLock, per the lock-ordering
		// discipline: never send while holding queueLock or matchLock.
		for _, p := range m.AllPlayers() {
			e.notifier.SendMatchFound(p.Peer, m)
		}
	}
}

// selectAndCommit holds queueLock for the entire select, reserve, and
// commit sequence, so a player can never be placed into two
// overlapping candidate windows: every caller (the periodic tick and
// every transport's Enqueue path) serializes on this one lock rather
// than selecting from a released snapshot and committing later.
// Returns the created match and true on success, or nil and false if
// there's no eligible window or no server free to take it.
func (e *Engine) selectAndCommit(ctx context.Context) (*domain.Match, bool) {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()

	matchSize := e.cfg.MatchSize()
	if len(e.byPlayer) < matchSize {
		return nil, false
	}

	window := e.findWindowLocked(matchSize)
	if window == nil {
		return nil, false
	}

	server, ok := e.servers.FindAvailableServer()
	if !ok {
		e.log.Debug("no server available, deferring match creation", zap.Int("window", len(window)))
		return nil, false
	}

	matchID := e.matchIDCounter.Add(1)
	teamA, teamB := snakeDraft(window)
	mapName := pickMap(window, e.cfg.MapPool)
	avgMMR := averageMMR(window)
	token := newMatchToken()

	m := domain.NewMatch(matchID, token, teamA, teamB, mapName, avgMMR, e.cfg.ReadyUpTime)

	if !e.servers.AssignMatchToServer(server.ServerSteamID, matchID) {
		// Lost the race to another reservation path; leave the window
		// queued and stop this pass.
		return nil, false
	}
	m.SetServer(server.Address, server.Port)

	e.removeWindowFromQueueLocked(window)

	// State must be WAITING_FOR_CONFIRMATION before the match is published
	// into e.matches, so no reader can observe it still QUEUED.
	m.SetState(domain.MatchWaitingForConfirmation)

	e.matchLock.Lock()
	e.matches[matchID] = m
	for _, p := range m.AllPlayers() {
		e.playerToMatch[p.SteamID] = matchID
	}
	e.matchLock.Unlock()

	e.log.Info("match created",
		zap.Uint64("match_id", matchID),
		zap.String("map", mapName),
		zap.Uint32("avg_mmr", avgMMR),
	)
	return m, true
}

// findWindowLocked slides a window over the MMR-sorted queue looking
// for the first span within 2*baseMMRSpread. Caller must hold
// queueLock.
func (e *Engine) findWindowLocked(matchSize int) []*domain.QueueEntry {
	all := make([]*domain.QueueEntry, 0, len(e.byPlayer))
	for _, entries := range e.buckets {
		all = append(all, entries...)
	}

	sorted := sortedByMMR(all)
	maxSpread := 2 * e.cfg.BaseMMRSpread

	for start := 0; start+matchSize <= len(sorted); start++ {
		window := sorted[start : start+matchSize]
		spread := window[len(window)-1].Rating.MMR - window[0].Rating.MMR
		if spread <= maxSpread && allCompatible(window) {
			return window
		}
	}
	return nil
}

// allCompatible is an extension point reserved for region/prime
// pairing; MMR-closeness (enforced by the caller's spread check) is the
// only criterion implemented.
func allCompatible(_ []*domain.QueueEntry) bool {
	return true
}

// removeWindowFromQueueLocked removes every entry in window from its
// bucket and the byPlayer index. Caller must hold queueLock.
func (e *Engine) removeWindowFromQueueLocked(window []*domain.QueueEntry) {
	for _, entry := range window {
		bracket := domain.Bracket(entry.Rating.MMR)
		e.removeFromBucketLocked(bracket, entry.SteamID)
		delete(e.byPlayer, entry.SteamID)
	}
}

func averageMMR(window []*domain.QueueEntry) uint32 {
	var total uint32
	for _, e := range window {
		total += e.Rating.MMR
	}
	return total / uint32(len(window))
}

// snakeDraft distributes a sorted-by-MMR window into two teams, lowest
// and highest snaking onto alternating teams to minimize the
// team-average MMR gap.
func snakeDraft(window []*domain.QueueEntry) (teamA, teamB []domain.MatchPlayer) {
	sorted := sortedByMMR(window)
	for i, entry := range sorted {
		p := domain.MatchPlayer{
			SteamID:       entry.SteamID,
			Peer:          entry.Peer,
			MMR:           entry.Rating.MMR,
			PreferredMaps: entry.PreferredMaps,
			Region:        entry.Region,
		}
		round := i / 2
		onA := (round%2 == 0) == (i%2 == 0)
		if onA {
			teamA = append(teamA, p)
		} else {
			teamB = append(teamB, p)
		}
	}
	return teamA, teamB
}

// pickMap intersects every player's preferred maps with the pool; if
// the intersection is empty, picks from the pool using the sum of the
// window's steam ids as a deterministic seed (tests stay
// reproducible without a clock/RNG dependency).
func pickMap(window []*domain.QueueEntry, pool []string) string {
	counts := make(map[string]int, len(pool))
	for _, entry := range window {
		prefs := entry.PreferredMaps
		if len(prefs) == 0 {
			continue
		}
		for _, m := range prefs {
			counts[m]++
		}
	}

	for _, m := range pool {
		if counts[m] == len(window) {
			return m
		}
	}

	var seed uint64
	for _, entry := range window {
		seed += entry.SteamID
	}
	return pool[int(seed%uint64(len(pool)))]
}
