package matchmaking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gcerr"
)

// Accept records a player's ready-up response. Re-accepting is a
// no-op. Once every slot has accepted, the match transitions to
// IN_PROGRESS.
func (e *Engine) Accept(steamID uint64) error {
	m, ok := e.MatchForPlayer(steamID)
	if !ok {
		return gcerr.ErrNotFound
	}
	if m.State() != domain.MatchWaitingForConfirmation {
		return gcerr.ErrConflict
	}
	if !m.SetAccepted(steamID, true) {
		return gcerr.ErrNotFound
	}
	if m.AllAccepted() {
		e.promoteToInProgress(m)
	}
	return nil
}

// Decline immediately abandons the match.
func (e *Engine) Decline(steamID uint64) error {
	m, ok := e.MatchForPlayer(steamID)
	if !ok {
		return gcerr.ErrNotFound
	}
	if m.State() != domain.MatchWaitingForConfirmation {
		return gcerr.ErrConflict
	}
	m.SetDeclined(steamID)
	e.abandon(m)
	return nil
}

// promoteToInProgress advances a match out of ready-up once every slot
// has accepted. The transition is a compare-and-set from
// WAITING_FOR_CONFIRMATION, so if the ready-up deadline tick has already
// abandoned this match on another goroutine, this call is a no-op rather
// than sending MatchReady/ServerReserve for a match that's being torn
// down.
func (e *Engine) promoteToInProgress(m *domain.Match) {
	if !m.TransitionIfState(domain.MatchWaitingForConfirmation, domain.MatchInProgress) {
		return
	}

	for _, p := range m.AllPlayers() {
		e.notifier.SendMatchReady(p.Peer, m)
	}
	info := &domain.GameServerInfo{Address: m.ServerAddress, Port: m.ServerPort}
	e.notifier.SendServerReserve(info, m, m.AllPlayers())
	e.log.Info("match ready", zap.Uint64("match_id", m.MatchID))
}

// checkReadyUpTimeouts scans WAITING_FOR_CONFIRMATION matches for an
// expired ready-up deadline and abandons them.
func (e *Engine) checkReadyUpTimeouts() {
	now := time.Now()
	e.matchLock.RLock()
	var expired []*domain.Match
	for _, m := range e.matches {
		if m.State() == domain.MatchWaitingForConfirmation && m.PastReadyUpDeadline(now) {
			expired = append(expired, m)
		}
	}
	e.matchLock.RUnlock()

	for _, m := range expired {
		e.abandon(m)
	}
}

// abandon releases the server, re-queues accepters into their original
// buckets, and drops non-accepters entirely. The transition is a
// compare-and-set from WAITING_FOR_CONFIRMATION, so a deadline-driven
// abandon (tick goroutine) and a Decline-driven abandon (dispatch
// goroutine) racing on the same match can't both win: whichever loses
// the CAS returns immediately, before touching the server reservation or
// the queue.
func (e *Engine) abandon(m *domain.Match) {
	if !m.TransitionIfState(domain.MatchWaitingForConfirmation, domain.MatchAbandoned) {
		return
	}
	e.releaseServerFor(m)

	for _, p := range m.AllPlayers() {
		e.matchLock.Lock()
		delete(e.playerToMatch, p.SteamID)
		e.matchLock.Unlock()

		if p.Accepted {
			rating, err := e.repo.GetPlayerRating(context.Background(), p.SteamID)
			if err != nil {
				rating = domain.DefaultRating()
			}
			entry := domain.NewQueueEntry(p.SteamID, p.Peer, rating, p.PreferredMaps, p.Region)
			e.queueLock.Lock()
			bracket := domain.Bracket(entry.Rating.MMR)
			e.buckets[bracket] = append(e.buckets[bracket], entry)
			e.byPlayer[entry.SteamID] = entry
			e.queueLock.Unlock()
		}
	}
	e.log.Info("match abandoned", zap.Uint64("match_id", m.MatchID))
}

func (e *Engine) releaseServerFor(m *domain.Match) {
	// The ServerAllocator indexes by serverSteamId, not address/port;
	// callers that need the mapping own it (internal/gameserver). The
	// engine only knows address/port, so gameserver.Registry looks the
	// server up by reservation (currentMatchId) instead — see
	// (*gameserver.Registry).ReleaseByMatch.
	if rel, ok := e.servers.(matchReleaser); ok {
		rel.ReleaseByMatch(m.MatchID)
	}
}

// matchReleaser is an optional capability some ServerAllocator
// implementations provide; kept separate so the minimal interface
// stays small for tests that fake ServerAllocator without it.
type matchReleaser interface {
	ReleaseByMatch(matchID uint64)
}

// Complete transitions an IN_PROGRESS match to COMPLETED on an
// end-of-match report from the server (or grace expiry, driven by the
// caller), persists the match log, releases the server, and applies
// rating updates for every participant.
func (e *Engine) Complete(ctx context.Context, matchID uint64, teamAWon bool) error {
	m, ok := e.Match(matchID)
	if !ok {
		return gcerr.ErrNotFound
	}
	if !m.TransitionIfState(domain.MatchInProgress, domain.MatchCompleted) {
		return gcerr.ErrConflict
	}
	e.releaseServerFor(m)

	teamAAvg, teamBAvg := teamAverage(m.TeamA), teamAverage(m.TeamB)
	e.updateRatings(ctx, m.TeamA, teamAAvg, teamBAvg, teamAWon)
	e.updateRatings(ctx, m.TeamB, teamBAvg, teamAAvg, !teamAWon)

	if err := e.repo.LogMatch(ctx, m); err != nil {
		e.log.Warn("log match failed", zap.Uint64("match_id", matchID), zap.Error(err))
	}
	if e.matchLog != nil {
		e.matchLog.Append(m, teamAWon)
	}

	for _, p := range m.AllPlayers() {
		e.matchLock.Lock()
		delete(e.playerToMatch, p.SteamID)
		e.matchLock.Unlock()
	}
	return nil
}

func (e *Engine) updateRatings(ctx context.Context, team []domain.MatchPlayer, ownAvg, enemyAvg uint32, won bool) {
	outcome := Loss
	if won {
		outcome = Win
	}
	for _, p := range team {
		rating, err := e.repo.GetPlayerRating(ctx, p.SteamID)
		if err != nil {
			rating = domain.DefaultRating()
		}
		updated := e.ratings.Apply(rating, ownAvg, enemyAvg, outcome)
		if err := e.repo.UpdatePlayerRating(ctx, p.SteamID, updated); err != nil {
			e.log.Warn("update player rating failed", zap.Uint64("steam_id", p.SteamID), zap.Error(err))
		}
	}
}

func teamAverage(team []domain.MatchPlayer) uint32 {
	var total uint32
	for _, p := range team {
		total += p.MMR
	}
	if len(team) == 0 {
		return 0
	}
	return total / uint32(len(team))
}

// cleanupAbandonedMatches removes terminal matches older than
// matchCleanupAge, erasing their player->match index entries.
func (e *Engine) cleanupAbandonedMatches() {
	cutoff := time.Now().Add(-e.cfg.MatchCleanupAge)

	e.matchLock.Lock()
	defer e.matchLock.Unlock()
	for id, m := range e.matches {
		if m.State().Terminal() && m.CreatedTime.Before(cutoff) {
			for _, p := range m.AllPlayers() {
				delete(e.playerToMatch, p.SteamID)
			}
			delete(e.matches, id)
		}
	}
}
