package matchmaking

import (
	"math"

	"github.com/classiccounter/gcserver/internal/domain"
)

// RatingUpdater computes post-match MMR deltas. fixes how
// ratings persist (updatePlayerRating) but not the update formula
// itself; this adapts an Elo-style update — team average MMR as the
// effective opponent rating — with a provisional K-factor so new
// players converge faster, the way a ladder-based FPS typically tunes
// ranked play.
type RatingUpdater struct {
	defaultKFactor float64
}

func NewRatingUpdater() *RatingUpdater {
	return &RatingUpdater{defaultKFactor: 32}
}

// KFactor scales down as a player accumulates wins, used as a proxy for
// games played since PlayerSkillRating has no separate match-count
// field.
func (u *RatingUpdater) KFactor(wins uint32) float64 {
	switch {
	case wins < 10:
		return 40.0
	case wins < 20:
		return 32.0
	default:
		return 24.0
	}
}

// Outcome is a match result from one player's perspective. Draw is
// unreachable from the current ready-up state machine (every COMPLETED
// match has a winning side) but kept for completeness.
type Outcome float64

const (
	Win  Outcome = 1.0
	Draw Outcome = 0.5
	Loss Outcome = 0.0
)

// Apply returns the updated rating for a player given their team's
// average MMR, the enemy team's average MMR, and the match outcome.
func (u *RatingUpdater) Apply(rating domain.PlayerSkillRating, ownTeamAvgMMR, enemyTeamAvgMMR uint32, outcome Outcome) domain.PlayerSkillRating {
	expected := expectedScore(float64(ownTeamAvgMMR), float64(enemyTeamAvgMMR))
	k := u.KFactor(rating.Wins)

	delta := k * (float64(outcome) - expected)
	newMMR := float64(rating.MMR) + delta
	if newMMR < 0 {
		newMMR = 0
	}

	updated := rating
	updated.MMR = uint32(math.Round(newMMR))
	updated.Rank = domain.RankForScore(updated.MMR)
	if outcome == Win {
		updated.Wins++
	}
	return updated
}

func expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}
