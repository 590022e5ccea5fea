package domain

// PlayerSkillRating is a player's matchmaking profile.
type PlayerSkillRating struct {
	Rank  uint32 // 0..18
	Wins  uint32
	MMR   uint32 // default 1000
	Level uint32
}

// DefaultRating is the fallback profile used when a player's stored
// rating can't be loaded. Rank is fixed at 6 per the failure-path
// default rather than derived from RankForScore(1000)=9, since an
// unreadable rating shouldn't be treated as mid-ladder.
func DefaultRating() PlayerSkillRating {
	return PlayerSkillRating{MMR: 1000, Rank: 6}
}

// rankThresholds is the fixed step function mapping score to rank.
// Index i is the minimum score for rank i+1; scores below
// rankThresholds[0] are rank 0.
var rankThresholds = []uint32{
	100, 150, 200, 300, 400, 500, 600, 750, 900,
	1050, 1200, 1400, 1600, 1800, 2000, 2200, 2400, 2700,
}

// RankForScore maps a score to a rank 0..18. Monotonic non-decreasing;
// a score equal to a threshold belongs to the higher rank.
func RankForScore(score uint32) uint32 {
	rank := uint32(0)
	for _, threshold := range rankThresholds {
		if score >= threshold {
			rank++
			continue
		}
		break
	}
	return rank
}

// Bracket returns the integer MMR bucket a player with this rating
// belongs to: mmr / 100.
func Bracket(mmr uint32) uint32 {
	return mmr / 100
}
