package domain

import (
	"sync/atomic"
	"time"
)

// QueueEntry is one player's matchmaking queue membership. Immutable
// after insert except AcceptedMatch,.
type QueueEntry struct {
	SteamID       uint64
	AccountID     uint32 // low32(SteamID)
	Peer          PeerHandle
	QueueTime     time.Time
	Rating        PlayerSkillRating
	PreferredMaps []string
	Region        string

	acceptedMatch atomic.Bool
}

func NewQueueEntry(steamID uint64, peer PeerHandle, rating PlayerSkillRating, preferredMaps []string, region string) *QueueEntry {
	return &QueueEntry{
		SteamID:       steamID,
		AccountID:     LowAccountID(steamID),
		Peer:          peer,
		QueueTime:     time.Now(),
		Rating:        rating,
		PreferredMaps: preferredMaps,
		Region:        region,
	}
}

func (q *QueueEntry) SetAccepted(v bool) { q.acceptedMatch.Store(v) }
func (q *QueueEntry) Accepted() bool     { return q.acceptedMatch.Load() }

// LowAccountID returns the low 32 bits of a platform 64-bit id.
func LowAccountID(steamID uint64) uint32 {
	return uint32(steamID & 0xFFFFFFFF)
}

// SyntheticSteamID64 derives a synthetic 64-bit id from a 32-bit account
// id: (1<<56)|(1<<52)|(1<<32)|account.
// Preserved exactly for persisted commend/report target compatibility.
func SyntheticSteamID64(accountID uint32) uint64 {
	return (uint64(1) << 56) | (uint64(1) << 52) | (uint64(1) << 32) | uint64(accountID)
}
