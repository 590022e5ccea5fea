package domain

import (
	"sync"
	"time"
)

// Session is the authenticated (or pre-auth) state the GC keeps for one
// connected peer. Identity is the pair of peer handle and player id; the
// peer handle is assigned by the transport layer at accept time and the
// player id is only known once the auth ticket has been validated.
type Session struct {
	mu sync.Mutex

	Peer       PeerHandle
	SteamID    uint64
	Authenticated bool

	LastActivity time.Time

	// LastCheckedItemID is the inventory item id cursor used by the
	// per-session item-change poll (C3). ItemIDInitialized is set at
	// connect time, not on first scan, resolved via an explicit connect-time seed.
	LastCheckedItemID  uint64
	ItemIDInitialized  bool

	// malformedFrames counts frames rejected as malformed within the
	// current 60s window; ten trips the fatal-to-session threshold.
	malformedFrames   int
	malformedWindowAt time.Time
}

// PeerHandle identifies a connection at the transport layer, independent
// of which transport variant (TCP or P2P) accepted it.
type PeerHandle string

func NewSession(peer PeerHandle) *Session {
	return &Session{
		Peer:         peer,
		LastActivity: time.Now(),
	}
}

func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
}

func (s *Session) IdleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.LastActivity)
}

func (s *Session) Authenticate(steamID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SteamID = steamID
	s.Authenticated = true
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Authenticated
}

// InitItemCursor seeds the item-id cursor at connect time rather than
// lazily on first scan, so items created between connect and the first
// tick are never missed.
func (s *Session) InitItemCursor(maxItemID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ItemIDInitialized {
		return
	}
	s.LastCheckedItemID = maxItemID
	s.ItemIDInitialized = true
}

func (s *Session) ItemCursor() (cursor uint64, initialized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastCheckedItemID, s.ItemIDInitialized
}

func (s *Session) AdvanceItemCursor(newMax uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newMax > s.LastCheckedItemID {
		s.LastCheckedItemID = newMax
	}
}

// RecordMalformedFrame returns true once ten malformed frames have been
// seen within one 60s window (a window opens at the first malformed
// frame seen once the previous window is over 60s old), signalling the
// caller should drop
// the session (fatal to the session only, never the process).
func (s *Session) RecordMalformedFrame(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.malformedWindowAt) > 60*time.Second {
		s.malformedWindowAt = now
		s.malformedFrames = 0
	}
	s.malformedFrames++
	return s.malformedFrames >= 10
}
