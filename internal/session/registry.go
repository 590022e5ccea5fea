// Package session implements the GC's peer→Session registry: the
// authentication gate, idle-timeout sweep, and per-session inventory
// poll.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gcerr"
	"github.com/classiccounter/gcserver/pkg/ratelimit"
)

// floodWindow and floodLimit bound how many messages one peer may send
// per window before AuthorizeMessage starts rejecting them; values
// mirror the admin surface's anti-abuse posture at a per-connection
// scale rather than per-IP.
const (
	floodWindow = time.Second
	floodLimit  = 30
)

// AuthTicketValidator is the external auth collaborator the session
// hands the platform-issued ticket to on the first message.
type AuthTicketValidator interface {
	Validate(ctx context.Context, ticket []byte) (steamID uint64, err error)
}

// MembershipTracker is implemented by the matchmaking engine so the
// registry can drop queue/match membership on idle disconnect without
// the two packages importing each other.
type MembershipTracker interface {
	DropPlayer(steamID uint64)
}

// Registry owns every connected peer's Session.
type Registry struct {
	log *zap.Logger

	idleTimeout time.Duration
	validator   AuthTicketValidator
	membership  MembershipTracker

	// flood is an optional distributed per-peer message cap; nil means
	// no limiting is applied (matches C7's lock-manager degrade pattern
	// when no Redis connection is configured).
	flood *ratelimit.RedisRateLimiter

	mu       sync.Mutex
	sessions map[domain.PeerHandle]*domain.Session
	byPlayer map[uint64]*domain.Session
}

func NewRegistry(idleTimeout time.Duration, validator AuthTicketValidator, membership MembershipTracker, log *zap.Logger) *Registry {
	return &Registry{
		log:         log,
		idleTimeout: idleTimeout,
		validator:   validator,
		membership:  membership,
		sessions:    make(map[domain.PeerHandle]*domain.Session),
		byPlayer:    make(map[uint64]*domain.Session),
	}
}

// Connect registers a new peer and returns its fresh, unauthenticated
// Session.
func (r *Registry) Connect(peer domain.PeerHandle) *domain.Session {
	s := domain.NewSession(peer)
	r.mu.Lock()
	r.sessions[peer] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(peer domain.PeerHandle) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[peer]
	return s, ok
}

func (r *Registry) GetByPlayer(steamID uint64) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byPlayer[steamID]
	return s, ok
}

// Disconnect removes a peer's session and, if it had authenticated,
// drops its matchmaking membership.
func (r *Registry) Disconnect(peer domain.PeerHandle) {
	r.mu.Lock()
	s, ok := r.sessions[peer]
	if ok {
		delete(r.sessions, peer)
		if s.IsAuthenticated() {
			delete(r.byPlayer, s.SteamID)
		}
	}
	r.mu.Unlock()

	if ok && s.IsAuthenticated() && r.membership != nil {
		r.membership.DropPlayer(s.SteamID)
	}
}

// Authenticate validates ticket for peer's session against the
// external auth collaborator and, on success, indexes the session by
// player id.
func (r *Registry) Authenticate(ctx context.Context, peer domain.PeerHandle, ticket []byte) (uint64, error) {
	s, ok := r.Get(peer)
	if !ok {
		return 0, gcerr.ErrSessionClosed
	}

	steamID, err := r.validator.Validate(ctx, ticket)
	if err != nil {
		return 0, err
	}

	s.Authenticate(steamID)

	r.mu.Lock()
	r.byPlayer[steamID] = s
	r.mu.Unlock()

	return steamID, nil
}

// Touch records activity on peer's session. Called on every inbound
// frame.
func (r *Registry) Touch(peer domain.PeerHandle) {
	if s, ok := r.Get(peer); ok {
		s.Touch()
	}
}

// SetFloodLimiter attaches a distributed per-peer message cap to the
// registry. Optional; call it before serving traffic once a Redis
// connection is available, or never, to run with no flood limiting.
func (r *Registry) SetFloodLimiter(flood *ratelimit.RedisRateLimiter) {
	r.flood = flood
}

// AuthorizeMessage enforces the pre-auth gate (unauthenticated sessions
// may only send the auth message itself) and, when a flood limiter is
// configured, the per-peer message rate cap.
func (r *Registry) AuthorizeMessage(ctx context.Context, peer domain.PeerHandle, isAuthMessage bool) error {
	s, ok := r.Get(peer)
	if !ok {
		return gcerr.ErrSessionClosed
	}
	if !s.IsAuthenticated() && !isAuthMessage {
		return gcerr.ErrUnauthorized
	}

	if r.flood != nil {
		allowed, err := r.flood.Allow(ctx, fmt.Sprintf("peer:%s", peer), floodLimit, floodWindow)
		if err != nil {
			r.log.Warn("flood check failed, allowing message", zap.String("peer", string(peer)), zap.Error(err))
		} else if !allowed {
			return gcerr.ErrRateLimited
		}
	}
	return nil
}

// SweepIdle disconnects peers whose sessions have been inactive longer
// than idleTimeout, returning the handles dropped so the caller can
// close their transport connections.
func (r *Registry) SweepIdle(now time.Time) []domain.PeerHandle {
	r.mu.Lock()
	var idle []domain.PeerHandle
	for peer, s := range r.sessions {
		if s.IdleSince(now) > r.idleTimeout {
			idle = append(idle, peer)
		}
	}
	r.mu.Unlock()

	for _, peer := range idle {
		r.Disconnect(peer)
	}
	return idle
}

// AuthenticatedSessions returns a snapshot of every authenticated session, used by
// the item-change poll worker.
func (r *Registry) AuthenticatedSessions() []*domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Session, 0, len(r.byPlayer))
	for _, s := range r.byPlayer {
		out = append(out, s)
	}
	return out
}

// Count returns the number of connected sessions, for admin stats.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
