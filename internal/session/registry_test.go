package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gcerr"
)

type fakeValidator struct {
	steamID uint64
	err     error
}

func (f *fakeValidator) Validate(_ context.Context, _ []byte) (uint64, error) {
	return f.steamID, f.err
}

type fakeMembership struct {
	dropped []uint64
}

func (f *fakeMembership) DropPlayer(steamID uint64) {
	f.dropped = append(f.dropped, steamID)
}

func newTestRegistry(validator AuthTicketValidator, membership MembershipTracker) *Registry {
	return NewRegistry(time.Minute, validator, membership, zap.NewNop())
}

func TestRegistry_ConnectAuthenticateDisconnect(t *testing.T) {
	validator := &fakeValidator{steamID: 76561198000000001}
	membership := &fakeMembership{}
	r := newTestRegistry(validator, membership)

	peer := domain.PeerHandle("tcp-1")
	r.Connect(peer)

	if _, ok := r.Get(peer); !ok {
		t.Fatal("expected session to exist after Connect")
	}

	steamID, err := r.Authenticate(context.Background(), peer, []byte("ticket"))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if steamID != validator.steamID {
		t.Fatalf("got steamID %d, want %d", steamID, validator.steamID)
	}

	if _, ok := r.GetByPlayer(steamID); !ok {
		t.Fatal("expected session to be indexed by player after auth")
	}

	r.Disconnect(peer)
	if _, ok := r.Get(peer); ok {
		t.Fatal("expected session to be gone after Disconnect")
	}
	if len(membership.dropped) != 1 || membership.dropped[0] != steamID {
		t.Fatalf("expected membership.DropPlayer(%d), got %v", steamID, membership.dropped)
	}
}

func TestRegistry_AuthenticateUnknownPeer(t *testing.T) {
	r := newTestRegistry(&fakeValidator{steamID: 1}, &fakeMembership{})
	_, err := r.Authenticate(context.Background(), domain.PeerHandle("tcp-missing"), []byte("x"))
	if err != gcerr.ErrSessionClosed {
		t.Fatalf("got %v, want ErrSessionClosed", err)
	}
}

func TestRegistry_AuthorizeMessageGatesPreAuth(t *testing.T) {
	r := newTestRegistry(&fakeValidator{steamID: 1}, &fakeMembership{})
	peer := domain.PeerHandle("tcp-1")
	r.Connect(peer)

	if err := r.AuthorizeMessage(context.Background(), peer, false); err != gcerr.ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized for an unauthenticated non-auth message", err)
	}
	if err := r.AuthorizeMessage(context.Background(), peer, true); err != nil {
		t.Fatalf("auth message itself should be allowed pre-auth: %v", err)
	}

	if _, err := r.Authenticate(context.Background(), peer, []byte("ticket")); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := r.AuthorizeMessage(context.Background(), peer, false); err != nil {
		t.Fatalf("authenticated session should pass: %v", err)
	}
}

func TestRegistry_AuthorizeMessageWithoutFloodLimiterAlwaysAllows(t *testing.T) {
	r := newTestRegistry(&fakeValidator{steamID: 1}, &fakeMembership{})
	peer := domain.PeerHandle("tcp-1")
	r.Connect(peer)
	if _, err := r.Authenticate(context.Background(), peer, []byte("ticket")); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	for i := 0; i < 1000; i++ {
		if err := r.AuthorizeMessage(context.Background(), peer, false); err != nil {
			t.Fatalf("unexpected error with no flood limiter configured: %v", err)
		}
	}
}

func TestRegistry_SweepIdle(t *testing.T) {
	membership := &fakeMembership{}
	r := newTestRegistry(&fakeValidator{steamID: 1}, membership)
	peer := domain.PeerHandle("tcp-1")
	s := r.Connect(peer)
	s.LastActivity = time.Now().Add(-2 * time.Minute)

	dropped := r.SweepIdle(time.Now())
	if len(dropped) != 1 || dropped[0] != peer {
		t.Fatalf("got dropped %v, want [%s]", dropped, peer)
	}
	if _, ok := r.Get(peer); ok {
		t.Fatal("expected idle session to be removed")
	}
}

func TestRegistry_AuthenticatedSessionsSnapshot(t *testing.T) {
	r := newTestRegistry(&fakeValidator{steamID: 42}, &fakeMembership{})
	peer := domain.PeerHandle("tcp-1")
	r.Connect(peer)

	if got := len(r.AuthenticatedSessions()); got != 0 {
		t.Fatalf("got %d authenticated sessions before auth, want 0", got)
	}

	if _, err := r.Authenticate(context.Background(), peer, []byte("ticket")); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	sessions := r.AuthenticatedSessions()
	if len(sessions) != 1 || sessions[0].SteamID != 42 {
		t.Fatalf("got %v, want one session with steamID 42", sessions)
	}
}

func TestRegistry_Count(t *testing.T) {
	r := newTestRegistry(&fakeValidator{steamID: 1}, &fakeMembership{})
	r.Connect(domain.PeerHandle("tcp-1"))
	r.Connect(domain.PeerHandle("tcp-2"))
	if got := r.Count(); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}
