package gameserver

import (
	"testing"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

func newTestRegistry() *Registry {
	return NewRegistry(nil, zap.NewNop())
}

func TestRegistry_FindAvailableServer(t *testing.T) {
	r := newTestRegistry()

	if _, ok := r.FindAvailableServer(); ok {
		t.Fatal("expected no server available before registration")
	}

	r.Register(1, "10.0.0.1", 27015, "peer-1")
	info, ok := r.FindAvailableServer()
	if !ok {
		t.Fatal("expected a server to be available")
	}
	if info.ServerSteamID != 1 {
		t.Fatalf("got server %d, want 1", info.ServerSteamID)
	}
}

func TestRegistry_UnauthenticatedServerNotSelectable(t *testing.T) {
	r := newTestRegistry()
	info := domain.NewGameServerInfo(1, "10.0.0.1", 27015, "peer-1")
	r.mu.Lock()
	r.servers[1] = info
	r.mu.Unlock()

	if _, ok := r.FindAvailableServer(); ok {
		t.Fatal("an unauthenticated server must never be selected")
	}
}

func TestRegistry_AssignAndRelease(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, "10.0.0.1", 27015, "peer-1")

	if !r.AssignMatchToServer(1, 42) {
		t.Fatal("expected assignment to succeed")
	}
	if _, ok := r.FindAvailableServer(); ok {
		t.Fatal("server should no longer be available once assigned")
	}

	r.ReleaseServer(1)
	if _, ok := r.FindAvailableServer(); !ok {
		t.Fatal("server should be available again after release")
	}
}

func TestRegistry_AssignTwiceFails(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, "10.0.0.1", 27015, "peer-1")

	if !r.AssignMatchToServer(1, 42) {
		t.Fatal("first assignment should succeed")
	}
	if r.AssignMatchToServer(1, 43) {
		t.Fatal("second assignment should fail, server already reserved")
	}
}

func TestRegistry_ReleaseByMatch(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, "10.0.0.1", 27015, "peer-1")
	r.AssignMatchToServer(1, 42)

	r.ReleaseByMatch(42)
	if _, ok := r.FindAvailableServer(); !ok {
		t.Fatal("expected server released after ReleaseByMatch")
	}
}

func TestRegistry_CountReflectsAvailability(t *testing.T) {
	r := newTestRegistry()
	r.Register(1, "10.0.0.1", 27015, "peer-1")
	r.Register(2, "10.0.0.2", 27015, "peer-2")
	r.AssignMatchToServer(1, 42)

	total, available := r.Count()
	if total != 2 || available != 1 {
		t.Fatalf("got total=%d available=%d, want total=2 available=1", total, available)
	}
}

func TestBuildServerReservation(t *testing.T) {
	teamA := []domain.MatchPlayer{{SteamID: 1}, {SteamID: 2}}
	teamB := []domain.MatchPlayer{{SteamID: 3}, {SteamID: 4}}
	m := domain.NewMatch(42, "abc123", teamA, teamB, "de_dust2", 1000, 0)

	res := BuildServerReservation(m)
	if res.MatchID != 42 || res.MatchToken != "abc123" || res.MapName != "de_dust2" {
		t.Fatalf("unexpected reservation: %+v", res)
	}
	if len(res.TeamA) != 2 || len(res.TeamB) != 2 {
		t.Fatalf("expected 2 players per team, got teamA=%d teamB=%d", len(res.TeamA), len(res.TeamB))
	}
}
