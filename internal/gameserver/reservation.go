package gameserver

import "github.com/classiccounter/gcserver/internal/domain"

// Reservation is the payload buildServerReservation produces: the
// instruction a dedicated server needs to stand up a match, handed to
// the protocol layer for wire encoding.
type Reservation struct {
	MatchID    uint64
	MatchToken string
	MapName    string
	TeamA      []uint64
	TeamB      []uint64
}

// BuildServerReservation assembles the reservation payload for a
// match, grounded on the original source's buildServerReservation(matchId, players[], mapName).
func BuildServerReservation(match *domain.Match) Reservation {
	r := Reservation{
		MatchID:    match.MatchID,
		MatchToken: match.MatchToken,
		MapName:    match.MapName,
	}
	for _, p := range match.TeamA {
		r.TeamA = append(r.TeamA, p.SteamID)
	}
	for _, p := range match.TeamB {
		r.TeamB = append(r.TeamB, p.SteamID)
	}
	return r
}
