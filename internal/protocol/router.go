package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gameserver"
)

// transportSender is the narrow surface a Router needs from each
// transport variant; both internal/transport.TCP and .P2P satisfy it as
// part of the larger transport.Transport interface.
type transportSender interface {
	SendFramed(peer domain.PeerHandle, framed []byte, reliable bool) error
	Disconnect(peer domain.PeerHandle)
}

// serverLookup is the narrow capability the Router needs from the
// game-server registry to recover a server's peer handle from the
// address/port a Match carries (see internal/gameserver's
// FindByAddress doc comment for why the split exists).
type serverLookup interface {
	FindByAddress(address string, port uint16) (*domain.GameServerInfo, bool)
}

// Router multiplexes outbound sends across the two transport variants
// by inspecting the peer handle's prefix ("tcp-" vs "p2p-", assigned at
// accept time by internal/transport), and implements
// matchmaking.Notifier so the matchmaking engine never imports this
// package or internal/transport directly.
type Router struct {
	tcp     transportSender
	p2p     transportSender
	servers serverLookup
	log     *zap.Logger
}

func NewRouter(tcp, p2p transportSender, servers serverLookup, log *zap.Logger) *Router {
	return &Router{tcp: tcp, p2p: p2p, servers: servers, log: log}
}

func (r *Router) transportFor(peer domain.PeerHandle) transportSender {
	if strings.HasPrefix(string(peer), "tcp-") {
		return r.tcp
	}
	return r.p2p
}

// Send JSON-encodes payload, frames and chunks it, and writes every
// resulting frame to peer over whichever transport owns it.
func (r *Router) Send(peer domain.PeerHandle, msgType uint32, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("protocol: marshal message %d: %w", msgType, err)
	}

	t := r.transportFor(peer)
	if t == nil {
		return fmt.Errorf("protocol: no transport for peer %s", peer)
	}

	for _, frame := range EncodeMessage(msgType, data, 0) {
		if err := t.SendFramed(peer, frame, true); err != nil {
			return fmt.Errorf("protocol: send to %s: %w", peer, err)
		}
	}
	return nil
}

// sendLogged sends and logs (rather than propagates) a failure, for
// call sites that have no response path of their own: a failed
// notification send never fails the match itself.
func (r *Router) sendLogged(peer domain.PeerHandle, msgType uint32, payload interface{}) {
	if err := r.Send(peer, msgType, payload); err != nil {
		r.log.Warn("send failed", zap.String("peer", string(peer)), zap.Uint32("type", msgType), zap.Error(err))
	}
}

// SendMatchFound implements matchmaking.Notifier.
func (r *Router) SendMatchFound(peer domain.PeerHandle, match *domain.Match) {
	r.sendLogged(peer, MsgMatchmakingGC2ClientHello, MatchFoundPayload{
		MatchID:     match.MatchID,
		MapName:     match.MapName,
		AvgMMR:      match.AvgMMR,
		TeamA:       toMatchPlayerPayloads(match.TeamA),
		TeamB:       toMatchPlayerPayloads(match.TeamB),
		ReadyUpSecs: int(match.ReadyUpDeadline.Sub(match.CreatedTime).Seconds()),
	})
}

// SendMatchReady implements matchmaking.Notifier.
func (r *Router) SendMatchReady(peer domain.PeerHandle, match *domain.Match) {
	r.sendLogged(peer, MsgMatchmakingGC2ClientReserve, MatchReadyPayload{
		MatchID:       match.MatchID,
		MatchToken:    match.MatchToken,
		ServerAddress: match.ServerAddress,
		ServerPort:    match.ServerPort,
	})
}

// SendServerReserve implements matchmaking.Notifier. The engine only
// ever constructs server with Address/Port set (it tracks servers by
// address, not peer handle — see matchmaking/readyup.go), so the peer
// is recovered from the registry when not already present.
func (r *Router) SendServerReserve(server *domain.GameServerInfo, match *domain.Match, players []domain.MatchPlayer) {
	peer := server.Peer
	if peer == "" && r.servers != nil {
		if info, ok := r.servers.FindByAddress(server.Address, server.Port); ok {
			peer = info.Peer
		}
	}
	if peer == "" {
		r.log.Warn("server reserve: no peer for server", zap.String("address", server.Address), zap.Uint16("port", server.Port))
		return
	}
	reservation := gameserver.BuildServerReservation(match)
	r.sendLogged(peer, MsgMatchmakingGC2ServerReserve, ServerReservePayload{
		MatchID:    reservation.MatchID,
		MatchToken: reservation.MatchToken,
		MapName:    reservation.MapName,
		TeamA:      reservation.TeamA,
		TeamB:      reservation.TeamB,
	})
}

// NotifyNewItems implements session.ItemNotifier, letting the periodic
// item-change poll reach a client without internal/session importing
// this package.
func (r *Router) NotifyNewItems(peer domain.PeerHandle, itemIDs []uint64) {
	r.sendLogged(peer, MsgNewItemsNotify, NewItemsPayload{ItemIDs: itemIDs})
}

// Disconnect closes peer's underlying connection on whichever
// transport owns it.
func (r *Router) Disconnect(peer domain.PeerHandle) {
	if t := r.transportFor(peer); t != nil {
		t.Disconnect(peer)
	}
}
