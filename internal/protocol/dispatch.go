// Package protocol implements the GC wire codec (Frame, chunking) and,
// in this file, the dispatcher that routes a reassembled message to
// whichever component (session, social, matchmaking, game-server
// registry) owns that message type.
package protocol

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
	"github.com/classiccounter/gcserver/internal/gameserver"
	"github.com/classiccounter/gcserver/internal/gcerr"
	"github.com/classiccounter/gcserver/internal/matchmaking"
	"github.com/classiccounter/gcserver/internal/repository"
	"github.com/classiccounter/gcserver/internal/session"
	"github.com/classiccounter/gcserver/internal/social"
)

// Dispatcher owns the switch from a reassembled (type, payload) pair to
// the component operation it invokes. One Dispatcher is shared by both
// transports; transport/session identity lives entirely in the peer
// handle.
type Dispatcher struct {
	sessions *session.Registry
	engine   *matchmaking.Engine
	social   *social.Service
	servers   *gameserver.Registry
	repo      repository.Repository
	inventory repository.InventoryRepository // optional; nil skips the connect-time item-cursor seed
	router    *Router

	reassembler *Reassembler
	log         *zap.Logger
}

func NewDispatcher(
	sessions *session.Registry,
	engine *matchmaking.Engine,
	socialSvc *social.Service,
	servers *gameserver.Registry,
	repo repository.Repository,
	inventory repository.InventoryRepository,
	router *Router,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		sessions:    sessions,
		engine:      engine,
		social:      socialSvc,
		servers:     servers,
		repo:        repo,
		inventory:   inventory,
		router:      router,
		reassembler: NewReassembler(),
		log:         log,
	}
}

// Dispatch decodes one inbound wire message for peer and, once fully
// reassembled, routes it. Malformed frames trip the session's
// malformed-frame counter rather than the process.
func (d *Dispatcher) Dispatch(ctx context.Context, peer domain.PeerHandle, raw []byte) {
	frame, err := Decode(raw)
	if err != nil {
		d.onMalformed(peer)
		return
	}

	msg, complete, err := d.reassembler.Feed(string(peer), frame)
	if err != nil {
		d.onMalformed(peer)
		return
	}
	if !complete {
		return
	}
	msgType, payload := msg.Type, msg.Payload

	if _, ok := d.sessions.Get(peer); !ok {
		d.sessions.Connect(peer)
	}
	d.sessions.Touch(peer)

	isAuthMessage := msgType == MsgAuthTicket || msgType == MsgServerRegister
	if err := d.sessions.AuthorizeMessage(ctx, peer, isAuthMessage); err != nil {
		d.log.Debug("message rejected pre-auth", zap.String("peer", string(peer)), zap.Uint32("type", msgType))
		return
	}

	switch msgType {
	case MsgAuthTicket:
		d.handleAuthTicket(ctx, peer, payload)
	case MsgGCHeartbeat:
		// liveness only; Touch above already refreshed the session.
	case MsgRequestHello:
		d.handleRequestHello(ctx, peer)
	case MsgViewPlayersProfileRequest:
		d.handleViewProfile(ctx, peer, payload)
	case MsgClientCommendPlayerQuery:
		d.handleCommendQuery(ctx, peer, payload)
	case MsgClientCommendPlayerRequest:
		d.handleCommendRequest(ctx, peer, payload)
	case MsgClientReportPlayerRequest:
		d.handleReportRequest(ctx, peer, payload)
	case MsgMatchmakingEnqueueRequest:
		d.handleEnqueue(ctx, peer, payload)
	case MsgMatchmakingDequeueRequest:
		d.handleDequeue(peer)
	case MsgMatchmakingAcceptRequest:
		d.handleAccept(peer)
	case MsgMatchmakingDeclineRequest:
		d.handleDecline(peer)
	case MsgServerRegister:
		d.handleServerRegister(ctx, peer, payload)
	case MsgServerHeartbeat:
		d.handleServerHeartbeat(payload)
	case MsgServerMatchComplete:
		d.handleServerMatchComplete(ctx, payload)
	default:
		d.log.Warn("unknown message type", zap.String("peer", string(peer)), zap.Uint32("type", msgType))
	}
}

// Disconnect cleans up everything the dispatcher itself owns for peer;
// queue/match membership cleanup happens inside session.Registry.Disconnect.
func (d *Dispatcher) Disconnect(peer domain.PeerHandle) {
	d.reassembler.DropPeer(string(peer))
	d.sessions.Disconnect(peer)
}

func (d *Dispatcher) onMalformed(peer domain.PeerHandle) {
	s, ok := d.sessions.Get(peer)
	if !ok {
		return
	}
	if s.RecordMalformedFrame(time.Now()) {
		d.log.Warn("dropping session after repeated malformed frames", zap.String("peer", string(peer)))
		d.router.Disconnect(peer)
		d.Disconnect(peer)
	}
}

func (d *Dispatcher) handleAuthTicket(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	var req AuthTicketPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}

	steamID, err := d.sessions.Authenticate(ctx, peer, req.Ticket)
	if err != nil {
		d.router.sendLogged(peer, MsgGCConfirmAuth, ConfirmAuthPayload{OK: false, Error: err.Error()})
		return
	}

	d.router.sendLogged(peer, MsgGCConfirmAuth, ConfirmAuthPayload{OK: true})
	d.router.sendLogged(peer, MsgGCWelcome, struct{}{})

	s, ok := d.sessions.Get(peer)
	if ok {
		var maxItemID uint64
		if d.inventory != nil {
			if id, err := d.inventory.MaxItemID(ctx, steamID); err != nil {
				d.log.Warn("item cursor seed failed", zap.Uint64("steam_id", steamID), zap.Error(err))
			} else {
				maxItemID = id
			}
		}
		s.InitItemCursor(maxItemID)
	}
	d.log.Info("session authenticated", zap.String("peer", string(peer)), zap.Uint64("steam_id", steamID))
}

func (d *Dispatcher) handleRequestHello(ctx context.Context, peer domain.PeerHandle) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	resp, err := d.social.BuildHello(ctx, s.SteamID)
	if err != nil {
		d.log.Warn("build hello failed", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
		return
	}

	payload := HelloPayload{
		AccountID: resp.AccountID,
		VACBanned: resp.VACBanned,
		RankID:    resp.RankID,
		TotalWins: resp.TotalWins,
		Friendly:  resp.Friendly,
		Teaching:  resp.Teaching,
		Leader:    resp.Leader,
	}
	if resp.Cooldown != nil {
		payload.CooldownReason = resp.Cooldown.Reason
		payload.CooldownSeconds = resp.Cooldown.SecondsRemaining
	}
	d.router.sendLogged(peer, MsgBuildMatchmakingHello, payload)
}

func (d *Dispatcher) handleViewProfile(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	var req ViewProfileRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}
	view, err := d.social.ViewProfile(ctx, req.AccountID)
	if err != nil {
		d.log.Warn("view profile failed", zap.Uint32("account_id", req.AccountID), zap.Error(err))
		return
	}

	medals := make([]uint32, len(view.Medals))
	for i, m := range view.Medals {
		medals[i] = m.DefIndex
	}
	d.router.sendLogged(peer, MsgViewPlayersProfileResponse, ViewProfileResponsePayload{
		AccountID:     view.AccountID,
		RankID:        view.RankID,
		TotalWins:     view.TotalWins,
		Friendly:      view.Friendly,
		Teaching:      view.Teaching,
		Leader:        view.Leader,
		Medals:        medals,
		FeaturedIndex: view.FeaturedIndex,
	})
}

func (d *Dispatcher) handleCommendQuery(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	var req CommendQueryRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}
	resp, err := d.social.CommendQuery(ctx, s.SteamID, domain.SyntheticSteamID64(req.TargetAccountID))
	if err != nil {
		d.log.Warn("commend query failed", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
		return
	}
	d.router.sendLogged(peer, MsgClientCommendPlayerQueryResponse, CommendQueryResponsePayload{
		Friendly: resp.Flags.Friendly,
		Teaching: resp.Flags.Teaching,
		Leader:   resp.Flags.Leader,
		Tokens:   resp.Tokens,
	})
}

func (d *Dispatcher) handleCommendRequest(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	var req CommendRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}
	if err := d.social.Commend(ctx, s.SteamID, social.CommendRequest{
		Target:   domain.SyntheticSteamID64(req.TargetAccountID),
		Friendly: req.Friendly,
		Teaching: req.Teaching,
		Leader:   req.Leader,
	}); err != nil {
		d.log.Warn("commend failed", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
	}
}

func (d *Dispatcher) handleReportRequest(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	var req ReportRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}

	types := make([]domain.ReportType, len(req.Types))
	for i, t := range req.Types {
		types[i] = domain.ReportType(t)
	}

	resp, err := d.social.Report(ctx, s.SteamID, social.ReportRequest{
		Target:  domain.SyntheticSteamID64(req.TargetAccountID),
		Types:   types,
		MatchID: req.MatchID,
	})
	if err != nil && !errors.Is(err, gcerr.ErrAlreadyReported) {
		d.log.Warn("report failed", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
		return
	}
	d.router.sendLogged(peer, MsgClientReportPlayerResponse, ReportResponsePayload{
		Result: int(resp.Result),
		Tokens: resp.Tokens,
	})
}

func (d *Dispatcher) handleEnqueue(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	var req EnqueueRequestPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}

	rating, err := d.repo.GetPlayerRating(ctx, s.SteamID)
	if err != nil {
		d.log.Warn("rating lookup failed, using default", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
		rating = domain.DefaultRating()
	}

	entry := domain.NewQueueEntry(s.SteamID, peer, rating, req.PreferredMaps, req.Region)
	if err := d.engine.Enqueue(entry); err != nil {
		d.log.Info("enqueue rejected", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
	}
}

func (d *Dispatcher) handleDequeue(peer domain.PeerHandle) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	d.engine.DropPlayer(s.SteamID)
}

func (d *Dispatcher) handleAccept(peer domain.PeerHandle) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	if err := d.engine.Accept(s.SteamID); err != nil {
		d.log.Debug("accept rejected", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
	}
}

func (d *Dispatcher) handleDecline(peer domain.PeerHandle) {
	s, ok := d.sessions.Get(peer)
	if !ok || !s.IsAuthenticated() {
		return
	}
	if err := d.engine.Decline(s.SteamID); err != nil {
		d.log.Debug("decline rejected", zap.Uint64("steam_id", s.SteamID), zap.Error(err))
	}
}

// handleServerRegister authenticates the dedicated server's peer using
// its steam id as the auth ticket payload (servers have no platform
// ticket of their own to present; this reuses the client auth path
// rather than duplicating a second gate) and then registers it with C7.
func (d *Dispatcher) handleServerRegister(ctx context.Context, peer domain.PeerHandle, payload []byte) {
	var req ServerRegisterPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.onMalformed(peer)
		return
	}

	// steam id in the first 8 bytes plus one opaque byte, the shortest
	// ticket the validator accepts
	ticket := make([]byte, 9)
	binary.LittleEndian.PutUint64(ticket, req.ServerSteamID)
	if _, err := d.sessions.Authenticate(ctx, peer, ticket); err != nil {
		d.log.Warn("server auth failed", zap.Uint64("server_steam_id", req.ServerSteamID), zap.Error(err))
		return
	}

	d.servers.Register(req.ServerSteamID, req.Address, req.Port, peer)
}

func (d *Dispatcher) handleServerHeartbeat(payload []byte) {
	var req ServerHeartbeatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	d.servers.Heartbeat(req.ServerSteamID)
}

func (d *Dispatcher) handleServerMatchComplete(ctx context.Context, payload []byte) {
	var req ServerMatchCompletePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	if err := d.engine.Complete(ctx, req.MatchID, req.TeamAWon); err != nil {
		d.log.Warn("match complete failed", zap.Uint64("match_id", req.MatchID), zap.Error(err))
	}
}
