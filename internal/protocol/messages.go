package protocol

import "github.com/classiccounter/gcserver/internal/domain"

// Message type constants, the GC's own numbering for the wire table.
// Values are stable across releases; never renumber an existing
// constant.
const (
	MsgGCWelcome uint32 = 1 + iota
	MsgGCConfirmAuth
	MsgGCHeartbeat
	MsgAuthTicket // CL->GC, carries the opaque platform ticket

	MsgRequestHello               // CL->GC
	MsgBuildMatchmakingHello      // GC->CL, response to MsgRequestHello
	MsgViewPlayersProfileRequest  // CL->GC
	MsgViewPlayersProfileResponse // GC->CL

	MsgClientCommendPlayerQuery         // CL->GC
	MsgClientCommendPlayerQueryResponse // GC->CL
	MsgClientCommendPlayerRequest       // CL->GC, no response frame

	MsgClientReportPlayerRequest // CL->GC
	MsgClientReportPlayerResponse // GC->CL

	MsgMatchmakingEnqueueRequest // CL->GC, join queue
	MsgMatchmakingDequeueRequest // CL->GC, leave queue

	MsgMatchmakingGC2ClientHello   // GC->CL, MatchFound
	MsgMatchmakingGC2ClientReserve // GC->CL, MatchReady
	MsgMatchmakingAcceptRequest    // CL->GC, ready-up accept
	MsgMatchmakingDeclineRequest   // CL->GC, ready-up decline

	MsgServerRegister              // SV->GC
	MsgServerHeartbeat             // SV->GC
	MsgMatchmakingGC2ServerReserve // GC->SV, ServerReserve
	MsgServerMatchComplete         // SV->GC, end-of-match report

	MsgNewItemsNotify // GC->CL, C3's per-session item-change poll
)

// AuthTicketPayload carries the opaque platform ticket verbatim.
type AuthTicketPayload struct {
	Ticket []byte `json:"ticket"`
}

// ConfirmAuthPayload mirrors CC_GCConfirmAuth's ticket result code.
type ConfirmAuthPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// HelloPayload mirrors CC_BuildMatchmakingHello.
type HelloPayload struct {
	AccountID uint32 `json:"account_id"`

	PlayersOnline  int `json:"players_online"`
	ServersAvail   int `json:"servers_available"`
	OngoingMatches int `json:"ongoing_matches"`
	SearchAvgSecs  int `json:"search_avg_secs"`

	VACBanned bool   `json:"vac_banned"`
	RankID    uint32 `json:"rank_id"`
	TotalWins uint32 `json:"total_wins"`

	Friendly bool `json:"friendly"`
	Teaching bool `json:"teaching"`
	Leader   bool `json:"leader"`

	CooldownReason  string `json:"cooldown_reason,omitempty"`
	CooldownSeconds int64  `json:"cooldown_seconds,omitempty"`
}

// ViewProfileRequestPayload mirrors CC_ViewPlayersProfileRequest.
type ViewProfileRequestPayload struct {
	AccountID uint32 `json:"account_id"`
}

// ViewProfileResponsePayload mirrors CC_ViewPlayersProfileResponse.
type ViewProfileResponsePayload struct {
	AccountID     uint32   `json:"account_id"`
	RankID        uint32   `json:"rank_id"`
	TotalWins     uint32   `json:"total_wins"`
	Friendly      bool     `json:"friendly"`
	Teaching      bool     `json:"teaching"`
	Leader        bool     `json:"leader"`
	Medals        []uint32 `json:"medals"`
	FeaturedIndex *uint32  `json:"featured_index,omitempty"`
}

// CommendQueryRequestPayload mirrors CC_ClientCommendPlayerQuery.
type CommendQueryRequestPayload struct {
	TargetAccountID uint32 `json:"target_account_id"`
}

// CommendQueryResponsePayload carries the existing flags plus token count.
type CommendQueryResponsePayload struct {
	Friendly bool `json:"friendly"`
	Teaching bool `json:"teaching"`
	Leader   bool `json:"leader"`
	Tokens   int  `json:"tokens"`
}

// CommendRequestPayload mirrors CC_ClientCommendPlayerRequest.
type CommendRequestPayload struct {
	TargetAccountID uint32 `json:"target_account_id"`
	Friendly        bool   `json:"friendly"`
	Teaching        bool   `json:"teaching"`
	Leader          bool   `json:"leader"`
}

// ReportRequestPayload mirrors CC_CL2GC_ClientReportPlayer.
type ReportRequestPayload struct {
	TargetAccountID uint32 `json:"target_account_id"`
	Types           []int  `json:"types"`
	MatchID         uint64 `json:"match_id,omitempty"`
}

// ReportResponsePayload mirrors GC2CL_ClientReportResponse.
type ReportResponsePayload struct {
	Result int `json:"result"`
	Tokens int `json:"tokens"`
}

// EnqueueRequestPayload mirrors the queue-join request the client sends
// to enter matchmaking.
type EnqueueRequestPayload struct {
	PreferredMaps []string `json:"preferred_maps,omitempty"`
	Region        string   `json:"region,omitempty"`
}

// MatchPlayerPayload is one participant's slot as shipped over the wire.
type MatchPlayerPayload struct {
	AccountID uint32 `json:"account_id"`
	MMR       uint32 `json:"mmr"`
}

// MatchFoundPayload mirrors MatchmakingGC2ClientHello.
type MatchFoundPayload struct {
	MatchID    uint64               `json:"match_id"`
	MapName    string               `json:"map_name"`
	AvgMMR     uint32               `json:"avg_mmr"`
	TeamA      []MatchPlayerPayload `json:"team_a"`
	TeamB      []MatchPlayerPayload `json:"team_b"`
	ReadyUpSecs int                 `json:"ready_up_secs"`
}

// MatchReadyPayload mirrors MatchmakingGC2ClientReserve.
type MatchReadyPayload struct {
	MatchID       uint64 `json:"match_id"`
	MatchToken    string `json:"match_token"`
	ServerAddress string `json:"server_address"`
	ServerPort    uint16 `json:"server_port"`
}

// ServerReservePayload mirrors MatchmakingGC2ServerReserve: the
// dedicated server only needs the steam ids to seat players on
// connect, not their MMR.
type ServerReservePayload struct {
	MatchID    uint64   `json:"match_id"`
	MatchToken string   `json:"match_token"`
	MapName    string   `json:"map_name"`
	TeamA      []uint64 `json:"team_a"`
	TeamB      []uint64 `json:"team_b"`
}

// ServerRegisterPayload mirrors the dedicated server's registration
// announcement.
type ServerRegisterPayload struct {
	ServerSteamID uint64 `json:"server_steam_id"`
	Address       string `json:"address"`
	Port          uint16 `json:"port"`
}

// ServerHeartbeatPayload mirrors the dedicated server's liveness ping.
type ServerHeartbeatPayload struct {
	ServerSteamID uint64 `json:"server_steam_id"`
}

// NewItemsPayload notifies a session of inventory items acquired since
// its last cursor position.
type NewItemsPayload struct {
	ItemIDs []uint64 `json:"item_ids"`
}

// ServerMatchCompletePayload mirrors the server's end-of-match report.
type ServerMatchCompletePayload struct {
	MatchID  uint64 `json:"match_id"`
	TeamAWon bool   `json:"team_a_won"`
}

func toMatchPlayerPayloads(players []domain.MatchPlayer) []MatchPlayerPayload {
	out := make([]MatchPlayerPayload, len(players))
	for i, p := range players {
		out[i] = MatchPlayerPayload{AccountID: domain.LowAccountID(p.SteamID), MMR: p.MMR}
	}
	return out
}
