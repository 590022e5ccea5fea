// Package auth implements the session registry's external auth
// collaborator: validation of the opaque platform-issued ticket carried
// by a session's first message.
package auth

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

// minTicketLen is the smallest ticket this validator accepts: an
// 8-byte little-endian steamId64 plus at least one byte of the
// platform's own signed ticket blob, which is opaque to the GC and
// passed through unexamined.
const minTicketLen = 9

// TicketValidator extracts and trusts the steamId64 embedded at the
// front of a platform auth ticket. No Go binding for the platform's
// ISteamGameServer::BeginAuthSession callback exists, so this stands in
// for that round trip the same way internal/transport.P2P stands in for
// the native P2P socket: it preserves the caller-facing contract
// (ticket bytes in, steamId64 or error out) without the real backing
// service.
type TicketValidator struct {
	log *zap.Logger
}

func NewTicketValidator(log *zap.Logger) *TicketValidator {
	return &TicketValidator{log: log}
}

// Validate satisfies session.AuthTicketValidator.
func (v *TicketValidator) Validate(_ context.Context, ticket []byte) (uint64, error) {
	if len(ticket) < minTicketLen {
		return 0, fmt.Errorf("auth: ticket too short (%d bytes)", len(ticket))
	}
	steamID := binary.LittleEndian.Uint64(ticket[:8])
	if steamID == 0 {
		return 0, fmt.Errorf("auth: ticket carries a zero steam id")
	}
	v.log.Debug("ticket accepted", zap.Uint64("steam_id", steamID))
	return steamID, nil
}
