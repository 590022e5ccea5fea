// Package gcerr holds the sentinel errors shared across the GC's
// components, grouped by subsystem the way common practice groups service
// errors — a flat set of package vars rather than custom error types,
// checked with errors.Is after wrapping at each layer boundary.
package gcerr

import "errors"

// Session / auth errors.
var (
	ErrAuthFailed    = errors.New("auth failed")
	ErrUnauthorized  = errors.New("unauthorized: message sent before authentication")
	ErrSessionClosed = errors.New("session closed")
)

// Protocol errors.
var (
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Repository errors.
var (
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
)

// Social-service errors.
var (
	ErrRateLimited      = errors.New("rate limited: no tokens remaining")
	ErrAlreadyReported  = errors.New("already reported within cooldown window")
)

// Matchmaking / game-server errors.
var (
	ErrNoServerAvailable = errors.New("no server available")
	ErrTimeout           = errors.New("timeout")
	ErrConflict          = errors.New("conflicting state transition")
)
