package matchmaking

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// newMatchToken produces the opaque 16-byte hex match token handed to
// a match's players and its dedicated server, using uuid.New() purely
// as a random 16-byte source (the version/variant bits carried in a
// UUID are not meaningful here).
func newMatchToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
