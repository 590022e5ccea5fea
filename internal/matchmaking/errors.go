package matchmaking

import (
	"fmt"

	"github.com/classiccounter/gcserver/internal/gcerr"
)

var errAlreadyQueued = fmt.Errorf("%w: player already queued or in a match", gcerr.ErrConflict)
