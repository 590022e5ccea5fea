// Package transport implements the two wire carriers the GC accepts
// connections on: a TCP stream (game servers and tooling) and a
// platform P2P socket (game clients). Both satisfy Transport so the
// session and dispatch layers above never branch on which one a peer
// arrived over.
package transport

import (
	"context"
	"errors"

	"github.com/classiccounter/gcserver/internal/domain"
)

// ErrClosed is returned by NextMessage once the transport has shut down;
// messages still queued at that point are not guaranteed to be returned
// first.
var ErrClosed = errors.New("transport: closed")

// Inbound is one message popped off a transport's shared queue.
type Inbound struct {
	Peer domain.PeerHandle
	Data []byte
}

// Transport is the common contract both variants expose to upper
// layers: accept new peers, send a pre-framed message, and poll for the
// next inbound message. Implementations own their own accept loop and
// per-peer receive loops; this interface only surfaces what the
// dispatcher needs.
type Transport interface {
	// Run starts the accept loop and blocks until ctx is cancelled or
	// Shutdown is called, whichever comes first.
	Run(ctx context.Context) error

	// SendFramed writes already-framed bytes to peer. reliable is
	// advisory for transports that distinguish reliable/unreliable
	// channels (P2P); the TCP variant always sends reliably.
	SendFramed(peer domain.PeerHandle, framed []byte, reliable bool) error

	// NextMessage blocks until a message is available, ctx is done, or
	// the transport is shut down (ErrClosed).
	NextMessage(ctx context.Context) (Inbound, error)

	// Disconnect drops peer, closing its connection if applicable.
	Disconnect(peer domain.PeerHandle)

	// Shutdown stops accepting new peers and closes all existing ones.
	Shutdown()
}
