package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

// maxDatagramSize bounds a single inbound P2P packet.
const maxDatagramSize = 64 * 1024

// P2P is the platform P2P socket transport game clients use. The
// platform's reliable-channel socket is datagram-shaped: unlike TCP,
// message boundaries are preserved by the carrier itself, so no length
// prefix is added here. No binding for the platform's native
// networking SDK exists in Go, so a UDP PacketConn stands in for it
// while preserving the same boundary and addressing semantics a real
// P2P socket would give: one packet in is one message in, one WriteTo
// is one message out.
type P2P struct {
	log *zap.Logger

	bindAddr string
	conn     net.PacketConn

	running atomic.Bool
	closeCh chan struct{}

	peersMu sync.Mutex
	peers   map[domain.PeerHandle]net.Addr

	queue chan Inbound
}

func NewP2P(bindAddr string, queueDepth int, log *zap.Logger) *P2P {
	return &P2P{
		log:      log,
		bindAddr: bindAddr,
		peers:    make(map[domain.PeerHandle]net.Addr),
		queue:    make(chan Inbound, queueDepth),
		closeCh:  make(chan struct{}),
	}
}

func (p *P2P) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", p.bindAddr)
	if err != nil {
		return fmt.Errorf("transport: p2p listen %s: %w", p.bindAddr, err)
	}
	p.conn = conn
	p.running.Store(true)

	go func() {
		<-ctx.Done()
		p.Shutdown()
	}()

	buf := make([]byte, maxDatagramSize)
	for p.running.Load() {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if !p.running.Load() {
				return nil
			}
			p.log.Warn("p2p read error", zap.Error(err))
			continue
		}
		peer := p.peerFor(addr)
		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case p.queue <- Inbound{Peer: peer, Data: data}:
		case <-p.closeCh:
			return nil
		default:
			p.log.Warn("p2p inbound queue full, dropping message", zap.String("peer", string(peer)))
		}
	}
	return nil
}

func (p *P2P) peerFor(addr net.Addr) domain.PeerHandle {
	handle := domain.PeerHandle("p2p-" + addr.String())
	p.peersMu.Lock()
	p.peers[handle] = addr
	p.peersMu.Unlock()
	return handle
}

func (p *P2P) SendFramed(peer domain.PeerHandle, framed []byte, _ bool) error {
	p.peersMu.Lock()
	addr, ok := p.peers[peer]
	p.peersMu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown p2p peer %s", peer)
	}
	if _, err := p.conn.WriteTo(framed, addr); err != nil {
		return fmt.Errorf("transport: send to %s: %w", peer, err)
	}
	return nil
}

func (p *P2P) NextMessage(ctx context.Context) (Inbound, error) {
	select {
	case msg := <-p.queue:
		return msg, nil
	case <-p.closeCh:
		return Inbound{}, ErrClosed
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

func (p *P2P) Disconnect(peer domain.PeerHandle) {
	p.peersMu.Lock()
	delete(p.peers, peer)
	p.peersMu.Unlock()
}

func (p *P2P) Shutdown() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	if p.conn != nil {
		p.conn.Close()
	}
	close(p.closeCh)
}
