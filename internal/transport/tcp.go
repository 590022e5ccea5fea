package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

// lengthPrefixSize is the 4-byte little-endian length prefix TCP adds
// around the codec's own frames, needed because TCP itself carries no
// message boundaries.
const lengthPrefixSize = 4

// maxMessageSize bounds a single length-prefixed message so a
// corrupt or hostile prefix can't force an unbounded allocation.
const maxMessageSize = 16 * 1024 * 1024

// tcpPeer tracks one accepted connection.
type tcpPeer struct {
	conn net.Conn
	sendMu sync.Mutex
}

// TCP is the length-prefixed stream transport used by dedicated game
// servers and operator tooling, grounded on the original
// TCPNetworking's accept-thread + per-client receive-buffer design.
type TCP struct {
	log *zap.Logger

	bindAddr string
	listener net.Listener

	running atomic.Bool

	peersMu sync.Mutex
	peers   map[domain.PeerHandle]*tcpPeer
	nextID  atomic.Uint64

	queue   chan Inbound
	closeCh chan struct{}
}

func NewTCP(bindAddr string, queueDepth int, log *zap.Logger) *TCP {
	return &TCP{
		log:      log,
		bindAddr: bindAddr,
		peers:    make(map[domain.PeerHandle]*tcpPeer),
		queue:    make(chan Inbound, queueDepth),
		closeCh:  make(chan struct{}),
	}
}

func (t *TCP) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.bindAddr)
	if err != nil {
		return fmt.Errorf("transport: tcp listen %s: %w", t.bindAddr, err)
	}
	t.listener = ln
	t.running.Store(true)

	go func() {
		<-ctx.Done()
		t.Shutdown()
	}()

	for t.running.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if !t.running.Load() {
				return nil
			}
			t.log.Warn("tcp accept error", zap.Error(err))
			continue
		}
		peer := domain.PeerHandle(fmt.Sprintf("tcp-%d", t.nextID.Add(1)))
		p := &tcpPeer{conn: conn}
		t.peersMu.Lock()
		t.peers[peer] = p
		t.peersMu.Unlock()

		go t.receiveLoop(peer, p)
	}
	return nil
}

func (t *TCP) receiveLoop(peer domain.PeerHandle, p *tcpPeer) {
	defer t.dropPeer(peer)

	prefix := make([]byte, lengthPrefixSize)
	for t.running.Load() {
		if _, err := io.ReadFull(p.conn, prefix); err != nil {
			return
		}
		n := binary.LittleEndian.Uint32(prefix)
		if n == 0 || n > maxMessageSize {
			return
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(p.conn, body); err != nil {
			return
		}

		select {
		case t.queue <- Inbound{Peer: peer, Data: body}:
		case <-t.closeCh:
			return
		default:
			t.log.Warn("tcp inbound queue full, dropping message", zap.String("peer", string(peer)))
		}
	}
}

func (t *TCP) SendFramed(peer domain.PeerHandle, framed []byte, _ bool) error {
	t.peersMu.Lock()
	p, ok := t.peers[peer]
	t.peersMu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown tcp peer %s", peer)
	}

	prefixed := make([]byte, lengthPrefixSize+len(framed))
	binary.LittleEndian.PutUint32(prefixed, uint32(len(framed)))
	copy(prefixed[lengthPrefixSize:], framed)

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	written := 0
	for written < len(prefixed) {
		n, err := p.conn.Write(prefixed[written:])
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			t.dropPeer(peer)
			return fmt.Errorf("transport: send to %s: %w", peer, err)
		}
		written += n
	}
	return nil
}

func (t *TCP) NextMessage(ctx context.Context) (Inbound, error) {
	select {
	case msg := <-t.queue:
		return msg, nil
	case <-t.closeCh:
		return Inbound{}, ErrClosed
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	}
}

func (t *TCP) Disconnect(peer domain.PeerHandle) {
	t.dropPeer(peer)
}

func (t *TCP) dropPeer(peer domain.PeerHandle) {
	t.peersMu.Lock()
	p, ok := t.peers[peer]
	if ok {
		delete(t.peers, peer)
	}
	t.peersMu.Unlock()
	if ok {
		p.conn.Close()
	}
}

func (t *TCP) Shutdown() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	if t.listener != nil {
		t.listener.Close()
	}
	t.peersMu.Lock()
	peers := make([]*tcpPeer, 0, len(t.peers))
	for _, p := range t.peers {
		peers = append(peers, p)
	}
	t.peers = make(map[domain.PeerHandle]*tcpPeer)
	t.peersMu.Unlock()
	for _, p := range peers {
		p.conn.Close()
	}
	close(t.closeCh)
}
