package protocol

import (
	"sync"
	"time"
)

// groupTimeout bounds how long an incomplete chunk group is held before
// being dropped. The transport is reliable (TCP or the platform's
// reliable channel), so this only guards against a peer that never
// finishes a multi-chunk send.
const groupTimeout = 30 * time.Second

type pendingGroup struct {
	msgType    uint32
	headerSize uint32
	chunkCount uint32
	received   [][]byte
	startedAt  time.Time
}

// Reassembler reconstructs chunked messages per peer. Frames for one
// logical message are assumed to arrive consecutively on the same peer
// and share (type, chunkCount); this matches the single-threaded
// per-peer receive loop that feeds it.
type Reassembler struct {
	mu     sync.Mutex
	groups map[string]*pendingGroup
}

func NewReassembler() *Reassembler {
	return &Reassembler{groups: make(map[string]*pendingGroup)}
}

// Message is one fully reassembled and decompressed logical message.
type Message struct {
	Type    uint32
	Payload []byte
}

// Feed ingests one decoded frame for peer and returns the reassembled,
// decompressed message once its chunk group is complete. complete is
// false while more chunks are expected. A decompression failure on the
// final chunk is reported as err with complete true.
func (r *Reassembler) Feed(peer string, f Frame) (msg Message, complete bool, err error) {
	r.mu.Lock()

	if f.ChunkCount <= 1 {
		r.mu.Unlock()
		payload, derr := DecodePayload(f.HeaderSize, f.Payload)
		return Message{Type: f.Type, Payload: payload}, true, derr
	}

	g := r.groups[peer]
	now := time.Now()
	if g == nil || g.msgType != f.Type || now.Sub(g.startedAt) > groupTimeout {
		g = &pendingGroup{msgType: f.Type, headerSize: f.HeaderSize, chunkCount: f.ChunkCount, startedAt: now}
		r.groups[peer] = g
	}
	g.received = append(g.received, f.Payload)

	if uint32(len(g.received)) < g.chunkCount {
		r.mu.Unlock()
		return Message{}, false, nil
	}

	total := 0
	for _, c := range g.received {
		total += len(c)
	}
	body := make([]byte, 0, total)
	for _, c := range g.received {
		body = append(body, c...)
	}
	msgType, headerSize := g.msgType, g.headerSize
	delete(r.groups, peer)
	r.mu.Unlock()

	payload, derr := DecodePayload(headerSize, body)
	return Message{Type: msgType, Payload: payload}, true, derr
}

// DropPeer discards any in-flight chunk group for peer, called on
// disconnect so a half-assembled message doesn't leak.
func (r *Reassembler) DropPeer(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, peer)
}
