// Package protocol implements the GC wire codec: a fixed 12-byte header
// followed by a payload, with optional chunking for large messages.
// Framing here is transport-independent; internal/transport adds the
// stream-level envelope (length prefix for TCP, datagram boundaries for
// P2P) around the bytes this package produces.
package protocol

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed 12-byte header: type, header size, chunk count.
const HeaderSize = 12

// protoMask is the high bit of the type field, set on every outgoing
// frame and stripped on receive.
const protoMask uint32 = 1 << 31

// maxChunkSize mirrors NetworkMessage::MAX_CHUNK_SIZE, the divisor
// DefaultChunkCount applies to the total size (8 + payload), so payloads
// of up to 1016 bytes ship in a single frame.
const maxChunkSize = 1024

// ErrMalformedFrame is returned when a buffer is shorter than the
// 12-byte header. The partial frame is discarded; the caller decides
// whether the session survives (it does, per the GC's error taxonomy).
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// Frame is one decoded wire unit. Type has already had the protocol
// marker stripped.
type Frame struct {
	Type       uint32
	HeaderSize uint32
	ChunkCount uint32
	Payload    []byte
}

// Encode serialises a single frame with the protocol marker set,
// ignoring chunking. Used internally by Chunk and directly for
// single-frame messages.
func Encode(msgType uint32, chunkCount uint32, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], msgType|protoMask)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], chunkCount)
	copy(buf[HeaderSize:], payload)
	return buf
}

// Decode parses one frame from raw, stripping the protocol marker from
// Type. Returns ErrMalformedFrame if raw is shorter than the header.
func Decode(raw []byte) (Frame, error) {
	if len(raw) < HeaderSize {
		return Frame{}, ErrMalformedFrame
	}
	typ := binary.LittleEndian.Uint32(raw[0:4]) &^ protoMask
	headerSize := binary.LittleEndian.Uint32(raw[4:8])
	chunkCount := binary.LittleEndian.Uint32(raw[8:12])
	payload := make([]byte, len(raw)-HeaderSize)
	copy(payload, raw[HeaderSize:])
	return Frame{Type: typ, HeaderSize: headerSize, ChunkCount: chunkCount, Payload: payload}, nil
}

// DefaultChunkCount mirrors the original NetworkMessage's chunking
// policy: ceil(GetTotalSize()/1024) with a floor of 1, where
// GetTotalSize is the type and header-size fields plus the payload
// (the chunk-count field itself is not counted, matching the source).
func DefaultChunkCount(payloadLen int) uint32 {
	totalSize := 8 + payloadLen
	k := (totalSize + maxChunkSize - 1) / maxChunkSize
	if k < 1 {
		k = 1
	}
	return uint32(k)
}

// Chunk splits payload into chunkCount wire frames, each carrying the
// identical header (same type, same chunk count). Chunk i has length
// ceil(N/chunkCount) except possibly the last, which absorbs the
// remainder; when N is too short to fill every chunk at that size, the
// trailing chunks are empty. chunkCount must be >= 1.
func Chunk(msgType uint32, chunkCount uint32, payload []byte) [][]byte {
	if chunkCount < 1 {
		chunkCount = 1
	}
	n := len(payload)
	size := (n + int(chunkCount) - 1) / int(chunkCount)
	if size == 0 {
		size = 1
	}
	frames := make([][]byte, 0, chunkCount)
	for offset := 0; offset < n; offset += size {
		end := offset + size
		if end > n {
			end = n
		}
		frames = append(frames, Encode(msgType, chunkCount, payload[offset:end]))
	}
	for uint32(len(frames)) < chunkCount {
		// pad with empty chunks so the receiver always sees chunkCount frames
		frames = append(frames, Encode(msgType, chunkCount, nil))
	}
	return frames
}
