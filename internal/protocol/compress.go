package protocol

import "github.com/golang/snappy"

// compressThreshold gates the optional snappy compression layered on
// top of the original codec (the header_size field is reserved and
// unused by the source; this repurposes it as a compression flag
// without changing the wire contract for anything below the
// threshold).
const compressThreshold = 4096

// flagCompressed is the header_size value marking a snappy-compressed
// payload. Any other header_size value is uncompressed, preserving
// compatibility with frames from collaborators that don't compress.
const flagCompressed = 1

// EncodeMessage builds the wire frames for one logical message,
// compressing the payload first when it exceeds compressThreshold.
// Chunk count is computed from the (possibly compressed) payload size
// when requestedChunks is 0.
func EncodeMessage(msgType uint32, payload []byte, requestedChunks uint32) [][]byte {
	headerSize := uint32(0)
	body := payload
	if len(payload) > compressThreshold {
		body = snappy.Encode(nil, payload)
		headerSize = flagCompressed
	}

	chunkCount := requestedChunks
	if chunkCount == 0 {
		chunkCount = DefaultChunkCount(len(body))
	}

	frames := chunkWithHeaderSize(msgType, headerSize, chunkCount, body)
	return frames
}

func chunkWithHeaderSize(msgType, headerSize, chunkCount uint32, payload []byte) [][]byte {
	if chunkCount < 1 {
		chunkCount = 1
	}
	n := len(payload)
	size := (n + int(chunkCount) - 1) / int(chunkCount)
	if size == 0 {
		size = 1
	}
	var frames [][]byte
	for offset := 0; offset < n; offset += size {
		end := offset + size
		if end > n {
			end = n
		}
		frames = append(frames, encodeWithHeaderSize(msgType, headerSize, chunkCount, payload[offset:end]))
	}
	for uint32(len(frames)) < chunkCount {
		frames = append(frames, encodeWithHeaderSize(msgType, headerSize, chunkCount, nil))
	}
	return frames
}

func encodeWithHeaderSize(msgType, headerSize, chunkCount uint32, payload []byte) []byte {
	f := Encode(msgType, chunkCount, payload)
	// header_size occupies bytes [4:8]; Encode always writes 0 there.
	f[4] = byte(headerSize)
	f[5] = byte(headerSize >> 8)
	f[6] = byte(headerSize >> 16)
	f[7] = byte(headerSize >> 24)
	return f
}

// DecodePayload reverses EncodeMessage's compression step given a
// reassembled frame. Reassembler.Feed calls it once a group is complete,
// so the messages Feed returns are already decompressed; headerSize is
// the HeaderSize of any one frame in the group (identical across all
// chunks of a message).
func DecodePayload(headerSize uint32, body []byte) ([]byte, error) {
	if headerSize != flagCompressed {
		return body, nil
	}
	return snappy.Decode(nil, body)
}
