package protocol

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	if err != ErrMalformedFrame {
		t.Fatalf("Decode(short) = %v, want ErrMalformedFrame", err)
	}
}

func TestChunkSizesScenario4(t *testing.T) {
	payload := make([]byte, 2500)
	frames := Chunk(42, 3, payload)
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	wantSizes := []int{12 + 834, 12 + 834, 12 + 832}
	for i, f := range frames {
		if len(f) != wantSizes[i] {
			t.Errorf("frame %d size = %d, want %d", i, len(f), wantSizes[i])
		}
	}
}

func TestRoundTripChunked(t *testing.T) {
	for _, k := range []uint32{1, 2, 3, 7} {
		payload := make([]byte, 2500)
		rand.New(rand.NewSource(int64(k))).Read(payload)

		frames := Chunk(99, k, payload)
		reasm := NewReassembler()

		var got Message
		for i, raw := range frames {
			f, err := Decode(raw)
			if err != nil {
				t.Fatalf("decode chunk %d: %v", i, err)
			}
			msg, complete, err := reasm.Feed("peer-1", f)
			if err != nil {
				t.Fatalf("feed chunk %d: %v", i, err)
			}
			if complete {
				got = msg
			}
		}

		if got.Type != 99 {
			t.Errorf("k=%d: type = %d, want 99", k, got.Type)
		}
		if !bytes.Equal(got.Payload, payload) {
			t.Errorf("k=%d: payload mismatch", k)
		}
	}
}

func TestDefaultChunkCountFloor(t *testing.T) {
	if got := DefaultChunkCount(10); got != 1 {
		t.Errorf("DefaultChunkCount(10) = %d, want 1", got)
	}
	if got := DefaultChunkCount(2000); got != 2 {
		t.Errorf("DefaultChunkCount(2000) = %d, want 2", got)
	}
}

func TestEncodeMessageCompressesLargePayloads(t *testing.T) {
	payload := bytes.Repeat([]byte("idle chatter idle chatter "), 500) // > 4096 bytes, highly compressible
	frames := EncodeMessage(7, payload, 0)

	reasm := NewReassembler()
	var got Message
	for _, raw := range frames {
		f, err := Decode(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		msg, complete, err := reasm.Feed("peer-2", f)
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		if complete {
			got = msg
		}
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatal("decompressed payload mismatch")
	}
}
