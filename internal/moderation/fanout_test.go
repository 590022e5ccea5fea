package moderation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

func TestFanout_BatchesReceiverWithinCoalesceWindow(t *testing.T) {
	var mu sync.Mutex
	var received []webhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	f := NewFanout(srv.URL, "", zap.NewNop())
	f.coalesceWindow = 20 * time.Millisecond

	f.Enqueue(domain.ReportData{SenderSteamID: 1, ReceiverSteamID: 100, ReportType: domain.ReportAimbot})
	f.Enqueue(domain.ReportData{SenderSteamID: 2, ReceiverSteamID: 100, ReportType: domain.ReportWallhack})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("got %d webhook posts, want 1 (batched)", len(received))
	}
	if len(received[0].Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(received[0].Embeds))
	}
	stats := received[0].Embeds[0].Fields[2].Value
	if stats == "" {
		t.Fatal("expected non-empty statistics field")
	}
}

func TestFanout_SeparateReceiversGetSeparateBatches(t *testing.T) {
	var mu sync.Mutex
	count := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFanout(srv.URL, "", zap.NewNop())
	f.coalesceWindow = 10 * time.Millisecond

	f.Enqueue(domain.ReportData{SenderSteamID: 1, ReceiverSteamID: 100, ReportType: domain.ReportAimbot})
	f.Enqueue(domain.ReportData{SenderSteamID: 1, ReceiverSteamID: 200, ReportType: domain.ReportGriefing})

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("got %d webhook posts, want 2 (one per receiver)", count)
	}
}

func TestFanout_NoWebhookURLIsNoop(t *testing.T) {
	f := NewFanout("", "", zap.NewNop())
	f.Enqueue(domain.ReportData{SenderSteamID: 1, ReceiverSteamID: 100, ReportType: domain.ReportAimbot})
	// No panic, no pending state, nothing to flush.
	if len(f.pending) != 0 {
		t.Fatal("expected enqueue to no-op when no webhook url is configured")
	}
}

func TestBuildPayload_RoleMention(t *testing.T) {
	p := buildPayload(42, "", []domain.ReportData{{SenderSteamID: 1, ReceiverSteamID: 42, ReportType: domain.ReportAimbot}}, "555")
	if p.Content == "" {
		t.Fatal("expected role mention in content when roleID is set")
	}
}
