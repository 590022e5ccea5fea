// Package moderation implements the moderation fan-out: batches reports per receiver over a short coalescing window
// and posts a structured notification to a Discord-style webhook.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classiccounter/gcserver/internal/domain"
)

const defaultCoalesceWindow = 5 * time.Second
const webhookTimeout = 10 * time.Second

// Fanout batches ReportData events per receiver and flushes each
// batch once the coalescing window, counted from the batch's first
// event, elapses; later events join the batch without moving that
// deadline. Delivery is
// at-most-once: a failed POST is logged and dropped, never retried
// (acceptable because the report itself is already durably stored by
// the time it reaches here).
type Fanout struct {
	mu      sync.Mutex
	pending map[uint64][]domain.ReportData
	timers  map[uint64]*time.Timer

	webhookURL     string
	roleID         string
	coalesceWindow time.Duration

	client *http.Client
	log    *zap.Logger
}

func NewFanout(webhookURL, roleID string, log *zap.Logger) *Fanout {
	return &Fanout{
		pending:        make(map[uint64][]domain.ReportData),
		timers:         make(map[uint64]*time.Timer),
		webhookURL:     webhookURL,
		roleID:         roleID,
		coalesceWindow: defaultCoalesceWindow,
		client:         &http.Client{Timeout: webhookTimeout},
		log:            log,
	}
}

// Enqueue adds a report to its receiver's pending batch, starting a
// coalescing timer on the batch's first event. Satisfies
// internal/social.ReportSink.
func (f *Fanout) Enqueue(data domain.ReportData) {
	if f.webhookURL == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	receiver := data.ReceiverSteamID
	f.pending[receiver] = append(f.pending[receiver], data)
	if _, scheduled := f.timers[receiver]; !scheduled {
		f.timers[receiver] = time.AfterFunc(f.coalesceWindow, func() { f.flush(receiver) })
	}
}

func (f *Fanout) flush(receiver uint64) {
	f.mu.Lock()
	batch := f.pending[receiver]
	delete(f.pending, receiver)
	delete(f.timers, receiver)
	f.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	payload := buildPayload(receiver, batch[0].ReceiverName, batch, f.roleID)
	if err := f.send(payload); err != nil {
		f.log.Error("discord webhook failed", zap.Uint64("receiver", receiver), zap.Int("reports", len(batch)), zap.Error(err))
		return
	}
	f.log.Info("discord notification sent", zap.Uint64("receiver", receiver), zap.Int("reports", len(batch)))
}

func (f *Fanout) send(payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
