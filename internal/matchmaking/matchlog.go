package matchmaking

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/classiccounter/gcserver/internal/domain"
)

// matchLogRecord is one line of the audit trail appended when a match
// completes.
type matchLogRecord struct {
	MatchID    uint64   `json:"match_id"`
	MatchToken string   `json:"match_token"`
	State      string   `json:"state"`
	MapName    string   `json:"map_name"`
	AvgMMR     uint32   `json:"avg_mmr"`
	TeamA      []uint64 `json:"team_a"`
	TeamB      []uint64 `json:"team_b"`
	TeamAWon   bool     `json:"team_a_won"`
	ClosedAt   string   `json:"closed_at"`
}

// MatchLogWriter appends a snappy-compressed JSONL audit trail of
// every completed match (abandoned matches are not logged), grounded on the replay writer's
// compressed-sink shape: one buffered snappy.Writer over a single
// append-only file, flushed after every record so a crash loses at
// most the in-flight line.
type MatchLogWriter struct {
	mu     sync.Mutex
	file   *os.File
	stream *snappy.Writer
}

func NewMatchLogWriter(path string) (*MatchLogWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("matchlog: open %s: %w", path, err)
	}
	return &MatchLogWriter{
		file:   f,
		stream: snappy.NewBufferedWriter(f),
	}, nil
}

func (w *MatchLogWriter) Append(m *domain.Match, teamAWon bool) {
	if w == nil {
		return
	}
	record := matchLogRecord{
		MatchID:    m.MatchID,
		MatchToken: m.MatchToken,
		State:      m.State().String(),
		MapName:    m.MapName,
		AvgMMR:     m.AvgMMR,
		TeamAWon:   teamAWon,
		ClosedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, p := range m.TeamA {
		record.TeamA = append(record.TeamA, p.SteamID)
	}
	for _, p := range m.TeamB {
		record.TeamB = append(record.TeamB, p.SteamID)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.stream.Write(line); err != nil {
		return
	}
	_ = w.stream.Flush()
}

func (w *MatchLogWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.stream.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
