// Package store persists the game registry to $DATA_DIR as an
// atomically-written JSON snapshot, and appends completed hands to a
// JSON-lines hand-history log (§6 persisted-state layout, §12).
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dstrand/pokerserver/internal/fileutil"
)

// GameSnapshot is the durable shape of one game: its Registry settings and
// seat list. The in-flight Hand is not persisted (§6).
type GameSnapshot struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	SmallBlind int          `json:"small_blind"`
	BigBlind   int          `json:"big_blind"`
	Ante       int          `json:"ante"`
	Structure  string       `json:"structure"`
	Seats      []SeatSnapshot `json:"seats"`
	HandCount  int          `json:"hand_count"`
}

// SeatSnapshot is one seat's durable state.
type SeatSnapshot struct {
	SeatID      int    `json:"seat_id"`
	DisplayName string `json:"display_name"`
	IsHuman     bool   `json:"is_human"`
	Chips       int    `json:"chips"`
}

// Snapshot is the top-level persisted document: every game the registry
// knew about at the time it was written.
type Snapshot struct {
	Games []GameSnapshot `json:"games"`
}

// HandHistoryEntry is one completed hand's record, appended to the
// hand-history log by the HandMonitor hook (§12).
type HandHistoryEntry struct {
	GameID    string   `json:"game_id"`
	HandID    string   `json:"hand_id"`
	Winners   []string `json:"winners"`
	PotTotal  int      `json:"pot_total"`
	Timestamp int64    `json:"timestamp"`
}

// Store reads and writes snapshot/history files under one data directory.
type Store struct {
	dataDir string
}

// New constructs a Store rooted at dataDir, creating it if necessary.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating data dir: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) snapshotPath() string { return filepath.Join(s.dataDir, "snapshot.json") }
func (s *Store) historyPath() string  { return filepath.Join(s.dataDir, "hand_history.jsonl") }

// SaveSnapshot atomically writes the full registry snapshot, replacing any
// prior one in a single rename (§6's "readers never see a partial file").
func (s *Store) SaveSnapshot(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshaling snapshot: %w", err)
	}
	return fileutil.WriteFileAtomic(s.snapshotPath(), data, 0o644)
}

// LoadSnapshot reads the last saved snapshot, or a zero-value Snapshot if
// none exists yet.
func (s *Store) LoadSnapshot() (Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("store: reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("store: decoding snapshot: %w", err)
	}
	return snap, nil
}

// AppendHandHistory appends one completed hand's record as a JSON line.
// Unlike the full snapshot, history is append-only and doesn't need the
// atomic-rename treatment.
func (s *Store) AppendHandHistory(entry HandHistoryEntry) error {
	f, err := os.OpenFile(s.historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: opening hand history: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: marshaling hand history entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("store: writing hand history: %w", err)
	}
	return nil
}
