// Package monitor persists completed-hand outcomes for durability, mirroring
// the teacher's hand_runner.go metrics hooks without reimplementing full
// statistics aggregation (§12, explicitly out of scope per §1).
package monitor

import (
	"strconv"

	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/store"
)

// HandMonitor observes completed hands. Implementations must not block the
// caller for long — they run on the same goroutine that just released the
// game lock.
type HandMonitor interface {
	OnHandComplete(gameID string, res engine.GameActionResult)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) OnHandComplete(string, engine.GameActionResult) {}

// StoreMonitor appends a HandHistoryEntry to a Store for every completed
// hand it observes.
type StoreMonitor struct {
	store *store.Store
	clock func() int64
}

// NewStoreMonitor builds a StoreMonitor. clock supplies the entry's
// timestamp (injected so callers can stay deterministic in tests, since
// this package cannot call time.Now() itself under the no-wall-clock-in-
// workflow-scripts constraint placed on the repo's own test harness).
func NewStoreMonitor(s *store.Store, clock func() int64) *StoreMonitor {
	return &StoreMonitor{store: s, clock: clock}
}

func (m *StoreMonitor) OnHandComplete(gameID string, res engine.GameActionResult) {
	if !hasEvent(res.Events, engine.EventHandCompleted) {
		return
	}

	winners := make([]string, 0)
	potTotal := 0
	for potIdx, awards := range res.Winners {
		_ = potIdx
		for _, a := range awards {
			winners = append(winners, seatLabel(a.SeatID))
			potTotal += a.Share
		}
	}

	entry := store.HandHistoryEntry{
		GameID:    gameID,
		HandID:    res.HandID,
		Winners:   winners,
		PotTotal:  potTotal,
		Timestamp: m.clock(),
	}
	_ = m.store.AppendHandHistory(entry) // best-effort: durability is not on the critical path (§12)
}

func seatLabel(seatID int) string {
	return "seat-" + strconv.Itoa(seatID)
}

func hasEvent(events []engine.Event, want engine.Event) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}
