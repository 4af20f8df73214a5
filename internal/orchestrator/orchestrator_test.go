package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/orchestrator"
	"github.com/dstrand/pokerserver/internal/protocol"
)

type recordedMessage struct {
	msgType string
	data    any
}

type recorder struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (r *recorder) Broadcast(gameID string, msgType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, recordedMessage{msgType, data})
}

func (r *recorder) SendToSeat(gameID string, seatID int, msgType string, data any) error {
	r.Broadcast(gameID, msgType, data)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	for i, m := range r.messages {
		out[i] = m.msgType
	}
	return out
}

func TestRun_ActionContinuesBettingRound_SendsStateAndActionRequest(t *testing.T) {
	rec := &recorder{}
	o := orchestrator.New(rec, quartz.NewReal(), zerolog.Nop())

	res := engine.GameActionResult{
		Success: true, ActingSeatID: 1, Action: "CALL", Amount: 20,
		Events: []engine.Event{engine.EventPlayerActionProcessed},
	}
	next := &orchestrator.NextActor{SeatID: 2, Request: protocol.ActionRequest{SeatID: 2}}

	o.Run(context.Background(), "game-1", res, protocol.GameState{}, next)

	assert.Equal(t, []string{
		protocol.TypePlayerAction,
		protocol.TypeActionLog,
		protocol.TypeTurnHighlightRemoved,
		protocol.TypeGameState,
		protocol.TypeActionRequest,
	}, rec.types())
}

func TestRun_StreetCloses_WaitsOnRoundBetsFinalizedThenFallsBack(t *testing.T) {
	rec := &recorder{}
	mockClock := quartz.NewMock(t)
	o := orchestrator.New(rec, mockClock, zerolog.Nop())

	// No pending streets to deal, so Run hits exactly one animation wait
	// (round_bets_finalized) before running the showdown sequence.
	res := engine.GameActionResult{
		Success: true, ActingSeatID: 2, Action: "CHECK",
		Events:              []engine.Event{engine.EventPlayerActionProcessed, engine.EventBettingRoundCompleted, engine.EventShowdownTriggered, engine.EventHandCompleted},
		ClosingStreetBets:   map[int]int{1: 20, 2: 20},
		PotTotalAfterStreet: 40,
	}

	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), "game-1", res, protocol.GameState{}, nil)
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mockClock.Advance(time.Second).MustWait(ctx) // falls back past round_bets_finalized

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator.Run did not return after fallback advance")
	}

	assert.Contains(t, rec.types(), protocol.TypeRoundBetsFinalized)
	assert.Contains(t, rec.types(), protocol.TypeShowdownTransition)
}

func TestRun_StreetCloses_AnimationDoneUnblocksWithoutWaitingFallback(t *testing.T) {
	rec := &recorder{}
	o := orchestrator.New(rec, quartz.NewReal(), zerolog.Nop())

	res := engine.GameActionResult{
		Success: true, ActingSeatID: 2, Action: "CHECK",
		Events:              []engine.Event{engine.EventPlayerActionProcessed, engine.EventBettingRoundCompleted, engine.EventStreetDealingRequired},
		ClosingStreetBets:   map[int]int{1: 20, 2: 20},
		PotTotalAfterStreet: 40,
	}

	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), "game-1", res, protocol.GameState{}, nil)
		close(done)
	}()

	// Give Run a moment to open the round_bets_finalized latch, then
	// acknowledge it immediately instead of waiting out the 1s fallback.
	require.Eventually(t, func() bool {
		return len(rec.types()) >= 1
	}, time.Second, time.Millisecond)
	o.AnimationDone("game-1", "round_bets_finalized")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AnimationDone did not unblock the wait")
	}
}

func TestRun_ShowdownTriggered_EmitsFullSequence(t *testing.T) {
	rec := &recorder{}
	o := orchestrator.New(rec, quartz.NewReal(), zerolog.Nop())

	res := engine.GameActionResult{
		Success: true, ActingSeatID: 1, Action: "CHECK", HandID: "hand-1",
		Events: []engine.Event{
			engine.EventPlayerActionProcessed, engine.EventBettingRoundCompleted,
			engine.EventShowdownTriggered, engine.EventHandCompleted,
		},
		Pots:    []engine.Pot{{Amount: 40, EligibleSet: map[int]bool{1: true, 2: true}}},
		Winners: map[int][]engine.PotAward{0: {{SeatID: 1, HandRank: "Pair of Aces", Share: 40}}},
	}
	snapshot := protocol.GameState{Seats: []protocol.SeatView{
		{SeatID: 1, Status: "ACTIVE", HoleCards: []string{"AS", "AH"}},
		{SeatID: 2, Status: "FOLDED", HoleCards: []string{"2C", "3C"}},
	}}

	o.Run(context.Background(), "game-1", res, snapshot, nil)

	types := rec.types()
	assert.Contains(t, types, protocol.TypeShowdownTransition)
	assert.Contains(t, types, protocol.TypePotWinnersDetermined)
	assert.Contains(t, types, protocol.TypeChipsDistributed)
	assert.Contains(t, types, protocol.TypeHandResult)
	assert.Contains(t, types, protocol.TypeShowdownHandsRevealed)
}

func TestAnimationDone_DuplicateRedeliveryDoesNotPanic(t *testing.T) {
	rec := &recorder{}
	o := orchestrator.New(rec, quartz.NewReal(), zerolog.Nop())
	assert.NotPanics(t, func() {
		o.AnimationDone("game-1", "round_bets_finalized")
		o.AnimationDone("game-1", "round_bets_finalized")
	})
}
