package session

import (
	"context"

	"github.com/dstrand/pokerserver/internal/aidriver"
	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/hub"
	"github.com/dstrand/pokerserver/internal/monitor"
	"github.com/dstrand/pokerserver/internal/orchestrator"
	"github.com/dstrand/pokerserver/internal/protocol"
	"github.com/dstrand/pokerserver/internal/view"
)

// Game is the subset of *engine.Game the session layer depends on.
type Game interface {
	Lock()
	Unlock()
	CurrentHand() *engine.Hand
	AllSeats() []*engine.Seat
	GameID() string
	StartHand() (*engine.Hand, error)
	EligibleSeatCount() int
	IsActive() bool
}

// Runner ties one applied action's result to the EventOrchestrator and,
// when the result hands off to a non-human seat, to AIDriver — used by both
// SessionLoop (after a human action) and by itself recursively through a
// fresh goroutine per AI turn, so neither call path can drift out of sync
// (§4.1's pipeline, §4.6 step 8's "must not recurse on the stack").
type Runner struct {
	hub          *hub.ConnectionHub
	orchestrator *orchestrator.Orchestrator
	driver       *aidriver.Driver
	monitor      monitor.HandMonitor
}

// NewRunner constructs a Runner. driver may be nil for games with no AI
// seats; Dispatch then simply never schedules an AI turn.
func NewRunner(h *hub.ConnectionHub, orch *orchestrator.Orchestrator, driver *aidriver.Driver) *Runner {
	return &Runner{hub: h, orchestrator: orch, driver: driver, monitor: monitor.Nop{}}
}

// WithMonitor attaches a HandMonitor that observes every completed hand
// Dispatch reports (§12). Returns r for chaining at construction time.
func (r *Runner) WithMonitor(m monitor.HandMonitor) *Runner {
	r.monitor = m
	return r
}

// Dispatch runs the §4.4 notification sequence for res/snapshot, then — if
// the next actor is an AI seat — schedules AIDriver.act on its own
// goroutine. snapshot must have been built while the lock that produced res
// was still held.
func (r *Runner) Dispatch(ctx context.Context, game Game, gameID string, res engine.GameActionResult, snapshot protocol.GameState) {
	var next *orchestrator.NextActor
	var nextIsHuman bool

	if res.HasNextActor {
		game.Lock()
		hand := game.CurrentHand()
		if hand != nil {
			next = &orchestrator.NextActor{SeatID: res.NextActorID, Request: view.ActionRequestFor(hand, res.NextActorID)}
			nextIsHuman = view.IsHuman(game.AllSeats(), res.NextActorID)
		}
		game.Unlock()
	}

	r.orchestrator.Run(ctx, gameID, res, snapshot, next)
	r.monitor.OnHandComplete(gameID, res)

	if res.HasNextActor && !nextIsHuman && r.driver != nil {
		go r.driver.Act(context.Background(), game, res.NextActorID, func(aiRes engine.GameActionResult, aiSnapshot protocol.GameState) {
			r.Dispatch(context.Background(), game, gameID, aiRes, aiSnapshot)
		})
	}
}
