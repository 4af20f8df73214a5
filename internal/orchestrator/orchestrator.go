// Package orchestrator implements EventOrchestrator (C6): given one
// completed GameActionResult, it emits the ordered client notification
// sequence described in §4.4, including bounded animation-ack waits.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/protocol"
)

// animationFallback is how long a step waits for its matching animation_done
// before proceeding anyway (§4.4's "fallback 1s" on every wait step).
const animationFallback = time.Second

// Broadcaster is the subset of ConnectionHub the orchestrator needs. Kept as
// an interface so tests can substitute a recorder.
type Broadcaster interface {
	Broadcast(gameID string, msgType string, data any)
	SendToSeat(gameID string, seatID int, msgType string, data any) error
}

// Orchestrator sequences notifications for one game at a time; callers are
// expected to serialize calls per game_id via a "pending orchestration"
// slot rather than the game's state mutex (§5).
type Orchestrator struct {
	hub    Broadcaster
	clock  quartz.Clock
	log    zerolog.Logger
	latches *latchSet
}

// New constructs an Orchestrator. clock is injected so tests can control
// animation-wait fallbacks deterministically (§8 scenario 5); pass
// quartz.NewReal() in production.
func New(hub Broadcaster, clock quartz.Clock, logger zerolog.Logger) *Orchestrator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Orchestrator{hub: hub, clock: clock, log: logger, latches: newLatchSet()}
}

// AnimationDone signals a pending wait for (gameID, stepType), collapsing
// duplicate redeliveries onto the same latch-fire (§4.7, §11 singleflight).
func (o *Orchestrator) AnimationDone(gameID, stepType string) {
	o.latches.signal(latchKey(gameID, stepType))
}

// NextActor is the caller-built action_request target; nil if the hand has
// no further actor this step (hand completed, or awaiting next-hand start).
type NextActor struct {
	SeatID  int
	Request protocol.ActionRequest
}

// Run executes the §4.4 sequence for one applied action. snapshot is a full
// (unfiltered) GameState built by the caller immediately after Apply
// returned, while the game lock was still held; ConnectionHub applies
// per-recipient hole-card filtering at broadcast time. next is nil when the
// acting side has no immediate successor to prompt (hand just completed).
func (o *Orchestrator) Run(ctx context.Context, gameID string, res engine.GameActionResult, snapshot protocol.GameState, next *NextActor) {
	now := o.clock.Now().UnixMilli()

	// Step 1: player_action + human-readable log line.
	o.hub.Broadcast(gameID, protocol.TypePlayerAction, protocol.PlayerAction{
		SeatID: res.ActingSeatID, Action: res.Action, Amount: res.Amount, Timestamp: now,
	})
	o.hub.Broadcast(gameID, protocol.TypeActionLog, protocol.ActionLog{
		Text: narrate(res, snapshot), Timestamp: now,
	})

	// Step 2: turn highlight removal — the acting seat always stops being
	// "current" the instant its action is processed.
	o.hub.Broadcast(gameID, protocol.TypeTurnHighlightRemoved, protocol.TurnHighlightRemoved{SeatID: res.ActingSeatID})

	if !hasEvent(res.Events, engine.EventBettingRoundCompleted) {
		// Step 7: action continued the betting round.
		o.sendNextActor(gameID, snapshot, next)
		return
	}

	// Step 3: round bets finalized, with a bounded animation wait.
	o.hub.Broadcast(gameID, protocol.TypeRoundBetsFinalized, protocol.RoundBetsFinalized{
		PlayerBets: seatAmounts(res.ClosingStreetBets),
		Pot:        res.PotTotalAfterStreet,
		Timestamp:  now,
	})
	o.wait(ctx, gameID, "round_bets_finalized")

	switch {
	case hasEvent(res.Events, engine.EventShowdownTriggered):
		o.runShowdown(ctx, gameID, res, snapshot, true)
	case hasEvent(res.Events, engine.EventEarlyShowdownTriggered):
		o.runShowdown(ctx, gameID, res, snapshot, false)
	default:
		// Step 6: street dealt mid-hand, then prompt the next actor.
		o.dealStreets(ctx, gameID, res.PendingStreetsToDeal)
		o.sendNextActor(gameID, snapshot, next)
	}
}

// runShowdown implements §4.4 steps 4/5.
func (o *Orchestrator) runShowdown(ctx context.Context, gameID string, res engine.GameActionResult, snapshot protocol.GameState, reveal bool) {
	now := o.clock.Now().UnixMilli()
	o.hub.Broadcast(gameID, protocol.TypeShowdownTransition, protocol.ShowdownTransition{Timestamp: now})

	if reveal {
		o.dealStreets(ctx, gameID, res.PendingStreetsToDeal)
		o.hub.Broadcast(gameID, protocol.TypeShowdownHandsRevealed, protocol.ShowdownHandsRevealed{
			PlayerHands: nonFoldedHands(snapshot),
		})
	}

	o.hub.Broadcast(gameID, protocol.TypePotWinnersDetermined, protocol.PotWinnersDetermined{
		Pots: buildPotResults(ctx, res.Pots, res.Winners),
	})

	for i := 0; i < len(res.Winners); i++ {
		for _, w := range res.Winners[i] {
			o.hub.Broadcast(gameID, protocol.TypeActionLog, protocol.ActionLog{
				Text: winnerLine(snapshot, w), Timestamp: now,
			})
		}
	}

	o.hub.Broadcast(gameID, protocol.TypeChipsDistributed, snapshot)

	o.hub.Broadcast(gameID, protocol.TypeHandResult, protocol.HandResult{
		HandID:    res.HandID,
		Winners:   flattenWinners(res.Winners),
		Players:   snapshot.Seats,
		Board:     snapshot.CommunityCards,
		Timestamp: now,
	})
}

// dealStreets emits street_dealt for each pending street, waiting (bounded)
// on each before moving to the next (§4.4 step 4/6).
func (o *Orchestrator) dealStreets(ctx context.Context, gameID string, streets []engine.StreetDeal) {
	now := o.clock.Now().UnixMilli()
	for _, deal := range streets {
		o.hub.Broadcast(gameID, protocol.TypeStreetDealt, protocol.StreetDealt{
			Street: string(deal.Street), Cards: deal.Cards, Timestamp: now,
		})
		o.wait(ctx, gameID, fmt.Sprintf("street_dealt_%s", deal.Street))
	}
}

func (o *Orchestrator) sendNextActor(gameID string, snapshot protocol.GameState, next *NextActor) {
	o.hub.Broadcast(gameID, protocol.TypeGameState, snapshot)
	if next == nil {
		return
	}
	if err := o.hub.SendToSeat(gameID, next.SeatID, protocol.TypeActionRequest, next.Request); err != nil {
		o.log.Warn().Err(err).Int("seat_id", next.SeatID).Str("game_id", gameID).Msg("failed to deliver action_request")
	}
}

// wait blocks (bounded) for a matching animation_done, or until
// animationFallback elapses, whichever comes first (§4.4).
func (o *Orchestrator) wait(ctx context.Context, gameID, stepType string) {
	ch := o.latches.open(latchKey(gameID, stepType))
	defer o.latches.close(latchKey(gameID, stepType))

	select {
	case <-ch:
	case <-o.clock.After(animationFallback):
		o.log.Debug().Str("game_id", gameID).Str("step", stepType).Msg("animation wait fell back")
	case <-ctx.Done():
	}
}

func latchKey(gameID, stepType string) string { return gameID + ":" + stepType }

func hasEvent(events []engine.Event, want engine.Event) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}

func seatAmounts(m map[int]int) []protocol.SeatAmount {
	out := make([]protocol.SeatAmount, 0, len(m))
	for seatID, amount := range m {
		out = append(out, protocol.SeatAmount{SeatID: seatID, Amount: amount})
	}
	return out
}

func nonFoldedHands(snapshot protocol.GameState) []protocol.SeatHand {
	out := make([]protocol.SeatHand, 0, len(snapshot.Seats))
	for _, s := range snapshot.Seats {
		if s.Status == string(engine.StatusFolded) || s.Status == string(engine.StatusOut) {
			continue
		}
		out = append(out, protocol.SeatHand{SeatID: s.SeatID, Cards: s.HoleCards})
	}
	return out
}

// buildPotResults translates engine pots/winners into the wire shape,
// building each pot's entry concurrently via errgroup (§11 domain wiring) —
// cheap per pot today, but keeps the fan-out point real for pots with
// heavier per-seat hand-description work.
func buildPotResults(ctx context.Context, pots []engine.Pot, winners map[int][]engine.PotAward) []protocol.PotResult {
	out := make([]protocol.PotResult, len(pots))
	g, _ := errgroup.WithContext(ctx)
	for i, pot := range pots {
		i, pot := i, pot
		g.Go(func() error {
			pw := make([]protocol.PotWinner, 0, len(winners[i]))
			for _, w := range winners[i] {
				pw = append(pw, protocol.PotWinner{SeatID: w.SeatID, HandRank: w.HandRank, Share: w.Share})
			}
			out[i] = protocol.PotResult{PotID: i, Amount: pot.Amount, Winners: pw}
			return nil
		})
	}
	_ = g.Wait() // per-pot builders never return an error
	return out
}

func flattenWinners(winners map[int][]engine.PotAward) []protocol.PotWinner {
	var out []protocol.PotWinner
	for i := 0; i < len(winners); i++ {
		for _, w := range winners[i] {
			out = append(out, protocol.PotWinner{SeatID: w.SeatID, HandRank: w.HandRank, Share: w.Share})
		}
	}
	return out
}

// narrate renders the §6/§8 canonical action_log.text line for one applied
// action, looking up the acting seat's display name from snapshot.
func narrate(res engine.GameActionResult, snapshot protocol.GameState) string {
	name := seatName(snapshot, res.ActingSeatID)
	switch res.Action {
	case "FOLD":
		return fmt.Sprintf("%s folds", name)
	case "CHECK":
		return fmt.Sprintf("%s checks", name)
	case "CALL":
		return fmt.Sprintf("%s calls %d (to %d total)", name, res.Amount, res.PostStreetBet)
	case "BET":
		return fmt.Sprintf("%s bets %d", name, res.Amount)
	case "RAISE":
		return fmt.Sprintf("%s raises to %d", name, res.PostStreetBet)
	case "ALL_IN":
		return fmt.Sprintf("%s all-in for %d (total %d)", name, res.Amount, res.PostHandBet)
	default:
		return fmt.Sprintf("%s acts", name)
	}
}

// winnerLine renders the §6 canonical showdown win-line for one pot award.
func winnerLine(snapshot protocol.GameState, w engine.PotAward) string {
	return fmt.Sprintf("🏆 %s wins %d with %s!", seatName(snapshot, w.SeatID), w.Share, w.HandRank)
}

func seatName(snapshot protocol.GameState, seatID int) string {
	for _, s := range snapshot.Seats {
		if s.SeatID == seatID {
			return s.Name
		}
	}
	return fmt.Sprintf("Seat %d", seatID)
}
