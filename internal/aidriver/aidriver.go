// Package aidriver implements AIDriver (C7): when the acting seat belongs to
// a non-human, it solicits a decision from an AI oracle and re-enters the
// state machine under the game lock (§4.6).
package aidriver

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/dstrand/pokerserver/internal/cards"
	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/protocol"
	"github.com/dstrand/pokerserver/internal/view"
)

// DefaultDeadline bounds how long the oracle is given to decide (§4.6 step 4).
const DefaultDeadline = 5 * time.Second

// Decision is what the oracle returns for one seat to act on.
type Decision struct {
	Action string
	Amount int
}

// PublicView is the information an oracle is allowed to see: every other
// seat's hole cards are hidden (§4.6 step 3).
type PublicView struct {
	GameID         string
	HandID         string
	SeatID         int
	CommunityCards []string
	Seats          []SeatPublic
	CurrentBet     int
	MinRaise       int
	MaxRaise       int
	CallAmount     int
	Options        []string
}

// SeatPublic is one seat as an oracle may see it.
type SeatPublic struct {
	SeatID    int
	Chips     int
	StreetBet int
	HandBet   int
	Status    string
	HoleCards []string // populated only for the acting seat
}

// Oracle decides an action for the acting seat given a public view. A
// real implementation calls out to an external AI service; Decide must
// respect ctx's deadline.
type Oracle interface {
	Decide(ctx context.Context, view PublicView) (Decision, error)
}

// GameLocker is the subset of *engine.Game the driver needs: lock
// acquisition plus read access to the current hand and seats.
type GameLocker interface {
	Lock()
	Unlock()
	CurrentHand() *engine.Hand
	AllSeats() []*engine.Seat
	GameID() string
}

// ResultHandler is invoked with the Apply result and a freshly built
// snapshot once AIDriver has acted — both captured while the lock was still
// held, then handed to the caller only after Act has released it, so the
// caller's EventOrchestrator always runs outside the lock (§4.6 step 7, §5).
type ResultHandler func(res engine.GameActionResult, snapshot protocol.GameState)

// Driver implements AIDriver.
type Driver struct {
	oracle   Oracle
	deadline time.Duration
	clock    quartz.Clock
	log      zerolog.Logger
}

// New constructs a Driver backed by the real wall clock. deadline<=0 uses
// DefaultDeadline.
func New(oracle Oracle, deadline time.Duration, logger zerolog.Logger) *Driver {
	return NewWithClock(oracle, deadline, nil, logger)
}

// NewWithClock constructs a Driver with an injected clock, so the oracle
// deadline (§4.6 step 4) can be asserted deterministically in tests the same
// way the EventOrchestrator's animation-wait fallback is (§8 scenario 5).
// clock==nil uses quartz.NewReal().
func NewWithClock(oracle Oracle, deadline time.Duration, clock quartz.Clock, logger zerolog.Logger) *Driver {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Driver{oracle: oracle, deadline: deadline, clock: clock, log: logger}
}

// Act performs one AIDriver.act(game_id, seat_id) cycle (§4.6). It does not
// recurse for a subsequent non-human actor; the caller re-invokes Act based
// on the handler's report of the next actor (step 8's "must not recurse on
// the goroutine/task stack").
func (d *Driver) Act(ctx context.Context, game GameLocker, seatID int, onResult ResultHandler) {
	game.Lock()

	hand := game.CurrentHand()
	if hand == nil || hand.CurrentActor() != seatID || !hand.ToAct(seatID) {
		game.Unlock()
		return
	}

	seat := findSeat(game.AllSeats(), seatID)
	if seat == nil {
		game.Unlock()
		return
	}

	options, callAmount, minRaise, maxRaise := hand.LegalActions(seatID)
	pubView := buildPublicView(game.GameID(), hand, game.AllSeats(), seatID, options, callAmount, minRaise, maxRaise)

	game.Unlock() // the oracle call is a suspension point; never held under the lock (§5)

	decision := d.decide(ctx, pubView)

	game.Lock()

	hand = game.CurrentHand()
	if hand == nil || hand.CurrentActor() != seatID || !hand.ToAct(seatID) {
		// State moved on while we were off-lock (e.g. a fix_cursor repair).
		game.Unlock()
		return
	}
	decision = coerceLegal(hand, seatID, decision)

	res := hand.Apply(seatID, decision.Action, decision.Amount)
	snapshot := view.Snapshot(hand, game.AllSeats())
	game.Unlock()

	onResult(res, snapshot)
}

// decide calls the oracle, racing it against d.clock's deadline rather than
// context.WithTimeout so the wait is driven by the injected clock, falling
// back to a deterministic CHECK/CALL/FOLD choice on timeout or any error
// (§4.6 step 4).
func (d *Driver) decide(ctx context.Context, view PublicView) Decision {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		decision Decision
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		decision, err := d.oracle.Decide(ctx, view)
		done <- outcome{decision, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			d.log.Warn().Err(o.err).Str("game_id", view.GameID).Int("seat_id", view.SeatID).Msg("AI oracle call failed, falling back")
			return fallback(view.Options)
		}
		return o.decision
	case <-d.clock.After(d.deadline):
		d.log.Warn().Str("game_id", view.GameID).Int("seat_id", view.SeatID).Msg("AI oracle call timed out, falling back")
		return fallback(view.Options)
	}
}

// fallback deterministically prefers CHECK, then CALL, then FOLD (§4.6
// step 4/5).
func fallback(options []string) Decision {
	for _, preferred := range []string{"CHECK", "CALL", "FOLD"} {
		for _, o := range options {
			if o == preferred {
				return Decision{Action: preferred}
			}
		}
	}
	return Decision{Action: "FOLD"}
}

// coerceLegal validates the oracle's choice against the live legal-action
// set and substitutes a legal fallback if it no longer applies (§4.6 step 5).
func coerceLegal(hand *engine.Hand, seatID int, decision Decision) Decision {
	options, callAmount, minRaise, maxRaise := hand.LegalActions(seatID)
	for _, o := range options {
		if o == decision.Action {
			if decision.Action == "CALL" {
				decision.Amount = callAmount
			}
			if (decision.Action == "BET" || decision.Action == "RAISE") && (decision.Amount < minRaise || decision.Amount > maxRaise) {
				break // out-of-range amount: fall through to fallback
			}
			return decision
		}
	}
	return fallback(options)
}

func findSeat(seats []*engine.Seat, seatID int) *engine.Seat {
	for _, s := range seats {
		if s.SeatID == seatID {
			return s
		}
	}
	return nil
}

func buildPublicView(gameID string, hand *engine.Hand, seats []*engine.Seat, seatID int, options []string, callAmount, minRaise, maxRaise int) PublicView {
	out := make([]SeatPublic, len(seats))
	for i, s := range seats {
		sp := SeatPublic{SeatID: s.SeatID, Chips: s.Chips, StreetBet: s.StreetBet, HandBet: s.HandBet, Status: string(s.Status)}
		if s.SeatID == seatID {
			sp.HoleCards = cards.Strings(s.HoleCards)
		}
		out[i] = sp
	}
	return PublicView{
		GameID: gameID, HandID: hand.HandID, SeatID: seatID,
		CommunityCards: cards.Strings(hand.CommunityCards), Seats: out,
		CurrentBet: hand.CurrentBet, MinRaise: minRaise, MaxRaise: maxRaise,
		CallAmount: callAmount, Options: options,
	}
}
