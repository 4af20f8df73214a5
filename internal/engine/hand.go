package engine

import (
	"math/rand/v2"

	"github.com/dstrand/pokerserver/internal/cards"
	"github.com/dstrand/pokerserver/internal/evaluator"
)

// Round is a hand's current betting street (§3).
type Round string

const (
	RoundPreflop  Round = "PREFLOP"
	RoundFlop     Round = "FLOP"
	RoundTurn     Round = "TURN"
	RoundRiver    Round = "RIVER"
	RoundShowdown Round = "SHOWDOWN"
)

// BettingStructure selects the legal-bet-size overlay applied on top of the
// base betting rules (§4.1).
type BettingStructure string

const (
	NoLimit    BettingStructure = "NO_LIMIT"
	PotLimit   BettingStructure = "POT_LIMIT"
	FixedLimit BettingStructure = "FIXED_LIMIT"
)

// RakeConfig parameterizes the per-pot rake skim (§4.1).
type RakeConfig struct {
	Percentage      float64
	CapBB           int
	NoRakeThreshold int // in multiples of big blind
}

// ActionLogEntry is one append-only record of an applied action (§3).
type ActionLogEntry struct {
	SeatID    int
	Action    string
	Amount    int
	Round     Round
	Timestamp int64
}

// Hand is one played-out hand of Texas Hold'em: betting rounds, pot/side-pot
// construction, and showdown award (§3, §4.1). It holds pointers into the
// Game's seat slice rather than owning a copy, so chip mutations are visible
// to the Game immediately.
type Hand struct {
	HandID         string
	HandNumber     int
	seats          []*Seat // full seated order, clockwise, stable positions
	deck           *cards.Deck
	CommunityCards []cards.Card
	CurrentRound   Round
	CurrentBet     int
	MinRaise       int
	turn           *TurnController
	ButtonPosition int
	SmallBlind     int
	BigBlind       int
	Ante           int
	ActionLog      []ActionLogEntry
	Pots           []Pot
	Winners        map[int][]PotAward
	Structure      BettingStructure
	Rake           RakeConfig
	RakeAccumulated int
}

// activeHandSeats returns seats dealt into this hand (status != OUT at deal
// time), in seated order.
func (h *Hand) activeHandSeats() []*Seat {
	out := make([]*Seat, 0, len(h.seats))
	for _, s := range h.seats {
		if s.Status != StatusOut {
			out = append(out, s)
		}
	}
	return out
}

// NewHand starts a hand: blinds/antes posted, deck shuffled, hole cards
// dealt, and the first actor seated (§4.1 "Start of hand"). buttonPos is the
// seat_id already rotated by the caller (Game owns button persistence across
// hands).
func NewHand(handID string, handNumber int, seats []*Seat, buttonPos int, sb, bb, ante int, structure BettingStructure, rake RakeConfig, rng *rand.Rand) *Hand {
	h := &Hand{
		HandID:         handID,
		HandNumber:     handNumber,
		seats:          seats,
		deck:           cards.NewDeck(),
		ButtonPosition: buttonPos,
		SmallBlind:     sb,
		BigBlind:       bb,
		Ante:           ante,
		Structure:      structure,
		Rake:           rake,
		Winners:        make(map[int][]PotAward),
		turn:           newTurnController(seats),
	}

	for _, s := range seats {
		if s.Status == StatusOut {
			continue
		}
		if s.Chips <= 0 {
			s.Status = StatusOut
			continue
		}
		s.Status = StatusActive
		s.StreetBet = 0
		s.HandBet = 0
		s.HoleCards = nil
	}

	active := h.activeHandSeats()
	order := h.seatedFrom(buttonPos, active)

	h.postBlindsAndAntes(order)

	h.deck.Shuffle(rng)
	for pass := 0; pass < 2; pass++ {
		for _, s := range order {
			if s.Status == StatusOut {
				continue
			}
			s.HoleCards = append(s.HoleCards, h.deck.Deal(1)...)
		}
	}

	h.CurrentRound = RoundPreflop
	h.CurrentBet = bb
	h.MinRaise = bb

	toAct := make([]int, 0, len(order))
	for _, s := range order {
		if s.Status == StatusActive {
			toAct = append(toAct, s.SeatID)
		}
	}
	h.turn.seed(toAct)

	if len(order) == 2 {
		// Heads-up: button posts SB and acts first preflop.
		h.turn.currentActor = buttonPos
	} else {
		// Seat left of the big blind (button+1=SB, button+2=BB).
		h.turn.currentActor = h.nextSeatID(order, 3)
	}

	return h
}

// seatedFrom returns the given seats reordered to start at buttonID,
// preserving clockwise order.
func (h *Hand) seatedFrom(buttonID int, in []*Seat) []*Seat {
	idx := 0
	for i, s := range in {
		if s.SeatID == buttonID {
			idx = i
			break
		}
	}
	out := make([]*Seat, 0, len(in))
	for i := 0; i < len(in); i++ {
		out = append(out, in[(idx+i)%len(in)])
	}
	return out
}

// seatedAfterButton returns the given seats reordered to start immediately
// clockwise of the button (the button itself comes last).
func (h *Hand) seatedAfterButton(in []*Seat) []*Seat {
	from := h.seatedFrom(h.ButtonPosition, in)
	if len(from) <= 1 {
		return from
	}
	return append(from[1:], from[0])
}

// nextSeatID returns the seat_id n positions after the button in the given
// ordered (button-first) seat list.
func (h *Hand) nextSeatID(order []*Seat, n int) int {
	if len(order) == 0 {
		return 0
	}
	return order[n%len(order)].SeatID
}

func (h *Hand) postBlindsAndAntes(order []*Seat) {
	if h.Ante > 0 {
		for _, s := range order {
			h.postChips(s, min(h.Ante, s.Chips))
		}
	}

	if len(order) == 2 {
		// Heads-up: button = SB.
		h.postChips(order[0], min(h.SmallBlind, order[0].Chips))
		h.postChips(order[1], min(h.BigBlind, order[1].Chips))
		return
	}
	h.postChips(order[1], min(h.SmallBlind, order[1].Chips))
	h.postChips(order[2%len(order)], min(h.BigBlind, order[2%len(order)].Chips))
}

func (h *Hand) postChips(s *Seat, amount int) {
	s.Chips -= amount
	s.StreetBet += amount
	s.HandBet += amount
	if s.Chips == 0 {
		s.Status = StatusAllIn
	}
	h.log(s.SeatID, "post", amount)
}

func (h *Hand) log(seatID int, action string, amount int) {
	h.ActionLog = append(h.ActionLog, ActionLogEntry{
		SeatID: seatID, Action: action, Amount: amount, Round: h.CurrentRound,
	})
}

func (h *Hand) seatByID(seatID int) *Seat {
	for _, s := range h.seats {
		if s.SeatID == seatID {
			return s
		}
	}
	return nil
}

// LegalActions computes the legal action set and bounds for the current
// actor (§4.1).
func (h *Hand) LegalActions(seatID int) (options []string, callAmount, minRaise, maxRaise int) {
	s := h.seatByID(seatID)
	if s == nil || s.Status != StatusActive {
		return nil, 0, 0, 0
	}

	options = append(options, "FOLD")
	toCall := h.CurrentBet - s.StreetBet

	switch {
	case toCall == 0:
		options = append(options, "CHECK")
	case toCall > 0:
		callAmount = min(toCall, s.Chips)
		options = append(options, "CALL")
	}

	if s.Chips > 0 {
		options = append(options, "ALL_IN")
	}

	if h.CurrentBet == 0 {
		if s.Chips >= h.BigBlind {
			options = append(options, "BET")
			minRaise = h.BigBlind
			maxRaise = h.betCap(s, 0)
		}
		return options, callAmount, minRaise, maxRaise
	}

	newTotalMin := h.CurrentBet + h.MinRaise
	if s.Chips+s.StreetBet >= newTotalMin {
		options = append(options, "RAISE")
		minRaise = newTotalMin
		maxRaise = h.betCap(s, toCall)
	}
	return options, callAmount, minRaise, maxRaise
}

// betCap applies the betting-structure overlay (§4.1) to compute the
// maximum total a seat may make its street_bet.
func (h *Hand) betCap(s *Seat, toCall int) int {
	stackCap := s.Chips + s.StreetBet
	switch h.Structure {
	case PotLimit:
		pot := h.potTotal()
		potCap := s.StreetBet + pot + toCall + toCall
		if potCap < stackCap {
			return potCap
		}
		return stackCap
	case FixedLimit:
		fixedCap := h.CurrentBet + h.streetMinRaiseUnit()
		if fixedCap < stackCap {
			return fixedCap
		}
		return stackCap
	default:
		return stackCap
	}
}

// streetMinRaiseUnit returns the full-raise increment a fresh betting round
// opens with: the big blind on every street for NO_LIMIT/POT_LIMIT, and the
// FIXED_LIMIT overlay's doubled unit on the turn and river (§4.1).
func (h *Hand) streetMinRaiseUnit() int {
	if h.Structure == FixedLimit && (h.CurrentRound == RoundTurn || h.CurrentRound == RoundRiver) {
		return 2 * h.BigBlind
	}
	return h.BigBlind
}

// streetBetSnapshot captures every seat's street_bet before advanceRound (or
// the hand ending) resets it.
func (h *Hand) streetBetSnapshot() map[int]int {
	out := make(map[int]int, len(h.seats))
	for _, s := range h.seats {
		if s.StreetBet > 0 {
			out[s.SeatID] = s.StreetBet
		}
	}
	return out
}

func (h *Hand) potTotal() int {
	total := 0
	for _, s := range h.seats {
		total += s.StreetBet
	}
	return total
}

// Apply validates and applies one action from the current actor (§4.1),
// returning the immutable result the EventOrchestrator consumes (§4.3, §9).
func (h *Hand) Apply(seatID int, action string, amount int) GameActionResult {
	if h.CurrentRound == RoundShowdown {
		return failResult(ErrKindActionFailed)
	}
	if !h.turn.inToAct(seatID) {
		return failResult(ErrKindActionFailed)
	}
	if h.turn.CurrentActor() != seatID {
		return failResult(ErrKindNotYourTurn)
	}
	s := h.seatByID(seatID)
	if s == nil || s.Status != StatusActive {
		return failResult(ErrKindActionFailed)
	}

	options, callAmount, minRaise, maxRaise := h.LegalActions(seatID)
	legal := false
	for _, o := range options {
		if o == action {
			legal = true
			break
		}
	}
	if !legal {
		return failResult(ErrKindInvalidAction)
	}

	wasFullRaise := false
	added := 0 // chips actually committed to the pot by this action
	switch action {
	case "FOLD":
		s.Status = StatusFolded
		h.log(seatID, "FOLD", 0)
	case "CHECK":
		h.log(seatID, "CHECK", 0)
	case "CALL":
		added = callAmount
		h.postChips(s, callAmount)
		h.log(seatID, "CALL", callAmount)
	case "BET", "RAISE":
		newTotal := amount
		if newTotal < minRaise || newTotal > maxRaise {
			return failResult(ErrKindInvalidAction)
		}
		if h.Structure == FixedLimit && newTotal != maxRaise {
			return failResult(ErrKindInvalidAction)
		}
		increment := newTotal - h.CurrentBet
		added = newTotal - s.StreetBet
		if added > s.Chips {
			return failResult(ErrKindInvalidAction)
		}
		h.postChips(s, added)
		if increment >= h.MinRaise || h.CurrentBet == 0 {
			h.MinRaise = increment
			wasFullRaise = true
		}
		if s.StreetBet > h.CurrentBet {
			h.CurrentBet = s.StreetBet
		}
		h.log(seatID, action, newTotal)
	case "ALL_IN":
		added = s.Chips
		newTotal := s.StreetBet + added
		// A structural cap (POT_LIMIT/FIXED_LIMIT) still bounds a shove:
		// maxRaise==0 only when no open-bet/raise is possible at all (e.g. a
		// short stack below the big blind with no current bet), in which
		// case a short all-in is always legal regardless of structure.
		if maxRaise > 0 && newTotal > maxRaise {
			return failResult(ErrKindInvalidAction)
		}
		increment := newTotal - h.CurrentBet
		h.postChips(s, added)
		if newTotal > h.CurrentBet {
			if increment >= h.MinRaise {
				h.MinRaise = increment
				wasFullRaise = true
			}
			h.CurrentBet = newTotal
		}
		h.log(seatID, "ALL_IN", added)
	default:
		return failResult(ErrKindActionFailed)
	}

	h.turn.consume(seatID)
	if wasFullRaise {
		h.turn.reopen(seatID)
	}

	result := GameActionResult{
		Success:      true,
		ActingSeatID: seatID,
		Action:       action,
		Amount:       added,
		Events:       []Event{EventPlayerActionProcessed},
		PostStreetBet: s.StreetBet,
		PostHandBet:   s.HandBet,
		HandID:        h.HandID,
		Street:        h.CurrentRound,
	}

	if next, err := h.turn.next(); err == nil {
		result.NextActorID = next
		result.HasNextActor = true
		return result
	}

	h.finishStreet(&result)
	return result
}

// finishStreet implements §4.1's "Street end" and chains into showdown/award
// as needed, filling in the result's events, animation sequence, and
// snapshot fields.
func (h *Hand) finishStreet(result *GameActionResult) {
	result.Events = append(result.Events, EventBettingRoundCompleted)
	result.ClosingStreetBets = h.streetBetSnapshot()
	result.PotTotalAfterStreet = h.potTotal()

	nonFolded := h.nonFoldedSeats()
	if len(nonFolded) <= 1 {
		h.dealRemainingBoard()
		h.awardShowdown(nonFolded)
		result.Events = append(result.Events, EventEarlyShowdownTriggered, EventHandCompleted)
		result.AnimationSequence = AnimationHandConclusion
		h.fillShowdownSnapshot(result)
		return
	}

	canStillBet := 0
	for _, s := range nonFolded {
		if s.Status == StatusActive && s.Chips > 0 {
			canStillBet++
		}
	}

	if h.CurrentRound == RoundRiver || canStillBet < 2 && h.allButOneAreAllInOrOneActive(nonFolded) {
		if h.CurrentRound == RoundRiver {
			h.CurrentRound = RoundShowdown
			result.Events = append(result.Events, EventShowdownTriggered, EventHandCompleted)
			result.AnimationSequence = AnimationShowdownReveal
			h.awardShowdown(nonFolded)
			h.fillShowdownSnapshot(result)
			return
		}
		// All-in runout: deal every remaining street with no further betting.
		for h.CurrentRound != RoundRiver {
			deal := h.advanceRound()
			result.PendingStreetsToDeal = append(result.PendingStreetsToDeal, deal)
		}
		h.CurrentRound = RoundShowdown
		result.Events = append(result.Events, EventShowdownTriggered, EventHandCompleted)
		result.AnimationSequence = AnimationShowdownReveal
		h.awardShowdown(nonFolded)
		h.fillShowdownSnapshot(result)
		return
	}

	deal := h.advanceRound()
	result.Events = append(result.Events, EventStreetDealingRequired)
	result.AnimationSequence = AnimationStreetDealing
	result.PendingStreetsToDeal = []StreetDeal{deal}
	if !h.turn.isEmpty() {
		result.NextActorID = h.turn.CurrentActor()
		result.HasNextActor = true
	}
}

func (h *Hand) allButOneAreAllInOrOneActive(nonFolded []*Seat) bool {
	activeWithChips := 0
	for _, s := range nonFolded {
		if s.Status == StatusActive && s.Chips > 0 {
			activeWithChips++
		}
	}
	return activeWithChips <= 1
}

func (h *Hand) nonFoldedSeats() []*Seat {
	out := make([]*Seat, 0, len(h.seats))
	for _, s := range h.seats {
		if s.Status != StatusFolded && s.Status != StatusOut && s.Status != StatusWaiting {
			out = append(out, s)
		}
	}
	return out
}

// advanceRound collects street bets, deals the next street's board cards,
// and resets per-street betting state (§4.1).
func (h *Hand) advanceRound() StreetDeal {
	for _, s := range h.seats {
		s.StreetBet = 0
	}
	h.CurrentBet = 0

	var n int
	switch h.CurrentRound {
	case RoundPreflop:
		h.CurrentRound = RoundFlop
		n = 3
	case RoundFlop:
		h.CurrentRound = RoundTurn
		n = 1
	case RoundTurn:
		h.CurrentRound = RoundRiver
		n = 1
	default:
		n = 0
	}
	h.MinRaise = h.streetMinRaiseUnit()
	dealt := h.deck.Deal(n)
	h.CommunityCards = append(h.CommunityCards, dealt...)

	toAct := make([]int, 0, len(h.seats))
	for _, s := range h.seats {
		if s.Status == StatusActive && s.Chips > 0 {
			toAct = append(toAct, s.SeatID)
		}
	}
	h.turn.seed(toAct)
	// Postflop action starts with the first seat clockwise AFTER the
	// button, never the button itself (§4.1).
	order := h.seatedAfterButton(h.activeHandSeats())
	for _, s := range order {
		if h.turn.inToAct(s.SeatID) {
			h.turn.currentActor = s.SeatID
			break
		}
	}

	return StreetDeal{Street: h.CurrentRound, Cards: cards.Strings(dealt)}
}

func (h *Hand) dealRemainingBoard() {
	for len(h.CommunityCards) < 5 && h.deck.Remaining() > 0 {
		h.CommunityCards = append(h.CommunityCards, h.deck.Deal(1)...)
	}
}

// awardShowdown builds side pots, skims rake, evaluates the best hand among
// each pot's eligible seats, and splits the pot (§4.1).
func (h *Hand) awardShowdown(nonFolded []*Seat) {
	h.Pots = buildSidePots(h.seats)

	for potIdx := range h.Pots {
		pot := &h.Pots[potIdx]
		skim := rake(pot.Amount, h.BigBlind, h.Rake.Percentage, h.Rake.CapBB, h.Rake.NoRakeThreshold)
		pot.Amount -= skim
		h.RakeAccumulated += skim

		eligible := make([]*Seat, 0, len(pot.EligibleSet))
		for _, s := range h.seats {
			if pot.EligibleSet[s.SeatID] {
				eligible = append(eligible, s)
			}
		}
		if len(eligible) == 0 {
			continue
		}

		winners := eligible
		if len(eligible) > 1 {
			winners = h.bestHandSeats(eligible)
		}

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		odd := h.closestClockwiseFromButton(winners)

		for _, w := range winners {
			amt := share
			if w.SeatID == odd {
				amt += remainder
			}
			w.Chips += amt
			h.Winners[potIdx] = append(h.Winners[potIdx], PotAward{
				SeatID: w.SeatID, HandRank: h.describeHand(w), Share: amt,
			})
		}
	}
}

func (h *Hand) bestHandSeats(eligible []*Seat) []*Seat {
	if len(eligible) == 1 || len(h.CommunityCards) < 3 {
		return eligible
	}
	var best evaluator.HandRank
	var winners []*Seat
	for i, s := range eligible {
		seven := append(append([]cards.Card{}, s.HoleCards...), h.CommunityCards...)
		if len(seven) != 7 {
			// Early showdown with <5 board cards: there is no 7-card hand
			// to rank, so all remaining contenders split (no card reveal,
			// §4.1).
			return eligible
		}
		rank := evaluator.Evaluate7(seven)
		if i == 0 || rank.Compare(best) > 0 {
			best = rank
			winners = []*Seat{s}
		} else if rank.Compare(best) == 0 {
			winners = append(winners, s)
		}
	}
	return winners
}

func (h *Hand) describeHand(s *Seat) string {
	if len(s.HoleCards) != 2 || len(h.CommunityCards) != 5 {
		return ""
	}
	seven := append(append([]cards.Card{}, s.HoleCards...), h.CommunityCards...)
	return evaluator.Evaluate7(seven).String()
}

func (h *Hand) closestClockwiseFromButton(winners []*Seat) int {
	order := h.seatedAfterButton(h.seats)
	for _, s := range order {
		for _, w := range winners {
			if w.SeatID == s.SeatID {
				return w.SeatID
			}
		}
	}
	if len(winners) > 0 {
		return winners[0].SeatID
	}
	return 0
}

func (h *Hand) fillShowdownSnapshot(result *GameActionResult) {
	result.Pots = h.Pots
	result.Winners = h.Winners
	result.DealtCards = cards.Strings(h.CommunityCards)
}

// FixCursor repairs a drifted current_actor (§7 class 7).
func (h *Hand) FixCursor(expectedSeatID int) error {
	return h.turn.fixCursor(expectedSeatID)
}

// CurrentActor returns the seat_id on turn, or 0 if the street has ended.
func (h *Hand) CurrentActor() int {
	return h.turn.CurrentActor()
}

// ToAct reports whether a seat still owes action this street.
func (h *Hand) ToAct(seatID int) bool {
	return h.turn.inToAct(seatID)
}
