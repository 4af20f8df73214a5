package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dstrand/pokerserver/internal/gameid"
)

// GameType distinguishes cash games from tournaments (§3); only CASH rake
// handling is implemented — tournaments carry no rake.
type GameType string

const (
	Cash       GameType = "CASH"
	Tournament GameType = "TOURNAMENT"
)

// GameStatus is a Game's lifecycle state (§3).
type GameStatus string

const (
	GameWaiting   GameStatus = "WAITING"
	GameActive    GameStatus = "ACTIVE"
	GameCompleted GameStatus = "COMPLETED"
	GamePaused    GameStatus = "PAUSED"
)

// Game owns one table's seats and the hand currently in progress, guarded
// by its own mutex so all mutations are serialized per-game (§5).
type Game struct {
	mu sync.Mutex

	ID        string
	Type      GameType
	Status    GameStatus
	Seats     []*Seat
	Current   *Hand
	handCount int

	SmallBlind int
	BigBlind   int
	Ante       int
	Structure  BettingStructure
	Rake       RakeConfig
	MinBuyIn   int
	MaxBuyIn   int

	buttonPos int
	rng       *rand.Rand
	idGen     *gameid.Generator
}

// NewGame constructs a Game in WAITING status.
func NewGame(id string, gameType GameType, sb, bb, ante int, structure BettingStructure, rake RakeConfig, rng *rand.Rand) *Game {
	return &Game{
		ID:         id,
		Type:       gameType,
		Status:     GameWaiting,
		SmallBlind: sb,
		BigBlind:   bb,
		Ante:       ante,
		Structure:  structure,
		Rake:       rake,
		rng:        rng,
		idGen:      gameid.NewGenerator(nil),
	}
}

// Lock and Unlock expose the per-game mutex directly: SessionLoop/AIDriver
// acquire it around HandStateMachine.apply, never across sends (§5).
func (g *Game) Lock()   { g.mu.Lock() }
func (g *Game) Unlock() { g.mu.Unlock() }

// CurrentHand returns the hand in progress, or nil between hands. Callers
// must hold the game lock.
func (g *Game) CurrentHand() *Hand { return g.Current }

// AllSeats returns the game's seats in table order. Callers must hold the
// game lock for a consistent read of seat state.
func (g *Game) AllSeats() []*Seat { return g.Seats }

// GameID returns the game's id (named to avoid colliding with the ID field).
func (g *Game) GameID() string { return g.ID }

// AddSeat seats a new player. Mid-game arrivals in cash games take
// status=WAITING and become ACTIVE at the start of the next hand (§3).
func (g *Game) AddSeat(seatID int, displayName string, isHuman bool, chips int) *Seat {
	status := StatusActive
	if g.Current != nil {
		status = StatusWaiting
	}
	s := &Seat{
		SeatID: seatID, DisplayName: displayName, IsHuman: isHuman,
		Chips: chips, Status: status, Position: len(g.Seats),
	}
	g.Seats = append(g.Seats, s)
	if len(g.Seats) >= 2 {
		g.Status = GameActive
	}
	return s
}

// eligibleSeats returns seats that can be dealt into a hand.
func (g *Game) eligibleSeats() []*Seat {
	out := make([]*Seat, 0, len(g.Seats))
	for _, s := range g.Seats {
		if s.eligibleForHand() {
			out = append(out, s)
		}
	}
	return out
}

// StartHand rotates the button, promotes WAITING seats with enough chips,
// and begins a new Hand (§4.1 "Start of hand", §3 lifecycle). Callers must
// hold the game lock.
func (g *Game) StartHand() (*Hand, error) {
	eligible := g.eligibleSeats()
	if len(eligible) < 2 {
		return nil, fmt.Errorf("engine: game %s needs at least 2 eligible seats to start a hand", g.ID)
	}

	for _, s := range eligible {
		if s.Status == StatusWaiting && s.Chips >= g.BigBlind {
			s.Status = StatusActive
		}
	}

	g.buttonPos = g.nextButton(eligible)
	g.handCount++

	handID := g.idGen.Generate()

	rake := g.Rake
	if g.Type != Cash {
		rake = RakeConfig{}
	}
	g.Current = NewHand(handID, g.handCount, g.Seats, g.buttonPos, g.SmallBlind, g.BigBlind, g.Ante, g.Structure, rake, g.rng)
	return g.Current, nil
}

// nextButton rotates clockwise from the current button among eligible seats
// (ACTIVE/WAITING/ALL_IN, skipping OUT — §4.1).
func (g *Game) nextButton(eligible []*Seat) int {
	if len(eligible) == 0 {
		return 0
	}
	if g.buttonPos == 0 {
		return eligible[0].SeatID
	}
	idx := 0
	for i, s := range g.Seats {
		if s.SeatID == g.buttonPos {
			idx = i
			break
		}
	}
	n := len(g.Seats)
	for i := 1; i <= n; i++ {
		s := g.Seats[(idx+i)%n]
		if s.eligibleForHand() {
			return s.SeatID
		}
	}
	return eligible[0].SeatID
}

// EligibleSeatCount reports how many seats could be dealt into the next
// hand — used by SessionLoop's animation_done{hand_visually_concluded}
// handler to decide whether to start the next hand (§4.7).
func (g *Game) EligibleSeatCount() int {
	return len(g.eligibleSeats())
}

// IsActive reports whether the game is still taking hands.
func (g *Game) IsActive() bool {
	return g.Status == GameActive
}
