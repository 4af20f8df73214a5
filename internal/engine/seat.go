package engine

import "github.com/dstrand/pokerserver/internal/cards"

// Status is a seat's state within the current hand.
type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusActive  Status = "ACTIVE"
	StatusFolded  Status = "FOLDED"
	StatusAllIn   Status = "ALL_IN"
	StatusOut     Status = "OUT"
)

// Seat is a player seated at a Game; most fields are per-hand and reset at
// the start of each hand (§3).
type Seat struct {
	SeatID      int
	DisplayName string
	IsHuman     bool
	Chips       int
	HoleCards   []cards.Card
	StreetBet   int
	HandBet     int
	Status      Status
	Position    int
}

// eligibleForHand reports whether a seat can be dealt into the next hand.
func (s *Seat) eligibleForHand() bool {
	return s.Status == StatusActive || s.Status == StatusWaiting || s.Status == StatusAllIn
}

// canAct reports whether a seat still has a decision to make this street.
func (s *Seat) canAct() bool {
	return s.Status == StatusActive && s.Chips > 0
}
