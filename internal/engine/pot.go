package engine

import (
	"fmt"
	"sort"
)

// Pot is one entry in a Hand's ordered pot list: pots[0] is the main pot,
// subsequent entries are side pots in ascending "capped at" order (§3).
type Pot struct {
	Amount      int
	EligibleSet map[int]bool
}

// Name renders the pot's display name per §4.1.
func (p Pot) Name(index int) string {
	if index == 0 {
		return "Main Pot"
	}
	return fmt.Sprintf("Side Pot %d", index)
}

// buildSidePots implements the side-pot construction algorithm of §4.1 and
// §8's round-trip property: given a set of seats and their hand_bet
// contributions, walk the ascending unique contribution levels and build
// one pot per level, restricted to contributors who reached that level and
// are not folded.
func buildSidePots(seats []*Seat) []Pot {
	levelSet := make(map[int]bool)
	for _, s := range seats {
		if s.HandBet > 0 {
			levelSet[s.HandBet] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}

	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		amount := 0
		eligible := make(map[int]bool)
		for _, s := range seats {
			if s.HandBet >= level {
				amount += level - prev
			}
			if s.HandBet >= level && s.Status != StatusFolded {
				eligible[s.SeatID] = true
			}
		}
		if amount > 0 {
			pots = append(pots, Pot{Amount: amount, EligibleSet: eligible})
		}
		prev = level
	}
	return pots
}

// rake computes the chips skimmed from a single pot before award (§4.1):
// min(floor(amount*pct), capBB*bigBlind), with no rake below the
// no-rake threshold (in multiples of big blind).
func rake(amount, bigBlind int, pct float64, capBB int, noRakeThresholdBB int) int {
	if bigBlind <= 0 || amount < noRakeThresholdBB*bigBlind {
		return 0
	}
	skim := int(float64(amount) * pct)
	cap := capBB * bigBlind
	if skim > cap {
		skim = cap
	}
	if skim > amount {
		skim = amount
	}
	return skim
}
