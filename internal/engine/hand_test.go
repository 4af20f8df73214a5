package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrand/pokerserver/internal/randutil"
)

func headsUpSeats(chipsA, chipsB int) []*Seat {
	return []*Seat{
		{SeatID: 1, DisplayName: "A", Chips: chipsA, Status: StatusActive},
		{SeatID: 2, DisplayName: "B", Chips: chipsB, Status: StatusActive},
	}
}

func TestNewHand_HeadsUpPostsBlindsAndDealsTwoHoleCards(t *testing.T) {
	seats := headsUpSeats(1000, 1000)
	h := NewHand("hand-1", 1, seats, 1, 10, 20, 0, NoLimit, RakeConfig{NoRakeThreshold: 10}, randutil.New(1))

	assert.Equal(t, 990, seats[0].Chips) // button/SB
	assert.Equal(t, 980, seats[1].Chips) // BB
	assert.Equal(t, RoundPreflop, h.CurrentRound)
	assert.Equal(t, 1, h.CurrentActor()) // heads-up: button acts first preflop
	for _, s := range seats {
		assert.Len(t, s.HoleCards, 2)
	}
}

// Scenario 1 (§8): heads-up, SB calls, BB checks, board runs to river with
// checks throughout; exactly one 40-chip pot at showdown, no rake.
func TestScenario_HeadsUpCheckdown(t *testing.T) {
	seats := headsUpSeats(1000, 1000)
	h := NewHand("hand-1", 1, seats, 1, 10, 20, 0, NoLimit, RakeConfig{NoRakeThreshold: 10}, randutil.New(7))

	res := h.Apply(1, "CALL", 0) // SB calls to 20
	require.True(t, res.Success)
	assert.True(t, res.HasNextActor)
	assert.Equal(t, 2, res.NextActorID)

	res = h.Apply(2, "CHECK", 0) // BB checks, preflop closes
	require.True(t, res.Success)
	require.Contains(t, res.Events, EventStreetDealingRequired)
	assert.Equal(t, RoundFlop, h.CurrentRound)
	assert.True(t, res.HasNextActor)
	assert.Equal(t, 2, res.NextActorID) // non-heads-up-preflop street: BB acts first

	for _, street := range []Round{RoundFlop, RoundTurn} {
		require.Equal(t, street, h.CurrentRound)
		res = h.Apply(2, "CHECK", 0)
		require.True(t, res.Success)
		res = h.Apply(1, "CHECK", 0)
		require.True(t, res.Success)
	}

	require.Equal(t, RoundRiver, h.CurrentRound)
	res = h.Apply(2, "CHECK", 0)
	require.True(t, res.Success)
	res = h.Apply(1, "CHECK", 0)
	require.True(t, res.Success)
	assert.Contains(t, res.Events, EventHandCompleted)

	require.Len(t, h.Pots, 1)
	assert.Equal(t, 40, h.Pots[0].Amount) // no rake: 40 < 10*BB threshold
	assert.Equal(t, 2000, seats[0].Chips+seats[1].Chips, "P1: chip conservation")
}

// Scenario 3 (§8): a short all-in does not reopen action for players who
// already acted this street. button=C so 3-handed action runs C -> A -> B.
func TestScenario_ShortAllInDoesNotReopen(t *testing.T) {
	seats := []*Seat{
		{SeatID: 1, DisplayName: "A", Chips: 1000, Status: StatusActive},
		{SeatID: 2, DisplayName: "B", Chips: 1000, Status: StatusActive},
		{SeatID: 3, DisplayName: "C", Chips: 30, Status: StatusActive},
	}
	h := NewHand("hand-1", 1, seats, 3, 10, 20, 0, NoLimit, RakeConfig{}, randutil.New(3))
	require.Equal(t, 3, h.CurrentActor())

	res := h.Apply(3, "ALL_IN", 0) // C (button/UTG-equivalent) all-in for 30; not a full raise over the BB of 20
	require.True(t, res.Success)
	require.Equal(t, 1, res.NextActorID)

	res = h.Apply(1, "RAISE", 80) // A raises to 80: a full raise, reopens for B only (C is ALL_IN)
	require.True(t, res.Success)
	require.Equal(t, 2, res.NextActorID)

	res = h.Apply(2, "CALL", 0) // B calls 80, street closes
	require.True(t, res.Success)

	assert.Contains(t, res.Events, EventBettingRoundCompleted, "B's call closes preflop; A is not owed another action after the short all-in")
	assert.False(t, h.ToAct(3), "C is ALL_IN and never re-enters to_act")
}

// Scenario 2 (§8): three-way all-in preflop leaves every seat level at 200,
// then uneven postflop betting between the two seats still holding chips
// builds a side pot that excludes the short all-in seat.
func TestScenario_ThreeWayAllInBuildsSidePot(t *testing.T) {
	seats := []*Seat{
		{SeatID: 1, DisplayName: "A", Chips: 1000, Status: StatusActive},
		{SeatID: 2, DisplayName: "B", Chips: 200, Status: StatusActive},
		{SeatID: 3, DisplayName: "C", Chips: 1000, Status: StatusActive},
	}
	h := NewHand("hand-1", 1, seats, 1, 10, 20, 0, NoLimit, RakeConfig{}, randutil.New(2))
	require.Equal(t, 1, h.CurrentActor()) // 3-handed: button A is UTG-equivalent

	res := h.Apply(1, "RAISE", 100) // A raises to 100
	require.True(t, res.Success)
	require.Equal(t, 2, res.NextActorID)

	res = h.Apply(2, "ALL_IN", 0) // B all-in for 200 total, a full raise, reopens A
	require.True(t, res.Success)
	require.Equal(t, 3, res.NextActorID)

	res = h.Apply(3, "CALL", 0) // C calls 200
	require.True(t, res.Success)
	require.Equal(t, 1, res.NextActorID)

	res = h.Apply(1, "CALL", 0) // A calls 200, preflop closes, B is ALL_IN
	require.True(t, res.Success)
	require.Equal(t, RoundFlop, h.CurrentRound)
	require.Equal(t, 3, res.NextActorID) // B is skipped; C acts first postflop

	res = h.Apply(3, "BET", 100) // C bets, A calls, building a side pot over B's all-in
	require.True(t, res.Success)
	res = h.Apply(1, "CALL", 0)
	require.True(t, res.Success)

	for _, street := range []Round{RoundTurn, RoundRiver} {
		require.Equal(t, street, h.CurrentRound)
		res = h.Apply(3, "CHECK", 0)
		require.True(t, res.Success)
		res = h.Apply(1, "CHECK", 0)
		require.True(t, res.Success)
	}
	assert.Contains(t, res.Events, EventHandCompleted)

	require.Len(t, h.Pots, 2)
	assert.Equal(t, 600, h.Pots[0].Amount)
	assert.True(t, h.Pots[0].EligibleSet[1])
	assert.True(t, h.Pots[0].EligibleSet[2])
	assert.True(t, h.Pots[0].EligibleSet[3])
	assert.Equal(t, 200, h.Pots[1].Amount)
	assert.False(t, h.Pots[1].EligibleSet[2], "B's all-in never reaches the side pot")

	assert.Equal(t, 2200, seats[0].Chips+seats[1].Chips+seats[2].Chips, "P1: chip conservation")
}

func TestLegalActions_CheckOnlyWhenNoOutstandingBet(t *testing.T) {
	seats := headsUpSeats(1000, 1000)
	h := NewHand("hand-1", 1, seats, 1, 10, 20, 0, NoLimit, RakeConfig{}, randutil.New(1))
	h.Apply(1, "CALL", 0)

	options, callAmount, _, _ := h.LegalActions(2)
	assert.Contains(t, options, "CHECK")
	assert.NotContains(t, options, "CALL")
	assert.Equal(t, 0, callAmount)
}

func TestApply_RejectsActionFromSeatNotOnTurn(t *testing.T) {
	seats := headsUpSeats(1000, 1000)
	h := NewHand("hand-1", 1, seats, 1, 10, 20, 0, NoLimit, RakeConfig{}, randutil.New(1))

	res := h.Apply(2, "CHECK", 0) // it's seat 1's (button/SB) turn preflop heads-up
	assert.False(t, res.Success)
	assert.Equal(t, ErrKindNotYourTurn, res.ErrorKind)
}

func TestApply_DuplicateActionAfterConsumedReturnsActionFailed(t *testing.T) {
	seats := headsUpSeats(1000, 1000)
	h := NewHand("hand-1", 1, seats, 1, 10, 20, 0, NoLimit, RakeConfig{}, randutil.New(1))

	res := h.Apply(1, "CALL", 0)
	require.True(t, res.Success)

	// Retry the same (now stale) action from seat 1, who is no longer on turn.
	res = h.Apply(1, "CHECK", 0)
	assert.False(t, res.Success)
	assert.Equal(t, ErrKindActionFailed, res.ErrorKind)
}

func TestBuildSidePots_ThreeWayAllIn(t *testing.T) {
	seats := []*Seat{
		{SeatID: 1, HandBet: 200, Status: StatusActive},
		{SeatID: 2, HandBet: 200, Status: StatusAllIn},
		{SeatID: 3, HandBet: 200, Status: StatusActive},
	}
	pots := buildSidePots(seats)
	require.Len(t, pots, 1)
	assert.Equal(t, 600, pots[0].Amount)
	assert.True(t, pots[0].EligibleSet[1])
	assert.True(t, pots[0].EligibleSet[2])
	assert.True(t, pots[0].EligibleSet[3])
}

func TestBuildSidePots_UnevenContributionsCreateSidePot(t *testing.T) {
	seats := []*Seat{
		{SeatID: 1, HandBet: 1000, Status: StatusActive},
		{SeatID: 2, HandBet: 200, Status: StatusAllIn},
		{SeatID: 3, HandBet: 1000, Status: StatusActive},
	}
	pots := buildSidePots(seats)
	require.Len(t, pots, 2)
	assert.Equal(t, 600, pots[0].Amount) // main pot: 200*3
	assert.True(t, pots[0].EligibleSet[2])
	assert.Equal(t, 1600, pots[1].Amount) // side pot: 800*2
	assert.False(t, pots[1].EligibleSet[2])
}

func TestBuildSidePots_FoldedSeatsContributeButAreNeverEligible(t *testing.T) {
	seats := []*Seat{
		{SeatID: 1, HandBet: 100, Status: StatusFolded},
		{SeatID: 2, HandBet: 100, Status: StatusActive},
	}
	pots := buildSidePots(seats)
	require.Len(t, pots, 1)
	assert.Equal(t, 200, pots[0].Amount)
	assert.False(t, pots[0].EligibleSet[1])
	assert.True(t, pots[0].EligibleSet[2])
}

func TestRake_NoRakeBelowThreshold(t *testing.T) {
	assert.Equal(t, 0, rake(150, 20, 0.05, 3, 10)) // 150 < 10*20
}

func TestRake_SkimsAboveThresholdCappedByBB(t *testing.T) {
	got := rake(10000, 20, 0.05, 3, 10) // 10000*0.05=500, cap=3*20=60
	assert.Equal(t, 60, got)
}
