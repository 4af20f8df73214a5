package engine

// ErrorKind enumerates why an action was rejected (§4.3, §7).
type ErrorKind string

const (
	ErrKindNone           ErrorKind = ""
	ErrKindNotYourTurn    ErrorKind = "not_your_turn"
	ErrKindInvalidAction  ErrorKind = "invalid_action"
	ErrKindActionFailed   ErrorKind = "action_failed"
)

// Event is one fact a GameActionResult reports about what happened when an
// action was applied (§4.3).
type Event string

const (
	EventPlayerActionProcessed   Event = "PLAYER_ACTION_PROCESSED"
	EventBettingRoundCompleted   Event = "BETTING_ROUND_COMPLETED"
	EventStreetDealingRequired   Event = "STREET_DEALING_REQUIRED"
	EventShowdownTriggered       Event = "SHOWDOWN_TRIGGERED"
	EventEarlyShowdownTriggered  Event = "EARLY_SHOWDOWN_TRIGGERED"
	EventHandCompleted           Event = "HAND_COMPLETED"
)

// AnimationSequence selects which client animation the EventOrchestrator
// should play for this result (§4.3).
type AnimationSequence string

const (
	AnimationNone           AnimationSequence = "NONE"
	AnimationChipCollection AnimationSequence = "CHIP_COLLECTION"
	AnimationStreetDealing  AnimationSequence = "STREET_DEALING"
	AnimationShowdownReveal AnimationSequence = "SHOWDOWN_REVEAL"
	AnimationHandConclusion AnimationSequence = "HAND_CONCLUSION"
)

// GameActionResult is the immutable value HandStateMachine.apply returns;
// the EventOrchestrator decides all notifications from this alone (§4.3,
// §9's "deep mutation then broadcast" re-architecture mapping).
type GameActionResult struct {
	Success              bool
	ErrorKind            ErrorKind
	ActingSeatID         int
	Action               string
	Amount               int
	Events               []Event
	AnimationSequence    AnimationSequence
	PendingStreetsToDeal []StreetDeal
	PostStreetBet        int
	PostHandBet          int
	NextActorID          int
	HasNextActor         bool

	// Snapshot data the orchestrator needs without re-reading the Hand under
	// lock a second time — cheap to copy, same lifetime as the result.
	HandID    string
	Street    Round
	DealtCards []string
	Pots      []Pot
	Winners   map[int][]PotAward // pot index -> awards

	// ClosingStreetBets/PotTotalAfterStreet capture the street's final
	// per-seat contributions before advanceRound zeroes them, for the
	// orchestrator's round_bets_finalized step (§4.4 step 3).
	ClosingStreetBets   map[int]int
	PotTotalAfterStreet int
}

// StreetDeal names a board street and the cards dealt for it during an
// all-in runout (§4.3's pending_streets_to_deal).
type StreetDeal struct {
	Street Round
	Cards  []string
}

// PotAward is one seat's share of one pot at showdown.
type PotAward struct {
	SeatID   int
	HandRank string
	Share    int
}

func failResult(kind ErrorKind) GameActionResult {
	return GameActionResult{Success: false, ErrorKind: kind}
}
