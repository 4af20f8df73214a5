package engine

import "fmt"

// ErrStreetEnded is returned by TurnController.next when to_act is empty.
var ErrStreetEnded = fmt.Errorf("engine: street ended")

// TurnController owns to_act and current_actor for the hand currently in
// progress (§4.2).
type TurnController struct {
	toAct        map[int]bool
	currentActor int
	seated       []*Seat // stable seated order, clockwise
}

func newTurnController(seated []*Seat) *TurnController {
	return &TurnController{toAct: make(map[int]bool), seated: seated}
}

// seed begins a street: to_act is exactly the given seats, and
// current_actor is set to the first of them in seated order.
func (tc *TurnController) seed(seatIDs []int) {
	tc.toAct = make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		tc.toAct[id] = true
	}
	tc.currentActor = tc.firstInSeatedOrder(seatIDs)
}

// consume removes a seat after it has acted.
func (tc *TurnController) consume(seatID int) {
	delete(tc.toAct, seatID)
}

// reopen re-seeds to_act to every non-folded, non-all-in seat except the
// raiser — used on a full raise (§4.2, P4).
func (tc *TurnController) reopen(raiserID int) {
	ids := make([]int, 0, len(tc.seated))
	for _, s := range tc.seated {
		if s.SeatID == raiserID {
			continue
		}
		if s.Status == StatusActive {
			ids = append(ids, s.SeatID)
		}
	}
	tc.toAct = make(map[int]bool, len(ids))
	for _, id := range ids {
		tc.toAct[id] = true
	}
}

// inToAct reports whether a seat still owes action this street.
func (tc *TurnController) inToAct(seatID int) bool {
	return tc.toAct[seatID]
}

// isEmpty reports whether the street's action is complete.
func (tc *TurnController) isEmpty() bool {
	return len(tc.toAct) == 0
}

// next advances current_actor to the next seat clockwise that is in to_act
// and ACTIVE, or reports ErrStreetEnded if to_act is empty.
func (tc *TurnController) next() (int, error) {
	if tc.isEmpty() {
		return 0, ErrStreetEnded
	}
	idx := tc.indexOf(tc.currentActor)
	n := len(tc.seated)
	for i := 1; i <= n; i++ {
		s := tc.seated[(idx+i)%n]
		if tc.toAct[s.SeatID] && s.Status == StatusActive {
			tc.currentActor = s.SeatID
			return s.SeatID, nil
		}
	}
	return 0, ErrStreetEnded
}

// fixCursor corrects a drifted current_actor (§7 class 7) by seeking the
// expected seat; fails if that seat is not in to_act.
func (tc *TurnController) fixCursor(expectedSeatID int) error {
	if !tc.toAct[expectedSeatID] {
		return fmt.Errorf("engine: fix_cursor: seat %d not in to_act", expectedSeatID)
	}
	tc.currentActor = expectedSeatID
	return nil
}

// CurrentActor returns the seat_id currently on turn.
func (tc *TurnController) CurrentActor() int {
	return tc.currentActor
}

func (tc *TurnController) firstInSeatedOrder(seatIDs []int) int {
	want := make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}
	for _, s := range tc.seated {
		if want[s.SeatID] {
			return s.SeatID
		}
	}
	if len(seatIDs) > 0 {
		return seatIDs[0]
	}
	return 0
}

func (tc *TurnController) indexOf(seatID int) int {
	for i, s := range tc.seated {
		if s.SeatID == seatID {
			return i
		}
	}
	return 0
}
