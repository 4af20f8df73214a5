package session

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/protocol"
	"github.com/dstrand/pokerserver/internal/view"
)

// handleAction implements the `action` message: the acting seat's decision
// in response to the action_request it was sent (§4.7).
func (s *Session) handleAction(in protocol.ActionIn) {
	if s.seatID <= 0 {
		s.sendError(protocol.ErrNotAuthorized, "observers cannot act")
		return
	}

	s.game.Lock()
	hand := s.game.CurrentHand()
	if hand == nil {
		s.game.Unlock()
		s.sendError(protocol.ErrGameNotFound, "no hand in progress")
		return
	}
	if !hand.ToAct(s.seatID) {
		s.game.Unlock()
		s.sendError(protocol.ErrActionFailed, "seat owes no action this street")
		return
	}
	if hand.CurrentActor() != s.seatID {
		s.game.Unlock()
		s.sendError(protocol.ErrNotYourTurn, "it is not your turn")
		return
	}

	res := hand.Apply(s.seatID, in.Action, in.Amount)
	snapshot := view.Snapshot(hand, s.game.AllSeats())
	s.game.Unlock()

	if !res.Success {
		s.sendError(errorCode(res.ErrorKind), "action rejected")
		return
	}

	s.runner.Dispatch(s.ctx, s.game, s.gameID, res, snapshot)
}

func errorCode(kind engine.ErrorKind) string {
	switch kind {
	case engine.ErrKindNotYourTurn:
		return protocol.ErrNotYourTurn
	case engine.ErrKindInvalidAction:
		return protocol.ErrInvalidAction
	default:
		return protocol.ErrActionFailed
	}
}

// handleChat implements the `chat` message: broadcast to the table, or a
// private line to a single seat when Target names one (§4.7).
func (s *Session) handleChat(in protocol.ChatIn) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return
	}
	if len(text) > chatMaxLen {
		text = text[:chatMaxLen]
	}

	out := protocol.Chat{From: s.displayFrom(), Text: text, Timestamp: time.Now().UnixMilli()}

	if in.Target == "" {
		s.hub.Broadcast(s.gameID, protocol.TypeChat, out)
		return
	}
	targetSeat, err := strconv.Atoi(in.Target)
	if err != nil {
		s.sendError(protocol.ErrInvalidFormat, "chat target must be a seat id")
		return
	}
	if err := s.hub.SendToSeat(s.gameID, targetSeat, protocol.TypeChat, out); err != nil {
		s.sendError(protocol.ErrPlayerNotFound, "chat target is not connected")
	}
}

func (s *Session) displayFrom() string {
	if s.seatID <= 0 {
		return "observer"
	}
	s.game.Lock()
	defer s.game.Unlock()
	for _, seat := range s.game.AllSeats() {
		if seat.SeatID == s.seatID {
			return seat.DisplayName
		}
	}
	return "unknown"
}

// handlePing implements the `ping` message: always answers with a pong, and
// a fresh (per-recipient-filtered) game_state when NeedsRefresh is set.
func (s *Session) handlePing(in protocol.PingIn) {
	_ = s.Send(protocol.TypePong, protocol.Keepalive{Timestamp: time.Now().UnixMilli()})

	if !in.NeedsRefresh {
		return
	}

	s.game.Lock()
	hand := s.game.CurrentHand()
	if hand == nil {
		s.game.Unlock()
		return
	}
	full := view.Snapshot(hand, s.game.AllSeats())
	s.game.Unlock()

	_ = s.Send(protocol.TypeGameState, filterForSelf(full, s.seatID))
}

// filterForSelf strips every other seat's hole cards, mirroring
// ConnectionHub's Broadcast filtering (§4.5) for the direct Send path.
func filterForSelf(gs protocol.GameState, seatID int) protocol.GameState {
	out := gs
	out.Seats = make([]protocol.SeatView, len(gs.Seats))
	for i, sv := range gs.Seats {
		out.Seats[i] = sv
		if sv.SeatID != seatID || seatID <= 0 {
			out.Seats[i].HoleCards = nil
		}
	}
	return out
}

// handleAnimationDone implements the `animation_done` message: it
// acknowledges a pending EventOrchestrator wait, and — for the terminal
// hand_visually_concluded step — starts the next hand if the table still
// has enough eligible seats (§4.7).
func (s *Session) handleAnimationDone(in protocol.AnimationDoneIn) {
	s.runner.orchestrator.AnimationDone(s.gameID, in.StepType)

	if in.StepType != "hand_visually_concluded" {
		return
	}

	s.game.Lock()
	if !s.game.IsActive() || s.game.EligibleSeatCount() < 2 {
		s.game.Unlock()
		return
	}
	hand, err := s.game.StartHand()
	if err != nil {
		s.game.Unlock()
		s.log.Error("failed to start next hand", "error", err)
		return
	}
	snapshot := view.Snapshot(hand, s.game.AllSeats())
	actor := hand.CurrentActor()
	actorIsHuman := view.IsHuman(s.game.AllSeats(), actor)
	s.game.Unlock()

	s.hub.Broadcast(s.gameID, protocol.TypeGameState, snapshot)
	if actor <= 0 {
		return
	}
	if actorIsHuman {
		_ = s.hub.SendToSeat(s.gameID, actor, protocol.TypeActionRequest, view.ActionRequestFor(hand, actor))
		return
	}
	if s.runner.driver == nil {
		return
	}
	go s.runner.driver.Act(context.Background(), s.game, actor, func(res engine.GameActionResult, resSnapshot protocol.GameState) {
		s.runner.Dispatch(context.Background(), s.game, s.gameID, res, resSnapshot)
	})
}
