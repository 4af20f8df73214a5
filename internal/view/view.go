// Package view translates engine state into wire-shaped protocol payloads.
// SessionLoop and AIDriver both build their GameState snapshots here, so
// the two call paths can't drift; AIDriver builds its PublicView itself.
package view

import (
	"time"

	"github.com/dstrand/pokerserver/internal/cards"
	"github.com/dstrand/pokerserver/internal/engine"
	"github.com/dstrand/pokerserver/internal/protocol"
)

// Snapshot builds a full (unfiltered) GameState from a hand and its seats.
// ConnectionHub applies per-recipient hole-card filtering at broadcast time
// (§4.5), so every seat's hole cards are populated here.
func Snapshot(hand *engine.Hand, seats []*engine.Seat) protocol.GameState {
	seatViews := make([]protocol.SeatView, len(seats))
	for i, s := range seats {
		seatViews[i] = protocol.SeatView{
			SeatID: s.SeatID, Name: s.DisplayName, IsHuman: s.IsHuman,
			Chips: s.Chips, HoleCards: cards.Strings(s.HoleCards),
			StreetBet: s.StreetBet, HandBet: s.HandBet,
			Status: string(s.Status), Position: s.Position,
		}
	}

	gs := protocol.GameState{Seats: seatViews}
	if hand == nil {
		return gs
	}

	gs.CommunityCards = cards.Strings(hand.CommunityCards)
	gs.Pots = potViews(hand.Pots)
	gs.CurrentRound = string(hand.CurrentRound)
	gs.ButtonPosition = hand.ButtonPosition
	gs.CurrentActorIndex = hand.CurrentActor()
	gs.CurrentBet = hand.CurrentBet
	gs.SmallBlind = hand.SmallBlind
	gs.BigBlind = hand.BigBlind
	gs.Ante = hand.Ante
	gs.ActionHistory = actionHistory(hand.ActionLog)
	return gs
}

func potViews(pots []engine.Pot) []protocol.PotView {
	out := make([]protocol.PotView, len(pots))
	for i, p := range pots {
		ids := make([]int, 0, len(p.EligibleSet))
		for seatID, in := range p.EligibleSet {
			if in {
				ids = append(ids, seatID)
			}
		}
		out[i] = protocol.PotView{Amount: p.Amount, EligibleSet: ids}
	}
	return out
}

func actionHistory(log []engine.ActionLogEntry) []string {
	out := make([]string, len(log))
	for i, e := range log {
		out[i] = string(e.Round) + ":" + e.Action
	}
	return out
}

// ActionRequestFor builds the action_request payload for seatID, using the
// hand's current legal-action set (§4.1, §6).
func ActionRequestFor(hand *engine.Hand, seatID int) protocol.ActionRequest {
	options, callAmount, minRaise, maxRaise := hand.LegalActions(seatID)
	return protocol.ActionRequest{
		HandID: hand.HandID, SeatID: seatID, Options: options,
		CallAmount: callAmount, MinRaise: minRaise, MaxRaise: maxRaise,
		Timestamp: time.Now().UnixMilli(),
	}
}

// IsHuman reports whether seatID belongs to a human player.
func IsHuman(seats []*engine.Seat, seatID int) bool {
	for _, s := range seats {
		if s.SeatID == seatID {
			return s.IsHuman
		}
	}
	return false
}
