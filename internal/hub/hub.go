// Package hub implements ConnectionHub (C5): personalised fan-out of game
// events to subscribed connections, with hole-card filtering for game_state
// snapshots (§4.5).
package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dstrand/pokerserver/internal/protocol"
)

// ErrConnectionClosed is returned by a Subscriber whose send side has
// already been closed.
var ErrConnectionClosed = errors.New("hub: connection closed")

// Subscriber is anything the hub can deliver a message to: a websocket
// session, or a test double. Implementations must not allow two concurrent
// writes (§5).
type Subscriber interface {
	ID() string
	Send(msgType string, data any) error
	Close() error
}

type binding struct {
	sub    Subscriber
	gameID string
	seatID int // 0 means observer (no seat)
	hasSeat bool
}

// ConnectionHub tracks subscribers per game and per (game, seat), and
// fans out broadcasts and per-seat sends (§4.5).
type ConnectionHub struct {
	mu            sync.Mutex
	byGame        map[string]map[string]Subscriber // game_id -> subscriber_id -> Subscriber
	bindings      map[string]binding                 // subscriber_id -> binding
	bySeat        map[string]map[int]string          // game_id -> seat_id -> subscriber_id

	logger *log.Logger
}

// New constructs an empty ConnectionHub.
func New(logger *log.Logger) *ConnectionHub {
	if logger == nil {
		logger = log.Default()
	}
	return &ConnectionHub{
		byGame:   make(map[string]map[string]Subscriber),
		bindings: make(map[string]binding),
		bySeat:   make(map[string]map[int]string),
		logger:   logger.WithPrefix("hub"),
	}
}

// NewSubscriberID mints a connection id (§11 domain stack: google/uuid).
func NewSubscriberID() string {
	return uuid.NewString()
}

// Subscribe atomically evicts any prior subscriber bound to (gameID, seatID)
// and registers sub in its place (§4.5). seatID<=0 means observer.
func (h *ConnectionHub) Subscribe(sub Subscriber, gameID string, seatID int) {
	h.mu.Lock()
	var evicted Subscriber
	if seatID > 0 {
		if seats, ok := h.bySeat[gameID]; ok {
			if priorID, ok := seats[seatID]; ok && priorID != sub.ID() {
				evicted = h.byGame[gameID][priorID]
				h.removeLocked(priorID)
			}
		}
	}

	if h.byGame[gameID] == nil {
		h.byGame[gameID] = make(map[string]Subscriber)
	}
	h.byGame[gameID][sub.ID()] = sub
	h.bindings[sub.ID()] = binding{sub: sub, gameID: gameID, seatID: seatID, hasSeat: seatID > 0}

	if seatID > 0 {
		if h.bySeat[gameID] == nil {
			h.bySeat[gameID] = make(map[int]string)
		}
		h.bySeat[gameID][seatID] = sub.ID()
	}
	h.mu.Unlock()

	if evicted != nil {
		h.logger.Info("evicting prior subscriber for seat", "game_id", gameID, "seat_id", seatID)
		_ = evicted.Close()
	}
}

// Unsubscribe removes sub from both maps.
func (h *ConnectionHub) Unsubscribe(subscriberID string) {
	h.mu.Lock()
	h.removeLocked(subscriberID)
	h.mu.Unlock()
}

// removeLocked requires h.mu held.
func (h *ConnectionHub) removeLocked(subscriberID string) {
	b, ok := h.bindings[subscriberID]
	if !ok {
		return
	}
	delete(h.bindings, subscriberID)
	if g, ok := h.byGame[b.gameID]; ok {
		delete(g, subscriberID)
		if len(g) == 0 {
			delete(h.byGame, b.gameID)
		}
	}
	if b.hasSeat {
		if seats, ok := h.bySeat[b.gameID]; ok {
			if seats[b.seatID] == subscriberID {
				delete(seats, b.seatID)
			}
		}
	}
}

// snapshot returns the game's current subscribers and their seat bindings
// without holding h.mu during delivery.
func (h *ConnectionHub) snapshot(gameID string) []binding {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.byGame[gameID]
	out := make([]binding, 0, len(subs))
	for id, sub := range subs {
		b := h.bindings[id]
		b.sub = sub
		out = append(out, b)
	}
	return out
}

// Broadcast delivers message to every subscriber of gameID. game_state and
// chips_distributed GameState payloads are filtered per-recipient (§4.5);
// every other payload is sent as-is. Delivery is best-effort: a failing subscriber is marked for
// removal and dropped after this fan-out completes, never under h.mu.
func (h *ConnectionHub) Broadcast(gameID string, msgType string, data any) {
	subs := h.snapshot(gameID)

	var failed []string
	for _, b := range subs {
		payload := data
		if msgType == protocol.TypeGameState || msgType == protocol.TypeChipsDistributed {
			if gs, ok := data.(protocol.GameState); ok {
				payload = filterGameState(gs, b.seatID)
			}
		}
		if err := b.sub.Send(msgType, payload); err != nil {
			h.logger.Warn("send failed, marking subscriber for removal", "subscriber", b.sub.ID(), "error", err)
			failed = append(failed, b.sub.ID())
		}
	}

	for _, id := range failed {
		h.Unsubscribe(id)
	}
}

// filterGameState deep-copies gs and nulls out every seat's hole cards
// except the recipient's own (§4.5's filtering rule). recipientSeat<=0
// (observer) sees no hole cards at all.
func filterGameState(gs protocol.GameState, recipientSeat int) protocol.GameState {
	out := gs
	out.Seats = make([]protocol.SeatView, len(gs.Seats))
	for i, s := range gs.Seats {
		out.Seats[i] = s
		if s.SeatID != recipientSeat || recipientSeat <= 0 {
			out.Seats[i].HoleCards = nil
		} else {
			out.Seats[i].HoleCards = append([]string{}, s.HoleCards...)
		}
	}
	return out
}

const (
	sendToSeatRetries = 2
	sendToSeatDelay   = time.Second
)

// SendToSeat delivers message to the subscriber bound to (gameID, seatID),
// retrying up to sendToSeatRetries times ~1s apart (§4.5; used for
// action_request). Returns an error if no subscriber is bound, or if every
// attempt fails.
func (h *ConnectionHub) SendToSeat(gameID string, seatID int, msgType string, data any) error {
	var lastErr error
	for attempt := 0; attempt <= sendToSeatRetries; attempt++ {
		h.mu.Lock()
		subID, ok := h.bySeat[gameID][seatID]
		var sub Subscriber
		if ok {
			sub = h.byGame[gameID][subID]
		}
		h.mu.Unlock()

		if sub == nil {
			return ErrConnectionClosed
		}
		if err := sub.Send(msgType, data); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < sendToSeatRetries {
			time.Sleep(sendToSeatDelay)
		}
	}
	h.Unsubscribe(subscriberAt(h, gameID, seatID))
	return lastErr
}

func subscriberAt(h *ConnectionHub, gameID string, seatID int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bySeat[gameID][seatID]
}
