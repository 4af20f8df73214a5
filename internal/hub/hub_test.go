package hub_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrand/pokerserver/internal/hub"
	"github.com/dstrand/pokerserver/internal/protocol"
)

type fakeSub struct {
	id     string
	mu     sync.Mutex
	inbox  []sentMessage
	closed bool
	failNext bool
}

type sentMessage struct {
	msgType string
	data    any
}

func newFakeSub(id string) *fakeSub { return &fakeSub{id: id} }

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Send(msgType string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return hub.ErrConnectionClosed
	}
	if f.failNext {
		return errors.New("send failed")
	}
	f.inbox = append(f.inbox, sentMessage{msgType, data})
	return nil
}

func (f *fakeSub) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSub) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage{}, f.inbox...)
}

func TestSubscribe_EvictsPriorSubscriberForSameSeat(t *testing.T) {
	h := hub.New(nil)
	first := newFakeSub("a")
	second := newFakeSub("b")

	h.Subscribe(first, "game-1", 1)
	h.Subscribe(second, "game-1", 1)

	assert.True(t, first.closed)
	h.Broadcast("game-1", protocol.TypeKeepalive, protocol.Keepalive{Timestamp: 1})
	assert.Empty(t, first.messages())
	require.Len(t, second.messages(), 1)
}

func TestBroadcast_FiltersHoleCardsPerRecipient(t *testing.T) {
	h := hub.New(nil)
	seat1 := newFakeSub("seat1")
	seat2 := newFakeSub("seat2")
	observer := newFakeSub("observer")

	h.Subscribe(seat1, "game-1", 1)
	h.Subscribe(seat2, "game-1", 2)
	h.Subscribe(observer, "game-1", 0)

	gs := protocol.GameState{
		Seats: []protocol.SeatView{
			{SeatID: 1, HoleCards: []string{"AS", "KS"}},
			{SeatID: 2, HoleCards: []string{"2C", "3C"}},
		},
	}
	h.Broadcast("game-1", protocol.TypeGameState, gs)

	seat1Msg := seat1.messages()[0].data.(protocol.GameState)
	assert.Equal(t, []string{"AS", "KS"}, seat1Msg.Seats[0].HoleCards)
	assert.Nil(t, seat1Msg.Seats[1].HoleCards)

	seat2Msg := seat2.messages()[0].data.(protocol.GameState)
	assert.Nil(t, seat2Msg.Seats[0].HoleCards)
	assert.Equal(t, []string{"2C", "3C"}, seat2Msg.Seats[1].HoleCards)

	obsMsg := observer.messages()[0].data.(protocol.GameState)
	assert.Nil(t, obsMsg.Seats[0].HoleCards)
	assert.Nil(t, obsMsg.Seats[1].HoleCards)
}

func TestBroadcast_DropsFailingSubscriberAfterFanOut(t *testing.T) {
	h := hub.New(nil)
	ok := newFakeSub("ok")
	bad := newFakeSub("bad")
	bad.failNext = true

	h.Subscribe(ok, "game-1", 1)
	h.Subscribe(bad, "game-1", 2)

	h.Broadcast("game-1", protocol.TypeKeepalive, protocol.Keepalive{Timestamp: 1})
	require.Len(t, ok.messages(), 1)

	// bad was dropped; a second broadcast only reaches ok.
	h.Broadcast("game-1", protocol.TypeKeepalive, protocol.Keepalive{Timestamp: 2})
	assert.Len(t, ok.messages(), 2)
}

func TestUnsubscribe_RemovesFromBothMaps(t *testing.T) {
	h := hub.New(nil)
	s := newFakeSub("s")
	h.Subscribe(s, "game-1", 1)
	h.Unsubscribe("s")

	err := h.SendToSeat("game-1", 1, protocol.TypeKeepalive, protocol.Keepalive{})
	assert.ErrorIs(t, err, hub.ErrConnectionClosed)
}

func TestSendToSeat_NoBindingReturnsError(t *testing.T) {
	h := hub.New(nil)
	err := h.SendToSeat("game-1", 9, protocol.TypeKeepalive, protocol.Keepalive{})
	assert.ErrorIs(t, err, hub.ErrConnectionClosed)
}
