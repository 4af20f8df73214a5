// Package session implements SessionLoop (C8): one per-connection read/write
// pump pair that dispatches the four client message types and enforces the
// idle-keepalive policy (§4.7).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/dstrand/pokerserver/internal/hub"
	"github.com/dstrand/pokerserver/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 8192

	// idleKeepalive/idleClose implement §4.7's policy: a keepalive is sent
	// after 30s of inbound silence, and the connection is dropped after 120s.
	idleKeepalive = 30 * time.Second
	idleClose     = 120 * time.Second

	chatMaxLen = 500
)

// Session is one SessionLoop: it owns a websocket connection bound to
// (gameID, seatID) (seatID<=0 for an observer) and implements
// hub.Subscriber.
type Session struct {
	id     string
	conn   *websocket.Conn
	send   chan protocol.Envelope
	gameID string
	seatID int

	game   Game
	runner *Runner
	hub    *hub.ConnectionHub

	log *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu           sync.Mutex
	lastActivity time.Time
}

// New constructs a Session bound to one game/seat pair. id should come from
// hub.NewSubscriberID.
func New(id string, conn *websocket.Conn, gameID string, seatID int, game Game, h *hub.ConnectionHub, runner *Runner, logger *log.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		id: id, conn: conn, send: make(chan protocol.Envelope, 256),
		gameID: gameID, seatID: seatID, game: game, runner: runner, hub: h,
		log: logger.WithPrefix("session"), ctx: ctx, cancel: cancel,
		lastActivity: time.Now(),
	}
}

// ID implements hub.Subscriber.
func (s *Session) ID() string { return s.id }

// Send implements hub.Subscriber: non-blocking, closing the connection if
// the outbound queue is saturated rather than stalling the hub's fan-out.
func (s *Session) Send(msgType string, data any) error {
	select {
	case s.send <- protocol.Envelope{Type: msgType, Data: data}:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		s.log.Warn("send buffer full, closing connection")
		_ = s.Close()
		return websocket.ErrCloseSent
	}
}

// Close implements hub.Subscriber.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.send)
		err = s.conn.Close()
	})
	return err
}

// Start launches the read/write pumps and the idle watcher, blocking until
// the read pump exits (connection closed or a protocol-level error).
func (s *Session) Start() {
	go s.writePump()
	go s.idleWatch()
	s.readPump()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// idleWatch implements §4.7's keepalive/idle-close policy independently of
// the websocket control-frame ping, since liveness here is judged by
// application messages, not transport frames.
func (s *Session) idleWatch() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	sentKeepalive := false
	for {
		select {
		case <-ticker.C:
			idle := s.idleSince()
			if idle >= idleClose {
				s.log.Warn("idle timeout, closing connection")
				_ = s.Close()
				return
			}
			if idle >= idleKeepalive {
				if !sentKeepalive {
					_ = s.Send(protocol.TypeKeepalive, protocol.Keepalive{Timestamp: time.Now().UnixMilli()})
					sentKeepalive = true
				}
			} else {
				sentKeepalive = false
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unsubscribe(s.id)
		_ = s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Error("read error", "error", err)
			}
			return
		}
		s.touch()
		s.dispatch(raw)
	}
}

func (s *Session) dispatch(raw []byte) {
	msgType, data, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		s.sendError(protocol.ErrInvalidFormat, "malformed envelope")
		return
	}

	msg, err := protocol.DecodeClientMessage(msgType, data)
	if err != nil {
		s.sendError(protocol.ErrInvalidFormat, err.Error())
		return
	}

	switch m := msg.(type) {
	case *protocol.ActionIn:
		s.handleAction(*m)
	case *protocol.ChatIn:
		s.handleChat(*m)
	case *protocol.PingIn:
		s.handlePing(*m)
	case *protocol.AnimationDoneIn:
		s.handleAnimationDone(*m)
	}
}

func (s *Session) writePump() {
	for {
		select {
		case env, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				s.log.Error("write failed", "error", err)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) sendError(code, message string) {
	_ = s.Send(protocol.TypeError, protocol.ErrorMessage{Code: code, Message: message})
}
