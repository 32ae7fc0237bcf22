// Package server exposes the relay over HTTP: the WebSocket endpoint and
// the user registration API.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Session is one authenticated WebSocket connection. Its identity is set
// once at the handshake and is the only sender identity the connection
// can ever use; anything claimed inside later payloads is ignored.
//
// The read loop processes the connection's events strictly in the order
// received; different sessions run concurrently and share nothing but the
// registry and the stores.
type Session struct {
	id       string
	identity auth.Identity
	conn     *websocket.Conn
	send     chan []byte
	log      *slog.Logger
	router   *relay.Router

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewSession(log *slog.Logger, conn *websocket.Conn, identity auth.Identity,
	router *relay.Router, sendBuffer int) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		log:      log.With("conn", id, "user", identity.ID),
		router:   router,
	}
}

// Consume implements contract.Sink. It never blocks the dispatcher: if
// the connection's outbound buffer is full the event is dropped and the
// backpressure is logged. A joiner recovers dropped messages from its
// next history fetch.
func (s *Session) Consume(ctx context.Context, e event.ServerEvent) error {
	data, err := json.Marshal(outEnvelope{Event: e.EventName(), Data: e})
	if err != nil {
		return err
	}

	// A dispatcher may still hold this sink for an instant after the
	// session closed; delivery is only promised to live subscribers.
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}

	select {
	case s.send <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("outbound buffer full, dropping event", "event", e.EventName())
		return nil
	}
}

// Run starts the write pump and processes inbound events until the
// transport closes. It always leaves the registry clean behind it.
func (s *Session) Run(ctx context.Context) {
	go s.writePump()
	s.readLoop(ctx)
}

func (s *Session) readLoop(ctx context.Context) {
	defer func() {
		s.router.Disconnect(s.id)
		s.close()
		s.log.Info("session closed")
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("transport error", "error", err)
			}
			return
		}
		s.handleFrame(ctx, raw)
	}
}

// handleFrame decodes one inbound frame and runs the matching operation.
// Failures are non-fatal: they are reported on the error event and the
// session keeps serving.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	var frame envelope
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.emitError(ctx, "malformed event")
		return
	}

	switch frame.Event {
	case "join":
		var cmd domain.JoinCommand
		if err := json.Unmarshal(frame.Data, &cmd); err != nil {
			s.emitError(ctx, "malformed join payload")
			return
		}
		if err := s.router.Join(ctx, s.id, s.identity.ID, cmd, s); err != nil {
			s.emitError(ctx, err.Error())
		}
	case "sendMessage":
		var cmd domain.SendMessageCommand
		if err := json.Unmarshal(frame.Data, &cmd); err != nil {
			s.emitError(ctx, "malformed sendMessage payload")
			return
		}
		if err := s.router.Send(ctx, s.id, s.identity.ID, cmd); err != nil {
			s.emitError(ctx, err.Error())
		}
	default:
		s.emitError(ctx, "unknown event: "+frame.Event)
	}
}

func (s *Session) emitError(ctx context.Context, message string) {
	if err := s.Consume(ctx, event.Error(message)); err != nil {
		s.log.Warn("error event not delivered", "error", err)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()
		_ = s.conn.Close()
	})
}
