package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned when a command is dispatched with no browser attached.
var ErrNotConnected = errors.New("no browser connected")

// Session holds the single canonical browser connection. A new connection
// replaces the previous one (last-connected-wins); the replaced socket is
// closed so the stale browser tab notices immediately.
type Session struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Attach makes conn the canonical connection, closing any previous one.
func (s *Session) Attach(conn *websocket.Conn) {
	s.mu.Lock()
	prev := s.conn
	s.conn = conn
	s.mu.Unlock()

	if prev != nil {
		slog.Info("replacing previous browser connection")
		prev.Close()
	}
}

// Detach clears the canonical connection, but only if conn still is it.
// A connection replaced by Attach must not clear its successor on close.
func (s *Session) Detach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != conn {
		return false
	}
	s.conn = nil
	return true
}

// Connected reports whether a browser is currently attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send marshals msg and writes it to the canonical connection.
func (s *Session) Send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
