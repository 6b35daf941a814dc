// Package relay implements the local WebSocket server that forwards operator
// commands to a connected browser runtime and routes results back by ID.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arrival-space/arrival-tools/pkg/protocol"
)

// maxMessageSize is the maximum allowed WebSocket message size (512KB).
// Gorilla/websocket closes the connection with ErrReadLimit if exceeded.
const maxMessageSize = 512 * 1024

// DefaultCommandTimeout bounds how long Execute waits for a browser result.
const DefaultCommandTimeout = 30 * time.Second

// Server accepts browser connections and dispatches exec commands to the one
// canonical connection. All exported methods are safe for concurrent use.
type Server struct {
	session *Session
	pending *pendingTable
	console *consoleLimiter

	httpSrv *http.Server

	// CommandTimeout is the per-command result deadline. Zero means
	// DefaultCommandTimeout.
	CommandTimeout time.Duration

	// OnReady is called after each new browser connection sends its info
	// message. The interactive prompt must not be armed before this fires.
	OnReady func(info protocol.InfoMessage)

	// OnConsole receives forwarded console output from the page.
	OnConsole func(level string, args []interface{})

	// OnConsoleDropped reports how many console messages the flood guard
	// discarded before the current one.
	OnConsoleDropped func(n int64)

	// OnDisconnect is called when the canonical browser connection closes.
	// One-shot mode uses it to exit non-zero.
	OnDisconnect func()
}

// NewServer creates a relay server with default limits.
func NewServer() *Server {
	return &Server{
		session: &Session{},
		pending: newPendingTable(),
		console: newConsoleLimiter(20, 50),
	}
}

// Connected reports whether a browser is attached.
func (s *Server) Connected() bool { return s.session.Connected() }

// Pending reports the number of in-flight commands.
func (s *Server) Pending() int { return s.pending.size() }

// Start binds the listening socket and begins serving in the background.
// A bind failure (port already in use) is returned synchronously so the
// caller can fail fast with a remedy.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	s.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay serve failed", "error", err)
		}
	}()

	slog.Info("relay listening", "port", port)
	return nil
}

// Shutdown stops accepting connections and closes the active one.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Execute sends code to the browser and waits for the matching result.
// It fails immediately with ErrNotConnected when no browser is attached, and
// with ErrCommandTimeout when no result arrives within the command timeout.
func (s *Server) Execute(ctx context.Context, code string) (json.RawMessage, error) {
	if !s.session.Connected() {
		return nil, ErrNotConnected
	}

	id, ch := s.pending.add()
	if err := s.session.Send(protocol.NewExec(id, code)); err != nil {
		s.pending.remove(id)
		return nil, fmt.Errorf("send command: %w", err)
	}

	timeout := s.CommandTimeout
	if timeout == 0 {
		timeout = DefaultCommandTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.result, out.err
	case <-timer.C:
		s.pending.remove(id)
		return nil, ErrCommandTimeout
	case <-ctx.Done():
		s.pending.remove(id)
		return nil, ctx.Err()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay binds to loopback only; the page connects from an arbitrary
	// https origin, so the origin check must not reject it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	slog.Info("browser connected", "remote", r.RemoteAddr)
	s.session.Attach(conn)
	done := make(chan struct{})
	go s.pingLoop(conn, done)
	s.readLoop(conn)
	close(done)

	if s.session.Detach(conn) {
		slog.Info("browser disconnected", "remote", r.RemoteAddr)
		// Reject in-flight commands now rather than letting each run out
		// its 30s timer; the operator sees the disconnect immediately.
		s.pending.failAll(ErrDisconnected)
		if s.OnDisconnect != nil {
			s.OnDisconnect()
		}
	}
	conn.Close()
}

// pingLoop keeps the connection alive until done closes. WriteControl is safe
// to call concurrently with the session writer.
func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// readLoop reads messages from conn until it closes.
func (s *Server) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		s.handleMessage(data)
	}
}

// handleMessage parses and dispatches one inbound message. Malformed frames
// are dropped; the relay favors availability over strictness for frames it
// did not originate.
func (s *Server) handleMessage(data []byte) {
	msgType, err := protocol.ParseMessageType(data)
	if err != nil {
		slog.Debug("dropping malformed frame", "error", err)
		return
	}

	switch msgType {
	case protocol.MessageTypeResult:
		var msg protocol.ResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("dropping malformed result", "error", err)
			return
		}
		out := outcome{result: msg.Result}
		if msg.Error != "" {
			out = outcome{err: fmt.Errorf("execution failed: %s", msg.Error)}
		}
		if !s.pending.resolve(msg.ID, out) {
			// Late result after timeout, or an ID we never issued.
			slog.Debug("result for unknown command id", "id", msg.ID)
		}

	case protocol.MessageTypeConsole:
		var msg protocol.ConsoleMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("dropping malformed console message", "error", err)
			return
		}
		if !s.console.allow() {
			return
		}
		if n := s.console.takeDropped(); n > 0 && s.OnConsoleDropped != nil {
			s.OnConsoleDropped(n)
		}
		if s.OnConsole != nil {
			s.OnConsole(msg.Level, msg.Args)
		}

	case protocol.MessageTypeInfo:
		var msg protocol.InfoMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("dropping malformed info message", "error", err)
			return
		}
		slog.Info("session info received", "room", msg.Room, "user", msg.User)
		if s.OnReady != nil {
			s.OnReady(msg)
		}

	case protocol.MessageTypeEvent:
		var msg protocol.EventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		slog.Debug("browser event", "event", msg.Event)

	default:
		slog.Debug("unexpected message type", "type", msgType)
	}
}
