// Package protocol defines the wire format for the arrival-cli relay WebSocket
// protocol. The browser-side client imports the same shapes, so this package is
// kept free of server dependencies.
package protocol

import "encoding/json"

// Message types
const (
	MessageTypeExec    = "exec"
	MessageTypeResult  = "result"
	MessageTypeConsole = "console"
	MessageTypeEvent   = "event"
	MessageTypeInfo    = "info"
)

// ExecMessage is sent from the CLI to the browser to evaluate code in page context.
type ExecMessage struct {
	Type string `json:"type"` // always "exec"
	ID   int64  `json:"id"`   // unique command ID (CLI-generated, monotonic)
	Code string `json:"code"` // JavaScript source to evaluate
}

// ResultMessage is sent by the browser in response to an exec message.
// Exactly one of Result or Error is meaningful; Error non-empty means failure.
type ResultMessage struct {
	Type   string          `json:"type"` // always "result"
	ID     int64           `json:"id"`   // matches the exec ID
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ConsoleMessage forwards a console.log/warn/error call from the page.
type ConsoleMessage struct {
	Type  string        `json:"type"`  // always "console"
	Level string        `json:"level"` // "log", "info", "warn", "error", "debug"
	Args  []interface{} `json:"args"`
}

// EventMessage is a fire-and-forget notification from the browser.
type EventMessage struct {
	Type  string `json:"type"` // always "event"
	Event string `json:"event"`
}

// InfoMessage carries session metadata, sent once per new browser connection.
// The CLI uses it as the signal that the session is ready for commands.
type InfoMessage struct {
	Type string `json:"type"` // always "info"
	Room string `json:"room"` // current space/room name
	User string `json:"user"` // logged-in user name
}

// NewExec creates an exec message.
func NewExec(id int64, code string) *ExecMessage {
	return &ExecMessage{Type: MessageTypeExec, ID: id, Code: code}
}

// ParseMessageType extracts the message type from raw JSON bytes.
func ParseMessageType(data []byte) (string, error) {
	var raw struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	return raw.Type, nil
}
