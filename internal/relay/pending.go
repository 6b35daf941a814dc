package relay

import (
	"encoding/json"
	"errors"
	"sync"
)

// Timeout and disconnect errors for in-flight commands.
var (
	ErrCommandTimeout = errors.New("command timed out waiting for browser result")
	ErrDisconnected   = errors.New("browser disconnected before result arrived")
)

// outcome is the terminal result of one dispatched command.
type outcome struct {
	result json.RawMessage
	err    error
}

// pendingTable tracks in-flight commands by ID. Each ID has at most one live
// entry, and each entry receives exactly one outcome: a matching result, a
// timeout, or a disconnect.
type pendingTable struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]chan outcome
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[int64]chan outcome)}
}

// add allocates a fresh ID and registers a one-shot outcome channel for it.
func (p *pendingTable) add() (int64, chan outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	ch := make(chan outcome, 1)
	p.entries[id] = ch
	return id, ch
}

// remove deletes the entry without resolving it. Used by the dispatcher on
// timeout/cancellation so a late result becomes a no-op.
func (p *pendingTable) remove(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, id)
}

// resolve delivers an outcome to the entry for id, removing it. Unknown IDs
// (already timed out, or never dispatched) report false.
func (p *pendingTable) resolve(id int64, out outcome) bool {
	p.mu.Lock()
	ch, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	ch <- out
	return true
}

// failAll rejects every pending entry with err and empties the table.
func (p *pendingTable) failAll(err error) {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[int64]chan outcome)
	p.mu.Unlock()

	for _, ch := range entries {
		ch <- outcome{err: err}
	}
}

// size reports the number of in-flight entries.
func (p *pendingTable) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
