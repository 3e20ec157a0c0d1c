// internal/models/history.go
package models

import "sync"

// History is the append-only log of completed turns.
type History struct {
	mu    sync.RWMutex
	turns []ConversationTurn
}

// NewHistory seeds a history, e.g. from turns supplied by an API caller.
func NewHistory(turns ...ConversationTurn) *History {
	h := &History{}
	h.turns = append(h.turns, turns...)
	return h
}

func (h *History) Append(turn ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// Turns returns a copy in append order.
func (h *History) Turns() []ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Last returns the most recent turn.
func (h *History) Last() (ConversationTurn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return ConversationTurn{}, false
	}
	return h.turns[len(h.turns)-1], true
}
