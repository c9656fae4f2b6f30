package controller

import (
	"sync"

	"github.com/balazsgrill/synapse"
)

// History holds the session's settled executions, newest first. Only the
// owning Controller adds to it; everyone else gets copies.
type History struct {
	mu sync.RWMutex
	// oldest first; reversed on read
	entries []synapse.AgentExecution
}

func NewHistory() *History {
	return &History{}
}

func (h *History) prepend(exec synapse.AgentExecution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, exec.Clone())
}

func (h *History) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// Entries returns all executions, most recent first.
func (h *History) Entries() []synapse.AgentExecution {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]synapse.AgentExecution, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0; i-- {
		out = append(out, h.entries[i].Clone())
	}
	return out
}

func (h *History) Latest() (synapse.AgentExecution, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return synapse.AgentExecution{}, false
	}
	return h.entries[len(h.entries)-1].Clone(), true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
