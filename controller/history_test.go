package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balazsgrill/synapse"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory()
	_, ok := h.Latest()
	assert.False(t, ok)

	h.prepend(synapse.AgentExecution{ID: "exec_1"})
	h.prepend(synapse.AgentExecution{ID: "exec_2"})
	h.prepend(synapse.AgentExecution{ID: "exec_3"})

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "exec_3", entries[0].ID)
	assert.Equal(t, "exec_2", entries[1].ID)
	assert.Equal(t, "exec_1", entries[2].ID)

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, "exec_3", latest.ID)
	assert.Equal(t, 3, h.Len())
}

func TestHistoryHandsOutCopies(t *testing.T) {
	h := NewHistory()
	stored := synapse.AgentExecution{
		ID:             "exec_1",
		PlannedActions: []synapse.PlannedAction{{Tool: "check_traffic"}},
	}
	h.prepend(stored)

	// caller's slice is not retained
	stored.PlannedActions[0].Tool = "mutated"

	entries := h.Entries()
	entries[0].PlannedActions[0].Tool = "mutated again"
	entries[0].Reasoning = "rewritten"

	latest, _ := h.Latest()
	assert.Equal(t, "check_traffic", latest.PlannedActions[0].Tool)
	assert.Empty(t, latest.Reasoning)
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory()
	h.prepend(synapse.AgentExecution{ID: "exec_1"})
	h.reset()

	assert.Zero(t, h.Len())
	assert.Empty(t, h.Entries())
}
