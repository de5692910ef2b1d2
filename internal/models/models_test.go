package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PurchaseStatusPending, PurchaseStatusCompleted))
	assert.True(t, CanTransition(PurchaseStatusPending, PurchaseStatusFailed))

	// Terminal states have no outgoing edges.
	assert.False(t, CanTransition(PurchaseStatusCompleted, PurchaseStatusFailed))
	assert.False(t, CanTransition(PurchaseStatusCompleted, PurchaseStatusPending))
	assert.False(t, CanTransition(PurchaseStatusFailed, PurchaseStatusCompleted))
	assert.False(t, CanTransition(PurchaseStatusFailed, PurchaseStatusPending))

	assert.False(t, CanTransition(PurchaseStatusPending, PurchaseStatusPending))
	assert.False(t, CanTransition("UNKNOWN", PurchaseStatusCompleted))
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(PurchaseStatusPending))
	assert.True(t, IsTerminalStatus(PurchaseStatusCompleted))
	assert.True(t, IsTerminalStatus(PurchaseStatusFailed))
	assert.False(t, IsTerminalStatus("UNKNOWN"))
}
