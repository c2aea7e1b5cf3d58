package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStateTransitions(t *testing.T) {
	s := NewRunState()
	assert.Equal(t, StatusDisconnected, s.Status())

	// Starting while disconnected is rejected.
	assert.ErrorIs(t, s.Start(), ErrNotConnected)

	s.Connect()
	assert.Equal(t, StatusConnected, s.Status())
	require.NoError(t, s.Start())
	assert.True(t, s.Running())

	assert.ErrorIs(t, s.Start(), ErrAlreadyRunning)

	// Connecting while running keeps running.
	s.Connect()
	assert.Equal(t, StatusRunning, s.Status())

	s.Stop()
	assert.Equal(t, StatusConnected, s.Status())
	s.Stop()
	assert.Equal(t, StatusConnected, s.Status())

	s.Disconnect()
	assert.Equal(t, StatusDisconnected, s.Status())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "running", StatusRunning.String())
}
