package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "Deactivated", Deactivated.String())
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Locked", Locked.String())
	assert.Equal(t, "Unknown", State(99).String())
}

func TestStateOrdering(t *testing.T) {
	var s State = Idle
	assert.True(t, Deactivated < s)
	assert.True(t, s < Running)
	assert.True(t, Running < Locked)
}
