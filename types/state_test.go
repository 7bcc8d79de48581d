package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStateTransitions(t *testing.T) {
	assert.True(t, RunStateInit.CanTransition(RunStateProbing))
	assert.True(t, RunStateProbing.CanTransition(RunStateAbort))
	assert.True(t, RunStateProbing.CanTransition(RunStateRunning))
	assert.True(t, RunStateRunning.CanTransition(RunStateReporting))
	assert.True(t, RunStateReporting.CanTransition(RunStateDone))

	assert.False(t, RunStateRunning.CanTransition(RunStateAbort), "abort is only reachable while probing")
	assert.False(t, RunStateAbort.CanTransition(RunStateReporting))
	assert.False(t, RunStateDone.CanTransition(RunStateInit))
	assert.True(t, RunStateAbort.Terminal())
	assert.True(t, RunStateDone.Terminal())
	assert.False(t, RunStateRunning.Terminal())
}
