package subdevice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionSingleStep(t *testing.T) {
	assert.True(t, CanTransition(AlStateInit, AlStatePreOp))
	assert.True(t, CanTransition(AlStatePreOp, AlStateSafeOp))
	assert.True(t, CanTransition(AlStateSafeOp, AlStateOp))
	assert.True(t, CanTransition(AlStateOp, AlStateSafeOp))
	assert.True(t, CanTransition(AlStatePreOp, AlStateInit))
}

func TestCanTransitionRejectsSkippingStates(t *testing.T) {
	assert.False(t, CanTransition(AlStateInit, AlStateSafeOp))
	assert.False(t, CanTransition(AlStateInit, AlStateOp))
	assert.False(t, CanTransition(AlStateOp, AlStateInit))
}

func TestCanTransitionIsReflexive(t *testing.T) {
	assert.True(t, CanTransition(AlStateSafeOp, AlStateSafeOp))
}

func TestDecodeAlStatusSplitsErrorFlag(t *testing.T) {
	state, errFlag := DecodeAlStatus(0x12)
	assert.Equal(t, AlStatePreOp, state)
	assert.True(t, errFlag)

	state, errFlag = DecodeAlStatus(0x08)
	assert.Equal(t, AlStateOp, state)
	assert.False(t, errFlag)
}
