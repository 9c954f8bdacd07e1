package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAutoIncrementAddressWraps asserts the literal S4 wrap values
// directly against AutoIncrementAddress's output, rather than via a
// re-derivation of the wrapping formula: index=0 addresses the first
// sub-device in the ring with 0x0000, and index=1 wraps to 0xFFFF.
func TestAutoIncrementAddressWraps(t *testing.T) {
	cases := []struct {
		index uint16
		want  uint16
	}{
		{0, 0x0000},
		{1, 0xFFFF},
		{2, 0xFFFE},
		{0xFFFF, 0x0001},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AutoIncrementAddress(tc.index))
	}
}

func TestAprdApwrUseAutoIncrementAddress(t *testing.T) {
	assert.Equal(t, AutoIncrementAddress(0), Aprd(0, RegisterType).Address)
	assert.Equal(t, AutoIncrementAddress(1), Aprd(1, RegisterType).Address)
	assert.Equal(t, AutoIncrementAddress(1), Apwr(1, RegisterType).Address)
}

func TestLogicalAddressRoundTrip(t *testing.T) {
	addr := uint32(0x0001ABCD)
	address, register := LogicalAddress(addr)
	assert.Equal(t, addr, Logical32(address, register))
}

func TestExpectedWorkingCounter(t *testing.T) {
	assert.Equal(t, uint16(5), Brd(RegisterType).ExpectedWorkingCounter(5))
	assert.Equal(t, uint16(5), Bwr(RegisterType).ExpectedWorkingCounter(5))
	assert.Equal(t, uint16(15), Command{Code: CmdBrw}.ExpectedWorkingCounter(5))
	assert.Equal(t, uint16(3), Lrw(0).ExpectedWorkingCounter(5))
	assert.Equal(t, uint16(1), Fprd(0x1000, RegisterType).ExpectedWorkingCounter(5))
}

func TestCommandIsRead(t *testing.T) {
	assert.True(t, Brd(RegisterType).IsRead())
	assert.True(t, Aprd(0, RegisterType).IsRead())
	assert.True(t, Lrw(0).IsRead())
	assert.False(t, Bwr(RegisterType).IsRead())
	assert.False(t, Apwr(0, RegisterType).IsRead())
	assert.False(t, Fpwr(0x1000, RegisterType).IsRead())
	assert.False(t, Lwr(0).IsRead())
}

func TestCommandCodeString(t *testing.T) {
	assert.Equal(t, "LRW", CmdLrw.String())
	assert.Equal(t, "CMD(0x7f)", CommandCode(0x7f).String())
}
