package ethercrab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint16RoundTrip(t *testing.T) {
	v := Uint16(0xBEEF)
	var got Uint16
	require.NoError(t, got.FromBytes(v.Bytes()))
	assert.Equal(t, v, got)
	assert.Equal(t, 2, v.Len())
}

func TestUint32RoundTrip(t *testing.T) {
	v := Uint32(0xDEADBEEF)
	var got Uint32
	require.NoError(t, got.FromBytes(v.Bytes()))
	assert.Equal(t, v, got)
	assert.Equal(t, 4, v.Len())
}

func TestUint16FromBytesTooShortDecodes(t *testing.T) {
	var got Uint16
	err := got.FromBytes([]byte{0x01})
	var pduErr *PduError
	require.True(t, errors.As(err, &pduErr))
	assert.Equal(t, PduDecode, pduErr.Kind)
}

func TestRawBytesFromBytesReusesBackingArray(t *testing.T) {
	v := RawBytes(make([]byte, 0, 8))
	backing := v[:cap(v)]
	require.NoError(t, v.FromBytes([]byte{1, 2, 3}))
	assert.Equal(t, RawBytes{1, 2, 3}, v)
	assert.Same(t, &backing[0], &v[0])
}

func TestPduErrorIsMatchesOnKindOnly(t *testing.T) {
	err := ErrPduTimeout()
	assert.True(t, errors.Is(err, &PduError{Kind: PduTimeout}))
	assert.False(t, errors.Is(err, &PduError{Kind: PduSend}))
}

func TestCheckWorkingCounter(t *testing.T) {
	assert.NoError(t, CheckWorkingCounter(3, 3, "broadcast read"))

	err := CheckWorkingCounter(1, 3, "broadcast read")
	require.Error(t, err)
	var wcErr *WorkingCounterError
	require.True(t, errors.As(err, &wcErr))
	assert.Equal(t, uint16(3), wcErr.Expected)
	assert.Equal(t, uint16(1), wcErr.Received)
}
