package esi_test

import (
	"testing"

	"github.com/fpdotmonkey/ethercrab/pkg/esi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptions = `
[00000002:12345678]
Name = Example Servo Drive
FmmuCount = 1
Fmmu0Length = 4
Fmmu0PhysicalStart = 0x1000
Fmmu0ReadEnable = false
Fmmu0WriteEnable = true
SmCount = 1
Sm0PhysicalStart = 0x1000
Sm0Length = 4
Sm0ControlByte = 0x64
`

func TestLoadBytesAndLookup(t *testing.T) {
	cache, err := esi.LoadBytes([]byte(sampleDescriptions))
	require.NoError(t, err)

	desc, ok := cache.Lookup(0x00000002, 0x12345678)
	require.True(t, ok)
	assert.Equal(t, "Example Servo Drive", desc.Name)
	require.Len(t, desc.FMMUs, 1)
	assert.Equal(t, uint16(4), desc.FMMUs[0].Length)
	assert.True(t, desc.FMMUs[0].WriteEnable)
	require.Len(t, desc.SyncManagers, 1)
	assert.Equal(t, uint8(0x64), desc.SyncManagers[0].ControlByte)
}

func TestLookupMiss(t *testing.T) {
	cache, err := esi.LoadBytes([]byte(sampleDescriptions))
	require.NoError(t, err)

	_, ok := cache.Lookup(0xDEADBEEF, 0x1)
	assert.False(t, ok)
}

func TestNilCacheLookupIsMiss(t *testing.T) {
	var cache *esi.Cache
	_, ok := cache.Lookup(1, 2)
	assert.False(t, ok)
}
