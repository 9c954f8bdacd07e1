package virtual

import (
	"testing"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	frames []ethercrab.Frame
}

func (l *recordingListener) Handle(frame ethercrab.Frame) {
	l.frames = append(l.frames, frame)
}

func TestVirtualBusDeliversBetweenPeersOnSameChannel(t *testing.T) {
	a, err := NewBus("test-channel-a")
	require.NoError(t, err)
	b, err := NewBus("test-channel-a")
	require.NoError(t, err)

	var recvB recordingListener
	require.NoError(t, b.Subscribe(&recvB))
	require.NoError(t, a.Connect())
	require.NoError(t, b.Connect())

	require.NoError(t, a.Send(ethercrab.Frame{Payload: []byte{1, 2, 3}}))

	require.Len(t, recvB.frames, 1)
	assert.Equal(t, []byte{1, 2, 3}, recvB.frames[0].Payload)
}

func TestVirtualBusDoesNotLoopbackByDefault(t *testing.T) {
	a, err := NewBus("test-channel-b")
	require.NoError(t, err)
	var recvA recordingListener
	require.NoError(t, a.Subscribe(&recvA))
	require.NoError(t, a.Connect())

	require.NoError(t, a.Send(ethercrab.Frame{Payload: []byte{9}}))
	assert.Empty(t, recvA.frames)
}

func TestVirtualBusSeparateChannelsDoNotCrossTalk(t *testing.T) {
	a, err := NewBus("channel-x")
	require.NoError(t, err)
	c, err := NewBus("channel-y")
	require.NoError(t, err)

	var recvC recordingListener
	require.NoError(t, c.Subscribe(&recvC))
	require.NoError(t, a.Connect())
	require.NoError(t, c.Connect())

	require.NoError(t, a.Send(ethercrab.Frame{Payload: []byte{1}}))
	assert.Empty(t, recvC.frames)
}
