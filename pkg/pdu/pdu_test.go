package pdu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackBus echoes every sent frame straight back into the listener,
// with every datagram's working counter left at zero, standing in for a
// bus implementation the way gocanopen's VirtualCanBus stands in for a
// socketcan.Bus in tests.
type loopbackBus struct {
	mu       sync.Mutex
	listener ethercrab.FrameListener
	wkc      uint16
}

func (b *loopbackBus) Connect(...any) error { return nil }
func (b *loopbackBus) Disconnect() error    { return nil }
func (b *loopbackBus) Subscribe(l ethercrab.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = l
	return nil
}
func (b *loopbackBus) Send(frame ethercrab.Frame) error {
	datagrams, err := wire.DecodeFrame(frame.Payload)
	if err != nil {
		return err
	}
	resp := make([]byte, 2+len(frame.Payload))
	offset := 2
	for i, dg := range datagrams {
		n, err := wire.EncodeDatagram(resp[offset:], wire.Command{Code: dg.Command}, dg.Index, dg.Payload, i != len(datagrams)-1)
		if err != nil {
			return err
		}
		offset += n
	}
	if err := wire.EncodeFrameHeader(resp, offset-2); err != nil {
		return err
	}
	b.mu.Lock()
	l := b.listener
	b.mu.Unlock()
	if l != nil {
		l.Handle(ethercrab.Frame{Payload: resp[:offset]})
	}
	return nil
}

func newLoopback(t *testing.T, storage *Storage) (*Tx, *Loop) {
	t.Helper()
	tx, rx, loop, err := storage.TrySplit()
	require.NoError(t, err)
	bus := &loopbackBus{}
	require.NoError(t, bus.Subscribe(rx))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tx.Run(ctx, bus)

	return tx, loop
}

func TestPduTxRoundTrip(t *testing.T) {
	storage := NewStorage(4, 16)
	_, loop := newLoopback(t, storage)

	resp, wkc, err := loop.PduTx(context.Background(), wire.Brd(wire.RegisterType), []byte{0xAA, 0xBB}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, resp)
	assert.Equal(t, uint16(0), wkc)
}

func TestPduTxTimeout(t *testing.T) {
	storage := NewStorage(1, 16)
	_, _, loop, err := storage.TrySplit()
	require.NoError(t, err)
	// No tx goroutine running: nothing ever drains the ready channel,
	// so the only way out is the timeout path.

	_, _, err = loop.PduTx(context.Background(), wire.Brd(wire.RegisterType), []byte{0x01}, 10*time.Millisecond)
	assert.ErrorIs(t, err, ethercrab.ErrPduTimeout())
}

func TestPduTxIndexInUseWhenPoolExhausted(t *testing.T) {
	storage := NewStorage(1, 16)
	_, _, loop, err := storage.TrySplit()
	require.NoError(t, err)

	index, ok := storage.claim()
	require.True(t, ok)
	defer storage.slots[index].reclaim()

	_, _, err = loop.PduTx(context.Background(), wire.Brd(wire.RegisterType), nil, 50*time.Millisecond)
	assert.ErrorIs(t, err, ethercrab.ErrPduIndexInUse())
}

func TestTrySplitOnlyOnce(t *testing.T) {
	storage := NewStorage(1, 16)
	_, _, _, err := storage.TrySplit()
	require.NoError(t, err)

	_, _, _, err = storage.TrySplit()
	assert.ErrorIs(t, err, ethercrab.ErrAlreadySplit)
}

// TestPduTxConcurrentCallers exercises S5: with a small pool (4 slots)
// and far more concurrent callers (16) than slots, every call must
// either complete with the echoed payload or fail with
// ErrPduIndexInUse — never hang, never receive another caller's data.
func TestPduTxConcurrentCallers(t *testing.T) {
	storage := NewStorage(4, 4)
	_, loop := newLoopback(t, storage)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte{byte(i)}
			resp, _, err := loop.PduTx(context.Background(), wire.Aprd(uint16(i), wire.RegisterType), payload, 2*time.Second)
			errs[i] = err
			if err == nil && len(resp) == 1 {
				results[i] = resp[0]
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] == nil {
			assert.Equal(t, byte(i), results[i], "caller %d must get back its own payload, never another's", i)
		} else {
			assert.ErrorIs(t, errs[i], ethercrab.ErrPduIndexInUse())
		}
	}
}

func TestPduTxPayloadTooLong(t *testing.T) {
	storage := NewStorage(1, 4)
	_, _, loop, err := storage.TrySplit()
	require.NoError(t, err)

	_, _, err = loop.PduTx(context.Background(), wire.Brd(wire.RegisterType), make([]byte, 5), time.Second)
	assert.ErrorIs(t, err, ethercrab.ErrPduTooLong())
}
