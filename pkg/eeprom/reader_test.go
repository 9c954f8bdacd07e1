package eeprom_test

import (
	"context"
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/eeprom"
	"github.com/fpdotmonkey/ethercrab/pkg/ethernet/virtual"
	"github.com/fpdotmonkey/ethercrab/pkg/master"
	"github.com/fpdotmonkey/ethercrab/pkg/pdu"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEepromDevice answers Fpwr/Fprd against a single station address,
// backing RegisterEepromData reads with a fixed byte image. The busy
// bit never sets: this fixture is only exercising Reader's chunking and
// address bookkeeping, not the poll loop (that is covered indirectly by
// a real busy-bit device were one to be added later).
type fakeEepromDevice struct {
	mu             sync.Mutex
	stationAddress uint16
	image          []byte
	wordAddress    uint16
	bus            ethercrab.Bus
}

func (d *fakeEepromDevice) Handle(frame ethercrab.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()

	datagrams, err := wire.DecodeFrame(frame.Payload)
	if err != nil {
		return
	}
	buf := make([]byte, 2+len(frame.Payload)*2)
	offset := 2
	for i, dg := range datagrams {
		if dg.Address != d.stationAddress {
			continue
		}
		payload, wkc := d.apply(dg)
		n, err := wire.EncodeDatagram(buf[offset:], wire.Command{Code: dg.Command}, dg.Index, payload, i != len(datagrams)-1)
		if err != nil {
			return
		}
		binary.LittleEndian.PutUint16(buf[offset+n-2:offset+n], wkc)
		offset += n
	}
	if offset == 2 {
		return
	}
	if err := wire.EncodeFrameHeader(buf, offset-2); err != nil {
		return
	}
	_ = d.bus.Send(ethercrab.Frame{Payload: buf[:offset]})
}

func (d *fakeEepromDevice) apply(dg wire.Datagram) ([]byte, uint16) {
	switch dg.Register {
	case wire.RegisterEepromAddress:
		d.wordAddress = uint16(binary.LittleEndian.Uint32(dg.Payload))
		return dg.Payload, 1
	case wire.RegisterEepromControl:
		if dg.Command == wire.CmdFpwr {
			return dg.Payload, 1
		}
		status := make([]byte, 2) // never busy
		return status, 1
	case wire.RegisterEepromData:
		byteOffset := int(d.wordAddress) * 2
		out := make([]byte, len(dg.Payload))
		copy(out, d.image[byteOffset:])
		return out, 1
	default:
		return dg.Payload, 0
	}
}

func newTestReader(t *testing.T, image []byte) *eeprom.Reader {
	t.Helper()
	storage := pdu.NewStorage(4, 16)
	tx, rx, loop, err := storage.TrySplit()
	require.NoError(t, err)

	masterBus, err := virtual.NewBus("eeprom-test")
	require.NoError(t, err)
	deviceBus, err := virtual.NewBus("eeprom-test")
	require.NoError(t, err)

	require.NoError(t, masterBus.Subscribe(rx))
	device := &fakeEepromDevice{stationAddress: 0x1000, image: image, bus: deviceBus}
	require.NoError(t, deviceBus.Subscribe(device))
	require.NoError(t, masterBus.Connect())
	require.NoError(t, deviceBus.Connect())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tx.Run(ctx, masterBus)

	client := master.New(loop, 16, 0, master.Timeouts{})
	return eeprom.NewReader(client, 0x1000, 0, 50*time.Millisecond)
}

func TestReaderReadsAcrossChunkBoundary(t *testing.T) {
	image := make([]byte, 64)
	for i := range image {
		image[i] = byte(i)
	}
	r := newTestReader(t, image)

	out := make([]byte, 20)
	n, err := io.ReadFull(r, out)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, image[:20], out)
}

func TestSizeBytes(t *testing.T) {
	assert.Equal(t, 1024/8, eeprom.SizeBytes(0))
	assert.Equal(t, 2*1024/8, eeprom.SizeBytes(1))
}
