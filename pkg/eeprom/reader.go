// Package eeprom implements a chunked reader over a sub-device's EEPROM,
// exposed as an io.Reader so callers can hand it straight to
// encoding/binary or io.ReadFull rather than hand-rolling register
// polling themselves.
//
// The shape — a struct satisfying io.Reader by driving a polling state
// machine underneath, filling an internal buffer a chunk at a time — is
// grounded on the teacher's pkg/sdo/io.go sdoRawReadWriter, which does
// the same thing over a segmented SDO upload instead of the EEPROM
// control/address/data register triad.
package eeprom

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/master"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
)

// chunkBytes is the width of RegisterEepromData: the EEPROM interface
// transfers 4 words (8 bytes) per control/address/data cycle.
const chunkBytes = 8
const chunkWords = chunkBytes / 2

// DefaultPollTimeout bounds how long Reader waits for the EEPROM
// interface's busy bit to clear on a single chunk.
const DefaultPollTimeout = 100 * time.Millisecond

// SizeBytes converts the EEPROM size word (wire.EepromWordSize: size in
// kilobits minus one, per ETG.2020 p.7) into a byte count, the formula
// original_source/examples/dump-eeprom.rs uses to size its read loop.
func SizeBytes(sizeWordsRegisterValue uint16) int {
	return (int(sizeWordsRegisterValue) + 1) * 1024 / 8
}

// Reader reads a sub-device's EEPROM starting at startWordAddress,
// implementing io.Reader. It is not safe for concurrent use.
type Reader struct {
	client         *master.Client
	stationAddress uint16
	wordAddress    uint16
	pollTimeout    time.Duration

	pending []byte // bytes already fetched but not yet returned to the caller
}

// NewReader builds a Reader for the sub-device at stationAddress,
// starting at startWordAddress. pollTimeout <= 0 uses DefaultPollTimeout.
func NewReader(client *master.Client, stationAddress, startWordAddress uint16, pollTimeout time.Duration) *Reader {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Reader{client: client, stationAddress: stationAddress, wordAddress: startWordAddress, pollTimeout: pollTimeout}
}

// Read implements io.Reader using context.Background(); use ReadContext
// directly when the caller holds a more specific context.
func (r *Reader) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext is Read with caller-supplied cancellation, the way this
// module threads context.Context through every other blocking call.
func (r *Reader) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.pending) == 0 {
		if err := r.fetchChunk(ctx); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *Reader) fetchChunk(ctx context.Context) error {
	addr := make([]byte, 4)
	binary.LittleEndian.PutUint32(addr, uint32(r.wordAddress))
	if _, err := master.Fpwr(ctx, r.client, r.stationAddress, wire.RegisterEepromAddress, ethercrab.RawBytes(addr)); err != nil {
		return err
	}
	control := make([]byte, 2)
	binary.LittleEndian.PutUint16(control, wire.EepromControlRead)
	if _, err := master.Fpwr(ctx, r.client, r.stationAddress, wire.RegisterEepromControl, ethercrab.RawBytes(control)); err != nil {
		return err
	}

	if err := r.waitUntilIdle(ctx); err != nil {
		return err
	}

	data, _, err := master.Fprd[ethercrab.RawBytes, *ethercrab.RawBytes](ctx, r.client, r.stationAddress, wire.RegisterEepromData, chunkBytes)
	if err != nil {
		return err
	}
	r.pending = []byte(data)
	r.wordAddress += chunkWords
	return nil
}

func (r *Reader) waitUntilIdle(ctx context.Context) error {
	deadline := time.Now().Add(r.pollTimeout)
	for {
		status, _, err := master.Fprd[ethercrab.Uint16, *ethercrab.Uint16](ctx, r.client, r.stationAddress, wire.RegisterEepromControl, 2)
		if err != nil {
			return err
		}
		if uint16(status)&wire.EepromControlBusy == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return ethercrab.ErrPduTimeout()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
