package master

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/subdevice"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
)

// eepromChunkBytes/eepromChunkWords mirror pkg/eeprom.Reader's chunk
// width: the EEPROM interface transfers 4 words (8 bytes) per
// control/address/data cycle.
const (
	eepromChunkBytes   = 8
	eepromChunkWords   = eepromChunkBytes / 2
	eepromPollTimeout  = 100 * time.Millisecond
	eepromPollInterval = time.Millisecond
)

// readIdentity reads the vendor ID, product code, revision number and
// serial number words from stationAddress's EEPROM (spec §4.5 step 3:
// "Construct a Slave handle from the configured address (reads
// identity and name via FPRD/EEPROM)"), so Init can populate Identity
// before handing the sub-device to its classify callback.
//
// This duplicates, in miniature, the control/address/data polling
// protocol pkg/eeprom.Reader implements rather than calling into it:
// pkg/eeprom depends on this package for Fpwr/Fprd, so importing it
// here would be an import cycle. The register sequence is the same one
// ETG.1000.4 defines and pkg/eeprom.Reader exercises in full for
// arbitrary-length reads.
func readIdentity(ctx context.Context, c *Client, stationAddress uint16) (subdevice.Identity, error) {
	buf := make([]byte, 16)
	if err := readEepromWords(ctx, c, stationAddress, wire.EepromWordVendorID, buf); err != nil {
		return subdevice.Identity{}, err
	}
	return subdevice.Identity{
		VendorID:     binary.LittleEndian.Uint32(buf[0:4]),
		ProductCode:  binary.LittleEndian.Uint32(buf[4:8]),
		RevisionID:   binary.LittleEndian.Uint32(buf[8:12]),
		SerialNumber: binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

// readEepromWords fills out, eepromChunkBytes at a time, starting at
// startWord in stationAddress's EEPROM.
func readEepromWords(ctx context.Context, c *Client, stationAddress, startWord uint16, out []byte) error {
	wordAddress := startWord
	for offset := 0; offset < len(out); offset += eepromChunkBytes {
		addr := make([]byte, 4)
		binary.LittleEndian.PutUint32(addr, uint32(wordAddress))
		if _, err := Fpwr(ctx, c, stationAddress, wire.RegisterEepromAddress, ethercrab.RawBytes(addr)); err != nil {
			return err
		}

		control := make([]byte, 2)
		binary.LittleEndian.PutUint16(control, wire.EepromControlRead)
		if _, err := Fpwr(ctx, c, stationAddress, wire.RegisterEepromControl, ethercrab.RawBytes(control)); err != nil {
			return err
		}

		if err := waitEepromIdle(ctx, c, stationAddress); err != nil {
			return err
		}

		chunk := eepromChunkBytes
		if remaining := len(out) - offset; remaining < chunk {
			chunk = remaining
		}
		data, _, err := Fprd[ethercrab.RawBytes, *ethercrab.RawBytes](ctx, c, stationAddress, wire.RegisterEepromData, chunk)
		if err != nil {
			return err
		}
		copy(out[offset:offset+chunk], data)
		wordAddress += eepromChunkWords
	}
	return nil
}

// waitEepromIdle busy-polls stationAddress's EepromControl register
// until its busy bit clears or eepromPollTimeout elapses, bounding the
// poll rather than spinning indefinitely (spec §9).
func waitEepromIdle(ctx context.Context, c *Client, stationAddress uint16) error {
	deadline := time.Now().Add(eepromPollTimeout)
	for {
		status, _, err := Fprd[ethercrab.Uint16, *ethercrab.Uint16](ctx, c, stationAddress, wire.RegisterEepromControl, 2)
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
		case <-time.After(eepromPollInterval):
		}
	}
}
