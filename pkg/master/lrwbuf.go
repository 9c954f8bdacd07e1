package master

import (
	"context"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
)

func lrwCommand(logicalAddress uint32) wire.Command { return wire.Lrw(logicalAddress) }

// LrwBuf exchanges buf in place at logicalAddress: on return, buf holds
// whatever every FMMU mapped to that range read back while the
// exchange was in flight. Unlike the single-datagram Lrw, LrwBuf
// chunks buffers longer than the PDU storage's maxPDUData into several
// sequential logical read-writes at increasing addresses — the
// original_source/src/client.rs lrw_buf leaves this as a TODO ("Chunked
// sends if buffer is too long for MAX_PDU_DATA"); this module resolves
// that TODO rather than carrying the same limitation forward.
//
// LrwBuf returns the sum of every chunk's working counter (spec §9:
// "sum working counters"), matching the single-chunk case where a
// single LRW's working counter already counts every sub-device that
// serviced it — summing the chunks is the multi-datagram generalisation
// of that same count, not a per-chunk "did everyone participate" check.
func (c *Client) LrwBuf(ctx context.Context, logicalAddress uint32, buf []byte) (uint16, error) {
	if len(buf) <= c.maxPDUData {
		resp, wkc, err := c.exchange(ctx, lrwCommand(logicalAddress), buf)
		if err != nil {
			return 0, err
		}
		if len(resp) != len(buf) {
			return wkc, ethercrab.ErrPduDecode(nil)
		}
		copy(buf, resp)
		return wkc, nil
	}

	var totalWkc uint16
	for offset := 0; offset < len(buf); offset += c.maxPDUData {
		end := offset + c.maxPDUData
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[offset:end]

		resp, wkc, err := c.exchange(ctx, lrwCommand(logicalAddress+uint32(offset)), chunk)
		if err != nil {
			return 0, err
		}
		if len(resp) != len(chunk) {
			return wkc, ethercrab.ErrPduDecode(nil)
		}
		copy(chunk, resp)

		totalWkc += wkc
	}
	return totalWkc, nil
}
