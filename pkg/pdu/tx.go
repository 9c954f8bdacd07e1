package pdu

import (
	"context"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
	"github.com/sirupsen/logrus"
)

// datagramOverhead is the per-datagram wire overhead EncodeDatagram adds
// around a payload (command/index/address/register/len-flags/irq,
// working counter).
const datagramOverhead = 10 + 2

// Tx drains slots claimed by Loop.PduTx and emits them as EtherCAT
// frames, batching every slot that is ready in one non-blocking drain
// pass into a single frame (spec §4.3: "a frame may carry more than one
// datagram"). It mirrors the teacher's controller.go send-loop shape:
// one goroutine, driven by ctx, fed by a channel.
type Tx struct {
	storage *Storage
	ready   chan uint8
	log     *logrus.Entry
}

// SetLogger attaches a logger; if never called Tx logs nothing.
func (t *Tx) SetLogger(log *logrus.Entry) { t.log = log }

// Run drains t.ready and calls bus.Send until ctx is cancelled. It is
// meant to be launched as its own goroutine by the main device.
func (t *Tx) Run(ctx context.Context, bus ethercrab.Bus) error {
	frameBuf := make([]byte, 2+len(t.storage.slots)*(datagramOverhead+t.storage.maxPDUData))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case first := <-t.ready:
			indices := []uint8{first}
		drain:
			for len(indices) < len(t.storage.slots) {
				select {
				case idx := <-t.ready:
					indices = append(indices, idx)
				default:
					break drain
				}
			}
			t.sendBatch(bus, frameBuf, indices)
		}
	}
}

func (t *Tx) sendBatch(bus ethercrab.Bus, buf []byte, indices []uint8) {
	offset := 2
	encoded := make([]uint8, 0, len(indices))
	for i, idx := range indices {
		s := &t.storage.slots[idx]
		n, err := wire.EncodeDatagram(buf[offset:], s.command, idx, s.buf[:s.n], i != len(indices)-1)
		if err != nil {
			t.fail(idx, ethercrab.ErrPduEncode(err))
			continue
		}
		offset += n
		encoded = append(encoded, idx)
	}
	if len(encoded) == 0 {
		return
	}
	if err := wire.EncodeFrameHeader(buf, offset-2); err != nil {
		for _, idx := range encoded {
			t.fail(idx, ethercrab.ErrPduCreateFrame(err))
		}
		return
	}

	frame := ethercrab.Frame{Payload: append([]byte(nil), buf[:offset]...)}
	// Every slot moves to slotSent before the frame leaves: a Bus may hand
	// the response to Rx from inside Send, and Rx only accepts a response
	// for a slot in slotSent. A failed CAS means the slot was lost to a
	// concurrent reclaim (caller cancelled/timed out after claim).
	for _, idx := range encoded {
		t.storage.slots[idx].casState(slotClaimed, slotSent)
	}
	if err := bus.Send(frame); err != nil {
		for _, idx := range encoded {
			s := &t.storage.slots[idx]
			s.err = ethercrab.ErrPduSend(err)
			if s.casState(slotSent, slotDone) {
				s.wake()
			}
		}
		return
	}
	if t.log != nil {
		t.log.WithField("datagrams", len(encoded)).Debug("pdu: frame sent")
	}
}

func (t *Tx) fail(idx uint8, err error) {
	s := &t.storage.slots[idx]
	s.err = err
	if s.casState(slotClaimed, slotDone) {
		s.wake()
	}
}
