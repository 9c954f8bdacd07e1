package pdu

import (
	"errors"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
	"github.com/sirupsen/logrus"
)

// Rx implements ethercrab.FrameListener, dispatching each inbound frame's
// datagrams back to the Loop.PduTx caller parked on the matching slot
// index (spec §4.3). It never blocks: Handle is called from whatever
// goroutine reads the Bus, so every path here is either an atomic CAS
// or a non-blocking channel send.
type Rx struct {
	storage *Storage
	log     *logrus.Entry
}

// SetLogger attaches a logger; if never called Rx logs nothing.
func (r *Rx) SetLogger(log *logrus.Entry) { r.log = log }

// Handle decodes frame and delivers each datagram to its slot. A
// datagram whose slot is not in slotSent (already reclaimed by a
// timeout, or addressed to a slot nobody claimed) is logged and
// discarded — this is the "late response after cancellation is benign"
// half of the race described in spec §4.3.
func (r *Rx) Handle(frame ethercrab.Frame) {
	datagrams, err := wire.DecodeFrame(frame.Payload)
	if err != nil {
		if r.log != nil {
			r.log.WithError(err).Debug("pdu: dropping undecodable frame")
		}
		return
	}
	for _, dg := range datagrams {
		r.deliver(dg)
	}
}

func (r *Rx) deliver(dg wire.Datagram) {
	if int(dg.Index) >= len(r.storage.slots) {
		return
	}
	s := &r.storage.slots[dg.Index]

	if err := wire.ValidateResponse(s.command, dg.Index, dg); err != nil {
		kind := ethercrab.PduCommandMismatch
		if errors.Is(err, wire.ErrIndexMismatch) {
			kind = ethercrab.PduIndexMismatch
		}
		s.err = &ethercrab.PduError{Kind: kind, Cause: err}
	} else if len(dg.Payload) > len(s.buf) {
		s.err = ethercrab.ErrPduDecode(wire.ErrTooLong)
	} else {
		s.n = copy(s.buf, dg.Payload)
		s.wkc = dg.WorkingCounter
		s.err = nil
	}

	if !s.casState(slotSent, slotDone) {
		if r.log != nil {
			r.log.WithField("index", dg.Index).Debug("pdu: discarding unsolicited or stale datagram")
		}
		return
	}
	s.wake()
}
