package pdu

import (
	"context"
	"time"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
)

// Loop is the caller-facing half of the PDU multiplexer: every main
// device method that needs to put a datagram on the wire and wait for
// its response goes through Loop.PduTx. Many goroutines may call PduTx
// concurrently; each gets its own slot for the duration of the call
// (spec §4.3, testable property S5).
type Loop struct {
	storage *Storage
	ready   chan uint8
}

// PduTx sends one datagram built from cmd and payload, and blocks until
// either a matching response arrives, timeout elapses, or ctx is
// cancelled. On success it returns the response payload (truncated or
// zero-extended to expectedResponseLen is the caller's problem — pdu
// hands back exactly what the sub-device(s) returned) and the working
// counter.
//
// The algorithm is the five-step dance from spec §4.3:
//  1. claim a free slot (or return ErrPduIndexInUse if none exist),
//  2. publish the command/payload and register a wake channel,
//  3. hand the slot to tx and start a timer,
//  4. park until woken or the timer/ctx fires,
//  5. on timeout, race the CAS to reclaim the slot against a
//     concurrently-arriving response, so a late response is delivered
//     to whichever side reaches slotDone's CAS first and the slot is
//     never returned to the pool with a parked waiter still attached.
func (l *Loop) PduTx(ctx context.Context, cmd wire.Command, payload []byte, timeout time.Duration) (response []byte, wkc uint16, err error) {
	if len(payload) > l.storage.maxPDUData {
		return nil, 0, ethercrab.ErrPduTooLong()
	}

	index, ok := l.storage.claim()
	if !ok {
		return nil, 0, ethercrab.ErrPduIndexInUse()
	}
	s := &l.storage.slots[index]

	s.command = cmd
	s.expectedLen = len(payload)
	s.n = copy(s.buf, payload)
	s.err = nil

	wake := make(chan struct{}, 1)
	s.notify.Store(&wake)

	select {
	case l.ready <- index:
	default:
		// Pool-sized buffer: this can only happen if index was already
		// pending, which claim() never allows. Treat as a bug surfaced
		// loudly rather than deadlocking the caller.
		s.reclaim()
		return nil, 0, ethercrab.ErrPduSend(nil)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-wake:
		return l.collect(s)
	case <-timer.C:
		return l.reclaimOnTimeout(s)
	case <-ctx.Done():
		response, wkc, err = l.reclaimOnTimeout(s)
		if err != nil {
			return nil, 0, ctx.Err()
		}
		return response, wkc, nil
	}
}

// collect reads out a slot already observed in slotDone and returns it
// to the pool.
func (l *Loop) collect(s *slot) ([]byte, uint16, error) {
	if s.err != nil {
		err := s.err
		s.reclaim()
		return nil, 0, err
	}
	out := make([]byte, s.n)
	copy(out, s.buf[:s.n])
	wkc := s.wkc
	s.reclaim()
	return out, wkc, nil
}

// reclaimOnTimeout resolves the race between "my timer fired" and "a
// response arrived right as it did": whichever side wins the CAS out
// of slotSent owns the slot's fate. Losing the race here means rx got
// there first, so the caller gets the real response instead of a
// timeout error.
func (l *Loop) reclaimOnTimeout(s *slot) ([]byte, uint16, error) {
	if s.casState(slotSent, slotFree) {
		s.notify.Store(nil)
		return nil, 0, ethercrab.ErrPduTimeout()
	}
	if s.casState(slotClaimed, slotFree) {
		// tx never picked it up at all.
		s.notify.Store(nil)
		return nil, 0, ethercrab.ErrPduTimeout()
	}
	// State is slotDone: a response beat the timeout. Deliver it.
	return l.collect(s)
}

// reclaim returns a slot already in slotDone to the pool for reuse.
func (s *slot) reclaim() {
	s.notify.Store(nil)
	s.state.Store(int32(slotFree))
}
