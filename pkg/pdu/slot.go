package pdu

import (
	"sync/atomic"

	"github.com/fpdotmonkey/ethercrab/pkg/wire"
)

// slotState is the lifecycle of one frame slot, per spec §4.3.
//
//	Free -> Claimed -> Sent -> Done -> Free
//
// A Loop.PduTx timeout reclaims a Sent slot straight back to Free; an Rx
// delivery moves Sent to Done, from which only the parked caller (or a
// racing timeout, whichever wins the CAS) reclaims it.
type slotState int32

const (
	slotFree slotState = iota
	slotClaimed
	slotSent
	slotDone
)

// slot is one entry in the fixed-size pool. The plain fields below
// state are only safe to read after the step that publishes them: a
// claimant CASes to slotClaimed, then writes command/expectedLen/buf/n
// before handing the index to Tx over the ready channel; rx writes
// buf/n/wkc/err before CASing to slotDone. The channel send and the
// atomic operations give the happens-before edges Go's memory model
// requires, so no mutex guards this struct.
type slot struct {
	state atomic.Int32

	command     wire.Command
	expectedLen int

	// buf holds the outgoing payload until the datagram is sent, then
	// is overwritten in place with the response payload by rx.
	buf []byte
	n   int

	wkc uint16
	err error

	notify atomic.Pointer[chan struct{}]
}

func (s *slot) loadState() slotState { return slotState(s.state.Load()) }

func (s *slot) casState(from, to slotState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// wake performs a non-blocking send on the slot's current wake channel,
// if one is registered. A stale or already-reclaimed slot has a nil
// pointer here and wake is a no-op, which is the "benign" half of the
// cancellation race described in spec §4.3.
func (s *slot) wake() {
	ch := s.notify.Load()
	if ch == nil {
		return
	}
	select {
	case *ch <- struct{}{}:
	default:
	}
}
