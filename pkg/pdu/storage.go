package pdu

import (
	"sync/atomic"

	"github.com/fpdotmonkey/ethercrab"
)

// Storage is the fixed-capacity pool of frame slots shared by a Tx, Rx
// and Loop handle, per spec §4.2. It is allocated once for the life of
// a main device and never grows.
type Storage struct {
	maxPDUData int
	slots      []slot
	cursor     atomic.Uint32
	split      atomic.Bool
}

// NewStorage allocates maxFrames slots, each able to hold up to
// maxPDUData bytes of payload. maxFrames must fit in a uint8 index
// (spec §4.1: the wire index field is one byte).
func NewStorage(maxFrames, maxPDUData int) *Storage {
	if maxFrames <= 0 || maxFrames > 256 {
		panic("pdu: maxFrames must be in (0, 256]")
	}
	if maxPDUData <= 0 {
		panic("pdu: maxPDUData must be positive")
	}
	s := &Storage{maxPDUData: maxPDUData, slots: make([]slot, maxFrames)}
	for i := range s.slots {
		s.slots[i].buf = make([]byte, maxPDUData)
	}
	return s
}

// TrySplit consumes the Storage exactly once, handing back the three
// role-scoped handles a main device wires together: Tx drains claimed
// slots onto the wire, Rx dispatches inbound frames back to waiters,
// and Loop is the caller-facing PduTx entry point. A second call
// returns ethercrab.ErrAlreadySplit, mirroring the Rust crate's
// PduStorage::try_split (spec §4.2, Open Question resolved: split is a
// one-shot CompareAndSwap, not a typestate).
func (s *Storage) TrySplit() (*Tx, *Rx, *Loop, error) {
	if !s.split.CompareAndSwap(false, true) {
		return nil, nil, nil, ethercrab.ErrAlreadySplit
	}
	ready := make(chan uint8, len(s.slots))
	return &Tx{storage: s, ready: ready},
		&Rx{storage: s},
		&Loop{storage: s, ready: ready},
		nil
}

// claim scans the slot pool starting at the round-robin cursor for a
// Free slot and atomically reserves it, returning its index. It
// returns ok=false when every slot is occupied.
func (s *Storage) claim() (index uint8, ok bool) {
	n := uint32(len(s.slots))
	start := s.cursor.Add(1) % n
	for i := uint32(0); i < n; i++ {
		idx := (start + i) % n
		if s.slots[idx].casState(slotFree, slotClaimed) {
			return uint8(idx), true
		}
	}
	return 0, false
}
