// Package pdu implements the fixed-capacity, allocation-light PDU
// multiplexer described in spec §4.2-§4.3: a process-wide pool of frame
// slots, split exactly once into (Tx, Rx, Loop) handles, a Loop.PduTx
// that parks the caller until a matching response lands or a timeout
// fires, and a Rx that dispatches inbound frames back to the right
// parked caller by slot index.
//
// The concurrency shape is grounded on the teacher's
// pkg/node/controller.go (goroutine lifecycle driven by context.Context)
// and internal/fifo.go (a fixed circular buffer with no dynamic growth);
// here, instead of one ring buffer of bytes, the "ring" holds whole
// datagram slots addressed by an 8-bit index.
package pdu
