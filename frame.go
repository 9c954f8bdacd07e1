package ethercrab

// EtherType is the Ethernet frame type reserved for EtherCAT by ETG.1000.4.
const EtherType uint16 = 0x88A4

// Frame is a raw Ethernet frame payload, EtherType already stripped of any
// 802.1Q tag. Src/Dst are left to the Bus implementation to fill in from
// the bound interface; Payload carries the EtherCAT frame header and one
// or more encoded datagrams, see pkg/wire.
type Frame struct {
	Dst     [6]byte
	Src     [6]byte
	Payload []byte
}

// FrameListener receives inbound EtherCAT frames read off the wire. Handle
// must not block; gocanopen's FrameListener.Handle carries the same
// contract for CAN frames.
type FrameListener interface {
	Handle(frame Frame)
}

// Bus is the raw Ethernet transport an implementation must satisfy. The
// core never opens a socket itself — binding a Bus to a named network
// interface and running the send/receive task are external collaborators,
// out of scope for this module (see spec §1, §6). This mirrors
// gocanopen's pkg/can.Bus contract, rendered for a push-received,
// push-sent raw Ethernet frame instead of a CAN frame.
type Bus interface {
	// Connect opens the underlying transport. Implementation-specific
	// arguments (interface name, etc.) are passed through args.
	Connect(args ...any) error
	// Disconnect closes the underlying transport.
	Disconnect() error
	// Send transmits a single Ethernet frame.
	Send(frame Frame) error
	// Subscribe registers callback to receive every inbound frame.
	Subscribe(callback FrameListener) error
}
