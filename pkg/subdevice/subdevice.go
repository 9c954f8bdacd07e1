// Package subdevice models one EtherCAT sub-device discovered on the
// ring: its configured station address, identity, current AL state,
// FMMU/Sync Manager configuration and its slice of the logical process
// data image. The field set and typed accessor shape is grounded on
// the teacher's pkg/node.BaseNode (configured address + mutex-guarded
// state + typed register helpers), here rendered for an EtherCAT ESC's
// register set instead of a CANopen node's object dictionary.
package subdevice

import "sync"

// Identity is the vendor/product/revision/serial set read from a
// sub-device's EEPROM, used to look up a cached description (pkg/esi)
// instead of reading the EEPROM a second time.
type Identity struct {
	VendorID     uint32
	ProductCode  uint32
	RevisionID   uint32
	SerialNumber uint32
}

// FMMUConfig is one Fieldbus Memory Management Unit entry: it maps a
// span of the logical process data image onto a span of this
// sub-device's physical memory.
type FMMUConfig struct {
	LogicalStartAddress uint32
	Length              uint16
	LogicalStartBit     uint8
	LogicalStopBit      uint8
	PhysicalStartAddress uint16
	PhysicalStartBit    uint8
	ReadEnable          bool
	WriteEnable         bool
	Enable              bool
}

// SyncManagerConfig is one Sync Manager entry: a contiguous buffer in
// the sub-device's physical memory used for mailbox or process data
// exchange.
type SyncManagerConfig struct {
	PhysicalStartAddress uint16
	Length               uint16
	ControlByte          uint8
	Enable               bool
}

// SubDevice is the master's record of one ring position. It is filled
// in across discovery (address, identity), EEPROM configuration
// (FMMUs, SMs, name) and group assignment (process data offsets).
type SubDevice struct {
	// RingPosition is the 0-based auto-increment position used during
	// discovery; ConfiguredStationAddress is what every later operation
	// addresses it by.
	RingPosition            uint16
	ConfiguredStationAddress uint16
	Name                    string
	Identity                Identity

	mu      sync.Mutex
	alState AlState

	FMMUs         []FMMUConfig
	SyncManagers  []SyncManagerConfig

	// InputsOffset/OutputsOffset are this sub-device's byte offsets
	// into the logical process data image, assigned by its Group.
	InputsOffset  uint32
	InputsLength  uint16
	OutputsOffset uint32
	OutputsLength uint16
}

// New returns a SubDevice freshly discovered at ringPosition, addressed
// by configuredAddress, in AlStateInit — the state every sub-device
// powers up in.
func New(ringPosition, configuredAddress uint16) *SubDevice {
	return &SubDevice{
		RingPosition:             ringPosition,
		ConfiguredStationAddress: configuredAddress,
		alState:                  AlStateInit,
	}
}

// AlState reports the last AL state this sub-device was observed in.
func (s *SubDevice) AlState() AlState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alState
}

// SetAlState records an observed AL state. It does not itself talk to
// the bus — callers (pkg/group, pkg/master) are responsible for the
// register exchange; this just keeps the in-memory record current.
func (s *SubDevice) SetAlState(state AlState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alState = state
}
