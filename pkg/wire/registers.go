package wire

// Register addresses into a sub-device's ESC register space, per
// ETG.1000.4. Only the registers this core touches are named here.
const (
	// RegisterType identifies the ESC type/revision; BRD of this
	// register's working counter is used to count sub-devices (spec
	// §4.5 step 2).
	RegisterType uint16 = 0x0000

	// RegisterConfiguredStationAddress is written during addressing
	// (spec §4.5 step 3).
	RegisterConfiguredStationAddress uint16 = 0x0010

	// RegisterAlControl requests an AL state transition.
	RegisterAlControl uint16 = 0x0120
	// RegisterAlStatus reports the current AL state (and error flag).
	RegisterAlStatus uint16 = 0x0130

	// RegisterFMMU0 is the start of the FMMU configuration memory
	// block, 0xFF bytes long (spec §4.5 step 1).
	RegisterFMMU0 uint16 = 0x0600
	// FMMUMemoryLength is the length, in bytes, of the FMMU register
	// block cleared during reset (ETG.1000.4 table 57).
	FMMUMemoryLength uint16 = 0xFF

	// RegisterSM0 is the start of the Sync Manager configuration
	// memory block, 0x7F bytes long (spec §4.5 step 1).
	RegisterSM0 uint16 = 0x0800
	// SMMemoryLength is the length, in bytes, of the SM register block
	// cleared during reset (ETG.1000.4 table 59).
	SMMemoryLength uint16 = 0x7F

	// RegisterEepromControl is the EEPROM control/status register:
	// command bits to request a read/write, and a busy bit.
	RegisterEepromControl uint16 = 0x0510
	// RegisterEepromAddress is the 32-bit EEPROM word address.
	RegisterEepromAddress uint16 = 0x0512
	// RegisterEepromData is up to 8 bytes of EEPROM transfer data.
	RegisterEepromData uint16 = 0x0518
)

// EEPROM word addresses within a sub-device's EEPROM (not ESC register
// space) — these are read/written indirectly via RegisterEeprom*.
const (
	// EepromWordSize holds (size_in_kilobits - 1), per ETG.2020 p.7
	// (spec §4.6, §6).
	EepromWordSize uint16 = 0x003E

	// EepromWordVendorID, EepromWordProductCode, EepromWordRevisionNumber
	// and EepromWordSerialNumber are the fixed identity fields at the
	// start of every sub-device's EEPROM, per ETG.2010.
	EepromWordVendorID       uint16 = 0x0008
	EepromWordProductCode    uint16 = 0x000A
	EepromWordRevisionNumber uint16 = 0x000C
	EepromWordSerialNumber   uint16 = 0x000E
)

// EepromControl command bits.
const (
	EepromControlRead  uint16 = 0x0100
	EepromControlWrite uint16 = 0x0201
	// EepromControlBusy is set while the EEPROM interface is servicing
	// a previously issued command.
	EepromControlBusy uint16 = 0x8000
)

// AlControl / AlStatus command bits (request/target AL state), per
// ETG.1000.4. The low byte of AlControl/AlStatus carries the state;
// AlStatus additionally sets bit 4 (0x10) on error.
const (
	AlStateInit    uint16 = 0x01
	AlStatePreOp   uint16 = 0x02
	AlStateBoot    uint16 = 0x03
	AlStateSafeOp  uint16 = 0x04
	AlStateOp      uint16 = 0x08
	AlStateErrorBit uint16 = 0x10
)
