package group

// PdiOffset is a bit-precise cursor into the logical process data
// image, advanced monotonically as each sub-device's inputs and
// outputs are assigned a slot during configuration (spec §4.8). It is
// a value type so callers can thread "offset so far" across a loop of
// groups the way original_source/src/client.rs's Client.init does.
type PdiOffset struct {
	Byte uint32
	Bit  uint8 // 0-7
}

// IncrementBits advances the offset by bits bits, carrying into Byte as
// needed.
func (o PdiOffset) IncrementBits(bits uint32) PdiOffset {
	total := uint64(o.Byte)*8 + uint64(o.Bit) + uint64(bits)
	return PdiOffset{Byte: uint32(total / 8), Bit: uint8(total % 8)}
}

// IncrementBytes advances the offset by whole bytes, leaving the bit
// component untouched.
func (o PdiOffset) IncrementBytes(bytes uint32) PdiOffset {
	return PdiOffset{Byte: o.Byte + bytes, Bit: o.Bit}
}

// AlignToByte rounds up to the next byte boundary if Bit is nonzero, the
// way every Sync Manager-backed process data region must start
// byte-aligned even when the last sub-device packed bit-level data.
func (o PdiOffset) AlignToByte() PdiOffset {
	if o.Bit == 0 {
		return o
	}
	return PdiOffset{Byte: o.Byte + 1, Bit: 0}
}
