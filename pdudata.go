package ethercrab

import "encoding/binary"

// PduData is implemented by any value that can be written as the payload
// of a PDU datagram (Bwr, Apwr, Fpwr, Lrw). It mirrors the Rust
// ethercrab crate's PduData trait from original_source/src/client.rs.
type PduData interface {
	// Len reports the encoded length in bytes.
	Len() int
	// Bytes returns the little-endian wire encoding.
	Bytes() []byte
}

// PduReadable is implemented by any value that can be decoded from the
// payload of a PDU response (Brd, Aprd, Fprd). Decode failures (wrong
// length, malformed data) surface as *PduError{Kind: PduDecode}.
type PduReadable interface {
	// FromBytes decodes data into the receiver. Callers pass the response
	// payload unchecked; the fixed-width types here return a PduDecode
	// error when data is shorter than their encoding.
	FromBytes(data []byte) error
}

// Uint8 adapts a plain uint8 to PduData/PduReadable.
type Uint8 uint8

func (v Uint8) Len() int      { return 1 }
func (v Uint8) Bytes() []byte { return []byte{uint8(v)} }
func (v *Uint8) FromBytes(data []byte) error {
	if len(data) < 1 {
		return ErrPduDecode(nil)
	}
	*v = Uint8(data[0])
	return nil
}

// Uint16 adapts a plain uint16 to PduData/PduReadable, little-endian.
type Uint16 uint16

func (v Uint16) Len() int { return 2 }
func (v Uint16) Bytes() []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return buf
}
func (v *Uint16) FromBytes(data []byte) error {
	if len(data) < 2 {
		return ErrPduDecode(nil)
	}
	*v = Uint16(binary.LittleEndian.Uint16(data))
	return nil
}

// Uint32 adapts a plain uint32 to PduData/PduReadable, little-endian.
type Uint32 uint32

func (v Uint32) Len() int { return 4 }
func (v Uint32) Bytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}
func (v *Uint32) FromBytes(data []byte) error {
	if len(data) < 4 {
		return ErrPduDecode(nil)
	}
	*v = Uint32(binary.LittleEndian.Uint32(data))
	return nil
}

// RawBytes adapts a plain byte slice to PduData/PduReadable, used for
// Lrw process-data exchanges where the caller already owns a fixed
// size buffer.
type RawBytes []byte

func (v RawBytes) Len() int      { return len(v) }
func (v RawBytes) Bytes() []byte { return v }
func (v *RawBytes) FromBytes(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}
