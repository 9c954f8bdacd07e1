package ethercrab

import (
	"errors"
	"fmt"
)

// PduErrorKind enumerates the taxonomy of errors a PDU exchange can raise,
// see spec §7. It is deliberately small and closed, the same way the
// Rust ethercrab crate's PduError enum is closed — callers are expected to
// switch on Kind rather than compare against package-level sentinels.
type PduErrorKind uint8

const (
	// PduTimeout: no response within the per-datagram budget.
	PduTimeout PduErrorKind = iota
	// PduIndexInUse: no free slot was available in the PDU storage.
	PduIndexInUse
	// PduSend: the tx path failed (interface down, buffer rejected).
	PduSend
	// PduDecode: the received payload did not match the expected wire layout.
	PduDecode
	// PduTooLong: the requested payload exceeded MaxPDUData.
	PduTooLong
	// PduCreateFrame: the Ethernet frame builder failed.
	PduCreateFrame
	// PduEncode: the datagram encoder failed.
	PduEncode
	// PduAddress: address arithmetic overflowed.
	PduAddress
	// PduIndexMismatch: a received datagram's index did not match the slot
	// selected by that index (sender of record).
	PduIndexMismatch
	// PduCommandMismatch: a received datagram's command code did not match
	// the command the slot sent.
	PduCommandMismatch
)

func (k PduErrorKind) String() string {
	switch k {
	case PduTimeout:
		return "timeout"
	case PduIndexInUse:
		return "index in use"
	case PduSend:
		return "send failed"
	case PduDecode:
		return "decode error"
	case PduTooLong:
		return "payload too long"
	case PduCreateFrame:
		return "frame creation failed"
	case PduEncode:
		return "encode error"
	case PduAddress:
		return "address overflow"
	case PduIndexMismatch:
		return "index mismatch"
	case PduCommandMismatch:
		return "command mismatch"
	default:
		return "unknown pdu error"
	}
}

// PduError is the error type returned by the PDU loop and the wire codec.
// Propagation policy (spec §7): Timeout, IndexInUse and working-counter
// mismatches are recoverable by the caller; Decode/Encode/TooLong are
// programming errors and surface verbatim.
type PduError struct {
	Kind PduErrorKind
	// Cause is the underlying error, if any (e.g. a Bus.Send failure).
	Cause error
}

func (e *PduError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pdu: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("pdu: %s", e.Kind)
}

func (e *PduError) Unwrap() error { return e.Cause }

// Is reports whether target is a *PduError with the same Kind, so callers
// can do errors.Is(err, &PduError{Kind: ethercrab.PduTimeout}).
func (e *PduError) Is(target error) bool {
	var other *PduError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func newPduError(kind PduErrorKind, cause error) *PduError {
	return &PduError{Kind: kind, Cause: cause}
}

// ErrPduTimeout, etc. are convenience constructors mirroring the table in
// spec §7.
func ErrPduTimeout() error                { return newPduError(PduTimeout, nil) }
func ErrPduIndexInUse() error              { return newPduError(PduIndexInUse, nil) }
func ErrPduSend(cause error) error         { return newPduError(PduSend, cause) }
func ErrPduDecode(cause error) error       { return newPduError(PduDecode, cause) }
func ErrPduTooLong() error                 { return newPduError(PduTooLong, nil) }
func ErrPduCreateFrame(cause error) error  { return newPduError(PduCreateFrame, cause) }
func ErrPduEncode(cause error) error       { return newPduError(PduEncode, cause) }
func ErrPduAddress() error                 { return newPduError(PduAddress, nil) }

// WorkingCounterError is a recoverable semantic failure: the datagram
// traversed the ring but the wrong number of sub-devices serviced it.
type WorkingCounterError struct {
	Expected uint16
	Received uint16
	// Context is a short human-readable description of the operation
	// that failed, e.g. "set station address". Call sites return the
	// error with this field set and do not log it themselves.
	Context string
}

func (e *WorkingCounterError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("working counter mismatch (%s): expected %d, got %d", e.Context, e.Expected, e.Received)
	}
	return fmt.Sprintf("working counter mismatch: expected %d, got %d", e.Expected, e.Received)
}

// CheckWorkingCounter returns a *WorkingCounterError when received does
// not equal expected, nil otherwise. context is attached for diagnostics.
func CheckWorkingCounter(received, expected uint16, context string) error {
	if received != expected {
		return &WorkingCounterError{Expected: expected, Received: received, Context: context}
	}
	return nil
}

// ErrTooManySlaves is returned by discovery when the bus reports more
// sub-devices than the caller's configured capacity allows.
var ErrTooManySlaves = errors.New("too many sub-devices for configured capacity")

// ErrAlreadySplit is returned by a second call to Storage.TrySplit.
var ErrAlreadySplit = errors.New("pdu storage already split")
