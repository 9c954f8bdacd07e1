package subdevice

import (
	"fmt"

	"github.com/fpdotmonkey/ethercrab/pkg/wire"
)

// AlState is one of the five application-layer states an EtherCAT
// sub-device can occupy, per ETG.1000.4 and spec §5. It is a plain
// runtime value rather than a typestate: Go has no compact way to
// express the tree-shaped legal-transition relation below at the type
// level the way a Rust typestate enum can, and the teacher's own
// pkg/nmt state machine is likewise a runtime enum with guarded
// transitions, not a family of distinct Go types.
type AlState uint8

const (
	AlStateInit   AlState = AlState(wire.AlStateInit)
	AlStatePreOp  AlState = AlState(wire.AlStatePreOp)
	AlStateBoot   AlState = AlState(wire.AlStateBoot)
	AlStateSafeOp AlState = AlState(wire.AlStateSafeOp)
	AlStateOp     AlState = AlState(wire.AlStateOp)
)

func (s AlState) String() string {
	switch s {
	case AlStateInit:
		return "Init"
	case AlStatePreOp:
		return "PreOp"
	case AlStateBoot:
		return "Boot"
	case AlStateSafeOp:
		return "SafeOp"
	case AlStateOp:
		return "Op"
	default:
		return fmt.Sprintf("AlState(0x%02x)", uint8(s))
	}
}

// DecodeAlStatus splits an AlStatus register read into the reported
// state and whether the error flag (bit 4) is set.
func DecodeAlStatus(raw uint16) (state AlState, errorFlag bool) {
	return AlState(raw &^ wire.AlStateErrorBit), raw&wire.AlStateErrorBit != 0
}

// legalTransitions is the adjacency the master is allowed to request
// directly: one step at a time along Init <-> PreOp <-> SafeOp <-> Op.
// Init is reachable only from PreOp, and Boot has no entries, so no
// transition into or out of Boot is legal. CanTransition additionally
// accepts a request for the current state (the error-acknowledge case).
var legalTransitions = map[AlState][]AlState{
	AlStateInit:   {AlStatePreOp},
	AlStatePreOp:  {AlStateInit, AlStateSafeOp},
	AlStateSafeOp: {AlStatePreOp, AlStateOp},
	AlStateOp:     {AlStateSafeOp},
}

// CanTransition reports whether moving directly from current to target
// is a legal single-step AL state request.
func CanTransition(current, target AlState) bool {
	if current == target {
		return true
	}
	for _, next := range legalTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}
