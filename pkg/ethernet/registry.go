// Package ethernet provides a pluggable registry of ethercrab.Bus
// implementations, grounded on the teacher's pkg/can registry
// (RegisterInterface/NewBus) rendered for raw Ethernet interfaces
// instead of CAN channels. The registry itself opens nothing; concrete
// transports register themselves from an init() in their own package,
// e.g. pkg/ethernet/virtual.
package ethernet

import "github.com/fpdotmonkey/ethercrab"

// NewBusFunc constructs a Bus bound to the named interface/channel. A
// raw-socket implementation would take an interface name like "eth0";
// pkg/ethernet/virtual takes an arbitrary in-process channel name.
type NewBusFunc func(channel string) (ethercrab.Bus, error)

var registry = make(map[string]NewBusFunc)

// RegisterInterface adds a transport under interfaceType to the
// registry. Call from an init() function, as pkg/ethernet/virtual does.
func RegisterInterface(interfaceType string, newBus NewBusFunc) {
	registry[interfaceType] = newBus
}

// NewBus constructs a Bus for the named interfaceType and channel. The
// caller must still call Bus.Connect before using it.
func NewBus(interfaceType, channel string) (ethercrab.Bus, error) {
	newBus, ok := registry[interfaceType]
	if !ok {
		return nil, &UnsupportedInterfaceError{InterfaceType: interfaceType}
	}
	return newBus(channel)
}

// UnsupportedInterfaceError is returned by NewBus when interfaceType was
// never registered.
type UnsupportedInterfaceError struct {
	InterfaceType string
}

func (e *UnsupportedInterfaceError) Error() string {
	return "ethernet: unsupported interface: " + e.InterfaceType
}
