// Package ethercrab implements the core of an EtherCAT main-device (master)
// library: the PDU loop that multiplexes datagrams over a single raw
// Ethernet interface, and the discovery/configuration of attached
// sub-devices. It holds the primitives shared by every subpackage — the
// Bus/FrameListener interfaces, the raw Ethernet Frame, the error
// taxonomy and the generic PDU value codec — the same way gocanopen's
// root package holds BusManager and Frame for its subpackages.
package ethercrab
