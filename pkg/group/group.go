// Package group implements the sub-device group lifecycle: collecting
// the sub-devices a caller assigned to one logical process data image,
// configuring each one's FMMUs/Sync Managers from a pkg/esi cache entry
// looked up by the identity read from its EEPROM, and driving the group
// through the AL state machine. The typestate-like Init->PreOp->SafeOp->Op progression and
// the PDI offset bookkeeping follow original_source/src/client.rs's
// SlaveGroup::configure_from_eeprom; the register read/write plumbing
// and state-change request shape follow pkg/config/pdo.go's
// NodeConfigurator (read-then-compute-then-write over typed register
// helpers) and pkg/nmt/nmt.go's broadcast-then-poll state transitions.
package group

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/esi"
	"github.com/fpdotmonkey/ethercrab/pkg/master"
	"github.com/fpdotmonkey/ethercrab/pkg/subdevice"
	"github.com/fpdotmonkey/ethercrab/pkg/wire"
	"github.com/sirupsen/logrus"
)

// memberStatePollInterval and memberStateTimeout bound
// waitForMemberState's busy-poll the same way master.Client.WaitForState
// bounds its own AlStatus poll (spec §4.4/§9): a fixed interval between
// reads and an overall deadline past which a stuck sub-device surfaces
// a timeout instead of spinning forever.
const (
	memberStatePollInterval = 10 * time.Millisecond
	memberStateTimeout      = 5000 * time.Millisecond
)

// fmmuEntryLength and smEntryLength are the per-entry register strides
// within the FMMU0/SM0 configuration blocks (ETG.1000.4 tables 57, 59).
const (
	fmmuEntryLength uint16 = 16
	smEntryLength   uint16 = 8
)

// Group is one logical collection of sub-devices sharing a contiguous
// span of the process data image, configured and state-transitioned
// together.
type Group struct {
	mu           sync.Mutex
	members      []*subdevice.SubDevice
	descriptions *esi.Cache
	state        subdevice.AlState
	log          *logrus.Entry
}

// New returns an empty Group. descriptions may be nil, in which case
// every member falls back to the no-cached-description path in
// ConfigureFromEEPROM.
func New(descriptions *esi.Cache) *Group {
	return &Group{descriptions: descriptions, state: subdevice.AlStateInit}
}

// SetLogger attaches a logger; if never called Group logs nothing.
func (g *Group) SetLogger(log *logrus.Entry) { g.log = log }

// Add appends sd to the group. It is the Go rendering of the Rust
// client's group_filter callback deciding which group a discovered
// Slave belongs to — callers call this from inside their own
// master.Client.Init classify closure.
func (g *Group) Add(sd *subdevice.SubDevice) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, sd)
}

// Members returns a snapshot of the group's sub-devices.
func (g *Group) Members() []*subdevice.SubDevice {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*subdevice.SubDevice, len(g.members))
	copy(out, g.members)
	return out
}

// State reports the group's last-requested AL state.
func (g *Group) State() subdevice.AlState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ConfigureFromEEPROM looks up each member's cached FMMU/Sync Manager
// layout (fast path) by the Identity master.Client.Init already read
// from EEPROM during discovery, or, on a cache miss, leaves the member
// with no process data mapping (documented simplification: a full
// ETG.2010 SII category parser — the slow path the real protocol falls
// back to — is out of scope here; see DESIGN.md), assigns PDI offsets,
// writes the resulting FMMU/SM configuration to each sub-device's
// registers, and returns the advanced offset so a caller looping over
// several groups can thread it through (original_source/src/client.rs's
// `offset = group.configure_from_eeprom(offset, &self)`).
func (g *Group) ConfigureFromEEPROM(ctx context.Context, client *master.Client, offset PdiOffset) (PdiOffset, error) {
	g.mu.Lock()
	members := append([]*subdevice.SubDevice(nil), g.members...)
	g.mu.Unlock()

	for _, sd := range members {
		identity := sd.Identity

		desc, ok := g.descriptions.Lookup(identity.VendorID, identity.ProductCode)
		if !ok {
			if g.log != nil {
				g.log.WithFields(logrus.Fields{
					"station": sd.ConfiguredStationAddress,
					"vendor":  identity.VendorID,
					"product": identity.ProductCode,
				}).Warn("group: no cached description, sub-device gets no process data mapping")
			}
			continue
		}
		sd.Name = desc.Name
		sd.FMMUs = append([]subdevice.FMMUConfig(nil), desc.FMMUs...)
		sd.SyncManagers = append([]subdevice.SyncManagerConfig(nil), desc.SyncManagers...)

		offset = assignOffsets(sd, offset)

		if err := writeFMMUsAndSMs(ctx, client, sd); err != nil {
			return offset, err
		}
	}

	return offset, nil
}

// assignOffsets gives sd's FMMU-mapped regions their place in the
// logical process data image, splitting write-enabled FMMUs (outputs)
// from read-enabled ones (inputs) the way ETG.1000.4 FMMUs classify
// direction.
func assignOffsets(sd *subdevice.SubDevice, offset PdiOffset) PdiOffset {
	for i := range sd.FMMUs {
		f := &sd.FMMUs[i]
		offset = offset.AlignToByte()
		f.LogicalStartAddress = offset.Byte
		f.LogicalStartBit = offset.Bit
		bits := uint32(f.Length) * 8
		offset = offset.IncrementBits(bits)
		f.LogicalStopBit = offset.Bit

		if f.WriteEnable {
			sd.OutputsOffset = f.LogicalStartAddress
			sd.OutputsLength = f.Length
		}
		if f.ReadEnable {
			sd.InputsOffset = f.LogicalStartAddress
			sd.InputsLength = f.Length
		}
	}
	return offset
}

func writeFMMUsAndSMs(ctx context.Context, client *master.Client, sd *subdevice.SubDevice) error {
	for i, f := range sd.FMMUs {
		buf := encodeFMMU(f)
		register := wire.RegisterFMMU0 + uint16(i)*fmmuEntryLength
		if _, err := master.Fpwr(ctx, client, sd.ConfiguredStationAddress, register, ethercrab.RawBytes(buf)); err != nil {
			return fmt.Errorf("group: write fmmu %d for station 0x%04x: %w", i, sd.ConfiguredStationAddress, err)
		}
	}
	for i, sm := range sd.SyncManagers {
		buf := encodeSM(sm)
		register := wire.RegisterSM0 + uint16(i)*smEntryLength
		if _, err := master.Fpwr(ctx, client, sd.ConfiguredStationAddress, register, ethercrab.RawBytes(buf)); err != nil {
			return fmt.Errorf("group: write sm %d for station 0x%04x: %w", i, sd.ConfiguredStationAddress, err)
		}
	}
	return nil
}

// encodeFMMU packs one FMMU entry into its 16-byte register layout
// (ETG.1000.4 table 57).
func encodeFMMU(f subdevice.FMMUConfig) []byte {
	buf := make([]byte, fmmuEntryLength)
	binary.LittleEndian.PutUint32(buf[0:4], f.LogicalStartAddress)
	binary.LittleEndian.PutUint16(buf[4:6], f.Length)
	buf[6] = f.LogicalStartBit
	buf[7] = f.LogicalStopBit
	binary.LittleEndian.PutUint16(buf[8:10], f.PhysicalStartAddress)
	buf[10] = f.PhysicalStartBit
	var typ uint8
	if f.ReadEnable {
		typ |= 0x01
	}
	if f.WriteEnable {
		typ |= 0x02
	}
	buf[11] = typ
	if f.Enable {
		buf[12] = 0x01
	}
	return buf
}

// encodeSM packs one Sync Manager entry into its 8-byte register
// layout (ETG.1000.4 table 59).
func encodeSM(sm subdevice.SyncManagerConfig) []byte {
	buf := make([]byte, smEntryLength)
	binary.LittleEndian.PutUint16(buf[0:2], sm.PhysicalStartAddress)
	binary.LittleEndian.PutUint16(buf[2:4], sm.Length)
	buf[4] = sm.ControlByte
	if sm.Enable {
		buf[6] = 0x01
	}
	return buf
}

// RequestState requests desired for every member of the group
// individually (via Fpwr, not a network-wide broadcast: a group may
// share a ring with sub-devices outside it) and waits for each to
// report it.
func (g *Group) RequestState(ctx context.Context, client *master.Client, desired subdevice.AlState) error {
	members := g.Members()
	for _, sd := range members {
		if !subdevice.CanTransition(sd.AlState(), desired) {
			return fmt.Errorf("group: station 0x%04x cannot move from %s to %s directly", sd.ConfiguredStationAddress, sd.AlState(), desired)
		}
		if _, err := master.Fpwr(ctx, client, sd.ConfiguredStationAddress, wire.RegisterAlControl, ethercrab.Uint16(desired)); err != nil {
			return err
		}
	}
	for _, sd := range members {
		if err := g.waitForMemberState(ctx, client, sd, desired); err != nil {
			return err
		}
		sd.SetAlState(desired)
	}
	g.mu.Lock()
	g.state = desired
	g.mu.Unlock()
	return nil
}

func (g *Group) waitForMemberState(ctx context.Context, client *master.Client, sd *subdevice.SubDevice, desired subdevice.AlState) error {
	deadline := time.Now().Add(memberStateTimeout)
	for {
		raw, _, err := master.Fprd[ethercrab.Uint16, *ethercrab.Uint16](ctx, client, sd.ConfiguredStationAddress, wire.RegisterAlStatus, 2)
		if err != nil {
			return err
		}
		state, errFlag := subdevice.DecodeAlStatus(uint16(raw))
		if errFlag {
			return fmt.Errorf("group: station 0x%04x reported AL error while waiting for %s", sd.ConfiguredStationAddress, desired)
		}
		if state == desired {
			return nil
		}
		if time.Now().After(deadline) {
			return ethercrab.ErrPduTimeout()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(memberStatePollInterval):
		}
	}
}
