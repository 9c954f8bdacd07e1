// Package esi loads a cache of sub-device descriptions — name, process
// data layout — keyed by vendor/product ID, from a .ini file shaped
// like a trimmed-down ESI (EtherCAT Slave Information) XML converted to
// sections. pkg/group.ConfigureFromEEPROM takes a known device's FMMU/SM
// layout from this cache; on a miss it gives the sub-device no process
// data mapping and does not derive a layout from the sub-device's own
// EEPROM (spec §6, supplementing the distilled spec with the same
// "known device" fast path real EtherCAT tooling keeps, e.g. SOEM's ESI
// cache or TwinCAT's device description files).
//
// The file format and parsing approach — gopkg.in/ini.v1, one section
// per entry, fields read with section.Key(...).MustXxx — is carried
// over unchanged from the teacher's pkg/od/parser.go EDS loader, the
// way that package turns a CANopen EDS file into an ObjectDictionary.
package esi

import (
	"fmt"

	"github.com/fpdotmonkey/ethercrab/pkg/subdevice"
	"gopkg.in/ini.v1"
)

// Description is a cached sub-device's static configuration: enough to
// program its FMMUs and Sync Managers without reading its EEPROM.
type Description struct {
	Name         string
	FMMUs        []subdevice.FMMUConfig
	SyncManagers []subdevice.SyncManagerConfig
}

// key identifies a cached description by the same vendor/product pair
// that distinguishes real devices on the wire.
type key struct {
	VendorID    uint32
	ProductCode uint32
}

// Cache is a read-mostly, concurrency-safe lookup table. The zero value
// is an empty, usable Cache.
type Cache struct {
	descriptions map[key]Description
}

// Load parses path, a .ini file with one section per device named
// "VENDOR:PRODUCT" in hex, e.g. "[00000002:12345678]", and fields
// Name; FmmuCount plus FmmuNLength, FmmuNPhysicalStart, FmmuNReadEnable
// and FmmuNWriteEnable for N in 0..FmmuCount-1; SmCount plus
// SmNPhysicalStart, SmNLength and SmNControlByte for N in 0..SmCount-1.
func Load(path string) (*Cache, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("esi: load %s: %w", path, err)
	}
	return load(f)
}

// LoadBytes is Load for an in-memory .ini document, used by tests the
// way the teacher's od.Parse accepts a []byte directly.
func LoadBytes(data []byte) (*Cache, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("esi: parse: %w", err)
	}
	return load(f)
}

func load(f *ini.File) (*Cache, error) {
	c := &Cache{descriptions: make(map[key]Description)}
	for _, section := range f.Sections() {
		var vendor, product uint32
		if _, err := fmt.Sscanf(section.Name(), "%08x:%08x", &vendor, &product); err != nil {
			continue // skip ini.v1's implicit DEFAULT section and anything else malformed
		}

		desc := Description{Name: section.Key("Name").String()}

		fmmuCount := section.Key("FmmuCount").MustInt(0)
		for i := 0; i < fmmuCount; i++ {
			prefix := fmt.Sprintf("Fmmu%d", i)
			desc.FMMUs = append(desc.FMMUs, subdevice.FMMUConfig{
				Length:               uint16(section.Key(prefix + "Length").MustUint(0)),
				PhysicalStartAddress: uint16(section.Key(prefix + "PhysicalStart").MustUint(0)),
				ReadEnable:           section.Key(prefix + "ReadEnable").MustBool(false),
				WriteEnable:          section.Key(prefix + "WriteEnable").MustBool(false),
				Enable:               true,
			})
		}

		smCount := section.Key("SmCount").MustInt(0)
		for i := 0; i < smCount; i++ {
			prefix := fmt.Sprintf("Sm%d", i)
			desc.SyncManagers = append(desc.SyncManagers, subdevice.SyncManagerConfig{
				PhysicalStartAddress: uint16(section.Key(prefix + "PhysicalStart").MustUint(0)),
				Length:               uint16(section.Key(prefix + "Length").MustUint(0)),
				ControlByte:          uint8(section.Key(prefix + "ControlByte").MustUint(0)),
				Enable:               true,
			})
		}

		c.descriptions[key{VendorID: vendor, ProductCode: product}] = desc
	}
	return c, nil
}

// Lookup returns the cached description for vendorID/productCode, if any.
func (c *Cache) Lookup(vendorID, productCode uint32) (Description, bool) {
	if c == nil {
		return Description{}, false
	}
	desc, ok := c.descriptions[key{VendorID: vendorID, ProductCode: productCode}]
	return desc, ok
}
