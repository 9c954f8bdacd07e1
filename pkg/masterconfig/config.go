// Package masterconfig loads the process-level configuration a main
// device binary reads at startup: which interface to bind, how many
// PDU slots and how much payload each carries, and the timeout budget
// for PDU exchanges, state changes and mailbox responses. It follows
// the teacher's gopkg.in/ini.v1-based configuration style (the EDS
// loader in pkg/od/parser.go), here applied to a small hand-written
// .ini rather than a CANopen EDS file.
package masterconfig

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config is the master's process-level configuration (spec §4.7,
// supplementing the distilled spec with the configuration surface a
// deployable main device needs beyond what Init's arguments cover).
type Config struct {
	Interface  string
	Channel    string
	MaxFrames  int
	MaxPDUData int

	PduTimeout             time.Duration
	StateChangeTimeout     time.Duration
	MailboxResponseTimeout time.Duration
}

// Defaults mirrors original_source/src/client.rs's constants (a 30ms
// PDU timeout, 5000ms state-change budget) plus this module's own
// MaxFrames/MaxPDUData/mailbox-response defaults, used for any field
// left unset in a loaded .ini.
func Defaults() Config {
	return Config{
		Interface:              "virtual",
		Channel:                "eth0",
		MaxFrames:              32,
		MaxPDUData:             1486, // max Ethernet payload (1500) minus the 14-byte frame+datagram header this module always prepends
		PduTimeout:             30 * time.Millisecond,
		StateChangeTimeout:     5000 * time.Millisecond,
		MailboxResponseTimeout: 1000 * time.Millisecond,
	}
}

// Load reads a .ini file shaped like:
//
//	[master]
//	interface = virtual
//	channel = eth0
//	max_frames = 32
//	max_pdu_data = 1486
//
//	[timeouts]
//	pdu_ms = 30
//	state_change_ms = 5000
//	mailbox_response_ms = 1000
//
// Any key absent from the file keeps its Defaults() value.
func Load(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("masterconfig: load %s: %w", path, err)
	}
	return fromFile(f), nil
}

// LoadBytes is Load for an in-memory .ini document.
func LoadBytes(data []byte) (Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Config{}, fmt.Errorf("masterconfig: parse: %w", err)
	}
	return fromFile(f), nil
}

func fromFile(f *ini.File) Config {
	c := Defaults()

	master := f.Section("master")
	c.Interface = master.Key("interface").MustString(c.Interface)
	c.Channel = master.Key("channel").MustString(c.Channel)
	c.MaxFrames = master.Key("max_frames").MustInt(c.MaxFrames)
	c.MaxPDUData = master.Key("max_pdu_data").MustInt(c.MaxPDUData)

	timeouts := f.Section("timeouts")
	c.PduTimeout = time.Duration(timeouts.Key("pdu_ms").MustInt(int(c.PduTimeout/time.Millisecond))) * time.Millisecond
	c.StateChangeTimeout = time.Duration(timeouts.Key("state_change_ms").MustInt(int(c.StateChangeTimeout/time.Millisecond))) * time.Millisecond
	c.MailboxResponseTimeout = time.Duration(timeouts.Key("mailbox_response_ms").MustInt(int(c.MailboxResponseTimeout/time.Millisecond))) * time.Millisecond

	return c
}
