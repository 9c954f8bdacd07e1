// Package virtual implements an in-process ethercrab.Bus used by tests
// and simulated sub-device fixtures, grounded on the teacher's
// pkg/can/virtual.Bus. The teacher's virtual bus brokers CAN frames
// between processes over a TCP connection to an external broker
// server; this one is simpler because nothing outside this process
// needs to see the traffic — it brokers Frames between Bus instances
// that share a channel name, in-process, under a single mutex.
package virtual

import (
	"errors"
	"sync"

	"github.com/fpdotmonkey/ethercrab"
	"github.com/fpdotmonkey/ethercrab/pkg/ethernet"
)

func init() {
	ethernet.RegisterInterface("virtual", NewBus)
}

// ErrNotConnected is returned by Send before Connect has been called.
var ErrNotConnected = errors.New("virtual: not connected")

// Bus is a loopback ethercrab.Bus. Two Bus values constructed with the
// same channel name see each other's Sends, the way a real pair of
// EtherCAT master and simulated sub-devices would exchange frames over
// a physical link.
type Bus struct {
	channel    string
	mu         sync.Mutex
	listener   ethercrab.FrameListener
	connected  bool
	receiveOwn bool
}

// NewBus satisfies ethernet.NewBusFunc.
func NewBus(channel string) (ethercrab.Bus, error) {
	return &Bus{channel: channel}, nil
}

// SetReceiveOwn controls whether a Bus observes its own Sends, mirroring
// the teacher's Bus.SetReceiveOwn.
func (b *Bus) SetReceiveOwn(receiveOwn bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiveOwn = receiveOwn
}

func (b *Bus) Connect(...any) error {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	defaultBroker.join(b.channel, b)
	return nil
}

func (b *Bus) Disconnect() error {
	defaultBroker.leave(b.channel, b)
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	return nil
}

func (b *Bus) Send(frame ethercrab.Frame) error {
	b.mu.Lock()
	connected := b.connected
	receiveOwn := b.receiveOwn
	b.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	defaultBroker.broadcast(b.channel, b, frame, receiveOwn)
	return nil
}

func (b *Bus) Subscribe(listener ethercrab.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = listener
	return nil
}

func (b *Bus) deliver(frame ethercrab.Frame) {
	b.mu.Lock()
	listener := b.listener
	b.mu.Unlock()
	if listener != nil {
		listener.Handle(frame)
	}
}

// broker brokers Frames between every Bus sharing a channel name. A
// single package-level instance (defaultBroker) stands in for the
// teacher's external TCP broker process.
type broker struct {
	mu      sync.Mutex
	members map[string][]*Bus
}

var defaultBroker = &broker{members: make(map[string][]*Bus)}

func (r *broker) join(channel string, b *Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[channel] = append(r.members[channel], b)
}

func (r *broker) leave(channel string, b *Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := r.members[channel]
	for i, p := range peers {
		if p == b {
			r.members[channel] = append(peers[:i], peers[i+1:]...)
			return
		}
	}
}

func (r *broker) broadcast(channel string, from *Bus, frame ethercrab.Frame, receiveOwn bool) {
	r.mu.Lock()
	peers := append([]*Bus(nil), r.members[channel]...)
	r.mu.Unlock()
	for _, p := range peers {
		if p == from && !receiveOwn {
			continue
		}
		p.deliver(frame)
	}
}
