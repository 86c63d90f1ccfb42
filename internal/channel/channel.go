// Package channel defines the closed set of transports a handler can drive.
//
// Variants: Disabled, Serial, Rendezvous, Network. Adding a transport means
// adding a variant here; the sealed interface keeps other packages from
// supplying their own.
package channel

import (
	"context"
	"time"

	"github.com/danmuck/irlink/internal/serial"
	"github.com/danmuck/irlink/internal/udp"
)

type Kind int

const (
	KindDisabled Kind = iota
	KindSerial
	KindRendezvous
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindDisabled:
		return "disabled"
	case KindSerial:
		return "serial"
	case KindRendezvous:
		return "rendezvous"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Channel is the capability set shared by every variant. Receive reports
// ok=false when no complete frame is available. Send on a channel that is
// not Enabled drops the payload.
type Channel interface {
	Kind() Kind
	Enabled() bool
	Enable(ctx context.Context) error
	Disable() error
	Send(payload []byte) error
	Receive(ctx context.Context) ([]byte, bool, error)

	sealed()
}

var (
	_ Channel = Disabled{}
	_ Channel = (*Serial)(nil)
	_ Channel = (*Rendezvous)(nil)
	_ Channel = (*Network)(nil)
)

// Disabled accepts every call and does nothing.
type Disabled struct{}

func (Disabled) Kind() Kind {
	return KindDisabled
}

func (Disabled) Enabled() bool {
	return false
}

func (Disabled) Enable(context.Context) error {
	return nil
}

func (Disabled) Disable() error {
	return nil
}

func (Disabled) Send([]byte) error {
	return nil
}

func (Disabled) sealed() {}

func (Disabled) Receive(context.Context) ([]byte, bool, error) {
	return nil, false, nil
}

type Serial struct {
	link *serial.Link
}

func NewSerial(device string, opts ...serial.Option) *Serial {
	return &Serial{link: serial.New(device, opts...)}
}

func (s *Serial) Kind() Kind {
	return KindSerial
}

func (s *Serial) Device() string {
	return s.link.Name()
}

func (s *Serial) Enabled() bool {
	return s.link.Enabled()
}

func (s *Serial) Enable(context.Context) error {
	return s.link.Enable()
}

func (s *Serial) Disable() error {
	return s.link.Disable()
}

func (s *Serial) Send(payload []byte) error {
	return s.link.Send(payload)
}

func (s *Serial) Receive(ctx context.Context) ([]byte, bool, error) {
	return s.link.Receive(ctx)
}

func (s *Serial) sealed() {}

type Rendezvous struct {
	link *udp.Rendezvous
}

func NewRendezvous(room string, opts ...udp.RendezvousOption) *Rendezvous {
	return &Rendezvous{link: udp.NewRendezvous(room, opts...)}
}

func (r *Rendezvous) Kind() Kind {
	return KindRendezvous
}

func (r *Rendezvous) Room() string {
	return r.link.Room()
}

func (r *Rendezvous) Enabled() bool {
	return r.link.Enabled() && r.link.Peer() != nil
}

func (r *Rendezvous) Enable(ctx context.Context) error {
	return r.link.Enable(ctx)
}

func (r *Rendezvous) Disable() error {
	return r.link.Disable()
}

func (r *Rendezvous) Send(payload []byte) error {
	return r.link.Send(payload)
}

func (r *Rendezvous) Receive(ctx context.Context) ([]byte, bool, error) {
	return r.link.Receive(ctx)
}

func (r *Rendezvous) sealed() {}

type Network struct {
	link *udp.Network
}

func NewNetwork(sourcePort uint16, destinationHost string, destinationPort uint16, window time.Duration) *Network {
	return &Network{link: udp.NewNetwork(sourcePort, destinationHost, destinationPort, window)}
}

func (n *Network) Kind() Kind {
	return KindNetwork
}

func (n *Network) Destination() string {
	return n.link.Destination()
}

func (n *Network) Enabled() bool {
	return n.link.Enabled()
}

func (n *Network) Enable(ctx context.Context) error {
	return n.link.Enable(ctx)
}

func (n *Network) Disable() error {
	return n.link.Disable()
}

func (n *Network) Send(payload []byte) error {
	return n.link.Send(payload)
}

func (n *Network) Receive(ctx context.Context) ([]byte, bool, error) {
	return n.link.Receive(ctx)
}

func (n *Network) sealed() {}

// Describe returns the variant's target for logs and status output.
func Describe(ch Channel) string {
	switch c := ch.(type) {
	case *Serial:
		return c.Device()
	case *Rendezvous:
		return c.Room()
	case *Network:
		return c.Destination()
	default:
		return ""
	}
}
