// Package comm is the entry point callers use to talk to the IR peer: select
// one channel, enable it, then exchange frames through the handler.
package comm

import (
	"context"
	"sort"
	"time"

	"github.com/danmuck/irlink/internal/channel"
	"github.com/danmuck/irlink/internal/observability"
	"github.com/danmuck/irlink/internal/serial"
	"github.com/danmuck/irlink/internal/udp"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// rooms is the fixed catalog offered by ListRooms.
var rooms = []string{"Room A", "Room B", "Room C"}

type Option func(*Handler)

// WithSerialOptions applies opts to every serial channel the handler builds.
func WithSerialOptions(opts ...serial.Option) Option {
	return func(h *Handler) {
		h.serialOpts = append(h.serialOpts, opts...)
	}
}

// WithRendezvousOptions applies opts to every rendezvous channel the handler builds.
func WithRendezvousOptions(opts ...udp.RendezvousOption) Option {
	return func(h *Handler) {
		h.rendezvousOpts = append(h.rendezvousOpts, opts...)
	}
}

func WithNetworkReceiveWindow(d time.Duration) Option {
	return func(h *Handler) {
		h.networkWindow = d
	}
}

// Handler owns exactly one channel and forwards every call to it. It is not
// safe for concurrent use; callers serialize access.
type Handler struct {
	ch             channel.Channel
	serialOpts     []serial.Option
	rendezvousOpts []udp.RendezvousOption
	networkWindow  time.Duration
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{ch: channel.Disabled{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListSerialPorts enumerates serial devices as name to description.
func ListSerialPorts() (map[string]string, error) {
	return serial.ListDevices()
}

// SortedPortNames returns the device names of ports in lexical order.
func SortedPortNames(ports map[string]string) []string {
	names := lo.Keys(ports)
	sort.Strings(names)
	return names
}

func ListRooms() []string {
	return append([]string(nil), rooms...)
}

func (h *Handler) Active() channel.Kind {
	return h.ch.Kind()
}

// Channel returns the channel currently held.
func (h *Handler) Channel() channel.Channel {
	return h.ch
}

func (h *Handler) SelectSerial(device string) {
	h.replace(channel.NewSerial(device, h.serialOpts...))
}

func (h *Handler) SelectRendezvous(room string) {
	h.replace(channel.NewRendezvous(room, h.rendezvousOpts...))
}

func (h *Handler) SelectNetwork(sourcePort uint16, destinationHost string, destinationPort uint16) {
	h.replace(channel.NewNetwork(sourcePort, destinationHost, destinationPort, h.networkWindow))
}

// replace releases the current channel and installs next.
func (h *Handler) replace(next channel.Channel) {
	prev := h.ch
	if err := prev.Disable(); err != nil {
		observability.RecordLinkError(prev.Kind().String(), "disable")
		log.Warn().Err(err).Str("channel", prev.Kind().String()).Msg("release on select failed")
	}
	h.ch = next
	log.Debug().
		Str("from", prev.Kind().String()).
		Str("to", next.Kind().String()).
		Str("target", channel.Describe(next)).
		Msg("channel selected")
}

func (h *Handler) Enable(ctx context.Context) error {
	if err := h.ch.Enable(ctx); err != nil {
		observability.RecordLinkError(h.ch.Kind().String(), "enable")
		return err
	}
	return nil
}

func (h *Handler) Disable() error {
	if err := h.ch.Disable(); err != nil {
		observability.RecordLinkError(h.ch.Kind().String(), "disable")
		return err
	}
	return nil
}

// Send forwards payload; only frames handed to an enabled link are counted.
func (h *Handler) Send(payload []byte) error {
	label := h.ch.Kind().String()
	wired := h.ch.Enabled()
	if err := h.ch.Send(payload); err != nil {
		observability.RecordLinkError(label, "send")
		return err
	}
	if wired {
		observability.RecordFrameSent(label, len(payload))
	}
	return nil
}

func (h *Handler) Receive(ctx context.Context) ([]byte, bool, error) {
	label := h.ch.Kind().String()
	payload, ok, err := h.ch.Receive(ctx)
	if err != nil {
		if ctx.Err() == nil {
			observability.RecordLinkError(label, "receive")
		}
		return nil, false, err
	}
	if ok {
		observability.RecordFrameReceived(label, len(payload))
	}
	return payload, ok, nil
}

// Close disables the current channel and falls back to Disabled.
func (h *Handler) Close() error {
	err := h.ch.Disable()
	h.ch = channel.Disabled{}
	return err
}
