package udp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Network exchanges frames with a fixed host:port from a fixed local port.
type Network struct {
	sourcePort      uint16
	destinationHost string
	destinationPort uint16
	ep              endpoint
}

func NewNetwork(sourcePort uint16, destinationHost string, destinationPort uint16, window time.Duration) *Network {
	return &Network{
		sourcePort:      sourcePort,
		destinationHost: destinationHost,
		destinationPort: destinationPort,
		ep:              newEndpoint("network", window),
	}
}

func (n *Network) Enabled() bool {
	return n.ep.conn != nil
}

func (n *Network) LocalPort() uint16 {
	return n.ep.localPort()
}

func (n *Network) Destination() string {
	return net.JoinHostPort(n.destinationHost, strconv.Itoa(int(n.destinationPort)))
}

func (n *Network) Enable(ctx context.Context) error {
	if n.ep.conn != nil {
		return nil
	}
	var resolver net.Resolver
	ips, err := resolver.LookupIPAddr(ctx, n.destinationHost)
	if err != nil || len(ips) == 0 {
		return fmt.Errorf("%w: resolve %s: %v", ErrNoPeer, n.destinationHost, err)
	}
	peer := &net.UDPAddr{IP: ips[0].IP, Port: int(n.destinationPort), Zone: ips[0].Zone}

	if err := n.ep.bind(&net.UDPAddr{Port: int(n.sourcePort)}); err != nil {
		return err
	}
	n.ep.peer = peer
	log.Info().
		Uint16("source_port", n.LocalPort()).
		Str("destination", peer.String()).
		Msg("network link enabled")
	return nil
}

func (n *Network) Disable() error {
	if n.ep.conn == nil {
		return nil
	}
	log.Info().Str("destination", n.Destination()).Msg("network link disabling")
	return n.ep.close()
}

func (n *Network) Send(payload []byte) error {
	return n.ep.send(payload)
}

func (n *Network) Receive(ctx context.Context) ([]byte, bool, error) {
	return n.ep.receive(ctx)
}
