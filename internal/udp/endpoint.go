package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/danmuck/irlink/internal/observability"
	"github.com/danmuck/irlink/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

// ReceiveWindow bounds how long one Receive waits for a datagram.
const ReceiveWindow = 10 * time.Millisecond

var (
	ErrBind   = errors.New("udp: bind failed")
	ErrIO     = errors.New("udp: io failed")
	ErrNoPeer = errors.New("udp: no peer")
)

// endpoint is a bound socket plus the single peer it exchanges frames with.
// Each datagram carries exactly one length-prefixed frame.
type endpoint struct {
	label  string
	window time.Duration
	conn   *net.UDPConn
	peer   *net.UDPAddr
	buf    []byte
}

func newEndpoint(label string, window time.Duration) endpoint {
	if window <= 0 {
		window = ReceiveWindow
	}
	return endpoint{
		label:  label,
		window: window,
		buf:    make([]byte, frame.MaxWireLen+1),
	}
}

func (e *endpoint) bind(addr *net.UDPAddr) error {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, addr, err)
	}
	e.conn = conn
	return nil
}

func (e *endpoint) localPort() uint16 {
	if e.conn == nil {
		return 0
	}
	if addr, ok := e.conn.LocalAddr().(*net.UDPAddr); ok {
		return uint16(addr.Port)
	}
	return 0
}

func (e *endpoint) close() error {
	if e.conn == nil {
		return nil
	}
	conn := e.conn
	e.conn = nil
	e.peer = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrIO, err)
	}
	return nil
}

func (e *endpoint) send(payload []byte) error {
	if e.conn == nil {
		return nil
	}
	wire, err := frame.Encode(payload)
	if err != nil {
		return err
	}
	if e.peer == nil {
		log.Debug().Str("channel", e.label).Msg("udp frame dropped, peer unknown")
		return nil
	}
	if _, err := e.conn.WriteToUDP(wire, e.peer); err != nil {
		return fmt.Errorf("%w: write to %s: %v", ErrIO, e.peer, err)
	}
	log.Trace().Str("channel", e.label).Str("peer", e.peer.String()).Hex("payload", payload).Msg("udp frame sent")
	return nil
}

func (e *endpoint) receive(ctx context.Context) ([]byte, bool, error) {
	if e.conn == nil {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	deadline := time.Now().Add(e.window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := e.conn.SetReadDeadline(deadline); err != nil {
		return nil, false, fmt.Errorf("%w: deadline: %v", ErrIO, err)
	}

	n, from, err := e.conn.ReadFromUDP(e.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("%w: read: %v", ErrIO, err)
	}
	if e.peer != nil && !sameAddr(from, e.peer) {
		log.Debug().Str("channel", e.label).Str("from", from.String()).Msg("udp datagram from stranger ignored")
		return nil, false, nil
	}

	payload, err := frame.Decode(e.buf[:n])
	if err != nil {
		log.Debug().Err(err).Str("channel", e.label).Int("bytes", n).Msg("udp frame discarded")
		observability.RecordFrameDiscarded(e.label, "malformed")
		return nil, false, nil
	}
	log.Trace().Str("channel", e.label).Hex("payload", payload).Msg("udp frame received")
	return payload, true, nil
}

func sameAddr(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP)
}
