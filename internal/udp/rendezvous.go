package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/danmuck/irlink/internal/rendezvous"
	"github.com/rs/zerolog/log"
)

const DefaultMeetTimeout = 30 * time.Second

var errNotMet = errors.New("udp: peer not advertised yet")

type RendezvousOption func(*Rendezvous)

// WithRendezvousDir overrides the base directory that rooms live under.
func WithRendezvousDir(dir string) RendezvousOption {
	return func(r *Rendezvous) {
		if strings.TrimSpace(dir) != "" {
			r.baseDir = dir
		}
	}
}

// WithAdvertiserID overrides the advertisement identifier (default: pid).
func WithAdvertiserID(id string) RendezvousOption {
	return func(r *Rendezvous) {
		r.advertiserID = id
	}
}

func WithMeetTimeout(d time.Duration) RendezvousOption {
	return func(r *Rendezvous) {
		if d > 0 {
			r.meetTimeout = d
		}
	}
}

func WithReceiveWindow(d time.Duration) RendezvousOption {
	return func(r *Rendezvous) {
		r.ep = newEndpoint("rendezvous", d)
	}
}

// Rendezvous binds an ephemeral loopback port, advertises it in the room's
// directory and exchanges frames with whichever peer it meets there.
type Rendezvous struct {
	room         string
	baseDir      string
	advertiserID string
	meetTimeout  time.Duration
	ep           endpoint
	adv          *rendezvous.Advertiser
}

func NewRendezvous(room string, opts ...RendezvousOption) *Rendezvous {
	r := &Rendezvous{
		room:        room,
		baseDir:     rendezvous.DefaultDir(),
		meetTimeout: DefaultMeetTimeout,
		ep:          newEndpoint("rendezvous", ReceiveWindow),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Rendezvous) Room() string {
	return r.room
}

// Dir is the directory holding this room's advertisements.
func (r *Rendezvous) Dir() string {
	return filepath.Join(r.baseDir, RoomSlug(r.room))
}

func (r *Rendezvous) Enabled() bool {
	return r.ep.conn != nil
}

func (r *Rendezvous) LocalPort() uint16 {
	return r.ep.localPort()
}

func (r *Rendezvous) Peer() *net.UDPAddr {
	return r.ep.peer
}

// Enable binds, advertises and polls the room until a peer is met, the meet
// timeout elapses or ctx is done. On failure nothing stays bound or advertised.
func (r *Rendezvous) Enable(ctx context.Context) error {
	if r.ep.conn != nil {
		return nil
	}
	if err := r.ep.bind(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}); err != nil {
		return err
	}
	adv, err := rendezvous.New(r.ep.localPort(), rendezvous.WithDir(r.Dir()), rendezvous.WithID(r.advertiserID))
	if err != nil {
		_ = r.ep.close()
		return err
	}
	r.adv = adv
	log.Info().
		Str("room", r.room).
		Uint16("local_port", r.LocalPort()).
		Str("advertisement", adv.Path()).
		Msg("rendezvous link waiting for peer")

	peerPort, err := r.meet(ctx)
	if err != nil {
		_ = r.teardown()
		return fmt.Errorf("%w: room %q: %v", ErrNoPeer, r.room, err)
	}
	r.ep.peer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(peerPort)}
	log.Info().Str("room", r.room).Str("peer", r.ep.peer.String()).Msg("rendezvous link enabled")
	return nil
}

func (r *Rendezvous) meet(ctx context.Context) (uint16, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = r.meetTimeout

	var peerPort uint16
	op := func() error {
		port, ok := r.adv.TryToMeet()
		if !ok {
			return errNotMet
		}
		peerPort = port
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return 0, err
	}
	return peerPort, nil
}

func (r *Rendezvous) Disable() error {
	if r.ep.conn == nil {
		return nil
	}
	log.Info().Str("room", r.room).Msg("rendezvous link disabling")
	return r.teardown()
}

func (r *Rendezvous) teardown() error {
	var errs []error
	if r.adv != nil {
		errs = append(errs, r.adv.Close())
		r.adv = nil
	}
	errs = append(errs, r.ep.close())
	return errors.Join(errs...)
}

func (r *Rendezvous) Send(payload []byte) error {
	return r.ep.send(payload)
}

func (r *Rendezvous) Receive(ctx context.Context) ([]byte, bool, error) {
	return r.ep.receive(ctx)
}

// RoomSlug maps a room name to a directory-safe name.
func RoomSlug(room string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(strings.TrimSpace(room)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
