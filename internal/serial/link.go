package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/irlink/internal/observability"
	"github.com/danmuck/irlink/internal/protocol/frame"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	bugst "go.bug.st/serial"
)

const (
	BaudRate       = 115200
	ReceiveTimeout = 10 * time.Millisecond

	// pollInterval bounds how long one read waits when no byte is pending.
	pollInterval = time.Millisecond
	metricsLabel = "serial"
)

var (
	ErrOpen = errors.New("serial: open failed")
	ErrIO   = errors.New("serial: io failed")
)

// Port is the subset of an open serial device the link drives. Read must
// return (0, nil) when nothing arrives within the configured poll interval.
type Port interface {
	io.ReadWriteCloser
	Drain() error
}

// OpenFunc opens the named device at baud.
type OpenFunc func(name string, baud int) (Port, error)

type Option func(*Link)

func WithOpener(open OpenFunc) Option {
	return func(l *Link) {
		if open != nil {
			l.open = open
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(l *Link) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func WithBaudRate(baud int) Option {
	return func(l *Link) {
		if baud > 0 {
			l.baud = baud
		}
	}
}

func WithReceiveTimeout(d time.Duration) Option {
	return func(l *Link) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// Link frames messages over one serial device. The zero handle state means
// disabled: Send drops and Receive reports no message.
type Link struct {
	name    string
	baud    int
	timeout time.Duration
	open    OpenFunc
	clock   clockwork.Clock
	port    Port
	scratch []byte
}

func New(name string, opts ...Option) *Link {
	l := &Link{
		name:    name,
		baud:    BaudRate,
		timeout: ReceiveTimeout,
		open:    OpenDevice,
		clock:   clockwork.NewRealClock(),
		scratch: make([]byte, frame.MaxWireLen),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Link) Name() string {
	return l.name
}

func (l *Link) Enabled() bool {
	return l.port != nil
}

func (l *Link) Enable() error {
	if l.port != nil {
		return nil
	}
	log.Info().
		Str("device", l.name).
		Int("baud", l.baud).
		Dur("rx_timeout", l.timeout).
		Msg("serial link enabling")

	port, err := l.open(l.name, l.baud)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOpen, l.name, err)
	}
	l.port = port
	return nil
}

func (l *Link) Disable() error {
	if l.port == nil {
		return nil
	}
	log.Info().Str("device", l.name).Msg("serial link disabling")
	port := l.port
	l.port = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, l.name, err)
	}
	return nil
}

func (l *Link) Send(payload []byte) error {
	if l.port == nil {
		return nil
	}
	if err := frame.WriteFrame(l.port, payload); err != nil {
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			return err
		}
		return fmt.Errorf("%w: write: %v", ErrIO, err)
	}
	if err := l.port.Drain(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrIO, err)
	}
	log.Trace().Str("device", l.name).Hex("payload", payload).Msg("serial frame sent")
	return nil
}

// Receive reads at most one frame. It returns ok=false when no frame was in
// flight or when a partial frame was abandoned after a gap longer than the
// receive timeout.
func (l *Link) Receive(ctx context.Context) ([]byte, bool, error) {
	if l.port == nil {
		return nil, false, nil
	}

	r := frame.NewReassembly(l.clock.Now())
	header := l.scratch[:frame.HeaderLen]
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		if r.AwaitingHeader() {
			n, err := l.port.Read(header)
			if err != nil {
				return nil, false, fmt.Errorf("%w: read: %v", ErrIO, err)
			}
			if n == 0 {
				break
			}
			if done := r.SetHeader(header[0], l.clock.Now()); done {
				break
			}
			continue
		}

		n, err := l.port.Read(l.scratch)
		if err != nil {
			return nil, false, fmt.Errorf("%w: read: %v", ErrIO, err)
		}
		if n > 0 {
			if done := r.Append(l.scratch[:n], l.clock.Now()); done {
				break
			}
			continue
		}
		if r.Expired(l.clock.Now(), l.timeout) {
			break
		}
	}

	payload, outcome := r.Result()
	switch outcome {
	case frame.OutcomeComplete:
		log.Trace().Str("device", l.name).Hex("payload", payload).Msg("serial frame received")
		return payload, true, nil
	case frame.OutcomeIdle:
		return nil, false, nil
	default:
		log.Debug().
			Str("device", l.name).
			Str("reason", outcome.String()).
			Int("expected", r.Expected()).
			Int("buffered", r.Buffered()).
			Msg("serial frame discarded")
		observability.RecordFrameDiscarded(metricsLabel, outcome.String())
		return nil, false, nil
	}
}

// OpenDevice opens a platform serial device with a short read timeout so the
// receive loop can poll for pending bytes.
func OpenDevice(name string, baud int) (Port, error) {
	port, err := bugst.Open(name, &bugst.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}
