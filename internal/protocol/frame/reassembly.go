package frame

import "time"

// Outcome describes why a reassembly ended without a frame.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeIdle
	OutcomeTimeout
	OutcomeOverrun
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeIdle:
		return "idle"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeOverrun:
		return "overrun"
	default:
		return "unknown"
	}
}

// Reassembly is the receive-side state for one frame read off a byte stream.
// A fresh value is used per receive call and dropped when the call returns.
type Reassembly struct {
	payload  []byte
	expected int
	header   bool
	lastRx   time.Time
}

func NewReassembly(now time.Time) *Reassembly {
	return &Reassembly{
		payload: make([]byte, 0, MaxPayloadLen),
		lastRx:  now,
	}
}

func (r *Reassembly) AwaitingHeader() bool {
	return !r.header
}

func (r *Reassembly) Expected() int {
	return r.expected
}

func (r *Reassembly) Buffered() int {
	return len(r.payload)
}

// SetHeader records the declared payload length. It reports whether the
// frame is already complete, which only happens for a zero-length payload.
func (r *Reassembly) SetHeader(b byte, now time.Time) bool {
	r.header = true
	r.expected = int(b)
	r.lastRx = now
	return r.expected == 0
}

// Append adds a burst of payload bytes and reports whether at least the
// declared number of bytes is now buffered.
func (r *Reassembly) Append(p []byte, now time.Time) bool {
	r.payload = append(r.payload, p...)
	r.lastRx = now
	return len(r.payload) >= r.expected
}

// Expired reports whether the gap since the last received byte exceeds timeout.
func (r *Reassembly) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.lastRx) > timeout
}

// Result returns the payload when the buffered byte count equals the declared
// length exactly. Bursts that overshoot the header are discarded, not truncated.
func (r *Reassembly) Result() ([]byte, Outcome) {
	switch {
	case !r.header:
		return nil, OutcomeIdle
	case len(r.payload) == r.expected:
		return r.payload, OutcomeComplete
	case len(r.payload) > r.expected:
		return nil, OutcomeOverrun
	default:
		return nil, OutcomeTimeout
	}
}
