package frame

import (
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen     = 1
	MaxPayloadLen = 255
	MaxWireLen    = HeaderLen + MaxPayloadLen
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrShortFrame      = errors.New("frame: missing length header")
	ErrLengthMismatch  = errors.New("frame: header length does not match payload")
)

// Encode prepends the 1-byte length header to payload.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadLen)
	}
	buf := make([]byte, 0, HeaderLen+len(payload))
	buf = append(buf, byte(len(payload)))
	buf = append(buf, payload...)
	return buf, nil
}

// WriteFrame encodes payload and writes it with a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	buf, err := Encode(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Decode validates one complete wire frame (as carried by a datagram) and
// returns its payload. The buffer must be exactly header plus declared bytes.
func Decode(b []byte) ([]byte, error) {
	if len(b) < HeaderLen {
		return nil, ErrShortFrame
	}
	declared := int(b[0])
	if len(b)-HeaderLen != declared {
		return nil, fmt.Errorf("%w: declared=%d got=%d", ErrLengthMismatch, declared, len(b)-HeaderLen)
	}
	out := make([]byte, declared)
	copy(out, b[HeaderLen:])
	return out, nil
}
