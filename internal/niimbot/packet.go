// Package niimbot implements the framed binary protocol spoken by
// Niimbot-style thermal label printers and a session that drives a
// print job through it.
package niimbot

import (
	"errors"
	"fmt"
)

// Frame markers and layout.
const (
	startMarker0 = 0x55
	startMarker1 = 0x55
	endMarker0   = 0xAA
	endMarker1   = 0xAA

	// minFrameLen is start(2) + cmd + len + checksum + end(2).
	minFrameLen = 7
	// MaxPayload is the largest payload a one-byte length can describe.
	MaxPayload = 255
)

// Frame-level decode failures. They are dropped by the reassembler and
// never reach callers of the session.
var (
	ErrBoundary = errors.New("niimbot: invalid frame boundaries")
	ErrChecksum = errors.New("niimbot: checksum mismatch")
)

// Frame is one protocol message.
type Frame struct {
	Command uint8
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("frame{cmd=0x%02x len=%d}", f.Command, len(f.Payload))
}

// checksum is cmd ^ len ^ xor(payload).
func checksum(cmd, length uint8, payload []byte) uint8 {
	sum := cmd ^ length
	for _, b := range payload {
		sum ^= b
	}
	return sum
}

// Encode builds the wire form of a frame. A payload longer than
// MaxPayload is a programming error and panics.
func Encode(cmd uint8, payload []byte) []byte {
	if len(payload) > MaxPayload {
		panic(fmt.Sprintf("niimbot: payload of %d bytes exceeds %d", len(payload), MaxPayload))
	}
	length := uint8(len(payload))

	out := make([]byte, 0, minFrameLen+len(payload))
	out = append(out, startMarker0, startMarker1, cmd, length)
	out = append(out, payload...)
	out = append(out, checksum(cmd, length, payload), endMarker0, endMarker1)
	return out
}

// Decode parses exactly one wire frame. ErrBoundary is returned when the
// markers do not match, the buffer is shorter than a minimal frame or the
// declared length does not fit; ErrChecksum when only the checksum fails.
func Decode(b []byte) (Frame, error) {
	n := len(b)
	if n < minFrameLen ||
		b[0] != startMarker0 || b[1] != startMarker1 ||
		b[n-2] != endMarker0 || b[n-1] != endMarker1 {
		return Frame{}, ErrBoundary
	}

	cmd := b[2]
	length := b[3]
	if int(length)+minFrameLen > n {
		return Frame{}, ErrBoundary
	}

	payload := b[4 : 4+int(length)]
	if b[4+int(length)] != checksum(cmd, length, payload) {
		return Frame{}, ErrChecksum
	}

	out := make([]byte, len(payload))
	copy(out, payload)
	return Frame{Command: cmd, Payload: out}, nil
}
