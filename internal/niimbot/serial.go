package niimbot

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// SerialBaud is the fixed line rate of the printer's serial link.
const SerialBaud = 115200

// serialSettle gives the device a moment to consume a frame.
const serialSettle = 2 * time.Millisecond

// SerialTransport talks to the printer over a serial port.
type SerialTransport struct {
	port *serial.Port
}

// OpenSerial opens device at SerialBaud with the given read timeout.
func OpenSerial(device string, readTimeout time.Duration) (*SerialTransport, error) {
	if device == "" {
		return nil, errors.New("serial device path is empty")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        SerialBaud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return &SerialTransport{port: port}, nil
}

// Send writes the whole of b.
func (t *SerialTransport) Send(b []byte) (int, error) {
	n, err := t.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("serial write: %w", err)
	}
	time.Sleep(serialSettle)
	return n, nil
}

// Receive reads up to len(buf) bytes; a read timeout yields (0, nil).
func (t *SerialTransport) Receive(buf []byte) (int, error) {
	n, err := t.port.Read(buf)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("serial read: %w", err)
	}
	return n, nil
}

// Close closes the port.
func (t *SerialTransport) Close() error {
	return t.port.Close()
}
