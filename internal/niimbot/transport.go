package niimbot

import (
	"fmt"
	"time"
)

// Transport is a duplex byte channel to the printer. Both calls block for
// at most a fixed timeout; a Receive that times out returns (0, nil).
type Transport interface {
	Send(b []byte) (int, error)
	Receive(buf []byte) (int, error)
	Close() error
}

// Transport kinds accepted by OpenTransport.
const (
	TransportUSB    = "usb"
	TransportSerial = "serial"
)

// DefaultIOTimeout bounds every USB bulk transfer and serial read.
const DefaultIOTimeout = time.Second

// TransportConfig selects and parameterizes a transport.
type TransportConfig struct {
	Kind         string
	SerialDevice string
	Timeout      time.Duration
}

// OpenTransport opens the transport described by cfg.
func OpenTransport(cfg TransportConfig) (Transport, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultIOTimeout
	}
	switch cfg.Kind {
	case TransportUSB, "":
		return OpenUSB(timeout)
	case TransportSerial:
		return OpenSerial(cfg.SerialDevice, timeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Kind)
	}
}
