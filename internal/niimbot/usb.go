package niimbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

// USB identifiers of Niimbot printers. Only the vendor is matched so any
// model of the family is accepted.
const (
	usbVendorID  gousb.ID = 0x3513
	usbOutEPNum           = 0x01 // OUT endpoint 0x01
	usbInEPNum            = 0x01 // IN endpoint 0x81
)

// ErrNoDevice is returned when no printer is attached.
var ErrNoDevice = errors.New("niimbot: no printer found on USB")

// USBTransport talks to the printer over its bulk endpoints.
type USBTransport struct {
	ctx     *gousb.Context
	dev     *gousb.Device
	done    func()
	out     *gousb.OutEndpoint
	in      *gousb.InEndpoint
	timeout time.Duration
}

// OpenUSB finds the first attached printer, detaches any kernel driver
// and claims interface 0.
func OpenUSB(timeout time.Duration) (*USBTransport, error) {
	uctx := gousb.NewContext()

	devs, err := uctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == usbVendorID
	})
	if len(devs) == 0 {
		_ = uctx.Close()
		if err != nil {
			return nil, fmt.Errorf("enumerate usb devices: %w", err)
		}
		return nil, ErrNoDevice
	}
	dev := devs[0]
	for _, extra := range devs[1:] {
		_ = extra.Close()
	}

	if err := dev.SetAutoDetach(true); err != nil {
		_ = dev.Close()
		_ = uctx.Close()
		return nil, fmt.Errorf("enable kernel driver auto-detach: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		_ = dev.Close()
		_ = uctx.Close()
		return nil, fmt.Errorf("claim usb interface 0: %w", err)
	}

	out, err := intf.OutEndpoint(usbOutEPNum)
	if err != nil {
		done()
		_ = dev.Close()
		_ = uctx.Close()
		return nil, fmt.Errorf("open OUT endpoint: %w", err)
	}
	in, err := intf.InEndpoint(usbInEPNum)
	if err != nil {
		done()
		_ = dev.Close()
		_ = uctx.Close()
		return nil, fmt.Errorf("open IN endpoint: %w", err)
	}

	return &USBTransport{
		ctx:     uctx,
		dev:     dev,
		done:    done,
		out:     out,
		in:      in,
		timeout: timeout,
	}, nil
}

// Send writes b to the OUT endpoint.
func (t *USBTransport) Send(b []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	n, err := t.out.WriteContext(ctx, b)
	if err != nil {
		return n, fmt.Errorf("usb bulk write: %w", err)
	}
	return n, nil
}

// Receive reads whatever the IN endpoint delivers within the timeout.
func (t *USBTransport) Receive(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	n, err := t.in.ReadContext(ctx, buf)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, gousb.ErrorTimeout) {
			return n, nil
		}
		return n, fmt.Errorf("usb bulk read: %w", err)
	}
	return n, nil
}

// Close releases the interface, the device and the libusb context.
func (t *USBTransport) Close() error {
	t.done()
	derr := t.dev.Close()
	cerr := t.ctx.Close()
	return errors.Join(derr, cerr)
}
