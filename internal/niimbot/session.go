package niimbot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"labelcast/internal/clock"
	"labelcast/internal/logger"
)

// Protocol timing.
const (
	transceiveAttempts = 5
	transceiveInterval = 200 * time.Millisecond
	statusPollInterval = 100 * time.Millisecond
	// statusPollLimit bounds how long a job may sit between end_page_print
	// and the device reporting every copy done.
	statusPollLimit = 60 * time.Second

	rxBufferSize = 1024
)

// Command-level failures.
var (
	ErrNoResponse    = errors.New("niimbot: no response")
	ErrShortResponse = errors.New("niimbot: response payload too short")
	ErrPrintTimeout  = errors.New("niimbot: print did not complete in time")
	ErrInvalidLabel  = errors.New("niimbot: invalid label")
)

// SessionState is the position of a session in the print-job state machine.
type SessionState int

const (
	StateIdle SessionState = iota
	StatePrinting
	StatePagePrinting
	StateAwaitingCompletion
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePrinting:
		return "PRINTING"
	case StatePagePrinting:
		return "PAGE_PRINTING"
	case StateAwaitingCompletion:
		return "AWAITING_COMPLETION"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// PrintStatus is the decoded answer to GetPrintStatus.
type PrintStatus struct {
	Page      uint16
	Progress1 uint8
	Progress2 uint8
}

// Label is one print request: gray rows of equal width plus job settings.
type Label struct {
	Rows      [][]uint8
	Width     int
	Height    int
	Quantity  uint16
	LabelType uint8
	Density   uint8
}

// Session owns one transport and drives the printer through it. A
// Session is not safe for concurrent use; the orchestrator is its only
// caller.
type Session struct {
	transport Transport
	clock     clock.Clock
	log       *logger.Logger

	state     SessionState
	threshold uint8
	rx        []byte
}

// NewSession wraps transport. The session starts Idle.
func NewSession(transport Transport, clk clock.Clock, log *logger.Logger) *Session {
	return &Session{
		transport: transport,
		clock:     clk,
		log:       log,
		state:     StateIdle,
		threshold: DefaultDarkThreshold,
		rx:        make([]byte, rxBufferSize),
	}
}

// State reports the current state-machine position.
func (s *Session) State() SessionState { return s.state }

// Close closes the underlying transport.
func (s *Session) Close() error { return s.transport.Close() }

func (s *Session) send(cmd uint8, payload []byte) error {
	if _, err := s.transport.Send(Encode(cmd, payload)); err != nil {
		return fmt.Errorf("send 0x%02x: %w", cmd, err)
	}
	return nil
}

// Transceive sends one frame and waits for the frame whose command is
// cmd+offset. The receive side is polled transceiveAttempts times,
// transceiveInterval apart; receive errors count as empty polls. When
// nothing matches ErrNoResponse is returned.
func (s *Session) Transceive(cmd uint8, payload []byte, offset uint8) (Frame, error) {
	if err := s.send(cmd, payload); err != nil {
		return Frame{}, err
	}

	want := cmd + offset
	for attempt := 0; attempt < transceiveAttempts; attempt++ {
		n, err := s.transport.Receive(s.rx)
		if err != nil {
			s.log.Debugw("receive_failed", "cmd", fmt.Sprintf("0x%02x", cmd), "attempt", attempt+1, "err", err)
			n = 0
		}
		for _, f := range Reassemble(s.rx[:n]) {
			if f.Command == want {
				return f, nil
			}
		}
		s.clock.Sleep(transceiveInterval)
	}
	return Frame{}, fmt.Errorf("%w to 0x%02x", ErrNoResponse, cmd)
}

// request transceives cmd using its protocol-fixed response offset, or
// only sends it when the device never answers that command.
func (s *Session) request(cmd Command, payload []byte) (Frame, error) {
	offset, answered := cmd.ResponseOffset()
	if !answered {
		return Frame{}, s.send(uint8(cmd), payload)
	}
	return s.Transceive(uint8(cmd), payload, offset)
}

func (s *Session) ack(cmd Command, payload ...byte) error {
	_, err := s.request(cmd, payload)
	return err
}

// Heartbeat checks that the device is alive.
func (s *Session) Heartbeat() error { return s.ack(CmdHeartbeat, 0x01) }

// GetInfo returns the raw value the device reports for key.
func (s *Session) GetInfo(key InfoKey) ([]byte, error) {
	f, err := s.request(CmdGetInfo, []byte{uint8(key)})
	if err != nil {
		return nil, err
	}
	return f.Payload, nil
}

// SetLabelType selects the media type. Idempotent.
func (s *Session) SetLabelType(t uint8) error { return s.ack(CmdSetLabelType, t) }

// SetLabelDensity selects the print darkness. Idempotent.
func (s *Session) SetLabelDensity(d uint8) error { return s.ack(CmdSetLabelDensity, d) }

// StartPrint opens a print job.
func (s *Session) StartPrint() error {
	return s.ack(CmdStartPrint, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00)
}

// StartPagePrint opens a page inside the current job.
func (s *Session) StartPagePrint() error { return s.ack(CmdStartPagePrint, 0x01) }

// SetPageSize announces the page geometry and the number of copies. The
// device sends no verified acknowledgement, so the frame is only written.
func (s *Session) SetPageSize(rows, cols, copies uint16) error {
	payload := make([]byte, 6)
	binary.BigEndian.PutUint16(payload[0:2], rows)
	binary.BigEndian.PutUint16(payload[2:4], cols)
	binary.BigEndian.PutUint16(payload[4:6], copies)
	_, err := s.request(CmdSetPageSize, payload)
	return err
}

// EndPagePrint closes the current page and starts printing it.
func (s *Session) EndPagePrint() error { return s.ack(CmdEndPagePrint, 0x01) }

// EndPrint closes the job. Optional: a session may be reused without it.
func (s *Session) EndPrint() error { return s.ack(CmdEndPrint, 0x01) }

// AllowPrintClear permits the device to discard a finished job.
func (s *Session) AllowPrintClear() error { return s.ack(CmdAllowPrintClear, 0x01) }

// SetAutoShutdownTime configures the idle power-off timer (1..4).
func (s *Session) SetAutoShutdownTime(level uint8) error {
	if level < 1 || level > 4 {
		return fmt.Errorf("auto shutdown level %d out of range 1..4", level)
	}
	return s.ack(CmdSetAutoShutdownTime, level)
}

// GetPrintStatus returns the completed page count and progress bytes.
func (s *Session) GetPrintStatus() (PrintStatus, error) {
	f, err := s.request(CmdGetPrintStatus, []byte{0x01})
	if err != nil {
		return PrintStatus{}, err
	}
	if len(f.Payload) < 4 {
		return PrintStatus{}, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(f.Payload))
	}
	return PrintStatus{
		Page:      binary.BigEndian.Uint16(f.Payload[0:2]),
		Progress1: f.Payload[2],
		Progress2: f.Payload[3],
	}, nil
}

func validateLabel(l Label) error {
	switch {
	case l.Width <= 0 || l.Height <= 0:
		return fmt.Errorf("%w: %dx%d", ErrInvalidLabel, l.Width, l.Height)
	case len(l.Rows) != l.Height:
		return fmt.Errorf("%w: %d rows for height %d", ErrInvalidLabel, len(l.Rows), l.Height)
	case l.Quantity == 0:
		return fmt.Errorf("%w: zero quantity", ErrInvalidLabel)
	case rowHeaderLen+(l.Width+7)/8 > MaxPayload:
		return fmt.Errorf("%w: width %d exceeds one row packet", ErrInvalidLabel, l.Width)
	}
	for i, r := range l.Rows {
		if len(r) != l.Width {
			return fmt.Errorf("%w: row %d has %d pixels, want %d", ErrInvalidLabel, i, len(r), l.Width)
		}
	}
	return nil
}

// PrintLabel runs one print job to completion.
//
// The sequence is strictly ordered: label type and density, start_print,
// start_page_print, set_page_size, one fire-and-forget packet per row,
// end_page_print, then status polling until the device reports every
// copy done. A status poll that gets no answer counts as completion
// because the device stops answering once it has finished. Any other
// failing step aborts the job and returns the session to Idle.
func (s *Session) PrintLabel(ctx context.Context, l Label) error {
	if err := validateLabel(l); err != nil {
		return err
	}
	defer func() { s.state = StateIdle }()

	if err := s.SetLabelType(l.LabelType); err != nil {
		return fmt.Errorf("set label type: %w", err)
	}
	if err := s.SetLabelDensity(l.Density); err != nil {
		return fmt.Errorf("set label density: %w", err)
	}

	s.log.Debugw("print_start", "width", l.Width, "height", l.Height, "quantity", l.Quantity)
	if err := s.StartPrint(); err != nil {
		return fmt.Errorf("start print: %w", err)
	}
	s.state = StatePrinting

	if err := s.StartPagePrint(); err != nil {
		return fmt.Errorf("start page print: %w", err)
	}
	s.state = StatePagePrinting

	if err := s.SetPageSize(uint16(l.Height), uint16(l.Width), l.Quantity); err != nil {
		return fmt.Errorf("set page size: %w", err)
	}

	for y, row := range l.Rows {
		if err := s.send(uint8(CmdPrintBitmapRow), EncodeRow(uint16(y), row, s.threshold)); err != nil {
			return fmt.Errorf("row %d: %w", y, err)
		}
	}

	if err := s.EndPagePrint(); err != nil {
		return fmt.Errorf("end page print: %w", err)
	}
	s.state = StateAwaitingCompletion

	return s.awaitCompletion(ctx, l.Quantity)
}

func (s *Session) awaitCompletion(ctx context.Context, quantity uint16) error {
	deadline := s.clock.Now().Add(statusPollLimit)
	for {
		st, err := s.GetPrintStatus()
		if errors.Is(err, ErrNoResponse) {
			// Some models stop answering status once the page is out.
			s.log.Debugw("print_status_silent", "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("print status: %w", err)
		}
		if st.Page >= quantity {
			s.log.Debugw("print_done", "page", st.Page)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.clock.Now().After(deadline) {
			return fmt.Errorf("%w: page %d of %d", ErrPrintTimeout, st.Page, quantity)
		}
		s.clock.Sleep(statusPollInterval)
	}
}
