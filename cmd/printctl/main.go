// Command printctl talks to a Niimbot printer directly, without the chat
// pipeline. It is meant for bench checks of a freshly connected device.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"labelcast/internal/canvas"
	"labelcast/internal/clock"
	"labelcast/internal/logger"
	"labelcast/internal/models"
	"labelcast/internal/niimbot"
	"labelcast/internal/render"

	"github.com/spf13/pflag"
)

var (
	transport = pflag.String("transport", niimbot.TransportUSB, "printer transport: usb or serial")
	device    = pflag.String("serial-device", "", "serial device path when --transport=serial")
	verbose   = pflag.BoolP("verbose", "v", false, "log protocol traffic")
	width     = pflag.Int("width", 240, "test label width in pixels, multiple of 8")
	height    = pflag.Int("height", 96, "test label height in pixels")
	density   = pflag.Uint8("density", 3, "print density for test-print")
	labelType = pflag.Uint8("label-type", 1, "label type for test-print")
)

func main() {
	pflag.Usage = usage
	pflag.Parse()
	if pflag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	level := logger.WarnLevel
	if *verbose {
		level = logger.DebugLevel
	}
	log := logger.Get(level).Named("printctl")

	tr, err := niimbot.OpenTransport(niimbot.TransportConfig{Kind: *transport, SerialDevice: *device})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open printer: %v\n", err)
		os.Exit(1)
	}
	s := niimbot.NewSession(tr, clock.Real(), log)

	err = runCommand(s, pflag.Arg(0), pflag.Args()[1:])
	_ = s.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: printctl [flags] <command> [args]\n\nCommands:\n")
	fmt.Fprintln(os.Stderr, "  heartbeat            - Check that the printer answers")
	fmt.Fprintln(os.Stderr, "  info <key>           - Read a device value (battery, device_serial, ...)")
	fmt.Fprintln(os.Stderr, "  status               - Read the print status")
	fmt.Fprintln(os.Stderr, "  auto-shutdown <1..4> - Set the idle power-off level")
	fmt.Fprintln(os.Stderr, "  test-print [text]    - Print one label with text")
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	pflag.PrintDefaults()
}

func runCommand(s *niimbot.Session, cmd string, args []string) error {
	switch cmd {
	case "heartbeat":
		if err := s.Heartbeat(); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil

	case "info":
		if len(args) != 1 {
			return fmt.Errorf("info needs exactly one key")
		}
		key, err := niimbot.ParseInfoKey(args[0])
		if err != nil {
			return err
		}
		raw, err := s.GetInfo(key)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s (%d)\n", args[0], hex.EncodeToString(raw), decodeUint(raw))
		return nil

	case "status":
		st, err := s.GetPrintStatus()
		if err != nil {
			return err
		}
		fmt.Printf("page=%d progress=%d/%d\n", st.Page, st.Progress1, st.Progress2)
		return nil

	case "auto-shutdown":
		if len(args) != 1 {
			return fmt.Errorf("auto-shutdown needs a level")
		}
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("bad level %q: %w", args[0], err)
		}
		return s.SetAutoShutdownTime(uint8(n))

	case "test-print":
		text := "TEST"
		if len(args) > 0 {
			text = args[0]
		}
		return testPrint(s, text)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func decodeUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func testPrint(s *niimbot.Session, text string) error {
	c := canvas.New(*width, *height)
	r := render.New(render.NoIcons(), false)
	if err := r.Place(c, models.Placement{Label: text, X: 8, Y: 8, Size: 3}); err != nil {
		return err
	}
	return s.PrintLabel(context.Background(), niimbot.Label{
		Rows:      c.Rows(),
		Width:     c.Width(),
		Height:    c.Height(),
		Quantity:  1,
		LabelType: *labelType,
		Density:   *density,
	})
}
