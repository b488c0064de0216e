package main

import (
	"context"
	"testing"

	"labelcast/internal/clock"
	"labelcast/internal/config"
	"labelcast/internal/logger"
	"labelcast/internal/notify"
)

type recordingNotifier struct{ sent []notify.Message }

func (n *recordingNotifier) Send(_ context.Context, m notify.Message) error {
	n.sent = append(n.sent, m)
	return nil
}

func TestOpenPrinter_AlertsWhenTransportFails(t *testing.T) {
	cfg := &config.Config{}
	cfg.Printer.Transport = "bluetooth"
	n := &recordingNotifier{}

	s, err := openPrinter(cfg, clock.Real(), n, logger.Nop())
	if err == nil || s != nil {
		t.Fatalf("openPrinter = %v, %v; want an error", s, err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(n.sent))
	}
	if m := n.sent[0]; m.Priority != notify.PriorityUrgent || m.Title != "Label printer unavailable" {
		t.Fatalf("notification = %+v", m)
	}
}

func TestOpenPrinter_DisabledOpensNothing(t *testing.T) {
	cfg := &config.Config{}
	cfg.Printer.Disabled = true
	n := &recordingNotifier{}

	s, err := openPrinter(cfg, clock.Real(), n, logger.Nop())
	if err != nil || s != nil {
		t.Fatalf("openPrinter = %v, %v; want nil, nil", s, err)
	}
	if len(n.sent) != 0 {
		t.Fatalf("notifications = %+v, want none", n.sent)
	}
}
