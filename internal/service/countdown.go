package service

import (
	"context"
	"time"

	"labelcast/internal/clock"
	"labelcast/internal/countdown"
	"labelcast/internal/logger"
)

type StatusSink interface {
	Write(text string) error
}

type Publisher interface {
	Publish(u countdown.Update)
}

// CountdownWorker emits Clear every period and reports the time left once
// per second.
type CountdownWorker struct {
	period    time.Duration
	prefix    string
	sink      StatusSink
	publisher Publisher
	cmds      *Commands
	shutdown  *Shutdown
	clk       clock.Clock
	log       *logger.Logger
}

type CountdownDeps struct {
	Sink      StatusSink // optional
	Publisher Publisher  // optional
	Commands  *Commands
	Shutdown  *Shutdown
	Clock     clock.Clock
	Log       *logger.Logger
}

func NewCountdownWorker(period time.Duration, prefix string, d CountdownDeps) *CountdownWorker {
	return &CountdownWorker{
		period:    period,
		prefix:    prefix,
		sink:      d.Sink,
		publisher: d.Publisher,
		cmds:      d.Commands,
		shutdown:  d.Shutdown,
		clk:       d.Clock,
		log:       d.Log,
	}
}

func (w *CountdownWorker) Run(ctx context.Context) {
	remaining := w.period
	w.report(remaining)

	t := w.clk.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown.Done():
			return
		case <-t.C:
			remaining = w.tick(remaining)
		}
	}
}

// tick advances one second and returns the new remainder.
func (w *CountdownWorker) tick(remaining time.Duration) time.Duration {
	remaining -= time.Second
	if remaining <= 0 {
		w.cmds.TrySend(ClearCommand())
		remaining = w.period
	}
	w.report(remaining)
	return remaining
}

func (w *CountdownWorker) report(remaining time.Duration) {
	text := w.prefix + countdown.Format(remaining)
	if w.sink != nil {
		if err := w.sink.Write(text); err != nil {
			w.log.Warnw("countdown_write_failed", "err", err)
		}
	}
	if w.publisher != nil {
		w.publisher.Publish(countdown.Update{Text: text, Remaining: int(remaining / time.Second)})
	}
}
