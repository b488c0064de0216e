package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"labelcast/internal/clock"
	"labelcast/internal/logger"
	"labelcast/internal/models"
	"labelcast/internal/notify"
	"labelcast/internal/placement"
	"labelcast/internal/repository"
)

// ErrSourceClosed means a chat source stopped for good and the pipeline
// shut down because of it.
var ErrSourceClosed = errors.New("chat source closed")

const (
	DefaultIdleBackoff = time.Second
	quitCommand        = "!quit"
	rejectReply        = "that message can't be printed"
)

// ChatSource yields nothing on transient trouble. A non-nil error from
// Poll means the source is gone for good.
type ChatSource interface {
	Poll(ctx context.Context) ([]models.ChatEvent, error)
	Reply(ctx context.Context, text string) error
}

type Extractor interface {
	Extract(ctx context.Context, text string) (models.Placement, error)
}

// PlacementResolver asks the extractor first and falls back to the local
// parser. The result is always inside bounds.
type PlacementResolver struct {
	extractor Extractor
	bounds    placement.Bounds
	log       *logger.Logger
}

func NewPlacementResolver(extractor Extractor, bounds placement.Bounds, log *logger.Logger) *PlacementResolver {
	return &PlacementResolver{extractor: extractor, bounds: bounds, log: log}
}

func (r *PlacementResolver) Resolve(ctx context.Context, text string) (models.Placement, error) {
	if r.extractor != nil {
		p, err := r.extractor.Extract(ctx, text)
		if err == nil && strings.TrimSpace(p.Label) != "" {
			return r.bounds.Clamp(p), nil
		}
		r.log.Warnw("extractor_fallback", "err", err)
	}
	return placement.ParseFallback(text, r.bounds)
}

// IngestWorker turns chat messages into Draw and Quit commands.
type IngestWorker struct {
	sources   []ChatSource
	moderator *Moderator
	resolver  *PlacementResolver
	cmds      *Commands
	shutdown  *Shutdown
	eventRepo repository.EventRepo
	notifier  Notifier
	clk       clock.Clock
	log       *logger.Logger
	idle      time.Duration

	// closedErr is set once, before shutdown trips.
	closedErr error
}

type IngestDeps struct {
	Sources   []ChatSource
	Moderator *Moderator
	Resolver  *PlacementResolver
	Commands  *Commands
	Shutdown  *Shutdown
	EventRepo repository.EventRepo // optional
	Notifier  Notifier             // optional
	Clock     clock.Clock
	Log       *logger.Logger
}

func NewIngestWorker(d IngestDeps) *IngestWorker {
	return &IngestWorker{
		sources:   d.Sources,
		moderator: d.Moderator,
		resolver:  d.Resolver,
		cmds:      d.Commands,
		shutdown:  d.Shutdown,
		eventRepo: d.EventRepo,
		notifier:  d.Notifier,
		clk:       d.Clock,
		log:       d.Log,
		idle:      DefaultIdleBackoff,
	}
}

func (w *IngestWorker) Run(ctx context.Context) {
	t := w.clk.NewTicker(w.idle)
	defer t.Stop()
	for {
		if ctx.Err() != nil || w.shutdown.Tripped() {
			return
		}
		got, err := w.pollOnce(ctx)
		if err != nil {
			w.sourceClosed(ctx, err)
			return
		}
		if got > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown.Done():
			return
		case <-t.C:
		}
	}
}

// Err is the error that closed a chat source, if any. Read it only after
// Run has returned.
func (w *IngestWorker) Err() error { return w.closedErr }

func (w *IngestWorker) sourceClosed(ctx context.Context, err error) {
	w.closedErr = err
	w.log.Errorw("chat_source_closed", "err", err)
	w.appendEvent(ctx, models.EventFatal, "chat source closed", map[string]any{"err": err.Error()})
	Alert(ctx, w.notifier, w.log, notify.Message{
		Title:    "Chat source closed",
		Body:     "labelcast is shutting down: " + err.Error(),
		Priority: notify.PriorityUrgent,
		Tags:     []string{"warning", "chat"},
	})
	w.shutdown.Trip("chat source closed")
	w.cmds.TrySend(QuitCommand())
}

// pollOnce drains every source once and returns how many events it handled.
func (w *IngestWorker) pollOnce(ctx context.Context) (int, error) {
	n := 0
	for _, src := range w.sources {
		events, err := src.Poll(ctx)
		if err != nil {
			return n, err
		}
		for _, ev := range events {
			w.handle(ctx, src, ev)
			n++
		}
	}
	return n, nil
}

func (w *IngestWorker) handle(ctx context.Context, src ChatSource, ev models.ChatEvent) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	if err := w.moderator.Check(text); err != nil {
		w.log.Infow("chat_rejected", "user", ev.User)
		w.appendEvent(ctx, models.EventRejected, "chat message rejected by moderation", map[string]any{"user": ev.User})
		w.reply(ctx, src, "@"+ev.User+" "+rejectReply)
		return
	}

	if strings.EqualFold(text, quitCommand) {
		if !ev.Admin {
			return
		}
		w.log.Infow("quit_requested", "user", ev.User)
		w.cmds.TrySend(QuitCommand())
		w.shutdown.Trip("quit requested by " + ev.User)
		return
	}

	p, err := w.resolver.Resolve(ctx, text)
	if err != nil {
		if !errors.Is(err, placement.ErrUnparsable) {
			w.log.Warnw("placement_failed", "user", ev.User, "err", err)
		}
		w.reply(ctx, src, "@"+ev.User+" "+placement.Usage)
		return
	}
	w.log.Infow("draw_requested", "user", ev.User, "label", p.Label, "x", p.X, "y", p.Y, "size", p.Size)
	w.cmds.TrySend(DrawCommand(p))
}

func (w *IngestWorker) reply(ctx context.Context, src ChatSource, text string) {
	if err := src.Reply(ctx, text); err != nil {
		w.log.Debugw("chat_reply_failed", "err", err)
	}
}

func (w *IngestWorker) appendEvent(ctx context.Context, typ models.EventType, desc string, meta map[string]any) {
	if w.eventRepo == nil {
		return
	}
	if err := w.eventRepo.Append(ctx, models.PrinterEvent{
		OccurredAt:  w.clk.Now(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	}); err != nil {
		w.log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}
