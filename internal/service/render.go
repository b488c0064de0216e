package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"labelcast/internal/canvas"
	"labelcast/internal/clock"
	"labelcast/internal/logger"
	"labelcast/internal/models"
)

// Placer draws a placement onto a canvas.
type Placer interface {
	Place(c *canvas.Canvas, p models.Placement) error
}

// Archiver keeps a copy of every flushed canvas.
type Archiver interface {
	Save(c *canvas.Canvas, at time.Time) (string, error)
}

// JobSettings are copied into every PrintJob.
type JobSettings struct {
	Quantity  uint16
	Density   uint8
	LabelType uint8
}

// RenderLoop owns the canvas. Nothing else reads or writes it.
type RenderLoop struct {
	canvas   *canvas.Canvas
	cmds     *Commands
	queue    *PrintQueue
	placer   Placer
	archiver Archiver
	settings JobSettings
	shutdown *Shutdown
	clk      clock.Clock
	log      *logger.Logger
}

type RenderDeps struct {
	Commands *Commands
	Queue    *PrintQueue
	Placer   Placer
	Archiver Archiver // optional
	Shutdown *Shutdown
	Clock    clock.Clock
	Log      *logger.Logger
}

func NewRenderLoop(width, height int, settings JobSettings, d RenderDeps) *RenderLoop {
	return &RenderLoop{
		canvas:   canvas.New(width, height),
		cmds:     d.Commands,
		queue:    d.Queue,
		placer:   d.Placer,
		archiver: d.Archiver,
		settings: settings,
		shutdown: d.Shutdown,
		clk:      d.Clock,
		log:      d.Log,
	}
}

// Run consumes UI commands until Quit, shutdown, or a closed print queue.
func (r *RenderLoop) Run(ctx context.Context) {
	defer r.cmds.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown.Done():
			return
		case <-r.cmds.Ready():
			for _, cmd := range r.cmds.Drain() {
				if !r.handle(cmd) {
					return
				}
			}
		}
	}
}

// handle applies one command and reports whether the loop should go on.
func (r *RenderLoop) handle(cmd UICommand) bool {
	switch cmd.Kind {
	case UIDraw:
		if err := r.placer.Place(r.canvas, cmd.Placement); err != nil {
			r.log.Warnw("draw_failed", "label", cmd.Placement.Label, "err", err)
		}
	case UIClear:
		return r.flush()
	case UIPreview:
		if cmd.Reply != nil {
			select {
			case cmd.Reply <- r.canvas.Clone():
			default:
			}
		}
	case UIQuit:
		r.log.Infow("render_quit")
		return false
	}
	return true
}

func (r *RenderLoop) flush() bool {
	if r.canvas.IsBlank() {
		r.log.Debugw("flush_skipped", "reason", "blank canvas")
		return true
	}

	snap := r.canvas.Clone()
	now := r.clk.Now()
	job := models.PrintJob{
		ID:        uuid.NewString(),
		Rows:      snap.Rows(),
		Width:     snap.Width(),
		Height:    snap.Height(),
		Quantity:  r.settings.Quantity,
		Density:   r.settings.Density,
		LabelType: r.settings.LabelType,
		CreatedAt: now,
	}

	switch err := r.queue.Offer(job); {
	case errors.Is(err, ErrQueueClosed):
		r.log.Warnw("print_queue_closed", "job_id", job.ID)
		r.shutdown.Trip("print queue closed")
		return false
	case err != nil:
		r.log.Warnw("job_dropped", "job_id", job.ID, "err", err)
	default:
		r.log.Infow("job_queued", "job_id", job.ID)
	}

	if r.archiver != nil {
		if path, err := r.archiver.Save(snap, now); err != nil {
			r.log.Warnw("snapshot_archive_failed", "job_id", job.ID, "err", err)
		} else {
			r.log.Debugw("snapshot_archived", "path", path)
		}
	}
	r.canvas.Clear()
	return true
}
