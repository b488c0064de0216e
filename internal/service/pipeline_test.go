package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"labelcast/internal/canvas"
	"labelcast/internal/logger"
	"labelcast/internal/models"
	"labelcast/internal/placement"
	"labelcast/internal/render"
)

// dotPlacer darkens the single pixel at the placement's coordinates.
type dotPlacer struct{}

func (dotPlacer) Place(c *canvas.Canvas, p models.Placement) error {
	c.Set(p.X, p.Y, canvas.Dark)
	return nil
}

type fakeArchiver struct {
	saved int
}

func (a *fakeArchiver) Save(*canvas.Canvas, time.Time) (string, error) {
	a.saved++
	return "snap.png", nil
}

func newTestRenderLoop(placer Placer, queue *PrintQueue, sd *Shutdown) (*RenderLoop, *Commands, *fakeArchiver) {
	cmds := NewCommands(logger.Nop())
	arch := &fakeArchiver{}
	r := NewRenderLoop(16, 8, JobSettings{Quantity: 1, Density: 3, LabelType: 1}, RenderDeps{
		Commands: cmds,
		Queue:    queue,
		Placer:   placer,
		Archiver: arch,
		Shutdown: sd,
		Clock:    testClock(),
		Log:      logger.Nop(),
	})
	return r, cmds, arch
}

func TestShutdown_TripOnce(t *testing.T) {
	s := NewShutdown()
	if s.Tripped() {
		t.Fatal("new Shutdown already tripped")
	}
	s.Trip("first")
	s.Trip("second")
	if !s.Tripped() {
		t.Fatal("Trip did not set the flag")
	}
	if s.Reason() != "first" {
		t.Fatalf("Reason() = %q, want first", s.Reason())
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestPrintQueue_OfferTakeClose(t *testing.T) {
	q := NewPrintQueue(1)
	if _, ok := q.TryTake(); ok {
		t.Fatal("TryTake on empty queue returned a job")
	}
	if err := q.Offer(testJob("a")); err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if err := q.Offer(testJob("b")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Offer on full queue = %v, want ErrQueueFull", err)
	}
	job, ok := q.TryTake()
	if !ok || job.ID != "a" {
		t.Fatalf("TryTake = %+v, %v", job, ok)
	}

	q.Close()
	q.Close()
	if err := q.Offer(testJob("c")); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Offer after Close = %v, want ErrQueueClosed", err)
	}
}

func TestCommands_BurstKeepsEveryCommandInOrder(t *testing.T) {
	c := NewCommands(logger.Nop())
	for i := range 500 {
		if !c.TrySend(DrawCommand(models.Placement{X: i})) {
			t.Fatalf("draw %d dropped", i)
		}
	}
	if !c.TrySend(ClearCommand()) {
		t.Fatal("clear after a burst of draws dropped")
	}

	select {
	case <-c.Ready():
	default:
		t.Fatal("Ready not signalled")
	}
	got := c.Drain()
	if len(got) != 501 {
		t.Fatalf("drained %d commands, want 501", len(got))
	}
	for i := range 500 {
		if got[i].Kind != UIDraw || got[i].Placement.X != i {
			t.Fatalf("command %d = %+v", i, got[i])
		}
	}
	if got[500].Kind != UIClear {
		t.Fatalf("last command = %v, want clear", got[500].Kind)
	}
	if c.Len() != 0 {
		t.Fatalf("Len after Drain = %d", c.Len())
	}
}

func TestCommands_ClosedDrops(t *testing.T) {
	c := NewCommands(logger.Nop())
	c.TrySend(DrawCommand(models.Placement{}))
	c.Close()
	if c.TrySend(ClearCommand()) {
		t.Fatal("TrySend after Close succeeded")
	}
	if got := c.Drain(); len(got) != 0 {
		t.Fatalf("closed mailbox still holds %d commands", len(got))
	}
}

func TestRenderLoop_RunClosesCommandsOnExit(t *testing.T) {
	r, cmds, _ := newTestRenderLoop(dotPlacer{}, NewPrintQueue(1), NewShutdown())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)
	if cmds.TrySend(ClearCommand()) {
		t.Fatal("commands still accepted after the render loop stopped")
	}
}

func TestRenderLoop_DrawClearDraw(t *testing.T) {
	q := NewPrintQueue(4)
	r, _, arch := newTestRenderLoop(dotPlacer{}, q, NewShutdown())

	r.handle(DrawCommand(models.Placement{Label: "a", X: 1, Y: 1}))
	r.handle(ClearCommand())
	r.handle(DrawCommand(models.Placement{Label: "b", X: 5, Y: 5}))

	job, ok := q.TryTake()
	if !ok {
		t.Fatal("no job queued")
	}
	if job.Rows[1][1] != canvas.Dark || job.Rows[5][5] != canvas.Blank {
		t.Fatal("job does not hold exactly the first draw")
	}
	if job.Quantity != 1 || job.Density != 3 || job.LabelType != 1 {
		t.Fatalf("job settings = %+v", job)
	}
	if job.ID == "" {
		t.Fatal("job has no id")
	}
	if _, ok := q.TryTake(); ok {
		t.Fatal("more than one job queued")
	}
	if r.canvas.At(1, 1) != canvas.Blank || r.canvas.At(5, 5) != canvas.Dark {
		t.Fatal("canvas does not hold exactly the second draw")
	}
	if arch.saved != 1 {
		t.Fatalf("archived = %d, want 1", arch.saved)
	}
}

func TestRenderLoop_BlankCanvasNeverEnqueues(t *testing.T) {
	q := NewPrintQueue(4)
	r, _, arch := newTestRenderLoop(dotPlacer{}, q, NewShutdown())

	for range 3 {
		if !r.handle(ClearCommand()) {
			t.Fatal("Clear on blank canvas stopped the loop")
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue length = %d, want 0", q.Len())
	}
	if arch.saved != 0 {
		t.Fatalf("archived = %d, want 0", arch.saved)
	}
}

func TestRenderLoop_ClosedQueueTripsShutdown(t *testing.T) {
	q := NewPrintQueue(4)
	q.Close()
	sd := NewShutdown()
	r, _, _ := newTestRenderLoop(dotPlacer{}, q, sd)

	r.handle(DrawCommand(models.Placement{X: 0, Y: 0}))
	if r.handle(ClearCommand()) {
		t.Fatal("loop continued after the print queue closed")
	}
	if !sd.Tripped() {
		t.Fatal("shutdown not tripped")
	}
}

func TestRenderLoop_PreviewRepliesWithClone(t *testing.T) {
	r, _, _ := newTestRenderLoop(dotPlacer{}, NewPrintQueue(1), NewShutdown())
	r.handle(DrawCommand(models.Placement{X: 2, Y: 3}))

	reply := make(chan *canvas.Canvas, 1)
	r.handle(PreviewCommand(reply))
	got := <-reply
	if got.At(2, 3) != canvas.Dark {
		t.Fatal("preview missing the drawn pixel")
	}
	got.Set(0, 0, canvas.Dark)
	if r.canvas.At(0, 0) != canvas.Blank {
		t.Fatal("preview shares memory with the live canvas")
	}
}

func TestRenderLoop_RunStopsOnQuit(t *testing.T) {
	r, cmds, _ := newTestRenderLoop(dotPlacer{}, NewPrintQueue(1), NewShutdown())
	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	cmds.TrySend(QuitCommand())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on Quit")
	}
}

// A chat message in fallback syntax ends up as exactly one print job.
func TestPipeline_FallbackMessageToOneJob(t *testing.T) {
	queue := NewPrintQueue(4)
	sd := NewShutdown()
	cmds := NewCommands(logger.Nop())
	bounds := placement.Bounds{Width: 96, Height: 64, MaxSize: 10}
	src := &fakeSource{batches: [][]models.ChatEvent{{{User: "viewer", Text: "logo 10,10,2"}}}}

	ingest := NewIngestWorker(IngestDeps{
		Sources:   []ChatSource{src},
		Moderator: NewModerator(false, nil),
		Resolver:  NewPlacementResolver(nil, bounds, logger.Nop()),
		Commands:  cmds,
		Shutdown:  sd,
		Clock:     testClock(),
		Log:       logger.Nop(),
	})
	r := NewRenderLoop(bounds.Width, bounds.Height, JobSettings{Quantity: 1}, RenderDeps{
		Commands: cmds,
		Queue:    queue,
		Placer:   render.New(render.NoIcons(), false),
		Shutdown: sd,
		Clock:    testClock(),
		Log:      logger.Nop(),
	})

	if _, err := ingest.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	queued := cmds.Drain()
	if len(queued) != 1 {
		t.Fatalf("queued commands = %d, want 1", len(queued))
	}
	cmd := queued[0]
	if cmd.Kind != UIDraw || cmd.Placement != (models.Placement{Label: "logo", X: 10, Y: 10, Size: 2}) {
		t.Fatalf("command = %+v", cmd)
	}
	r.handle(cmd)
	r.handle(ClearCommand())

	if queue.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", queue.Len())
	}
	job, _ := queue.TryTake()
	if job.Width != 96 || job.Height != 64 || len(job.Rows) != 64 {
		t.Fatalf("job geometry = %dx%d with %d rows", job.Width, job.Height, len(job.Rows))
	}
	dark := 0
	for _, row := range job.Rows {
		for _, v := range row {
			if v < canvas.DarkThreshold {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatal("job has no dark pixels")
	}
}
