package service

import (
	"errors"
	"sync"

	"labelcast/internal/canvas"
	"labelcast/internal/logger"
	"labelcast/internal/models"
)

var (
	ErrQueueClosed = errors.New("print queue closed")
	ErrQueueFull   = errors.New("print queue full")
	// ErrPipelineStopped means the render loop no longer takes commands.
	ErrPipelineStopped = errors.New("render loop stopped")
)

type UIKind int

const (
	UIDraw UIKind = iota
	UIClear
	UIQuit
	UIPreview
)

func (k UIKind) String() string {
	switch k {
	case UIDraw:
		return "draw"
	case UIClear:
		return "clear"
	case UIQuit:
		return "quit"
	case UIPreview:
		return "preview"
	default:
		return "unknown"
	}
}

// UICommand is consumed by the render loop, the only canvas owner.
type UICommand struct {
	Kind      UIKind
	Placement models.Placement
	// Reply receives a canvas clone for UIPreview. Must be buffered.
	Reply chan<- *canvas.Canvas
}

func DrawCommand(p models.Placement) UICommand { return UICommand{Kind: UIDraw, Placement: p} }
func ClearCommand() UICommand                  { return UICommand{Kind: UIClear} }
func QuitCommand() UICommand                   { return UICommand{Kind: UIQuit} }

func PreviewCommand(reply chan<- *canvas.Canvas) UICommand {
	return UICommand{Kind: UIPreview, Reply: reply}
}

// Commands is the many-producer, single-consumer UI mailbox. It is
// unbounded so a burst of draws can never push out the countdown's Clear.
// Producers never block; the render loop waits on Ready and takes
// everything queued with Drain.
type Commands struct {
	mu     sync.Mutex
	queue  []UICommand
	closed bool
	wake   chan struct{}
	log    *logger.Logger
}

func NewCommands(log *logger.Logger) *Commands {
	return &Commands{wake: make(chan struct{}, 1), log: log}
}

// TrySend queues cmd and reports false only once the consumer has
// stopped; that drop is logged.
func (c *Commands) TrySend(cmd UICommand) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warnw("ui_command_dropped", "kind", cmd.Kind.String(), "reason", "render loop stopped")
		return false
	}
	c.queue = append(c.queue, cmd)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// Ready receives a value whenever commands may be waiting.
func (c *Commands) Ready() <-chan struct{} { return c.wake }

// Drain returns every queued command in send order.
func (c *Commands) Drain() []UICommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close is called by the consumer when it stops. Queued commands are
// discarded.
func (c *Commands) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		if n := len(c.queue); n > 0 {
			c.log.Infow("ui_commands_discarded", "count", n)
		}
		c.queue = nil
	}
}

// PrintQueue carries snapshots from the render loop to the orchestrator.
// Only the consumer closes it.
type PrintQueue struct {
	mu     sync.Mutex
	ch     chan models.PrintJob
	closed bool
}

func NewPrintQueue(size int) *PrintQueue {
	return &PrintQueue{ch: make(chan models.PrintJob, size)}
}

// Offer enqueues without blocking.
func (q *PrintQueue) Offer(job models.PrintJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// TryTake returns the oldest queued job, if any.
func (q *PrintQueue) TryTake() (models.PrintJob, bool) {
	select {
	case job, ok := <-q.ch:
		return job, ok
	default:
		return models.PrintJob{}, false
	}
}

func (q *PrintQueue) Len() int { return len(q.ch) }

func (q *PrintQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

func (q *PrintQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
