package service

import (
	"context"
	"errors"
	"time"

	"labelcast/internal/canvas"
)

const DefaultPreviewTimeout = 2 * time.Second

var ErrPreviewTimeout = errors.New("preview timed out")

// Injector feeds operator text into the same path chat messages take.
type Injector interface {
	Inject(user, text string, admin bool) error
}

// CanvasService lets operators act on the canvas without touching it:
// everything goes through the UI command channel.
type CanvasService struct {
	injector Injector
	cmds     *Commands
	timeout  time.Duration
}

func NewCanvasService(injector Injector, cmds *Commands) *CanvasService {
	return &CanvasService{injector: injector, cmds: cmds, timeout: DefaultPreviewTimeout}
}

func (s *CanvasService) Draw(_ context.Context, operator, text string) error {
	return s.injector.Inject(operator, text, false)
}

func (s *CanvasService) Flush(context.Context) error {
	if !s.cmds.TrySend(ClearCommand()) {
		return ErrPipelineStopped
	}
	return nil
}

func (s *CanvasService) Preview(ctx context.Context) (*canvas.Canvas, error) {
	reply := make(chan *canvas.Canvas, 1)
	if !s.cmds.TrySend(PreviewCommand(reply)) {
		return nil, ErrPipelineStopped
	}
	t := time.NewTimer(s.timeout)
	defer t.Stop()
	select {
	case c := <-reply:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
		return nil, ErrPreviewTimeout
	}
}
