package service

import (
	"context"
	"fmt"
	"sync"

	"labelcast/internal/logger"
)

// Pipeline runs the background workers. The orchestrator runs on the
// caller's goroutine; the others each get one.
type Pipeline struct {
	Orchestrator *Orchestrator
	Render       *RenderLoop
	Countdown    *CountdownWorker
	Ingest       *IngestWorker
	Shutdown     *Shutdown
	Log          *logger.Logger
}

// Run blocks until every worker has returned. The returned error wraps
// ErrDeviceFatal when the printer died and ErrSourceClosed when chat went
// away. A signal or admin quit returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Orchestrator.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){p.Render.Run, p.Countdown.Run, p.Ingest.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	err := p.Orchestrator.Run(ctx)
	p.Shutdown.Trip("orchestrator stopped")
	cancel()
	wg.Wait()
	p.Log.Infow("pipeline_stopped", "reason", p.Shutdown.Reason())
	if err == nil {
		if cerr := p.Ingest.Err(); cerr != nil {
			err = fmt.Errorf("%w: %w", ErrSourceClosed, cerr)
		}
	}
	return err
}
