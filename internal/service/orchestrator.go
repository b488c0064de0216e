package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labelcast/internal/clock"
	"labelcast/internal/logger"
	"labelcast/internal/models"
	"labelcast/internal/niimbot"
	"labelcast/internal/notify"
	"labelcast/internal/repository"
)

// ErrDeviceFatal means the printer is gone for good. The process shuts
// down; there is no reconnect.
var ErrDeviceFatal = errors.New("printer device fatal")

const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultOrchestratorTick  = 500 * time.Millisecond
	DefaultRecoveryWait      = 500 * time.Millisecond
	DefaultFailureThreshold  = 5

	notifyTimeout = 10 * time.Second
)

// Printer is the part of niimbot.Session the orchestrator drives.
type Printer interface {
	Heartbeat() error
	PrintLabel(ctx context.Context, l niimbot.Label) error
	SetAutoShutdownTime(level uint8) error
	State() niimbot.SessionState
}

type Notifier interface {
	Send(ctx context.Context, m notify.Message) error
}

// HeartbeatMonitor counts consecutive heartbeat failures.
type HeartbeatMonitor struct {
	threshold int
	failures  int
}

func NewHeartbeatMonitor(threshold int) *HeartbeatMonitor {
	return &HeartbeatMonitor{threshold: threshold}
}

// Record reports true exactly once: on the failure that reaches the threshold.
func (m *HeartbeatMonitor) Record(ok bool) bool {
	if ok {
		m.failures = 0
		return false
	}
	m.failures++
	return m.failures == m.threshold
}

func (m *HeartbeatMonitor) Failures() int { return m.failures }

type OrchestratorConfig struct {
	HeartbeatInterval time.Duration
	Tick              time.Duration
	RecoveryWait      time.Duration
	FailureThreshold  int
	AutoShutdown      uint8
	// Disabled runs without a printer; jobs are archived as skipped.
	Disabled bool
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Tick <= 0 {
		c.Tick = DefaultOrchestratorTick
	}
	if c.RecoveryWait <= 0 {
		c.RecoveryWait = DefaultRecoveryWait
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
}

// Orchestrator is the print worker: it owns the printer session, keeps it
// alive with heartbeats and decides whether a failure is transient or fatal.
type Orchestrator struct {
	cfg      OrchestratorConfig
	printer  Printer
	queue    *PrintQueue
	shutdown *Shutdown
	clk      clock.Clock
	log      *logger.Logger
	notifier Notifier

	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	jobRepo   repository.JobRepo

	monitor       *HeartbeatMonitor
	lastHeartbeat time.Time
	state         models.PrinterState
}

type OrchestratorDeps struct {
	Printer   Printer
	Queue     *PrintQueue
	Shutdown  *Shutdown
	Clock     clock.Clock
	Log       *logger.Logger
	Notifier  Notifier
	StateRepo repository.StateRepo
	EventRepo repository.EventRepo
	JobRepo   repository.JobRepo
}

func NewOrchestrator(cfg OrchestratorConfig, d OrchestratorDeps) *Orchestrator {
	cfg.applyDefaults()
	if d.Printer == nil {
		cfg.Disabled = true
	}
	return &Orchestrator{
		cfg:       cfg,
		printer:   d.Printer,
		queue:     d.Queue,
		shutdown:  d.Shutdown,
		clk:       d.Clock,
		log:       d.Log,
		notifier:  d.Notifier,
		stateRepo: d.StateRepo,
		eventRepo: d.EventRepo,
		jobRepo:   d.JobRepo,
		monitor:   NewHeartbeatMonitor(cfg.FailureThreshold),
		state:     models.PrinterState{ID: 1, Session: sessionLabel(cfg.Disabled, d.Printer)},
	}
}

func sessionLabel(disabled bool, p Printer) string {
	if disabled || p == nil {
		return "DISABLED"
	}
	return p.State().String()
}

// Start checks the printer once before any work is accepted.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.cfg.Disabled {
		o.log.Warnw("printer_disabled", "reason", "jobs will be archived without printing")
		o.saveState(ctx)
		return nil
	}

	o.lastHeartbeat = o.clk.Now()
	o.state.LastHeartbeat = o.lastHeartbeat
	if err := o.printer.Heartbeat(); err != nil {
		return o.fatal(ctx, "initial heartbeat failed", err)
	}
	o.log.Infow("printer_ready")

	if o.cfg.AutoShutdown > 0 {
		if err := o.printer.SetAutoShutdownTime(o.cfg.AutoShutdown); err != nil {
			o.log.Warnw("auto_shutdown_not_set", "level", o.cfg.AutoShutdown, "err", err)
		}
	}
	o.saveState(ctx)
	return nil
}

// Run ticks until ctx ends, another worker trips shutdown, or the printer
// goes fatal. Only the fatal case returns an error.
func (o *Orchestrator) Run(ctx context.Context) error {
	t := o.clk.NewTicker(o.cfg.Tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.shutdown.Done():
			return nil
		case <-t.C:
			if err := o.step(ctx); err != nil {
				return err
			}
		}
	}
}

// step runs one tick: a heartbeat when due, then at most one job.
func (o *Orchestrator) step(ctx context.Context) error {
	if !o.cfg.Disabled && o.clk.Now().Sub(o.lastHeartbeat) >= o.cfg.HeartbeatInterval {
		if err := o.heartbeat(ctx); err != nil {
			return err
		}
	}
	if o.shutdown.Tripped() {
		return nil
	}

	job, ok := o.queue.TryTake()
	if !ok {
		return nil
	}
	return o.printJob(ctx, job)
}

func (o *Orchestrator) heartbeat(ctx context.Context) error {
	o.lastHeartbeat = o.clk.Now()
	o.state.LastHeartbeat = o.lastHeartbeat

	err := o.printer.Heartbeat()
	fatal := o.monitor.Record(err == nil)
	o.state.ConsecutiveFailures = o.monitor.Failures()

	if err == nil {
		o.log.Debugw("heartbeat_ok")
		o.saveState(ctx)
		return nil
	}

	o.log.Warnw("heartbeat_failed", "failures", o.monitor.Failures(), "err", err)
	o.appendEvent(ctx, models.PrinterEvent{
		Type:        models.EventHeartbeatFailed,
		Description: "heartbeat failed",
		Metadata:    map[string]any{"failures": o.monitor.Failures(), "err": err.Error()},
	})
	if fatal {
		return o.fatal(ctx, fmt.Sprintf("%d consecutive heartbeats failed", o.monitor.Failures()), err)
	}
	o.state.LastError = err.Error()
	o.saveState(ctx)
	return nil
}

func (o *Orchestrator) printJob(ctx context.Context, job models.PrintJob) error {
	if o.cfg.Disabled {
		o.log.Infow("print_skipped", "job_id", job.ID)
		o.archiveJob(ctx, job, models.JobSkipped, nil)
		return nil
	}

	err := o.printer.PrintLabel(ctx, niimbot.Label{
		Rows:      job.Rows,
		Width:     job.Width,
		Height:    job.Height,
		Quantity:  job.Quantity,
		LabelType: job.LabelType,
		Density:   job.Density,
	})
	if err == nil {
		o.state.JobsPrinted++
		o.state.LastError = ""
		o.log.Infow("printed", "job_id", job.ID, "jobs_printed", o.state.JobsPrinted)
		o.appendEvent(ctx, models.PrinterEvent{Type: models.EventPrinted, JobID: job.ID, Description: "label printed"})
		o.archiveJob(ctx, job, models.JobPrinted, nil)
		o.saveState(ctx)
		return nil
	}

	o.log.Errorw("print_failed", "job_id", job.ID, "err", err)
	o.appendEvent(ctx, models.PrinterEvent{
		Type:        models.EventPrintFailed,
		JobID:       job.ID,
		Description: "print failed",
		Metadata:    map[string]any{"err": err.Error()},
	})
	o.archiveJob(ctx, job, models.JobFailed, err)
	o.state.LastError = err.Error()

	if rerr := o.recoverDevice(); rerr != nil {
		return o.fatal(ctx, "printer did not answer after a failed print", errors.Join(err, rerr))
	}
	o.monitor.Record(true)
	o.state.ConsecutiveFailures = 0
	o.log.Infow("printer_recovered", "job_id", job.ID)
	o.appendEvent(ctx, models.PrinterEvent{Type: models.EventRecovered, JobID: job.ID, Description: "printer answered after failed print"})
	o.saveState(ctx)
	return nil
}

// recoverDevice is the two-stage recheck: wait, heartbeat, wait, heartbeat.
func (o *Orchestrator) recoverDevice() error {
	var err error
	for range 2 {
		o.clk.Sleep(o.cfg.RecoveryWait)
		if err = o.printer.Heartbeat(); err == nil {
			o.lastHeartbeat = o.clk.Now()
			o.state.LastHeartbeat = o.lastHeartbeat
			return nil
		}
	}
	return err
}

// fatal runs the shutdown path once and returns the wrapped error.
func (o *Orchestrator) fatal(ctx context.Context, reason string, cause error) error {
	o.log.Errorw("printer_fatal", "reason", reason, "err", cause)

	o.state.Fatal = true
	o.state.LastError = fmt.Sprintf("%s: %v", reason, cause)
	o.appendEvent(ctx, models.PrinterEvent{Type: models.EventFatal, Description: reason, Metadata: map[string]any{"err": fmt.Sprint(cause)}})
	o.saveState(ctx)

	Alert(ctx, o.notifier, o.log, notify.Message{
		Title:    "Label printer stopped",
		Body:     o.state.LastError,
		Priority: notify.PriorityUrgent,
		Tags:     []string{"warning", "printer"},
	})

	o.queue.Close()
	o.shutdown.Trip(reason)
	return fmt.Errorf("%w: %s: %w", ErrDeviceFatal, reason, cause)
}

func (o *Orchestrator) saveState(ctx context.Context) {
	if o.stateRepo == nil {
		return
	}
	o.state.Session = sessionLabel(o.cfg.Disabled, o.printer)
	o.state.QueuedJobs = o.queue.Len()
	o.state.UpdatedAt = o.clk.Now().UTC()
	if err := o.stateRepo.Save(ctx, o.state); err != nil {
		o.log.Warnw("state_save_failed", "err", err)
	}
}

func (o *Orchestrator) appendEvent(ctx context.Context, ev models.PrinterEvent) {
	if o.eventRepo == nil {
		return
	}
	ev.OccurredAt = o.clk.Now()
	if err := o.eventRepo.Append(ctx, ev); err != nil {
		o.log.Warnw("event_append_failed", "type", ev.Type, "job_id", ev.JobID, "err", err)
	}
}

func (o *Orchestrator) archiveJob(ctx context.Context, job models.PrintJob, status string, cause error) {
	if o.jobRepo == nil {
		return
	}
	rec := models.JobRecord{
		ID:        job.ID,
		CreatedAt: job.CreatedAt,
		Status:    status,
		Width:     job.Width,
		Height:    job.Height,
		Quantity:  job.Quantity,
		Pixels:    flatten(job.Rows, job.Width),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := o.jobRepo.Save(ctx, rec); err != nil {
		o.log.Warnw("job_archive_failed", "job_id", job.ID, "err", err)
	}
}

func flatten(rows [][]uint8, width int) []byte {
	out := make([]byte, 0, len(rows)*width)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
