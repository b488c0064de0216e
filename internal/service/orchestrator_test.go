package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"labelcast/internal/clock"
	"labelcast/internal/logger"
	"labelcast/internal/models"
	"labelcast/internal/notify"
)

type orchestratorFixture struct {
	o        *Orchestrator
	printer  *fakePrinter
	clk      *clock.FakeClock
	queue    *PrintQueue
	shutdown *Shutdown
	notifier *fakeNotifier
	states   *memStateRepo
	events   *memEventRepo
	jobs     *memJobRepo
}

func newOrchestratorFixture(t *testing.T, p *fakePrinter, cfg OrchestratorConfig) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		printer:  p,
		clk:      testClock(),
		queue:    NewPrintQueue(8),
		shutdown: NewShutdown(),
		notifier: &fakeNotifier{},
		states:   &memStateRepo{},
		events:   &memEventRepo{},
		jobs:     &memJobRepo{},
	}
	d := OrchestratorDeps{
		Queue:     f.queue,
		Shutdown:  f.shutdown,
		Clock:     f.clk,
		Log:       logger.Nop(),
		Notifier:  f.notifier,
		StateRepo: f.states,
		EventRepo: f.events,
		JobRepo:   f.jobs,
	}
	if p != nil {
		d.Printer = p
	}
	f.o = NewOrchestrator(cfg, d)
	return f
}

// tickHeartbeat advances past the heartbeat interval and runs one step.
func (f *orchestratorFixture) tickHeartbeat(ctx context.Context) error {
	f.clk.Advance(DefaultHeartbeatInterval)
	return f.o.step(ctx)
}

func TestHeartbeatMonitor_FiresOnceAtThreshold(t *testing.T) {
	m := NewHeartbeatMonitor(5)
	for i := 1; i <= 4; i++ {
		if m.Record(false) {
			t.Fatalf("fired after %d failures", i)
		}
	}
	if !m.Record(false) {
		t.Fatal("did not fire at 5 failures")
	}
	if m.Record(false) {
		t.Fatal("fired again after threshold")
	}
	m.Record(true)
	if m.Failures() != 0 {
		t.Fatalf("Failures() = %d after success, want 0", m.Failures())
	}
}

func TestOrchestrator_StartFailsFast(t *testing.T) {
	f := newOrchestratorFixture(t, &fakePrinter{hbDefault: errDevice}, OrchestratorConfig{})

	err := f.o.Start(context.Background())
	if !errors.Is(err, ErrDeviceFatal) {
		t.Fatalf("Start err = %v, want ErrDeviceFatal", err)
	}
	if !f.shutdown.Tripped() {
		t.Fatal("shutdown not tripped")
	}
	if !f.queue.Closed() {
		t.Fatal("print queue not closed")
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notifier.sent))
	}
}

func TestOrchestrator_StartSetsAutoShutdown(t *testing.T) {
	p := &fakePrinter{}
	f := newOrchestratorFixture(t, p, OrchestratorConfig{AutoShutdown: 2})

	if err := f.o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(p.autoShutdown) != 1 || p.autoShutdown[0] != 2 {
		t.Fatalf("auto shutdown writes = %v, want [2]", p.autoShutdown)
	}
}

func TestOrchestrator_HeartbeatSequences(t *testing.T) {
	cases := []struct {
		name      string
		beats     []error
		wantFatal bool
	}{
		{
			name:      "five failures in a row is fatal",
			beats:     []error{errDevice, errDevice, errDevice, errDevice, errDevice},
			wantFatal: true,
		},
		{
			name:  "four failures then success is not",
			beats: []error{errDevice, errDevice, errDevice, errDevice, nil},
		},
		{
			name:  "success resets the count",
			beats: []error{errDevice, errDevice, errDevice, errDevice, nil, errDevice, errDevice, errDevice, errDevice},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// nil first answers Start.
			p := &fakePrinter{heartbeats: append([]error{nil}, tc.beats...)}
			f := newOrchestratorFixture(t, p, OrchestratorConfig{})
			ctx := context.Background()
			if err := f.o.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}

			var fatalErr error
			for range tc.beats {
				if err := f.tickHeartbeat(ctx); err != nil {
					fatalErr = err
					break
				}
			}

			if got := fatalErr != nil; got != tc.wantFatal {
				t.Fatalf("fatal = %v (err %v), want %v", got, fatalErr, tc.wantFatal)
			}
			if tc.wantFatal {
				if !errors.Is(fatalErr, ErrDeviceFatal) {
					t.Fatalf("err = %v, want ErrDeviceFatal", fatalErr)
				}
				if n := f.events.count(models.EventFatal); n != 1 {
					t.Fatalf("FATAL events = %d, want 1", n)
				}
				if !f.states.last().Fatal {
					t.Fatal("persisted state not fatal")
				}
			} else if f.shutdown.Tripped() {
				t.Fatal("shutdown tripped without a fatal error")
			}
		})
	}
}

func TestOrchestrator_HeartbeatNotDueIsSkipped(t *testing.T) {
	p := &fakePrinter{}
	f := newOrchestratorFixture(t, p, OrchestratorConfig{})
	ctx := context.Background()
	if err := f.o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.clk.Advance(DefaultHeartbeatInterval - time.Second)
	if err := f.o.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if p.hbCalls != 1 {
		t.Fatalf("heartbeats = %d, want only the one from Start", p.hbCalls)
	}
}

func TestOrchestrator_PrintsOneJobPerStep(t *testing.T) {
	p := &fakePrinter{}
	f := newOrchestratorFixture(t, p, OrchestratorConfig{})
	ctx := context.Background()
	if err := f.o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := f.queue.Offer(testJob(id)); err != nil {
			t.Fatalf("Offer: %v", err)
		}
	}

	if err := f.o.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(p.printed) != 1 {
		t.Fatalf("printed = %d after one step, want 1", len(p.printed))
	}
	if err := f.o.step(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(p.printed) != 2 {
		t.Fatalf("printed = %d after two steps, want 2", len(p.printed))
	}
	if rec, _ := f.jobs.Get(ctx, "a"); rec == nil || rec.Status != models.JobPrinted {
		t.Fatalf("job a archived as %+v, want PRINTED", rec)
	}
	if got := f.states.last().JobsPrinted; got != 2 {
		t.Fatalf("JobsPrinted = %d, want 2", got)
	}
}

func TestOrchestrator_RecoveryAfterFailedPrint(t *testing.T) {
	cases := []struct {
		name       string
		recovery   []error
		wantFatal  bool
		wantSleeps int
	}{
		{name: "first recheck answers", recovery: []error{nil}, wantSleeps: 1},
		{name: "second recheck answers", recovery: []error{errDevice, nil}, wantSleeps: 2},
		{name: "both rechecks fail", recovery: []error{errDevice, errDevice}, wantFatal: true, wantSleeps: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakePrinter{heartbeats: append([]error{nil}, tc.recovery...), printErr: errDevice}
			f := newOrchestratorFixture(t, p, OrchestratorConfig{})
			ctx := context.Background()
			if err := f.o.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if err := f.queue.Offer(testJob("j1")); err != nil {
				t.Fatalf("Offer: %v", err)
			}

			err := f.o.step(ctx)

			if got := err != nil; got != tc.wantFatal {
				t.Fatalf("fatal = %v (err %v), want %v", got, err, tc.wantFatal)
			}
			sleeps := f.clk.Sleeps()
			if len(sleeps) != tc.wantSleeps {
				t.Fatalf("sleeps = %v, want %d", sleeps, tc.wantSleeps)
			}
			for _, d := range sleeps {
				if d != DefaultRecoveryWait {
					t.Fatalf("sleep %v, want %v", d, DefaultRecoveryWait)
				}
			}
			rec, _ := f.jobs.Get(ctx, "j1")
			if rec == nil || rec.Status != models.JobFailed {
				t.Fatalf("job archived as %+v, want FAILED", rec)
			}
			if tc.wantFatal {
				if !f.queue.Closed() || !f.shutdown.Tripped() {
					t.Fatal("fatal path did not close the queue and trip shutdown")
				}
				return
			}
			if n := f.events.count(models.EventRecovered); n != 1 {
				t.Fatalf("RECOVERED events = %d, want 1", n)
			}
			if f.shutdown.Tripped() {
				t.Fatal("transient failure tripped shutdown")
			}
		})
	}
}

func TestOrchestrator_FatalNotifiesOnceUrgent(t *testing.T) {
	p := &fakePrinter{hbDefault: errDevice}
	p.heartbeats = []error{nil}
	f := newOrchestratorFixture(t, p, OrchestratorConfig{})
	ctx := context.Background()
	if err := f.o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.o.Run(ctx) }()

	// One tick per heartbeat interval; the ticker buffers one tick, so
	// advance until Run returns.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			if !errors.Is(err, ErrDeviceFatal) {
				t.Fatalf("Run err = %v, want ErrDeviceFatal", err)
			}
			if len(f.notifier.sent) != 1 {
				t.Fatalf("notifications = %d, want 1", len(f.notifier.sent))
			}
			if f.notifier.sent[0].Priority != notify.PriorityUrgent {
				t.Fatalf("priority = %q, want urgent", f.notifier.sent[0].Priority)
			}
			return
		case <-deadline:
			t.Fatal("Run did not return")
		default:
			f.clk.Advance(DefaultHeartbeatInterval)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestOrchestrator_DisabledArchivesSkipped(t *testing.T) {
	f := newOrchestratorFixture(t, nil, OrchestratorConfig{})
	ctx := context.Background()
	if err := f.o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.queue.Offer(testJob("s1")); err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if err := f.tickHeartbeat(ctx); err != nil {
		t.Fatalf("step: %v", err)
	}
	rec, _ := f.jobs.Get(ctx, "s1")
	if rec == nil || rec.Status != models.JobSkipped {
		t.Fatalf("job archived as %+v, want SKIPPED", rec)
	}
	if got := f.states.last().Session; got != "DISABLED" {
		t.Fatalf("session = %q, want disabled", got)
	}
}
