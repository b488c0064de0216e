package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"labelcast/internal/clock"
	"labelcast/internal/models"
	"labelcast/internal/niimbot"
	"labelcast/internal/notify"
)

var errDevice = errors.New("device silent")

// fakePrinter answers heartbeats from a script; once the script runs out
// it returns hbDefault.
type fakePrinter struct {
	heartbeats []error
	hbDefault  error
	hbCalls    int

	printErr error
	printed  []niimbot.Label

	autoShutdown []uint8
}

func (p *fakePrinter) Heartbeat() error {
	p.hbCalls++
	if len(p.heartbeats) == 0 {
		return p.hbDefault
	}
	err := p.heartbeats[0]
	p.heartbeats = p.heartbeats[1:]
	return err
}

func (p *fakePrinter) PrintLabel(_ context.Context, l niimbot.Label) error {
	p.printed = append(p.printed, l)
	return p.printErr
}

func (p *fakePrinter) SetAutoShutdownTime(level uint8) error {
	p.autoShutdown = append(p.autoShutdown, level)
	return nil
}

func (p *fakePrinter) State() niimbot.SessionState { return niimbot.StateIdle }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *fakeNotifier) Send(_ context.Context, m notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

type memStateRepo struct {
	mu    sync.Mutex
	saved []models.PrinterState
}

func (r *memStateRepo) Save(_ context.Context, s models.PrinterState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, s)
	return nil
}

func (r *memStateRepo) Load(context.Context) (models.PrinterState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return models.PrinterState{}, nil
	}
	return r.saved[len(r.saved)-1], nil
}

func (r *memStateRepo) last() models.PrinterState {
	s, _ := r.Load(context.Background())
	return s
}

type memEventRepo struct {
	mu     sync.Mutex
	events []models.PrinterEvent
}

func (r *memEventRepo) Append(_ context.Context, e models.PrinterEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) List(context.Context, models.EventQuery) ([]models.PrinterEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PrinterEvent(nil), r.events...), nil
}

func (r *memEventRepo) count(typ models.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type memJobRepo struct {
	mu   sync.Mutex
	recs map[string]models.JobRecord
	list []models.JobRecord
}

func (r *memJobRepo) Save(_ context.Context, rec models.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recs == nil {
		r.recs = make(map[string]models.JobRecord)
	}
	r.recs[rec.ID] = rec
	r.list = append(r.list, rec)
	return nil
}

func (r *memJobRepo) Get(_ context.Context, id string) (*models.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *memJobRepo) List(_ context.Context, limit int) ([]models.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.JobRecord(nil), r.list...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func testJob(id string) models.PrintJob {
	rows := make([][]uint8, 2)
	for i := range rows {
		rows[i] = make([]uint8, 8)
	}
	return models.PrintJob{ID: id, Rows: rows, Width: 8, Height: 2, Quantity: 1}
}
