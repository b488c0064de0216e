package service

import (
	"sync"
	"sync/atomic"
)

// Shutdown is the cooperative stop signal shared by every worker. Workers
// poll it between operations; nothing is interrupted mid-call.
type Shutdown struct {
	tripped atomic.Bool
	once    sync.Once
	done    chan struct{}
	reason  atomic.Value
}

func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Trip records the first reason and wakes every waiter. Later calls are no-ops.
func (s *Shutdown) Trip(reason string) {
	s.once.Do(func() {
		s.reason.Store(reason)
		s.tripped.Store(true)
		close(s.done)
	})
}

func (s *Shutdown) Tripped() bool { return s.tripped.Load() }

func (s *Shutdown) Done() <-chan struct{} { return s.done }

func (s *Shutdown) Reason() string {
	r, _ := s.reason.Load().(string)
	return r
}
