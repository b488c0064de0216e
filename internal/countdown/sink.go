// Package countdown publishes the time left until the next print.
package countdown

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/renameio/v2"
)

// Format renders d as "<m>:<ss>", truncated to whole seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FileSink overwrites one text file per update, for stream overlays.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) *FileSink { return &FileSink{path: path} }

// Write replaces the file content atomically so readers never see a
// half-written line.
func (s *FileSink) Write(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := renameio.WriteFile(s.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write countdown: %w", err)
	}
	return nil
}

// Update is what subscribers receive once per second.
type Update struct {
	Text      string `json:"text"`
	Remaining int    `json:"remaining_s"`
}

// Hub fans updates out to websocket subscribers. Slow subscribers miss
// updates instead of blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Update]struct{}
	last Update
}

func NewHub() *Hub { return &Hub{subs: make(map[chan Update]struct{})} }

func (h *Hub) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 4)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Publish(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = u
	for ch := range h.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Last returns the most recent update.
func (h *Hub) Last() Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
