package chat

import (
	"context"
	"sync"
	"time"

	"labelcast/internal/models"
)

const maxReplies = 50

// Injector is an in-process chat source fed by operators over HTTP.
type Injector struct {
	mu      sync.Mutex
	queue   []models.ChatEvent
	replies []string
	closed  bool
}

func NewInjector() *Injector { return &Injector{} }

func (i *Injector) Inject(user, text string, admin bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrClosed
	}
	i.queue = append(i.queue, models.ChatEvent{User: user, Text: text, Admin: admin, ReceivedAt: time.Now()})
	return nil
}

func (i *Injector) Poll(context.Context) ([]models.ChatEvent, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.queue) == 0 && i.closed {
		return nil, ErrClosed
	}
	out := i.queue
	i.queue = nil
	return out, nil
}

// Reply keeps the most recent replies for the operator to read back.
func (i *Injector) Reply(_ context.Context, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.replies = append(i.replies, text)
	if len(i.replies) > maxReplies {
		i.replies = i.replies[len(i.replies)-maxReplies:]
	}
	return nil
}

func (i *Injector) Replies() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.replies...)
}

func (i *Injector) Close() error {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()
	return nil
}
