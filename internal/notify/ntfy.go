// Package notify pushes operator alerts to an ntfy topic.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"labelcast/internal/logger"
)

const (
	PriorityDefault = "default"
	PriorityHigh    = "high"
	PriorityUrgent  = "urgent"
)

// Action is a "view" button attached to a notification.
type Action struct {
	Title string
	URL   string
}

type Message struct {
	Title    string
	Body     string
	Priority string
	Tags     []string
	Actions  []Action
}

type Ntfy struct {
	url    string
	client *http.Client
	log    *logger.Logger
}

// NewNtfy returns a sender for topic url. An empty url makes Send a logged no-op.
func NewNtfy(url string, log *logger.Logger) *Ntfy {
	return &Ntfy{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (n *Ntfy) Send(ctx context.Context, m Message) error {
	if n.url == "" {
		n.log.Warnw("notify_skipped", "reason", "no url configured", "title", m.Title)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, strings.NewReader(m.Body))
	if err != nil {
		return fmt.Errorf("build notification: %w", err)
	}
	if m.Title != "" {
		req.Header.Set("Title", m.Title)
	}
	if m.Priority != "" {
		req.Header.Set("Priority", m.Priority)
	}
	if len(m.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(m.Tags, ","))
	}
	if len(m.Actions) > 0 {
		var b strings.Builder
		for _, a := range m.Actions {
			fmt.Fprintf(&b, "view, %s, %s;", a.Title, a.URL)
		}
		req.Header.Set("Actions", b.String())
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send notification: status %d", resp.StatusCode)
	}
	return nil
}
