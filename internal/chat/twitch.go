package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"labelcast/internal/clock"
	"labelcast/internal/logger"
	"labelcast/internal/models"
)

// ErrClosed is returned by Poll once a source has stopped for good.
var ErrClosed = errors.New("chat source closed")

// ErrNotConnected is returned by Reply while the socket is down.
var ErrNotConnected = errors.New("chat not connected")

const (
	eventBuffer    = 256
	minBackoff     = time.Second
	maxBackoff     = 30 * time.Second
	writeWait      = 10 * time.Second
	readWait       = 6 * time.Minute // twitch pings every ~5 minutes
	maxLineMessage = 1 << 16
)

type TwitchConfig struct {
	URL      string
	Channel  string
	Username string
	Token    string
	Admins   []string
}

// Twitch reads chat over IRC-on-WebSocket. Run owns the connection;
// Poll and Reply may be called from other goroutines.
type Twitch struct {
	cfg    TwitchConfig
	clk    clock.Clock
	log    *logger.Logger
	dialer *websocket.Dialer

	events chan models.ChatEvent

	mu   sync.Mutex
	conn *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
}

func NewTwitch(cfg TwitchConfig, clk clock.Clock, log *logger.Logger) *Twitch {
	cfg.Channel = "#" + strings.ToLower(strings.TrimPrefix(cfg.Channel, "#"))
	cfg.Username = strings.ToLower(cfg.Username)
	if !strings.HasPrefix(cfg.Token, "oauth:") {
		cfg.Token = "oauth:" + cfg.Token
	}
	return &Twitch{
		cfg:    cfg,
		clk:    clk,
		log:    log,
		dialer: websocket.DefaultDialer,
		events: make(chan models.ChatEvent, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Run connects and reconnects with exponential backoff until ctx ends or
// Close is called. Transient failures never reach Poll.
func (t *Twitch) Run(ctx context.Context) {
	defer t.Close()
	backoff := minBackoff
	for {
		connected, err := t.session(ctx)
		if ctx.Err() != nil || t.isClosed() {
			return
		}
		if connected {
			backoff = minBackoff
		}
		t.log.Warnw("chat_disconnected", "err", err, "retry_in", backoff)
		if !t.wait(ctx, backoff) {
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (t *Twitch) wait(ctx context.Context, d time.Duration) bool {
	tk := t.clk.NewTicker(d)
	defer tk.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.done:
		return false
	case <-tk.C:
		return true
	}
}

// session runs one connection until it fails. connected reports whether
// the handshake got as far as joining the channel.
func (t *Twitch) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", t.cfg.URL, err)
	}
	conn.SetReadLimit(maxLineMessage)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()
		_ = conn.Close()
	}()

	for _, line := range []string{
		"CAP REQ :twitch.tv/tags",
		"PASS " + t.cfg.Token,
		"NICK " + t.cfg.Username,
		"JOIN " + t.cfg.Channel,
	} {
		if err := t.write(line); err != nil {
			return false, err
		}
	}
	t.log.Infow("chat_connected", "channel", t.cfg.Channel)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		for _, line := range strings.Split(string(data), "\r\n") {
			if line == "" {
				continue
			}
			if err := t.handleLine(line); err != nil {
				return true, err
			}
		}
	}
}

func (t *Twitch) handleLine(line string) error {
	msg, err := ParseLine(line)
	if err != nil {
		t.log.Debugw("chat_line_skipped", "err", err)
		return nil
	}
	switch m := msg.(type) {
	case Ping:
		return t.write("PONG :" + m.Payload)
	case PrivMsg:
		ev := models.ChatEvent{
			User:       m.Nick,
			Text:       m.Text,
			Admin:      t.isAdmin(m),
			ReceivedAt: t.clk.Now(),
		}
		select {
		case t.events <- ev:
		default:
			t.log.Warnw("chat_event_dropped", "user", m.Nick, "reason", "buffer full")
		}
	case Other:
		if m.Command == "NOTICE" && len(m.Params) > 0 {
			t.log.Infow("chat_notice", "text", m.Params[len(m.Params)-1])
		}
	}
	return nil
}

func (t *Twitch) isAdmin(m PrivMsg) bool {
	nick := strings.ToLower(m.Nick)
	if nick == strings.TrimPrefix(t.cfg.Channel, "#") || m.isModerator() {
		return true
	}
	return slices.ContainsFunc(t.cfg.Admins, func(a string) bool { return strings.EqualFold(a, nick) })
}

func (t *Twitch) write(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Poll returns whatever arrived since the last call, possibly nothing.
func (t *Twitch) Poll(context.Context) ([]models.ChatEvent, error) {
	var out []models.ChatEvent
	for {
		select {
		case ev := <-t.events:
			out = append(out, ev)
		default:
			if len(out) == 0 && t.isClosed() {
				return nil, ErrClosed
			}
			return out, nil
		}
	}
}

// Reply posts text to the joined channel.
func (t *Twitch) Reply(_ context.Context, text string) error {
	text = strings.ReplaceAll(text, "\r\n", " ")
	return t.write("PRIVMSG " + t.cfg.Channel + " :" + text)
}

func (t *Twitch) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.mu.Lock()
		if t.conn != nil {
			_ = t.conn.Close()
		}
		t.mu.Unlock()
	})
	return nil
}

func (t *Twitch) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
