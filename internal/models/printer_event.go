package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType classifies a printer event. Stored upper-case.
type EventType string

const (
	EventHeartbeatOK     EventType = "HEARTBEAT_OK"
	EventHeartbeatFailed EventType = "HEARTBEAT_FAILED"
	EventPrinted         EventType = "PRINTED"
	EventPrintFailed     EventType = "PRINT_FAILED"
	EventRecovered       EventType = "RECOVERED"
	EventFatal           EventType = "FATAL"
	EventRejected        EventType = "REJECTED"
)

// EventTypes lists every known type in lifecycle order.
var EventTypes = []EventType{
	EventHeartbeatOK,
	EventHeartbeatFailed,
	EventPrinted,
	EventPrintFailed,
	EventRecovered,
	EventFatal,
	EventRejected,
}

var ErrUnknownEventType = errors.New("unknown event type")

func (t EventType) Valid() bool {
	for _, k := range EventTypes {
		if t == k {
			return true
		}
	}
	return false
}

// JobScoped reports whether events of this type carry a job id.
func (t EventType) JobScoped() bool {
	return t == EventPrinted || t == EventPrintFailed || t == EventRecovered
}

// ParseEventType is case-insensitive and ignores surrounding space.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

// ParseEventTypes splits a comma-separated list. Empty input means no
// type filter; duplicates are dropped.
func ParseEventTypes(s string) ([]EventType, error) {
	var out []EventType
	seen := make(map[EventType]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseEventType(part)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// PrinterEvent is a single log entry.
type PrinterEvent struct {
	EventID     string         `json:"event_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Type        EventType      `json:"type"`
	JobID       string         `json:"job_id,omitempty"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EventQuery narrows an event listing. Zero values mean unbounded; Limit
// keeps the newest matches.
type EventQuery struct {
	From  time.Time
	To    time.Time
	Types []EventType
	JobID string
	Limit int
}
