package models

import "time"

// PrinterState is the current snapshot of the printer link.
type PrinterState struct {
	ID                  int       `json:"id"`
	Session             string    `json:"session"` // IDLE, PRINTING, PAGE_PRINTING, AWAITING_COMPLETION or DISABLED
	LastHeartbeat       time.Time `json:"last_heartbeat,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	JobsPrinted         int       `json:"jobs_printed"`
	QueuedJobs          int       `json:"queued_jobs"`
	Fatal               bool      `json:"fatal"`
	LastError           string    `json:"last_error,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}
