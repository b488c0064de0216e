package models

import "time"

const (
	JobPrinted = "PRINTED"
	JobFailed  = "FAILED"
	JobSkipped = "SKIPPED"
)

// PrintJob is a canvas snapshot ready for the printer. Rows hold 8-bit gray
// pixels, one slice of Width bytes per row.
type PrintJob struct {
	ID        string
	Rows      [][]uint8
	Width     int
	Height    int
	Quantity  uint16
	Density   uint8
	LabelType uint8
	CreatedAt time.Time
}

// JobRecord is the archived outcome of a PrintJob.
type JobRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Quantity  uint16    `json:"quantity"`
	Error     string    `json:"error,omitempty"`
	Pixels    []byte    `json:"-"` // row-major gray bytes
}
