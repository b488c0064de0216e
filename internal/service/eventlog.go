package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"labelcast/internal/models"
	"labelcast/internal/repository"
)

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errNegativeLimit    = errors.New("limit must not be negative")
)

// LogFilter narrows an event listing. Zero values mean unbounded. Type
// is a comma-separated list of event types in any case.
type LogFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	JobID string
	Limit int
}

// query validates f and turns it into a repository query in UTC.
func (f LogFilter) query() (models.EventQuery, error) {
	q := models.EventQuery{
		From:  toUTC(f.From),
		To:    toUTC(f.To),
		JobID: strings.TrimSpace(f.JobID),
		Limit: f.Limit,
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return models.EventQuery{}, errInvalidTimeRange
	}
	if q.Limit < 0 {
		return models.EventQuery{}, errNegativeLimit
	}
	types, err := models.ParseEventTypes(f.Type)
	if err != nil {
		return models.EventQuery{}, err
	}
	q.Types = types
	return q, nil
}

// EventLogService reads the printer event history.
type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.PrinterEvent, error) {
	q, err := f.query()
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q)
}
