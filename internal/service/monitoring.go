package service

import (
	"context"
	"time"

	"labelcast/internal/models"
	"labelcast/internal/repository"
)

const sessionIdle = "IDLE"

type MonitoringService struct {
	stateRepo repository.StateRepo
}

func NewMonitoringService(stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo}
}

// GetState returns the latest persisted printer state.
// If no state is persisted yet, returns an idle baseline snapshot.
func (s *MonitoringService) GetState(ctx context.Context) (models.PrinterState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.PrinterState{}, err
	}
	if state.ID == 0 {
		return s.baselineState(), nil
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	state.LastHeartbeat = toUTC(state.LastHeartbeat)
	return state, nil
}

// baselineState is reported before the orchestrator has saved anything.
func (s *MonitoringService) baselineState() models.PrinterState {
	return models.PrinterState{
		ID:        1, // single-row table
		Session:   sessionIdle,
		UpdatedAt: time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
