package service

import (
	"context"
	"time"

	"labelcast/internal/canvas"
	"labelcast/internal/countdown"
	"labelcast/internal/models"
	"labelcast/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the last persisted printer state.
type Monitoring interface {
	GetState(ctx context.Context) (models.PrinterState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.PrinterEvent, error)
}

type Jobs interface {
	List(ctx context.Context, limit int) ([]models.JobRecord, error)
	Reprint(ctx context.Context, id string) (string, error)
}

type Canvas interface {
	Draw(ctx context.Context, operator, text string) error
	Flush(ctx context.Context) error
	Preview(ctx context.Context) (*canvas.Canvas, error)
}

// Countdown is the read side of the countdown hub.
type Countdown interface {
	Subscribe() (<-chan countdown.Update, func())
	Last() countdown.Update
}

// Service aggregates what the HTTP layer needs.
type Service struct {
	Monitoring
	EventLog
	Authorization
	Jobs      Jobs
	Canvas    Canvas
	Countdown Countdown
}

type Deps struct {
	Commands  *Commands
	Queue     *PrintQueue
	Injector  Injector
	Hub       Countdown
	Settings  JobSettings
	JWTSecret string
	TokenTTL  time.Duration
}

func NewService(repos *repository.Repository, d Deps) *Service {
	return &Service{
		Monitoring:    NewMonitoringService(repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, d.JWTSecret, d.TokenTTL),
		Jobs:          NewJobService(repos.JobRepo, d.Queue, d.Settings),
		Canvas:        NewCanvasService(d.Injector, d.Commands),
		Countdown:     d.Hub,
	}
}
