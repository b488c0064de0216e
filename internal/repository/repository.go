package repository

import (
	"context"
	"database/sql"

	"labelcast/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.PrinterState) error
	Load(ctx context.Context) (models.PrinterState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.PrinterEvent) error
	List(ctx context.Context, q models.EventQuery) ([]models.PrinterEvent, error)
}

type JobRepo interface {
	Save(ctx context.Context, rec models.JobRecord) error
	Get(ctx context.Context, id string) (*models.JobRecord, error)
	List(ctx context.Context, limit int) ([]models.JobRecord, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	JobRepo   JobRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		JobRepo:   NewJobSQLite(db),
		Auth:      NewOperatorRepository(db),
	}
}
