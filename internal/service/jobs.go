package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"labelcast/internal/canvas"
	"labelcast/internal/models"
	"labelcast/internal/repository"
)

var ErrJobNotFound = errors.New("job not found")

type JobService struct {
	jobRepo  repository.JobRepo
	queue    *PrintQueue
	settings JobSettings
}

func NewJobService(jobRepo repository.JobRepo, queue *PrintQueue, settings JobSettings) *JobService {
	return &JobService{jobRepo: jobRepo, queue: queue, settings: settings}
}

// List returns the newest archived jobs first. limit <= 0 uses the
// repository default.
func (s *JobService) List(ctx context.Context, limit int) ([]models.JobRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultJobListLimit
	}
	return s.jobRepo.List(ctx, limit)
}

// Reprint queues a fresh job with the archived bitmap of id and returns
// the id of the new job.
func (s *JobService) Reprint(ctx context.Context, id string) (string, error) {
	rec, err := s.jobRepo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrJobNotFound
	}
	c := canvas.FromPixels(rec.Width, rec.Height, rec.Pixels)
	if c == nil {
		return "", fmt.Errorf("job %s: bitmap does not match %dx%d", id, rec.Width, rec.Height)
	}

	job := models.PrintJob{
		ID:        uuid.NewString(),
		Rows:      c.Rows(),
		Width:     rec.Width,
		Height:    rec.Height,
		Quantity:  rec.Quantity,
		Density:   s.settings.Density,
		LabelType: s.settings.LabelType,
		CreatedAt: time.Now(),
	}
	if job.Quantity == 0 {
		job.Quantity = s.settings.Quantity
	}
	if err := s.queue.Offer(job); err != nil {
		return "", err
	}
	return job.ID, nil
}
