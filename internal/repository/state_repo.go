package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"labelcast/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	printerStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO printer_state (id, session, last_heartbeat, failures, jobs_printed, queued, fatal, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session=excluded.session,
			last_heartbeat=excluded.last_heartbeat,
			failures=excluded.failures,
			jobs_printed=excluded.jobs_printed,
			queued=excluded.queued,
			fatal=excluded.fatal,
			last_error=excluded.last_error,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, session, last_heartbeat, failures, jobs_printed, queued, fatal, last_error, updated_at
		FROM printer_state WHERE id=?
	`
)

// nullableTime stores the zero time as NULL.
func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Save updates or inserts the printer_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.PrinterState) error {
	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		printerStateRowID,
		state.Session,
		nullableTime(state.LastHeartbeat),
		state.ConsecutiveFailures,
		state.JobsPrinted,
		state.QueuedJobs,
		state.Fatal,
		state.LastError,
		tsUTC,
	)
	return err
}

// Load fetches the single printer_state row. No row yet is not an error.
func (r *StateSQLite) Load(ctx context.Context) (models.PrinterState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, printerStateRowID)

	var (
		s         models.PrinterState
		heartbeat sql.NullTime
		lastError sql.NullString
	)
	if err := row.Scan(
		&s.ID,
		&s.Session,
		&heartbeat,
		&s.ConsecutiveFailures,
		&s.JobsPrinted,
		&s.QueuedJobs,
		&s.Fatal,
		&lastError,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PrinterState{}, nil
		}
		return models.PrinterState{}, err
	}

	if heartbeat.Valid {
		s.LastHeartbeat = heartbeat.Time.UTC()
	}
	s.LastError = lastError.String
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
