package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"labelcast/internal/models"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const sqliteTimestamp = "2006-01-02 15:04:05"

const eventColumns = `id, occurred_at, type, job_id, message, meta`

// Append stores e, filling in a missing id and timestamp. Unknown types
// are refused, and job-scoped events must name their job.
func (r *EventSQLite) Append(ctx context.Context, e models.PrinterEvent) error {
	typ, err := models.ParseEventType(string(e.Type))
	if err != nil {
		return err
	}
	if typ.JobScoped() && e.JobID == "" {
		return fmt.Errorf("%s event without job id", typ)
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	at := e.OccurredAt.UTC()
	if e.OccurredAt.IsZero() {
		at = time.Now().UTC()
	}

	meta, err := encodeMeta(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode %s metadata: %w", typ, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO printer_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, at.Format(sqliteTimestamp), string(typ), nullable(e.JobID), e.Description, meta)
	return err
}

// List returns the events matching q, oldest first.
func (r *EventSQLite) List(ctx context.Context, q models.EventQuery) ([]models.PrinterEvent, error) {
	where, args := eventWhere(q)
	stmt := `SELECT ` + eventColumns + ` FROM printer_events` + where
	if q.Limit > 0 {
		stmt = `SELECT ` + eventColumns + ` FROM (` + stmt + ` ORDER BY occurred_at DESC LIMIT ?)`
		args = append(args, q.Limit)
	}
	stmt += ` ORDER BY occurred_at ASC`

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PrinterEvent, 0, 64)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func eventWhere(q models.EventQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !q.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, q.From.UTC().Format(sqliteTimestamp))
	}
	if !q.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, q.To.UTC().Format(sqliteTimestamp))
	}
	switch len(q.Types) {
	case 0:
	case 1:
		conds = append(conds, "type = ?")
		args = append(args, string(q.Types[0]))
	default:
		conds = append(conds, "type IN (?"+strings.Repeat(", ?", len(q.Types)-1)+")")
		for _, t := range q.Types {
			args = append(args, string(t))
		}
	}
	if q.JobID != "" {
		conds = append(conds, "job_id = ?")
		args = append(args, q.JobID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEvent(rows *sql.Rows) (models.PrinterEvent, error) {
	var (
		ev    models.PrinterEvent
		typ   string
		jobID sql.NullString
		meta  sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &typ, &jobID, &ev.Description, &meta); err != nil {
		return ev, err
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.Type = models.EventType(typ)
	ev.JobID = jobID.String
	ev.Metadata = decodeMeta(meta)
	return ev, nil
}

func encodeMeta(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// decodeMeta keeps unparseable metadata under "raw" rather than losing it.
func decodeMeta(s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return map[string]any{"raw": s.String}
	}
	return m
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
