package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"labelcast/internal/models"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

const selectEvents = `SELECT id, occurred_at, type, job_id, message, meta FROM printer_events`

var eventCols = []string{"id", "occurred_at", "type", "job_id", "message", "meta"}

func TestAppend_NormalizesTypeAndFillsDefaults(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewEventSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO printer_events (id, occurred_at, type, job_id, message, meta)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "PRINTED", "j1", "job printed", `{"copies":2}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.PrinterEvent{
		Type:        "  printed ",
		JobID:       "j1",
		Description: "job printed",
		Metadata:    map[string]any{"copies": 2},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_FormatsGivenTimeAsUTC(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewEventSQLite(db)

	loc := time.FixedZone("UTC+3", 3*3600)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, loc)

	mock.ExpectExec("INSERT INTO printer_events").
		WithArgs("e1", "2025-03-01 09:00:00", "FATAL", nil, "gone", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Append(ctx(t), models.PrinterEvent{EventID: "e1", OccurredAt: at, Type: models.EventFatal, Description: "gone"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_RefusesBadEvents(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		ev      models.PrinterEvent
		wantErr error
	}{
		{"unknown type", models.PrinterEvent{Type: "REBOOTED", Description: "x"}, models.ErrUnknownEventType},
		{"empty type", models.PrinterEvent{Description: "x"}, models.ErrUnknownEventType},
		{"print without job", models.PrinterEvent{Type: models.EventPrintFailed, Description: "x"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMockDB(t)
			err := NewEventSQLite(db).Append(ctx(t), tc.ev)
			if err == nil {
				t.Fatal("Append accepted the event")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("no statement expected: %v", err)
			}
		})
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewEventSQLite(db)

	mock.ExpectExec("INSERT INTO printer_events").WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.PrinterEvent{Type: models.EventHeartbeatFailed, Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
}

func TestList_NoFilters_DecodesRows(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewEventSQLite(db)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"failures": 2.0})

	rows := sqlmock.NewRows(eventCols).
		AddRow("1", now, "HEARTBEAT_FAILED", nil, "m1", string(js)).
		AddRow("2", now.Add(time.Hour), "PRINTED", "j7", "m2", nil).
		AddRow("3", now.Add(2*time.Hour), "PRINT_FAILED", "j8", "m3", "{broken")

	mock.ExpectQuery(regexp.QuoteMeta(selectEvents + ` ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), models.EventQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	if got[0].Type != models.EventHeartbeatFailed || got[0].JobID != "" || got[0].Metadata["failures"] != 2.0 {
		t.Fatalf("row 1 = %+v", got[0])
	}
	if got[1].JobID != "j7" || got[1].Metadata != nil {
		t.Fatalf("row 2 = %+v", got[1])
	}
	if got[2].Metadata["raw"] != "{broken" {
		t.Fatalf("malformed meta should be kept raw, got %#v", got[2].Metadata)
	}
}

func TestList_BuildsFilters(t *testing.T) {
	t.Parallel()
	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		q     models.EventQuery
		query string
		args  []driver.Value
	}{
		{
			name:  "range and one type",
			q:     models.EventQuery{From: from, To: to, Types: []models.EventType{models.EventFatal}},
			query: selectEvents + ` WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`,
			args:  []driver.Value{"2025-01-01 11:00:00", "2025-01-01 12:00:00", "FATAL"},
		},
		{
			name:  "several types",
			q:     models.EventQuery{Types: []models.EventType{models.EventPrinted, models.EventPrintFailed, models.EventRecovered}},
			query: selectEvents + ` WHERE type IN (?, ?, ?) ORDER BY occurred_at ASC`,
			args:  []driver.Value{"PRINTED", "PRINT_FAILED", "RECOVERED"},
		},
		{
			name:  "job history",
			q:     models.EventQuery{JobID: "j1"},
			query: selectEvents + ` WHERE job_id = ? ORDER BY occurred_at ASC`,
			args:  []driver.Value{"j1"},
		},
		{
			name: "newest n",
			q:    models.EventQuery{To: to, Limit: 5},
			query: `SELECT id, occurred_at, type, job_id, message, meta FROM (` + selectEvents +
				` WHERE occurred_at <= ? ORDER BY occurred_at DESC LIMIT ?) ORDER BY occurred_at ASC`,
			args: []driver.Value{"2025-01-01 12:00:00", int64(5)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMockDB(t)
			mock.ExpectQuery(regexp.QuoteMeta(tc.query)).
				WithArgs(tc.args...).
				WillReturnRows(sqlmock.NewRows(eventCols).AddRow("2", from, "FATAL", nil, "b", nil))

			got, err := NewEventSQLite(db).List(ctx(t), tc.q)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != 1 || got[0].EventID != "2" {
				t.Fatalf("unexpected results: %+v", got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("mock expectations: %v", err)
			}
		})
	}
}

func TestList_ScanError(t *testing.T) {
	t.Parallel()
	db, mock := newMockDB(t)
	repo := NewEventSQLite(db)

	rows := sqlmock.NewRows(eventCols).AddRow("x", 123, "PRINTED", nil, "msg", nil)
	mock.ExpectQuery("SELECT id, occurred_at").WillReturnRows(rows)

	if _, err := repo.List(ctx(t), models.EventQuery{}); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
}
