package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"labelcast/internal/models"
)

// listingEventRepo records the query the service passed down.
type listingEventRepo struct {
	got    models.EventQuery
	calls  int
	events []models.PrinterEvent
	err    error
}

func (r *listingEventRepo) List(_ context.Context, q models.EventQuery) ([]models.PrinterEvent, error) {
	r.calls++
	r.got = q
	return r.events, r.err
}

func (r *listingEventRepo) Append(context.Context, models.PrinterEvent) error { return nil }

func TestLogFilter_Query(t *testing.T) {
	t.Parallel()

	plus5 := time.FixedZone("UTC+5", 5*3600)
	minus2 := time.FixedZone("UTC-2", -2*3600)

	cases := []struct {
		name    string
		in      LogFilter
		want    models.EventQuery
		wantErr error
	}{
		{name: "empty stays unbounded", in: LogFilter{}, want: models.EventQuery{}},
		{
			name: "times to UTC and types parsed",
			in: LogFilter{
				From: time.Date(2026, 3, 1, 10, 0, 0, 0, plus5),
				To:   time.Date(2026, 3, 1, 12, 30, 0, 0, minus2),
				Type: "  print_failed ,recovered",
			},
			want: models.EventQuery{
				From:  time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC),
				To:    time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
				Types: []models.EventType{models.EventPrintFailed, models.EventRecovered},
			},
		},
		{
			name: "job history, newest ten",
			in:   LogFilter{JobID: " j1 ", Limit: 10},
			want: models.EventQuery{JobID: "j1", Limit: 10},
		},
		{
			name: "inverted range",
			in: LogFilter{
				From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC),
			},
			wantErr: errInvalidTimeRange,
		},
		{name: "unknown type", in: LogFilter{Type: "fatal,melted"}, wantErr: models.ErrUnknownEventType},
		{name: "negative limit", in: LogFilter{Limit: -1}, wantErr: errNegativeLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := tc.in.query()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) ||
				!slices.Equal(got.Types, tc.want.Types) || got.JobID != tc.want.JobID || got.Limit != tc.want.Limit {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestEventLogService_List(t *testing.T) {
	t.Parallel()

	t.Run("passes the parsed query down", func(t *testing.T) {
		t.Parallel()
		repo := &listingEventRepo{events: []models.PrinterEvent{{EventID: "1"}}}
		out, err := NewEventLogService(repo).List(context.Background(), LogFilter{Type: "rejected"})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(out) != 1 || !slices.Equal(repo.got.Types, []models.EventType{models.EventRejected}) {
			t.Fatalf("out=%+v repo saw %+v", out, repo.got)
		}
	})

	t.Run("bad filter never reaches the repo", func(t *testing.T) {
		t.Parallel()
		repo := &listingEventRepo{}
		_, err := NewEventLogService(repo).List(context.Background(), LogFilter{
			From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		if !errors.Is(err, errInvalidTimeRange) || repo.calls != 0 {
			t.Fatalf("err=%v calls=%d", err, repo.calls)
		}
	})

	t.Run("repo error propagates", func(t *testing.T) {
		t.Parallel()
		repo := &listingEventRepo{err: errors.New("db down")}
		if _, err := NewEventLogService(repo).List(context.Background(), LogFilter{}); !errors.Is(err, repo.err) {
			t.Fatalf("err = %v", err)
		}
	})
}
