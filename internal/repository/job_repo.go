package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"labelcast/internal/models"
)

// DefaultJobListLimit caps List when the caller passes a non-positive limit.
const DefaultJobListLimit = 50

// Label bitmaps are mostly blank, zstd shrinks them by two orders of magnitude.
// Encoder and decoder are safe for concurrent use.
var (
	bitmapEncoder *zstd.Encoder
	bitmapDecoder *zstd.Decoder
)

func init() {
	var err error
	bitmapEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("repository: zstd encoder initialization failed: " + err.Error())
	}
	bitmapDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("repository: zstd decoder initialization failed: " + err.Error())
	}
}

// CompressBitmap packs row-major gray pixels for storage.
func CompressBitmap(pixels []byte) []byte {
	return bitmapEncoder.EncodeAll(pixels, nil)
}

// DecompressBitmap reverses CompressBitmap and checks the expected size.
func DecompressBitmap(blob []byte, size int) ([]byte, error) {
	out, err := bitmapDecoder.DecodeAll(blob, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
	}
	return out, nil
}

type JobSQLite struct {
	db *sql.DB
}

func NewJobSQLite(db *sql.DB) *JobSQLite { return &JobSQLite{db: db} }

var _ JobRepo = (*JobSQLite)(nil)

const (
	upsertJobSQL = `
		INSERT INTO print_jobs (id, created_at, status, width, height, quantity, error, bitmap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			error=excluded.error
	`
	selectJobSQL = `
		SELECT id, created_at, status, width, height, quantity, error, bitmap
		FROM print_jobs WHERE id=?
	`
	listJobsSQL = `
		SELECT id, created_at, status, width, height, quantity, error
		FROM print_jobs ORDER BY created_at DESC LIMIT ?
	`
)

// Save archives a job outcome. Saving an existing id only updates status and error.
func (r *JobSQLite) Save(ctx context.Context, rec models.JobRecord) error {
	if want := rec.Width * rec.Height; len(rec.Pixels) != want {
		return fmt.Errorf("job %s: bitmap has %d bytes, want %d", rec.ID, len(rec.Pixels), want)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertJobSQL,
		rec.ID,
		created.UTC(),
		rec.Status,
		rec.Width,
		rec.Height,
		rec.Quantity,
		rec.Error,
		CompressBitmap(rec.Pixels),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads a job with its bitmap. Returns (nil, nil) if not found.
func (r *JobSQLite) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	var (
		rec     models.JobRecord
		errText sql.NullString
		blob    []byte
	)
	err := r.db.QueryRowContext(ctx, selectJobSQL, id).Scan(
		&rec.ID, &rec.CreatedAt, &rec.Status, &rec.Width, &rec.Height, &rec.Quantity, &errText, &blob,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select job %s: %w", id, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Error = errText.String

	rec.Pixels, err = DecompressBitmap(blob, rec.Width*rec.Height)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	return &rec, nil
}

// List returns the most recent jobs without bitmaps, newest first.
func (r *JobSQLite) List(ctx context.Context, limit int) ([]models.JobRecord, error) {
	if limit <= 0 {
		limit = DefaultJobListLimit
	}
	rows, err := r.db.QueryContext(ctx, listJobsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.JobRecord, 0, limit)
	for rows.Next() {
		var rec models.JobRecord
		var errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Status, &rec.Width, &rec.Height, &rec.Quantity, &errText); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.Error = errText.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
