// Package archive keeps a PNG of every label sent to the printer.
package archive

import (
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"labelcast/internal/canvas"
)

type Archiver struct {
	dir string
}

func New(dir string) *Archiver { return &Archiver{dir: dir} }

// Save writes c to <dir>/<unix-millis>.png and returns the path.
func (a *Archiver) Save(c *canvas.Canvas, at time.Time) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(a.dir, fmt.Sprintf("%d.png", at.UnixMilli()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodePNG(f, c); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func EncodePNG(w io.Writer, c *canvas.Canvas) error {
	if err := png.Encode(w, c.Image()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
