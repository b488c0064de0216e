package render

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/image/webp"
)

// ErrUnknownFormat is returned for icon entries that are neither webp nor png.
var ErrUnknownFormat = errors.New("unsupported icon format")

type iconEntry struct {
	name string // "set:name", extension stripped
	ext  string
	data []byte
}

// Icons is an immutable icon library loaded once at startup.
type Icons struct {
	entries []iconEntry
}

// NoIcons is an empty library; every label renders as text.
func NoIcons() *Icons { return &Icons{} }

// LoadIcons reads a tar archive of .webp / .png files.
func LoadIcons(file string) (*Icons, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadIcons(f)
}

func ReadIcons(r io.Reader) (*Icons, error) {
	tr := tar.NewReader(r)
	lib := &Icons{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read icon archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		ext := strings.ToLower(path.Ext(hdr.Name))
		if ext != ".webp" && ext != ".png" {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read icon %s: %w", hdr.Name, err)
		}
		lib.entries = append(lib.entries, iconEntry{
			name: strings.TrimSuffix(hdr.Name, path.Ext(hdr.Name)),
			ext:  ext,
			data: data,
		})
	}
	return lib, nil
}

func (l *Icons) Len() int { return len(l.entries) }

// lookup matches "set:name" exactly, a bare name against the part after
// the last colon.
func (l *Icons) lookup(name string) (iconEntry, bool) {
	qualified := strings.Contains(name, ":")
	for _, e := range l.entries {
		if qualified {
			if e.name == name {
				return e, true
			}
			continue
		}
		if i := strings.LastIndexByte(e.name, ':'); e.name[i+1:] == name {
			return e, true
		}
	}
	return iconEntry{}, false
}

func (e iconEntry) decode() (image.Image, error) {
	switch e.ext {
	case ".webp":
		return webp.Decode(bytes.NewReader(e.data))
	case ".png":
		return png.Decode(bytes.NewReader(e.data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, e.ext)
	}
}
