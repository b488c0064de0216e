// Package placement turns free chat text into a models.Placement.
package placement

import (
	"errors"
	"strconv"
	"strings"

	"labelcast/internal/models"
)

// ErrUnparsable is returned when the text carries no coordinates.
var ErrUnparsable = errors.New("no placement in text")

// Usage is the hint sent back to chat when parsing fails.
const Usage = "usage: <text or icon> <x>,<y>[,<size>]"

// Bounds limits a Placement to the canvas.
type Bounds struct {
	Width   int
	Height  int
	MaxSize int
}

// Clamp pins coordinates to the canvas and size to 1..MaxSize.
func (b Bounds) Clamp(p models.Placement) models.Placement {
	p.X = clamp(p.X, 0, b.Width)
	p.Y = clamp(p.Y, 0, b.Height)
	p.Size = clamp(p.Size, 1, b.MaxSize)
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseFallback reads "<label> <x>,<y>[,<size>]". The label is everything
// before the last space; size defaults to models.DefaultSize.
func ParseFallback(input string, b Bounds) (models.Placement, error) {
	input = strings.TrimSpace(input)
	pos := strings.LastIndexByte(input, ' ')
	if pos <= 0 {
		return models.Placement{}, ErrUnparsable
	}
	label, coords := strings.TrimSpace(input[:pos]), input[pos+1:]
	if label == "" {
		return models.Placement{}, ErrUnparsable
	}

	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return models.Placement{}, ErrUnparsable
	}
	nums := []int{0, 0, models.DefaultSize}
	for i, s := range parts {
		n, err := strconv.ParseUint(s, 10, 31)
		if err != nil {
			return models.Placement{}, ErrUnparsable
		}
		nums[i] = int(n)
	}

	return b.Clamp(models.Placement{Label: label, X: nums[0], Y: nums[1], Size: nums[2]}), nil
}
