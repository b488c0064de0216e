// Package canvas holds the label being composed. A Canvas is not safe for
// concurrent use; the render loop owns it.
package canvas

import (
	"bytes"
	"image"
	"image/color"
)

const (
	Blank = 0xFF
	Dark  = 0x00

	// DarkThreshold separates printed from unprinted pixels.
	DarkThreshold = 128
)

// Canvas is a width×height grid of 8-bit gray pixels, row-major.
type Canvas struct {
	width, height int
	pix           []uint8
}

// New returns a blank canvas. Non-positive sizes panic.
func New(width, height int) *Canvas {
	if width <= 0 || height <= 0 {
		panic("canvas: non-positive size")
	}
	pix := bytes.Repeat([]byte{Blank}, width*height)
	return &Canvas{width: width, height: height, pix: pix}
}

// FromPixels wraps a row-major pixel slice. It returns nil when the slice
// does not match the size.
func FromPixels(width, height int, pix []uint8) *Canvas {
	if width <= 0 || height <= 0 || len(pix) != width*height {
		return nil
	}
	return &Canvas{width: width, height: height, pix: append([]uint8(nil), pix...)}
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

// In reports whether (x, y) lies on the canvas.
func (c *Canvas) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// At returns the pixel at (x, y), or Blank outside the canvas.
func (c *Canvas) At(x, y int) uint8 {
	if !c.In(x, y) {
		return Blank
	}
	return c.pix[y*c.width+x]
}

// Set writes a pixel. Writes outside the canvas are dropped.
func (c *Canvas) Set(x, y int, v uint8) {
	if c.In(x, y) {
		c.pix[y*c.width+x] = v
	}
}

// Invert flips a pixel between dark and blank.
func (c *Canvas) Invert(x, y int) {
	if !c.In(x, y) {
		return
	}
	i := y*c.width + x
	if c.pix[i] < DarkThreshold {
		c.pix[i] = Blank
	} else {
		c.pix[i] = Dark
	}
}

// IsBlank reports whether no pixel would print.
func (c *Canvas) IsBlank() bool {
	for _, p := range c.pix {
		if p < DarkThreshold {
			return false
		}
	}
	return true
}

func (c *Canvas) Clear() {
	for i := range c.pix {
		c.pix[i] = Blank
	}
}

func (c *Canvas) Clone() *Canvas {
	return &Canvas{width: c.width, height: c.height, pix: append([]uint8(nil), c.pix...)}
}

// Pixels returns a copy of the row-major pixel data.
func (c *Canvas) Pixels() []uint8 {
	return append([]uint8(nil), c.pix...)
}

// Rows returns a copy of the canvas split into rows.
func (c *Canvas) Rows() [][]uint8 {
	rows := make([][]uint8, c.height)
	for y := range rows {
		rows[y] = append([]uint8(nil), c.pix[y*c.width:(y+1)*c.width]...)
	}
	return rows
}

// Image exposes the canvas as an image.Gray sharing no memory with it.
func (c *Canvas) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, c.width, c.height))
	copy(img.Pix, c.pix)
	return img
}

// Luma converts any color to the canvas gray scale.
func Luma(col color.Color) uint8 {
	return color.GrayModel.Convert(col).(color.Gray).Y
}
