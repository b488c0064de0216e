// Package render rasterizes placements onto a canvas.
package render

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"labelcast/internal/canvas"
	"labelcast/internal/models"
)

// ErrEmptyLabel is returned for placements with nothing to draw.
var ErrEmptyLabel = errors.New("empty label")

const alphaThreshold = 128

type Renderer struct {
	icons  *Icons
	face   font.Face
	invert bool
}

// New builds a renderer. With invert set, text XORs with what is already
// on the canvas so overlapping requests stay readable.
func New(icons *Icons, invert bool) *Renderer {
	if icons == nil {
		icons = NoIcons()
	}
	return &Renderer{icons: icons, face: basicfont.Face7x13, invert: invert}
}

// Place draws p.Label at (p.X, p.Y), as an icon when the library has one
// by that name and as text otherwise. Size is an integer scale factor.
func (r *Renderer) Place(c *canvas.Canvas, p models.Placement) error {
	label := strings.TrimSpace(p.Label)
	if label == "" {
		return ErrEmptyLabel
	}
	scale := max(p.Size, 1)

	if icon, ok := r.icons.lookup(label); ok {
		img, err := icon.decode()
		if err != nil {
			return fmt.Errorf("decode icon %s: %w", icon.name, err)
		}
		r.drawIcon(c, img, p.X, p.Y, scale)
		return nil
	}
	r.drawText(c, label, p.X, p.Y, scale)
	return nil
}

func (r *Renderer) drawIcon(c *canvas.Canvas, img image.Image, x0, y0, scale int) {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	for y := 0; y < dst.Rect.Dy(); y++ {
		for x := 0; x < dst.Rect.Dx(); x++ {
			px := dst.NRGBAAt(x, y)
			if px.A <= alphaThreshold || canvas.Luma(px) >= canvas.DarkThreshold {
				continue
			}
			c.Set(x0+x, y0+y, canvas.Dark)
		}
	}
}

func (r *Renderer) drawText(c *canvas.Canvas, text string, x0, y0, scale int) {
	metrics := r.face.Metrics()
	lineHeight := metrics.Height.Ceil()
	lineStep := lineHeight * scale * 6 / 5

	avail := (c.Width() - x0) / scale
	for i, line := range r.wrap(text, avail) {
		r.drawLine(c, line, x0, y0+i*lineStep, scale, lineHeight, metrics.Ascent)
	}
}

func (r *Renderer) drawLine(c *canvas.Canvas, line string, x0, y0, scale, lineHeight int, ascent fixed.Int26_6) {
	width := font.MeasureString(r.face, line).Ceil()
	if width == 0 {
		return
	}
	mask := image.NewAlpha(image.Rect(0, 0, width, lineHeight))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: r.face,
		Dot:  fixed.Point26_6{Y: ascent},
	}
	d.DrawString(line)

	scaled := image.NewAlpha(image.Rect(0, 0, width*scale, lineHeight*scale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)

	for y := 0; y < scaled.Rect.Dy(); y++ {
		for x := 0; x < scaled.Rect.Dx(); x++ {
			if scaled.AlphaAt(x, y).A <= alphaThreshold {
				continue
			}
			if r.invert {
				c.Invert(x0+x, y0+y)
			} else {
				c.Set(x0+x, y0+y, canvas.Dark)
			}
		}
	}
}

// wrap breaks text into lines no wider than avail unscaled pixels. A line
// always takes at least one rune, and explicit newlines are honored.
func (r *Renderer) wrap(text string, avail int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var (
			cur   strings.Builder
			width fixed.Int26_6
		)
		limit := fixed.I(avail)
		for _, ch := range para {
			if unicode.IsControl(ch) {
				continue
			}
			adv, ok := r.face.GlyphAdvance(ch)
			if !ok {
				continue
			}
			if cur.Len() > 0 && width+adv > limit && !unicode.IsSpace(ch) {
				lines = append(lines, cur.String())
				cur.Reset()
				width = 0
			}
			if cur.Len() == 0 && unicode.IsSpace(ch) {
				continue
			}
			cur.WriteRune(ch)
			width += adv
		}
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
		}
	}
	return lines
}
