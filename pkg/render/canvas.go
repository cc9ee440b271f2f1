package render

import (
	"image"
	"image/color"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
)

// canvas is the drawing surface for a single render. It is never shared
// between renders.
type canvas struct {
	dc     *gg.Context
	width  int
	height int
	fonts  *FontManager
	rng    Rand
	err    error

	missing map[rune]struct{}
}

func newCanvas(width, height int, fonts *FontManager, rng Rand) *canvas {
	dc := gg.NewContext(width, height)
	dc.Clear()
	return &canvas{dc: dc, width: width, height: height, fonts: fonts, rng: rng}
}

func (c *canvas) close() {
	_ = c.dc.Close()
}

// check keeps the first drawing error; later operations still run so a
// partial image is never mistaken for a complete one.
func (c *canvas) check(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

// shape lays out text and remembers runes that no font could draw.
func (c *canvas) shape(role Role, size float64, text string) *textRun {
	run := c.fonts.shape(role, size, text)
	for _, r := range run.missing {
		if c.missing == nil {
			c.missing = make(map[rune]struct{})
		}
		c.missing[r] = struct{}{}
	}
	return run
}

// missingRunes returns the uncovered runes seen so far, sorted.
func (c *canvas) missingRunes() string {
	rs := make([]rune, 0, len(c.missing))
	for r := range c.missing {
		rs = append(rs, r)
	}
	slices.Sort(rs)
	return string(rs)
}

func (c *canvas) fillRect(x, y, w, h float64, b gg.Brush) {
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.SetFillBrush(b)
	c.check(c.dc.Fill())
}

// fillAll covers the whole canvas with b.
func (c *canvas) fillAll(b gg.Brush) {
	c.fillRect(0, 0, float64(c.width), float64(c.height), b)
}

func (c *canvas) strokeLine(x1, y1, x2, y2, width float64, col gg.RGBA) {
	c.dc.DrawLine(x1, y1, x2, y2)
	c.dc.SetStrokeBrush(gg.Solid(col))
	c.dc.SetLineWidth(width)
	c.check(c.dc.Stroke())
}

func (c *canvas) strokeRect(x, y, w, h, width float64, col gg.RGBA) {
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.SetStrokeBrush(gg.Solid(col))
	c.dc.SetLineWidth(width)
	c.check(c.dc.Stroke())
}

func (c *canvas) fillText(run *textRun, ox, oy float64, b gg.Brush) {
	run.emit(c.dc, ox, oy)
	c.dc.SetFillBrush(b)
	c.check(c.dc.Fill())
}

func (c *canvas) strokeText(run *textRun, ox, oy, width float64, b gg.Brush) {
	run.emit(c.dc, ox, oy)
	c.dc.SetStrokeBrush(b)
	c.dc.SetLineWidth(width)
	c.check(c.dc.Stroke())
}

// drawLayer composites a full-canvas straight-alpha layer at the origin.
func (c *canvas) drawLayer(layer image.Image) {
	c.dc.DrawImage(gg.ImageBufFromImage(layer), 0, 0)
}

// shadow paints a blurred, offset silhouette of whatever paint draws. paint
// receives a scratch context and should draw in any opaque color; only the
// coverage is kept and tinted with col.
func (c *canvas) shadow(col gg.RGBA, blur, dx, dy float64, paint func(dc *gg.Context) error) {
	scratch := gg.NewContext(c.width, c.height)
	defer scratch.Close()
	scratch.Clear()
	scratch.Translate(dx, dy)
	c.check(paint(scratch))

	mask := imaging.Clone(scratch.Image())
	tint := nrgbaOf(col)
	for i := 0; i < len(mask.Pix); i += 4 {
		a := float64(mask.Pix[i+3]) / 255 * float64(tint.A)
		mask.Pix[i+0] = tint.R
		mask.Pix[i+1] = tint.G
		mask.Pix[i+2] = tint.B
		mask.Pix[i+3] = uint8(a + 0.5)
	}

	// Canvas shadowBlur is twice the Gaussian standard deviation.
	if blur > 0 {
		mask = imaging.Blur(mask, blur/2)
	}
	c.drawLayer(mask)
}

// image returns the pixels. The pixmap stores straight-alpha RGBA bytes.
func (c *canvas) image() *image.NRGBA {
	src := c.dc.Image()
	out := image.NewNRGBA(image.Rect(0, 0, c.width, c.height))
	if rgba, ok := src.(*image.RGBA); ok {
		copy(out.Pix, rgba.Pix)
		return out
	}
	return imaging.Clone(src)
}

// rgba builds a color from 8-bit channels and a [0,1] alpha. Alpha saturates
// the way a CSS rgba() value does.
func rgba(r, g, b uint8, a float64) gg.RGBA {
	return gg.RGBA{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: min(max(a, 0), 1),
	}
}

func fromNRGBA(c color.NRGBA) gg.RGBA {
	return rgba(c.R, c.G, c.B, float64(c.A)/255)
}

func nrgbaOf(c gg.RGBA) color.NRGBA {
	to8 := func(v float64) uint8 { return uint8(min(max(v, 0), 1)*255 + 0.5) }
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}
