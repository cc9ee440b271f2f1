package render

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Rect is a placement in canvas pixels. X and Y may be negative when the
// image overflows the canvas.
type Rect struct {
	X, Y, W, H float64
}

// CoverRect scales an image uniformly so it covers a canvas of cw x ch and
// centers it. The overflowing part is cropped equally on both sides.
func CoverRect(imgW, imgH, cw, ch int) (Rect, float64) {
	if imgW <= 0 || imgH <= 0 {
		return Rect{}, 0
	}
	scale := math.Max(float64(cw)/float64(imgW), float64(ch)/float64(imgH))
	w := float64(imgW) * scale
	h := float64(imgH) * scale
	return Rect{
		X: (float64(cw) - w) / 2,
		Y: (float64(ch) - h) / 2,
		W: w,
		H: h,
	}, scale
}

// CoverFit returns img scaled to cover a w x h frame and cropped to it.
// Only the visible part of the source is resampled, so memory stays
// proportional to the frame whatever the source aspect ratio.
// A nil or empty image yields nil.
func CoverFit(img image.Image, w, h int) *image.NRGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	_, scale := CoverRect(b.Dx(), b.Dy(), w, h)
	if scale == 0 {
		return nil
	}

	x0, x1 := visibleSpan(b.Dx(), float64(w)/scale)
	y0, y1 := visibleSpan(b.Dy(), float64(h)/scale)
	src := imaging.Crop(img, image.Rect(x0, y0, x1, y1).Add(b.Min))
	return imaging.Resize(src, w, h, imaging.Lanczos)
}

// visibleSpan returns the centered source interval of length span within
// [0, size), rounded to whole pixels and never empty.
func visibleSpan(size int, span float64) (int, int) {
	lo := int(math.Round((float64(size) - span) / 2))
	hi := int(math.Round((float64(size) + span) / 2))
	lo = max(lo, 0)
	hi = min(hi, size)
	if hi <= lo {
		lo = min(lo, size-1)
		hi = lo + 1
	}
	return lo, hi
}

func drawCover(c *canvas, img image.Image) {
	fitted := CoverFit(img, c.width, c.height)
	if fitted == nil {
		Logger().Warn("custom background has no pixels, leaving canvas empty")
		return
	}
	c.drawLayer(fitted)
}
