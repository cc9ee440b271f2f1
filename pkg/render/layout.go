package render

import (
	"github.com/gogpu/gg"

	"github.com/xob0t/CoverCard/pkg/template"
)

// Layout returns the vertical center of each of lineCount lines. The block
// is centered on canvasHeight and lines are fontSize*lineHeight apart.
func Layout(canvasHeight, lineCount, fontSize int, lineHeight float64) []float64 {
	if lineCount <= 0 {
		return nil
	}
	pitch := float64(fontSize) * lineHeight
	span := float64(lineCount-1) * pitch
	first := (float64(canvasHeight) - span) / 2

	ys := make([]float64, lineCount)
	for i := range ys {
		ys[i] = first + float64(i)*pitch
	}
	return ys
}

// applyMask darkens the whole canvas for overlay renders.
func applyMask(c *canvas, cfg template.StyleConfig) {
	if cfg.Mode != template.ModeOverlay || cfg.MaskOpacity <= 0 {
		return
	}
	c.fillAll(gg.Solid(rgba(0, 0, 0, cfg.MaskOpacity)))
}
