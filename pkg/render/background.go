// background.go - Background style catalog and the overlay placeholder.
package render

import (
	"image"
	"sort"

	"github.com/gogpu/gg"

	"github.com/xob0t/CoverCard/pkg/template"
)

// backgroundFunc draws a full-canvas background.
type backgroundFunc func(c *canvas)

// DefaultBackground is the style drawn for unregistered ids.
const DefaultBackground = "default"

var backgrounds = map[string]backgroundFunc{
	"clean_solid": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#f8f9fa")))
	},
	"minimal_gradient": func(c *canvas) {
		g := gg.NewLinearGradientBrush(0, 0, 0, float64(c.height)).
			AddColorStop(0, gg.Hex("#667eea")).
			AddColorStop(1, gg.Hex("#764ba2"))
		c.fillAll(g)
	},
	"subtle_texture": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#f5f5f5")))
		square := gg.Solid(rgba(200, 200, 200, 0.3))
		for x := 0; x < c.width; x += 50 {
			for y := 0; y < c.height; y += 50 {
				if (x+y)%100 == 0 {
					c.fillRect(float64(x), float64(y), 25, 25, square)
				}
			}
		}
	},
	"soft_blur": func(c *canvas) {
		w, h := float64(c.width), float64(c.height)
		g := gg.NewRadialGradientBrush(w/2, h/2, 0, w).
			AddColorStop(0, gg.Hex("#ff9a9e")).
			AddColorStop(1, gg.Hex("#fecfef"))
		c.fillAll(g)
	},
	"geometric_minimal": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#ffffff")))
		w, h := float64(c.width), float64(c.height)
		for i := range 5 {
			f := float64(i)
			c.strokeRect(50+f*30, 50+f*40, w-100-f*60, h-100-f*80, 2, gg.Hex("#e1e5e9"))
		}
	},
	"paper_texture": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#faf8f5")))
		speck := gg.Solid(rgba(139, 137, 120, 0.1))
		for _, p := range paperSpecks(c.rng, c.width, c.height) {
			c.fillRect(p.X, p.Y, 1, 1, speck)
		}
	},
	"gradient_fade": func(c *canvas) {
		g := gg.NewLinearGradientBrush(0, 0, float64(c.width), float64(c.height)).
			AddColorStop(0, gg.Hex("#74b9ff")).
			AddColorStop(0.5, gg.Hex("#0984e3")).
			AddColorStop(1, gg.Hex("#2d3436"))
		c.fillAll(g)
	},
	"clean_lines": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#ffffff")))
		w, h := float64(c.width), float64(c.height)
		rule := gg.Hex("#dddddd")
		for i := 0; i < c.width; i += 100 {
			c.strokeLine(float64(i), 0, float64(i), h, 1, rule)
		}
		for i := 0; i < c.height; i += 100 {
			c.strokeLine(0, float64(i), w, float64(i), 1, rule)
		}
	},
	"monochrome": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#2c3e50")))
	},
	"soft_shadow": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#ecf0f1")))
		w, h := float64(c.width), float64(c.height)
		g := gg.NewRadialGradientBrush(w/2, h/2, 0, w/2).
			AddColorStop(0, rgba(0, 0, 0, 0)).
			AddColorStop(1, rgba(0, 0, 0, 0.1))
		c.fillAll(g)
	},
	"marble_texture": func(c *canvas) {
		c.fillAll(gg.Solid(gg.Hex("#f8f9fa")))
		c.dc.SetStrokeBrush(gg.Solid(rgba(52, 73, 94, 0.1)))
		c.dc.SetLineWidth(2)
		for _, v := range marbleVeins(c.rng, c.width, c.height) {
			c.dc.MoveTo(v[0].X, v[0].Y)
			c.dc.QuadraticTo(v[1].X, v[1].Y, v[2].X, v[2].Y)
			c.check(c.dc.Stroke())
		}
	},
	"pastel_blend": func(c *canvas) {
		g := gg.NewLinearGradientBrush(0, 0, float64(c.width), float64(c.height)).
			AddColorStop(0, gg.Hex("#fd79a8")).
			AddColorStop(0.5, gg.Hex("#fdcb6e")).
			AddColorStop(1, gg.Hex("#6c5ce7"))
		c.fillAll(g)
	},
}

func defaultGradient(c *canvas) {
	g := gg.NewLinearGradientBrush(0, 0, float64(c.width), float64(c.height)).
		AddColorStop(0, gg.Hex("#4facfe")).
		AddColorStop(1, gg.Hex("#00f2fe"))
	c.fillAll(g)
}

// paperSpecks returns the 1000 speck positions of paper_texture.
func paperSpecks(rng Rand, w, h int) []gg.Point {
	pts := make([]gg.Point, 1000)
	for i := range pts {
		pts[i] = gg.Pt(rng.Float64()*float64(w), rng.Float64()*float64(h))
	}
	return pts
}

// marbleVeins returns the 20 quadratic curves of marble_texture as
// start, control and end points.
func marbleVeins(rng Rand, w, h int) [][3]gg.Point {
	veins := make([][3]gg.Point, 20)
	for i := range veins {
		for j := range veins[i] {
			veins[i][j] = gg.Pt(rng.Float64()*float64(w), rng.Float64()*float64(h))
		}
	}
	return veins
}

// drawPresetBackground draws a registered style, or the default gradient for
// any other id.
func drawPresetBackground(c *canvas, id string) {
	fn, ok := backgrounds[id]
	if !ok {
		fn = defaultGradient
	}
	fn(c)
}

// drawPlaceholder stands in for the photo an overlay will be placed on.
func drawPlaceholder(c *canvas, captions [2]string) {
	c.fillAll(gg.Solid(gg.Hex("#f0f0f0")))
	grey := gg.Solid(gg.Hex("#999999"))
	cx, cy := float64(c.width)/2, float64(c.height)/2
	for i, size := range []float64{24, 16} {
		if captions[i] == "" {
			continue
		}
		run := c.shape(RoleSans, size, captions[i])
		ox, oy := run.alphabetic(cx, cy-60+float64(i)*30)
		c.fillText(run, ox, oy, grey)
	}
}

// drawBackground picks the background layer: a custom image first, then the
// placeholder for overlays, then the named preset.
func drawBackground(c *canvas, cfg template.StyleConfig, captions [2]string) {
	switch {
	case cfg.CustomBackground != nil && !emptyImage(cfg.CustomBackground):
		drawCover(c, cfg.CustomBackground)
	case cfg.Mode == template.ModeOverlay:
		drawPlaceholder(c, captions)
	default:
		drawPresetBackground(c, cfg.BackgroundStyle)
	}
}

func emptyImage(img image.Image) bool {
	return img.Bounds().Empty()
}

// BackgroundStyles returns the registered background ids, sorted.
func BackgroundStyles() []string {
	ids := make([]string, 0, len(backgrounds))
	for id := range backgrounds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasBackground reports whether id is a registered background style.
func HasBackground(id string) bool {
	_, ok := backgrounds[id]
	return ok
}
