// Package render composites card images: a background layer, an optional
// overlay mask and up to four centered lines of styled text on a fixed
// 750x1000 canvas.
//
// A Compositor holds only immutable resources (fonts, canvas size) and a
// random source, so one instance can serve concurrent renders. Every render
// draws on its own surface.
package render

import (
	"bytes"
	"image"
	"time"

	"github.com/gogpu/gg"

	"github.com/xob0t/CoverCard/pkg/generator"
	"github.com/xob0t/CoverCard/pkg/template"
)

// DefaultTextColor is used when a config's text color is empty or invalid.
const DefaultTextColor = "#2c3e50"

// Placeholder captions shown in overlay mode without a custom image.
const (
	PlaceholderTitle    = "Sample photo background"
	PlaceholderSubtitle = "(your photo replaces this when published)"
)

// Compositor renders StyleConfig + TextLines into images.
type Compositor struct {
	width    int
	height   int
	fonts    *FontManager
	rng      Rand
	captions [2]string
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithFonts sets the font manager. Without it the embedded fonts are used.
func WithFonts(fm *FontManager) Option {
	return func(c *Compositor) { c.fonts = fm }
}

// WithRand sets the random source of the randomized background styles.
func WithRand(r Rand) Option {
	return func(c *Compositor) { c.rng = r }
}

// WithSeed makes randomized backgrounds reproducible.
func WithSeed(seed uint64) Option {
	return WithRand(NewSeededRand(seed))
}

// WithPlaceholderCaptions replaces the overlay placeholder captions. An empty
// string hides that caption.
func WithPlaceholderCaptions(title, subtitle string) Option {
	return func(c *Compositor) { c.captions = [2]string{title, subtitle} }
}

// New creates a compositor for the standard canvas.
func New(opts ...Option) (*Compositor, error) {
	c := &Compositor{
		width:    template.CanvasWidth,
		height:   template.CanvasHeight,
		rng:      globalRand{},
		captions: [2]string{PlaceholderTitle, PlaceholderSubtitle},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fonts == nil {
		fm, err := NewFontManager(FontPaths{})
		if err != nil {
			return nil, err
		}
		c.fonts = fm
	}
	if c.rng == nil {
		c.rng = globalRand{}
	}
	return c, nil
}

// Size returns the canvas size.
func (c *Compositor) Size() (width, height int) {
	return c.width, c.height
}

// RenderImage composites cfg and lines. Steps run in a fixed order: clear,
// background, mask, text. The only errors are configuration errors and
// drawing failures of the surface itself.
func (c *Compositor) RenderImage(cfg template.StyleConfig, lines template.TextLines) (*image.NRGBA, error) {
	if c == nil || c.fonts == nil || c.width <= 0 || c.height <= 0 {
		return nil, &template.ConfigError{Field: "canvas", Reason: "compositor is not initialized"}
	}
	if err := template.Validate(cfg); err != nil {
		return nil, err
	}

	start := time.Now()
	cv := newCanvas(c.width, c.height, c.fonts, c.rng)
	defer cv.close()

	drawBackground(cv, cfg, c.captions)
	applyMask(cv, cfg)

	p := lineParams{
		size:  float64(cfg.FontSize),
		color: c.textColor(cfg.TextColor),
		mode:  cfg.Mode,
	}
	cx := float64(c.width) / 2
	drawn := 0
	for i, y := range Layout(c.height, cfg.LineCount, cfg.FontSize, cfg.LineHeight) {
		text := lines.Slot(i)
		if template.Blank(text) {
			continue
		}
		drawLine(cv, text, cx, y, cfg.TextStyle, p)
		drawn++
	}

	if cv.err != nil {
		return nil, cv.err
	}
	if len(cv.missing) > 0 {
		Logger().Warn("no configured font covers some characters, drawing missing-glyph boxes",
			"runes", cv.missingRunes(),
			"hint", "set [fonts] fallbacks to a font that covers them")
	}

	Logger().Debug("card rendered",
		"mode", cfg.Mode,
		"background", cfg.BackgroundStyle,
		"custom_background", cfg.CustomBackground != nil,
		"text_style", cfg.TextStyle,
		"lines", drawn,
		"elapsed", time.Since(start))

	return cv.image(), nil
}

// Render composites and encodes the result as PNG.
func (c *Compositor) Render(cfg template.StyleConfig, lines template.TextLines) ([]byte, error) {
	img, err := c.RenderImage(cfg, lines)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := generator.Encode(&buf, ".png", img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Compositor) textColor(s string) gg.RGBA {
	if s == "" {
		s = DefaultTextColor
	}
	nc, err := generator.ParseColor(s)
	if err != nil {
		Logger().Warn("invalid text color, using default", "color", s, "default", DefaultTextColor)
		nc, _ = generator.ParseColor(DefaultTextColor)
	}
	return fromNRGBA(nc)
}

// Catalog reports registered style ids. It satisfies template.Catalog.
type Catalog struct{}

func (Catalog) HasBackground(id string) bool { return HasBackground(id) }
func (Catalog) HasTextStyle(id string) bool  { return HasTextStyle(id) }

// Styles lists every registered style id.
func Styles() template.StyleList {
	return template.StyleList{
		Backgrounds: BackgroundStyles(),
		TextStyles:  TextStyles(),
	}
}
