package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/xob0t/CoverCard/pkg/template"
)

// --- helpers ---------------------------------------------------------------

func newTestCompositor(t *testing.T, opts ...Option) *Compositor {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func insertConfig(bg, style string) template.StyleConfig {
	return template.StyleConfig{
		Mode:            template.ModeInsert,
		BackgroundStyle: bg,
		TextStyle:       style,
		TextColor:       "#2c3e50",
		FontSize:        40,
		LineHeight:      1.2,
		LineCount:       3,
	}
}

func mustRender(t *testing.T, c *Compositor, cfg template.StyleConfig, lines template.TextLines) *image.NRGBA {
	t.Helper()
	img, err := c.RenderImage(cfg, lines)
	if err != nil {
		t.Fatalf("RenderImage: %v", err)
	}
	return img
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func assertPixel(t *testing.T, img *image.NRGBA, x, y int, want color.NRGBA, tol int) {
	t.Helper()
	got := img.NRGBAAt(x, y)
	if !near(got.R, want.R, tol) || !near(got.G, want.G, tol) || !near(got.B, want.B, tol) || !near(got.A, want.A, tol) {
		t.Errorf("pixel (%d,%d) = %v, want %v ±%d", x, y, got, want, tol)
	}
}

// --- tests -----------------------------------------------------------------

func TestRenderImageSize(t *testing.T) {
	c := newTestCompositor(t)
	img := mustRender(t, c, insertConfig("clean_solid", "gold"), template.TextLines{"2025年9月6日", "Hello", "World"})
	if b := img.Bounds(); b.Dx() != template.CanvasWidth || b.Dy() != template.CanvasHeight {
		t.Errorf("bounds = %v", b)
	}
	if w, h := c.Size(); w != 750 || h != 1000 {
		t.Errorf("Size() = %dx%d", w, h)
	}
}

func TestCleanSolidBackground(t *testing.T) {
	c := newTestCompositor(t)
	img := mustRender(t, c, insertConfig("clean_solid", "gold"), nil)
	want := color.NRGBA{R: 0xf8, G: 0xf9, B: 0xfa, A: 255}
	for _, p := range []image.Point{{5, 5}, {375, 500}, {744, 994}} {
		assertPixel(t, img, p.X, p.Y, want, 1)
	}
}

func TestMonochromeBackground(t *testing.T) {
	c := newTestCompositor(t)
	img := mustRender(t, c, insertConfig("monochrome", "gold"), nil)
	assertPixel(t, img, 100, 100, color.NRGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 255}, 1)
}

func TestUnknownBackgroundDrawsDefaultGradient(t *testing.T) {
	c := newTestCompositor(t)
	a := mustRender(t, c, insertConfig("no_such_style", "gold"), template.TextLines{"x"})
	b := mustRender(t, c, insertConfig(DefaultBackground, "gold"), template.TextLines{"x"})
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("unknown background differs from the default gradient")
	}
	// Top-left corner is the first gradient stop.
	assertPixel(t, a, 0, 0, color.NRGBA{R: 0x4f, G: 0xac, B: 0xfe, A: 255}, 3)
}

func TestRenderIsIdempotent(t *testing.T) {
	c := newTestCompositor(t)
	lines := template.TextLines{"Hello", "", "World"}
	for _, style := range []string{"gold", "gold_stable", "handwritten_warm", "handwritten_playful", "plain"} {
		cfg := insertConfig("soft_blur", style)
		a := mustRender(t, c, cfg, lines)
		b := mustRender(t, c, cfg, lines)
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("%s: two renders of the same input differ", style)
		}
	}
}

func TestSeededBackgroundsAreReproducible(t *testing.T) {
	for _, bg := range []string{"paper_texture", "marble_texture"} {
		cfg := insertConfig(bg, "gold")
		a := mustRender(t, newTestCompositor(t, WithSeed(42)), cfg, nil)
		b := mustRender(t, newTestCompositor(t, WithSeed(42)), cfg, nil)
		if !bytes.Equal(a.Pix, b.Pix) {
			t.Errorf("%s: same seed produced different images", bg)
		}
		d := mustRender(t, newTestCompositor(t, WithSeed(7)), cfg, nil)
		if bytes.Equal(a.Pix, d.Pix) {
			t.Errorf("%s: different seeds produced identical images", bg)
		}
	}
}

func TestRandomElementCounts(t *testing.T) {
	rng := NewSeededRand(1)
	specks := paperSpecks(rng, 750, 1000)
	if len(specks) != 1000 {
		t.Errorf("paper specks = %d, want 1000", len(specks))
	}
	for _, p := range specks {
		if p.X < 0 || p.X >= 750 || p.Y < 0 || p.Y >= 1000 {
			t.Fatalf("speck %v outside canvas", p)
		}
	}
	if veins := marbleVeins(rng, 750, 1000); len(veins) != 20 {
		t.Errorf("marble veins = %d, want 20", len(veins))
	}
}

func TestOverlayPlaceholderIgnoresBackgroundStyle(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("monochrome", "gold")
	cfg.Mode = template.ModeOverlay
	a := mustRender(t, c, cfg, nil)

	cfg.BackgroundStyle = "pastel_blend"
	b := mustRender(t, c, cfg, nil)

	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("overlay placeholder depends on background style")
	}
	assertPixel(t, a, 10, 10, color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 255}, 1)
}

func TestOverlayMaskDarkensPlaceholder(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("clean_solid", "handwritten_casual")
	cfg.Mode = template.ModeOverlay
	cfg.MaskOpacity = 0.5
	img := mustRender(t, c, cfg, nil)

	// #f0f0f0 under 50% black.
	assertPixel(t, img, 10, 10, color.NRGBA{R: 120, G: 120, B: 120, A: 255}, 2)
}

func TestInsertModeIgnoresMask(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("clean_solid", "gold")
	a := mustRender(t, c, cfg, nil)
	cfg.MaskOpacity = 0.8
	b := mustRender(t, c, cfg, nil)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("mask applied in insert mode")
	}
}

func TestCustomBackgroundWins(t *testing.T) {
	c := newTestCompositor(t)
	red := imaging.New(100, 50, color.NRGBA{R: 255, A: 255})

	for _, mode := range []template.Mode{template.ModeInsert, template.ModeOverlay} {
		cfg := insertConfig("monochrome", "gold")
		cfg.Mode = mode
		cfg.CustomBackground = red
		img := mustRender(t, c, cfg, nil)
		assertPixel(t, img, 10, 10, color.NRGBA{R: 255, A: 255}, 2)
		assertPixel(t, img, 740, 990, color.NRGBA{R: 255, A: 255}, 2)
	}
}

func TestEmptyCustomBackgroundIsAbsent(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("monochrome", "gold")
	a := mustRender(t, c, cfg, nil)
	cfg.CustomBackground = image.NewNRGBA(image.Rect(0, 0, 0, 0))
	b := mustRender(t, c, cfg, nil)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("empty custom image changed the output")
	}
}

func TestTextIsDrawn(t *testing.T) {
	c := newTestCompositor(t)
	for _, style := range append(TextStyles(), "plain", "handwritten_unknown") {
		cfg := insertConfig("clean_solid", style)
		empty := mustRender(t, c, cfg, nil)
		withText := mustRender(t, c, cfg, template.TextLines{"", "Hello"})
		if bytes.Equal(empty.Pix, withText.Pix) {
			t.Errorf("%s: text left no pixels", style)
		}
	}
}

func TestBlankLinesDrawNothing(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("clean_solid", "gold")
	a := mustRender(t, c, cfg, nil)
	b := mustRender(t, c, cfg, template.TextLines{"", "   ", "\t"})
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("blank lines produced pixels")
	}
}

func TestExtraLinesIgnored(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("clean_solid", "gold")
	cfg.LineCount = 1
	a := mustRender(t, c, cfg, template.TextLines{"Only"})
	b := mustRender(t, c, cfg, template.TextLines{"Only", "Ignored", "Also ignored"})
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("lines beyond LineCount were drawn")
	}
}

func TestInvalidTextColorFallsBack(t *testing.T) {
	c := newTestCompositor(t)
	cfg := insertConfig("clean_solid", "plain")
	cfg.TextColor = "not-a-color"
	a := mustRender(t, c, cfg, template.TextLines{"Hi"})
	cfg.TextColor = DefaultTextColor
	b := mustRender(t, c, cfg, template.TextLines{"Hi"})
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("invalid color did not fall back to the default")
	}
}

func TestRenderImageConfigErrors(t *testing.T) {
	c := newTestCompositor(t)

	tests := []struct {
		name string
		comp *Compositor
		edit func(*template.StyleConfig)
	}{
		{"zero compositor", &Compositor{}, func(*template.StyleConfig) {}},
		{"nil compositor", nil, func(*template.StyleConfig) {}},
		{"missing font size", c, func(cfg *template.StyleConfig) { cfg.FontSize = 0 }},
		{"missing line height", c, func(cfg *template.StyleConfig) { cfg.LineHeight = 0 }},
		{"too many lines", c, func(cfg *template.StyleConfig) { cfg.LineCount = 5 }},
		{"unknown mode", c, func(cfg *template.StyleConfig) { cfg.Mode = "poster" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := insertConfig("clean_solid", "gold")
			tt.edit(&cfg)
			img, err := tt.comp.RenderImage(cfg, template.TextLines{"x"})
			if !errors.Is(err, template.ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
			if img != nil {
				t.Error("image returned alongside an error")
			}
		})
	}
}

func TestRenderEncodesPNG(t *testing.T) {
	c := newTestCompositor(t)
	data, err := c.Render(insertConfig("gradient_fade", "handwritten_artistic"), template.TextLines{"PNG"})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 750 || b.Dy() != 1000 {
		t.Errorf("bounds = %v", b)
	}
}

func TestConcurrentRenders(t *testing.T) {
	c := newTestCompositor(t, WithSeed(3))
	cfg := insertConfig("clean_solid", "gold_stable")
	want := mustRender(t, c, cfg, template.TextLines{"Same"})

	errs := make(chan error, 4)
	for range 4 {
		go func() {
			img, err := c.RenderImage(cfg, template.TextLines{"Same"})
			if err == nil && !bytes.Equal(img.Pix, want.Pix) {
				err = errors.New("concurrent render differs")
			}
			errs <- err
		}()
	}
	for range 4 {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}

func TestStylesCatalog(t *testing.T) {
	list := Styles()
	if len(list.Backgrounds) != 12 {
		t.Errorf("backgrounds = %d, want 12", len(list.Backgrounds))
	}
	if len(list.TextStyles) != 9 {
		t.Errorf("text styles = %d, want 9", len(list.TextStyles))
	}
	var cat template.Catalog = Catalog{}
	if !cat.HasBackground("soft_shadow") || cat.HasBackground(DefaultBackground) {
		t.Error("HasBackground mismatch")
	}
	if !cat.HasTextStyle(CasualStyle) || cat.HasTextStyle("plain") {
		t.Error("HasTextStyle mismatch")
	}
}
