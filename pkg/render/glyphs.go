// glyphs.go - Turn a string into vector outlines that the canvas can fill,
// stroke and transform. Glyphs come from the role's font chain, one rune at a
// time, so a Latin script font can hand CJK runes to a fallback.
package render

import (
	"math"
	"unicode"
	"unicode/utf16"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

type pathSeg struct {
	op  sfnt.SegmentOp
	pts [3]gg.Point
}

// textRun is a shaped line of text. Coordinates are relative to the left end
// of the alphabetic baseline, y growing downward.
type textRun struct {
	segs    []pathSeg
	width   float64
	ascent  float64
	descent float64
	missing []rune // runes no font in the chain maps
}

// shape lays out s in role at size pixels.
func (fm *FontManager) shape(role Role, size float64, s string) *textRun {
	chain := fm.chain(role)
	ppem := fixed.Int26_6(math.Round(size * 64))

	var buf sfnt.Buffer
	run := &textRun{}
	if m, err := chain[0].Metrics(&buf, ppem, font.HintingNone); err == nil {
		run.ascent = fromFixed(m.Ascent)
		run.descent = fromFixed(m.Descent)
	} else {
		run.ascent, run.descent = size*0.8, size*0.2
	}

	var (
		x        float64
		prev     sfnt.GlyphIndex
		prevFont *sfnt.Font
	)
	for _, r := range s {
		f, gi := pickGlyph(chain, &buf, r)
		if gi == 0 && !unicode.IsSpace(r) {
			run.missing = append(run.missing, r)
		}

		if f == prevFont && prev != 0 && gi != 0 {
			if k, err := f.Kern(&buf, prev, gi, ppem, font.HintingNone); err == nil {
				x += fromFixed(k)
			}
		}

		// Segments alias buf and must be copied before the next call.
		if segs, err := f.LoadGlyph(&buf, gi, ppem, nil); err == nil {
			for _, sg := range segs {
				ps := pathSeg{op: sg.Op}
				for i := range sg.Args {
					ps.pts[i] = gg.Pt(x+fromFixed(sg.Args[i].X), fromFixed(sg.Args[i].Y))
				}
				run.segs = append(run.segs, ps)
			}
		}

		if adv, err := f.GlyphAdvance(&buf, gi, ppem, font.HintingNone); err == nil {
			x += fromFixed(adv)
		}
		prev, prevFont = gi, f
	}
	run.width = x
	return run
}

// pickGlyph returns the first font in chain that maps r, or the primary
// font's missing-glyph box.
func pickGlyph(chain []*sfnt.Font, buf *sfnt.Buffer, r rune) (*sfnt.Font, sfnt.GlyphIndex) {
	for _, f := range chain {
		gi, err := f.GlyphIndex(buf, r)
		if err == nil && gi != 0 {
			return f, gi
		}
	}
	return chain[0], 0
}

// centered returns the run origin that puts the text's horizontal center and
// its vertical middle at (x, y).
func (r *textRun) centered(x, y float64) (float64, float64) {
	return x - r.width/2, y + (r.ascent-r.descent)/2
}

// alphabetic returns the origin that centers the text horizontally on x with
// its baseline at y.
func (r *textRun) alphabetic(x, y float64) (float64, float64) {
	return x - r.width/2, y
}

// emit appends the outlines to dc's current path, offset by (ox, oy).
func (r *textRun) emit(dc *gg.Context, ox, oy float64) {
	open := false
	for _, s := range r.segs {
		p := s.pts
		switch s.op {
		case sfnt.SegmentOpMoveTo:
			if open {
				dc.ClosePath()
			}
			dc.MoveTo(ox+p[0].X, oy+p[0].Y)
			open = true
		case sfnt.SegmentOpLineTo:
			dc.LineTo(ox+p[0].X, oy+p[0].Y)
		case sfnt.SegmentOpQuadTo:
			dc.QuadraticTo(ox+p[0].X, oy+p[0].Y, ox+p[1].X, oy+p[1].Y)
		case sfnt.SegmentOpCubeTo:
			dc.CubicTo(ox+p[0].X, oy+p[0].Y, ox+p[1].X, oy+p[1].Y, ox+p[2].X, oy+p[2].Y)
		}
	}
	if open {
		dc.ClosePath()
	}
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// utf16Len counts UTF-16 code units, the length unit style variants key on.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
