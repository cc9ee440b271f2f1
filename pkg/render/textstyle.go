// textstyle.go - Text style catalog. Each style draws one centered line.
package render

import (
	"sort"
	"strings"

	"github.com/gogpu/gg"

	"github.com/xob0t/CoverCard/pkg/template"
)

// lineParams carries what a style needs beyond the text and its position.
type lineParams struct {
	size  float64
	color gg.RGBA
	mode  template.Mode
}

func (p lineParams) overlay() bool { return p.mode == template.ModeOverlay }

type textStyleFunc func(c *canvas, text string, x, y float64, p lineParams)

// CasualStyle serves every unregistered handwritten_* id.
const CasualStyle = "handwritten_casual"

var textStyles = map[string]textStyleFunc{
	"gold":                 drawGold,
	"gold_stable":          drawGoldStable,
	"handwritten_elegant":  drawElegant,
	"handwritten_warm":     drawWarm,
	"handwritten_flowing":  drawFlowing,
	"handwritten_delicate": drawDelicate,
	"handwritten_playful":  drawPlayful,
	"handwritten_artistic": drawArtistic,
	CasualStyle:            drawCasual,
}

var white = gg.Solid(gg.Hex("#ffffff"))

func goldGradient(y, size float64) *gg.LinearGradientBrush {
	return gg.NewLinearGradientBrush(0, y-size/2, 0, y+size/2).
		AddColorStop(0, gg.Hex("#FFD700")).
		AddColorStop(0.5, gg.Hex("#FFA500")).
		AddColorStop(1, gg.Hex("#FF8C00"))
}

func drawGold(c *canvas, text string, x, y float64, p lineParams) {
	run := c.shape(RoleSerifBold, p.size, text)
	ox, oy := run.centered(x, y)

	c.fillText(run, ox+3, oy+3, gg.Solid(rgba(0, 0, 0, 0.3)))
	c.fillText(run, ox, oy, goldGradient(y, p.size))
	c.strokeText(run, ox, oy, 2, gg.Solid(gg.Hex("#B8860B")))
}

func drawGoldStable(c *canvas, text string, x, y float64, p lineParams) {
	run := c.shape(RoleSerifBold, p.size, text)
	ox, oy := run.centered(x, y)

	c.shadow(rgba(139, 69, 19, 0.5), 6, 3, 3, func(dc *gg.Context) error {
		run.emit(dc, ox, oy)
		dc.SetStrokeBrush(white)
		dc.SetLineWidth(3)
		if err := dc.StrokePreserve(); err != nil {
			return err
		}
		dc.SetFillBrush(white)
		return dc.Fill()
	})
	c.strokeText(run, ox, oy, 3, gg.Solid(gg.Hex("#8B4513")))
	c.fillText(run, ox, oy, goldGradient(y, p.size))
}

// plainScript is the shared shape of the simple handwritten styles: an
// optional white contrast stroke under a flat fill.
func plainScript(c *canvas, role Role, text string, x, y float64, p lineParams) {
	run := c.shape(role, p.size, text)
	ox, oy := run.centered(x, y)
	if p.overlay() {
		c.strokeText(run, ox, oy, 3, white)
	}
	c.fillText(run, ox, oy, gg.Solid(p.color))
}

func drawElegant(c *canvas, text string, x, y float64, p lineParams) {
	plainScript(c, RoleScriptMedium, text, x, y, p)
}

func drawDelicate(c *canvas, text string, x, y float64, p lineParams) {
	plainScript(c, RoleCJKBlack, text, x, y, p)
}

func drawCasual(c *canvas, text string, x, y float64, p lineParams) {
	plainScript(c, RoleScript, text, x, y, p)
}

func drawWarm(c *canvas, text string, x, y float64, p lineParams) {
	run := c.shape(RoleScriptMedium, p.size, text)
	ox, oy := run.centered(x, y)

	c.shadow(rgba(255, 140, 0, 0.35), 6, 0, 0, func(dc *gg.Context) error {
		run.emit(dc, ox, oy)
		if p.overlay() {
			dc.SetStrokeBrush(white)
			dc.SetLineWidth(3)
			if err := dc.StrokePreserve(); err != nil {
				return err
			}
		}
		dc.SetFillBrush(white)
		return dc.Fill()
	})
	if p.overlay() {
		c.strokeText(run, ox, oy, 3, white)
	}
	c.fillText(run, ox, oy, gg.Solid(p.color))
}

// transformed draws a line around (x, y) under an extra transform.
func transformed(c *canvas, role Role, text string, x, y float64, p lineParams, apply func(dc *gg.Context)) {
	run := c.shape(role, p.size, text)
	ox, oy := run.centered(0, 0)

	c.dc.Push()
	defer c.dc.Pop()
	c.dc.Translate(x, y)
	apply(c.dc)
	if p.overlay() {
		c.strokeText(run, ox, oy, 3, white)
	}
	c.fillText(run, ox, oy, gg.Solid(p.color))
}

func drawFlowing(c *canvas, text string, x, y float64, p lineParams) {
	transformed(c, RoleScriptItalic, text, x, y, p, func(dc *gg.Context) {
		dc.Shear(-0.2, 0)
	})
}

func drawPlayful(c *canvas, text string, x, y float64, p lineParams) {
	angle := 0.03
	if utf16Len(text)%2 == 0 {
		angle = -0.03
	}
	transformed(c, RoleScriptSemibold, text, x, y, p, func(dc *gg.Context) {
		dc.Rotate(angle)
	})
}

func drawArtistic(c *canvas, text string, x, y float64, p lineParams) {
	run := c.shape(RoleScriptSemibold, p.size, text)
	ox, oy := run.centered(x, y)

	g := gg.NewLinearGradientBrush(0, y-p.size, float64(c.width), y+p.size).
		AddColorStop(0, gg.Hex("#ff5f6d")).
		AddColorStop(0.5, gg.Hex("#ffc371")).
		AddColorStop(1, gg.Hex("#6a11cb"))
	c.strokeText(run, ox, oy, 2, gg.Solid(rgba(0, 0, 0, 0.15)))
	c.fillText(run, ox, oy, g)
}

func drawPlain(c *canvas, text string, x, y float64, p lineParams) {
	run := c.shape(RoleSans, p.size, text)
	ox, oy := run.centered(x, y)
	if p.overlay() {
		c.strokeText(run, ox, oy, 4, white)
	}
	c.fillText(run, ox, oy, gg.Solid(p.color))
}

func lookupTextStyle(id string) textStyleFunc {
	if fn, ok := textStyles[id]; ok {
		return fn
	}
	if strings.HasPrefix(id, "handwritten_") {
		return drawCasual
	}
	return drawPlain
}

// drawLine renders one line centered on (x, y) in the style named id.
// Unknown ids never fail; they fall back to casual or plain text.
func drawLine(c *canvas, text string, x, y float64, id string, p lineParams) {
	lookupTextStyle(id)(c, text, x, y, p)
}

// TextStyles returns the registered text style ids, sorted.
func TextStyles() []string {
	ids := make([]string, 0, len(textStyles))
	for id := range textStyles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasTextStyle reports whether id is a registered text style.
func HasTextStyle(id string) bool {
	_, ok := textStyles[id]
	return ok
}
