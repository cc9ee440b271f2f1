// color.go - CSS color parsing and solid image creation.
package generator

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"
)

var namedColors = map[string]color.NRGBA{
	"black":       {0, 0, 0, 255},
	"white":       {255, 255, 255, 255},
	"red":         {255, 0, 0, 255},
	"green":       {0, 128, 0, 255},
	"blue":        {0, 0, 255, 255},
	"yellow":      {255, 255, 0, 255},
	"orange":      {255, 165, 0, 255},
	"purple":      {128, 0, 128, 255},
	"pink":        {255, 192, 203, 255},
	"gray":        {128, 128, 128, 255},
	"grey":        {128, 128, 128, 255},
	"gold":        {255, 215, 0, 255},
	"brown":       {165, 42, 42, 255},
	"navy":        {0, 0, 128, 255},
	"teal":        {0, 128, 128, 255},
	"transparent": {0, 0, 0, 0},
}

// ParseColor parses a CSS color: "#rgb", "#rrggbb", "#rrggbbaa",
// "rgb(r, g, b)", "rgba(r, g, b, a)" or a basic color name.
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return color.NRGBA{}, fmt.Errorf("empty color")
	}
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if strings.HasPrefix(v, "#") {
		return parseHex(v[1:], s)
	}
	if strings.HasPrefix(v, "rgb") {
		return parseFunc(v, s)
	}
	return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
}

func parseHex(hex, orig string) (color.NRGBA, error) {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: expected 3, 6 or 8 hex digits", orig)
	}

	var ch [4]uint8
	ch[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", orig, err)
		}
		ch[i] = uint8(n)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

func parseFunc(v, orig string) (color.NRGBA, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", orig)
	}
	name := strings.TrimSpace(v[:open])
	parts := strings.Split(v[open+1:len(v)-1], ",")

	want := 3
	if name == "rgba" {
		want = 4
	} else if name != "rgb" {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", orig)
	}
	if len(parts) != want {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: want %d components", orig, want)
	}

	var ch [3]uint8
	for i := range 3 {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", orig, err)
		}
		ch[i] = uint8(math.Round(min(max(n, 0), 255)))
	}
	c := color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: 255}
	if want == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", orig, err)
		}
		c.A = uint8(math.Round(min(max(a, 0), 1) * 255))
	}
	return c, nil
}

// HexString formats c as "#rrggbb", dropping alpha.
func HexString(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NewSolidImage creates a uniform solid-color image using draw.Draw (O(1) fill).
func NewSolidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}
