// png.go - PNG and JPEG writers.
package generator

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// writePNG encodes img as PNG.
func writePNG(w io.Writer, img image.Image) error {
	if err := pngEncoder.Encode(w, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	return nil
}

// writeJPEG encodes img as JPEG. Transparent pixels end up black, which is
// fine for cards since every background is opaque.
func writeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 92
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode JPEG: %w", err)
	}
	return nil
}
