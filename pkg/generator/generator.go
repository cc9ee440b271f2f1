// Package generator encodes rendered cards to files, writers and data URLs.
//
// All output follows a unified pipeline: produce an image.Image first, then
// encode it in the format named by the output extension.
package generator

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config holds parameters for image output.
type Config struct {
	Width   int         // Pixel width of a solid image (default: 750)
	Height  int         // Pixel height of a solid image (default: 1000)
	Color   string      // CSS color of a solid image
	Quality int         // JPEG quality 1-100 (default: 92)
	Image   image.Image // Pre-rendered image; overrides Width/Height/Color
}

// Formats lists the supported output extensions.
var Formats = []string{".png", ".jpg", ".jpeg", ".bmp"}

// Generate creates an output file. The format is inferred from the file extension:
//   - ".png" → PNG image
//   - ".jpg", ".jpeg" → JPEG image
//   - ".bmp" → 32-bit BMP image
//
// If cfg.Image is nil, a solid-color image is created from cfg.Color/Width/Height.
func Generate(output string, cfg Config) error {
	ext := strings.ToLower(filepath.Ext(output))
	if !Supported(ext) {
		return unsupported(ext)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := GenerateToWriter(f, ext, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GenerateToWriter writes an image to an io.Writer. The format is specified by ext.
// This is useful for in-memory generation (HTTP responses, WASM).
func GenerateToWriter(w io.Writer, ext string, cfg Config) error {
	img, err := resolveImage(cfg)
	if err != nil {
		return err
	}

	switch strings.ToLower(ext) {
	case ".png":
		return writePNG(w, img)
	case ".jpg", ".jpeg":
		return writeJPEG(w, img, cfg.Quality)
	case ".bmp":
		return writeBMP(w, img)
	default:
		return unsupported(ext)
	}
}

// Encode is GenerateToWriter for an already rendered image.
func Encode(w io.Writer, ext string, img image.Image) error {
	return GenerateToWriter(w, ext, Config{Image: img})
}

// EncodeDataURL encodes img and wraps it in a "data:" URL.
func EncodeDataURL(img image.Image, ext string) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ext, img); err != nil {
		return "", err
	}
	return DataURL(buf.Bytes(), MIMEType(ext)), nil
}

// DataURL wraps encoded bytes in a base64 "data:" URL.
func DataURL(data []byte, mime string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MIMEType returns the media type for an output extension.
func MIMEType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}

// Supported reports whether ext is an output format.
func Supported(ext string) bool {
	for _, f := range Formats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

func unsupported(ext string) error {
	return fmt.Errorf("unsupported format %q: use %s", ext, strings.Join(Formats, ", "))
}

// resolveImage returns the source image from config, creating a solid-color
// image if none is provided.
func resolveImage(cfg Config) (image.Image, error) {
	if cfg.Image != nil {
		return cfg.Image, nil
	}

	w := cfg.Width
	if w <= 0 {
		w = 750
	}
	h := cfg.Height
	if h <= 0 {
		h = 1000
	}

	c, err := ParseColor(cfg.Color)
	if err != nil {
		return nil, err
	}

	return NewSolidImage(w, h, c), nil
}
