// preview.go - Downscaled copies for on-screen previews.
package generator

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Preview sizes used by the preview endpoint.
const (
	PreviewWidth  = 300
	PreviewHeight = 400
)

// Preview returns img scaled to exactly w x h. The full-size raster is not
// modified; this only changes how it is shown.
func Preview(img image.Image, w, h int) *image.NRGBA {
	if img == nil || w <= 0 || h <= 0 {
		return nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}
