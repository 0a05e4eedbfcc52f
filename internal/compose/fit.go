package compose

import (
	"image"
	"image/color"
	"math"

	"github.com/kozaktomas/photo-panel/internal/layout"
	"golang.org/x/image/draw"
)

// bufferSize returns the pixel size of a w x h mm area at dpi.
func bufferSize(wMM, hMM, dpi float64) (int, int) {
	return int(math.Round(wMM * dpi / 25.4)), int(math.Round(hMM * dpi / 25.4))
}

// fitIntoBuffer allocates a w x h buffer filled with fill and draws src
// into it contain-fitted and centred. It returns the buffer and the pixel
// rect the photo occupies.
func fitIntoBuffer(src image.Image, w, h int, fill color.Color) (*image.RGBA, image.Rectangle) {
	buf := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(buf, buf.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	b := src.Bounds()
	fit := layout.FitContain(float64(b.Dx()), float64(b.Dy()), layout.Rect{W: float64(w), H: float64(h)})
	// Size is rounded before centring so neither dimension gains a pixel
	// from rounding both edges.
	fw, fh := int(math.Round(fit.W)), int(math.Round(fit.H))
	x, y := (w-fw)/2, (h-fh)/2
	dst := image.Rect(x, y, x+fw, y+fh)
	if dst.Empty() {
		return buf, dst
	}
	draw.CatmullRom.Scale(buf, dst, src, b, draw.Over, nil)
	return buf, dst
}
