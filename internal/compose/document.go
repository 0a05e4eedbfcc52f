// Package compose assembles the print page: background raster, resampled
// photos and vector captions on a physically dimensioned document.
package compose

import (
	"image/color"
	"io"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/layout"
)

// Document is a single page measured in millimetres with the origin at the
// top-left corner.
type Document interface {
	// PlaceImage draws PNG-encoded data stretched to r.
	PlaceImage(data []byte, r layout.Rect) error
	FillRect(r layout.Rect, c color.NRGBA) error
	StrokeRect(r layout.Rect, lineWidth float64, c color.NRGBA) error
	// SetFont selects the text size and colour for TextWidth and DrawText.
	SetFont(sizePt float64, c color.NRGBA) error
	TextWidth(text string) (float64, error)
	// DrawText draws text with its left end at x on the baseline y.
	DrawText(text string, x, baselineY float64) error
	WriteTo(w io.Writer) (int64, error)
}

// DrawFrame strokes the page border inside the page edge.
func DrawFrame(doc Document, profile config.ExportProfile) error {
	w := profile.Frame.WidthMM
	if w <= 0 {
		return nil
	}
	r := layout.Rect{X: w / 2, Y: w / 2, W: profile.PageWidthMM - w, H: profile.PageHeightMM - w}
	return doc.StrokeRect(r, w, config.ColorOrBlack(profile.Frame.Color))
}
