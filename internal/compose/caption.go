package compose

import (
	"strings"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/layout"
)

// DrawCaption writes caption as centred vector lines under the photo rect.
// The first baseline sits the class spacing below the rect bottom and each
// further line one line height lower. Blank captions draw nothing.
func DrawCaption(doc Document, rect SlotRect, caption string, profile config.ExportProfile) error {
	if strings.TrimSpace(caption) == "" {
		return nil
	}
	style := profile.Caption
	if err := doc.SetFont(style.FontSizePt, config.ColorOrBlack(style.Color)); err != nil {
		return err
	}

	var measureErr error
	measure := func(s string) float64 {
		w, err := doc.TextWidth(s)
		if err != nil && measureErr == nil {
			measureErr = err
		}
		return w
	}
	lines := layout.Wrap(caption, rect.W-style.SideMarginMM, measure)
	if measureErr != nil {
		return measureErr
	}

	centre := rect.X + rect.W/2
	y := rect.Y + rect.H + profile.Class(rect.Feature).CaptionSpacingMM
	for _, line := range lines {
		w, err := doc.TextWidth(line)
		if err != nil {
			return err
		}
		if err := doc.DrawText(line, centre-w/2, y); err != nil {
			return err
		}
		y += style.LineHeightMM
	}
	return nil
}
