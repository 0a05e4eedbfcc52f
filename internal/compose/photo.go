package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/imageio"
)

var ErrAreaTooSmall = errors.New("photo area too small to render")

// Placement records how one photo ended up on the page.
type Placement struct {
	SlotRect
	BufferW      int     `json:"buffer_w_px"`
	BufferH      int     `json:"buffer_h_px"`
	SourceW      int     `json:"source_w_px"`
	SourceH      int     `json:"source_h_px"`
	EffectiveDPI float64 `json:"effective_dpi"` // source pixels per placed inch
	LowRes       bool    `json:"low_res"`
}

// PhotoPlacer resamples a photo into its slot at print density.
type PhotoPlacer struct {
	logger *slog.Logger
}

func NewPhotoPlacer(logger *slog.Logger) *PhotoPlacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhotoPlacer{logger: logger}
}

// Place decodes raw, contain-fits it into a buffer of the slot's physical
// size at profile.DPI over the photo fill colour and draws the buffer as a
// PNG at rect. Only one buffer is alive per call.
func (pp *PhotoPlacer) Place(ctx context.Context, doc Document, rect SlotRect, raw []byte, profile config.ExportProfile) (Placement, error) {
	if err := ctx.Err(); err != nil {
		return Placement{}, err
	}
	w, h := bufferSize(rect.W, rect.H, profile.DPI)
	if w < 1 || h < 1 {
		return Placement{}, fmt.Errorf("%w: %.1fx%.1fmm", ErrAreaTooSmall, rect.W, rect.H)
	}

	img, err := imageio.Decode(raw)
	if err != nil {
		return Placement{}, err
	}
	src := img.Bounds()
	if src.Empty() {
		return Placement{}, errors.New("photo has no pixels")
	}

	buf, fitted := fitIntoBuffer(img, w, h, config.ColorOrBlack(profile.PhotoFill))
	data, err := imageio.EncodePNG(buf)
	if err != nil {
		return Placement{}, err
	}
	if err := ctx.Err(); err != nil {
		return Placement{}, err
	}
	if err := doc.PlaceImage(data, rect.Rect()); err != nil {
		return Placement{}, fmt.Errorf("place photo: %w", err)
	}

	pl := Placement{
		SlotRect: rect,
		BufferW:  w,
		BufferH:  h,
		SourceW:  src.Dx(),
		SourceH:  src.Dy(),
	}
	if fitted.Dx() > 0 {
		placedInches := float64(fitted.Dx()) / float64(w) * rect.W / constants.MMPerInch
		pl.EffectiveDPI = float64(src.Dx()) / placedInches
		pl.LowRes = pl.EffectiveDPI < constants.LowResDPIThreshold
	}
	pp.logger.Debug("photo placed",
		"slot", rect.Index, "buffer_w", w, "buffer_h", h, "effective_dpi", pl.EffectiveDPI)
	return pl, nil
}
