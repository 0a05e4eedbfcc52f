package compose

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/imageio"
	"github.com/kozaktomas/photo-panel/internal/layout"
)

// Background renders the decorative layer of the page.
type Background struct {
	rasterizer layout.Rasterizer
	logger     *slog.Logger
}

func NewBackground(r layout.Rasterizer, logger *slog.Logger) *Background {
	if logger == nil {
		logger = slog.Default()
	}
	return &Background{rasterizer: r, logger: logger}
}

// Capture rasterizes an off-screen duplicate of live sized to the page of
// the profile, without photos, captions, controls, borders or rounding.
// The live scene is not modified. Rendering waits for the rasterizer to
// settle, at most profile.SettleTimeout.
func (b *Background) Capture(ctx context.Context, live *layout.Scene, profile config.ExportProfile) (image.Image, error) {
	dup := live.Duplicate()
	defer dup.Release()
	dup.PrepareCapture(profile.PageWidthMM, profile.PageHeightMM)

	pass := b.rasterizer.Prepare(ctx, dup)
	defer pass.Close()

	start := time.Now()
	timer := time.NewTimer(profile.SettleTimeout)
	defer timer.Stop()
	select {
	case <-pass.Settled():
		b.logger.Debug("background assets settled", "elapsed", time.Since(start))
	case <-timer.C:
		b.logger.Warn("background assets still loading, rendering anyway", "timeout", profile.SettleTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	img, err := pass.Render(ctx, profile.BackgroundPxPerMM())
	if err != nil {
		return nil, fmt.Errorf("rasterize background: %w", err)
	}
	return img, nil
}

// PlaceBackground draws img over the whole page as a lossless PNG.
func PlaceBackground(doc Document, img image.Image, profile config.ExportProfile) error {
	data, err := imageio.EncodePNG(img)
	if err != nil {
		return err
	}
	page := layout.Rect{W: profile.PageWidthMM, H: profile.PageHeightMM}
	if err := doc.PlaceImage(data, page); err != nil {
		return fmt.Errorf("place background: %w", err)
	}
	return nil
}
