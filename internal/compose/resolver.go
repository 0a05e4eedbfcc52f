package compose

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/layout"
)

var ErrEmptyBounds = errors.New("panel bounds have zero size")

// SlotRect is the physical placement of one photo on the page, in mm.
type SlotRect struct {
	Index   int     `json:"index"`
	Feature bool    `json:"feature"`
	X       float64 `json:"x_mm"`
	Y       float64 `json:"y_mm"`
	W       float64 `json:"w_mm"`
	H       float64 `json:"h_mm"`
}

func (s SlotRect) Rect() layout.Rect {
	return layout.Rect{X: s.X, Y: s.Y, W: s.W, H: s.H}
}

// Resolve maps the rendered slot containers of geom onto the page of the
// profile. For every occupied slot the caption reservation and caption
// margin are taken off the container bottom, then the remaining area is
// grown by the enlargement factor around its own centre. The result is in
// slot index order; slots not listed in occupied are skipped.
func Resolve(geom layout.Geometry, profile config.ExportProfile, occupied []int) ([]SlotRect, error) {
	if geom.Bounds.Empty() {
		return nil, ErrEmptyBounds
	}
	sx := profile.PageWidthMM / geom.Bounds.W
	sy := profile.PageHeightMM / geom.Bounds.H

	want := make(map[int]bool, len(occupied))
	for _, idx := range occupied {
		if idx < 0 || idx >= constants.SlotCount {
			return nil, fmt.Errorf("slot %d out of range", idx)
		}
		want[idx] = true
	}

	var out []SlotRect
	for i, c := range geom.Slots {
		if !want[i] {
			continue
		}
		feature := i == constants.FeatureSlotIndex
		class := profile.Class(feature)

		x := (c.X - geom.Bounds.X) * sx
		y := (c.Y - geom.Bounds.Y) * sy
		w := c.W * sx
		h := max(c.H*sy-class.CaptionReserveMM-class.CaptionMarginMM, 0)

		dw := w * class.Enlargement
		dh := h * class.Enlargement
		out = append(out, SlotRect{
			Index:   i,
			Feature: feature,
			X:       x - dw/2,
			Y:       y - dh/2,
			W:       w + dw,
			H:       h + dh,
		})
	}
	return out, nil
}
