package layout

import "github.com/kozaktomas/photo-panel/internal/constants"

// Rect is an axis-aligned rectangle. Units depend on context: millimetres
// on the design page, pixels in a rendered Geometry.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Scale multiplies every component by k.
func (r Rect) Scale(k float64) Rect {
	return Rect{X: r.X * k, Y: r.Y * k, W: r.W * k, H: r.H * k}
}

// Geometry is the rendered layout of the live surface: the panel bounds
// and one container rect per slot (photo box plus caption area), in pixels.
type Geometry struct {
	Bounds Rect                      `json:"bounds"`
	Slots  [constants.SlotCount]Rect `json:"slots"`
}

func (g Grid) columnWidth() float64 {
	inner := g.W - 2*g.PadX - float64(g.Columns-1)*g.Gap
	return inner / float64(g.Columns)
}

func (g Grid) rowUnit() float64 {
	var sum float64
	for _, w := range g.Rows {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	inner := g.H - 2*g.PadY - float64(len(g.Rows)-1)*g.Gap
	return inner / sum
}

func (c Cell) span() int {
	if c.Span <= 0 {
		return 1
	}
	return c.Span
}

// CellRect returns the container rect of slot index on the design page (mm).
func (t *Template) CellRect(index int) Rect {
	g := t.Grid
	c := g.Cells[index]
	cw := g.columnWidth()
	unit := g.rowUnit()

	y := g.Y + g.PadY
	for r := 0; r < c.Row; r++ {
		y += g.Rows[r]*unit + g.Gap
	}
	span := float64(c.span())
	return Rect{
		X: g.X + g.PadX + float64(c.Col)*(cw+g.Gap),
		Y: y,
		W: span*cw + (span-1)*g.Gap,
		H: g.Rows[c.Row] * unit,
	}
}

// Layout renders the template geometry at pxPerMM with the panel's top-left
// corner at (originX, originY) on the surface.
func (t *Template) Layout(originX, originY, pxPerMM float64) Geometry {
	geom := Geometry{
		Bounds: Rect{X: originX, Y: originY, W: t.Width * pxPerMM, H: t.Height * pxPerMM},
	}
	for i := range geom.Slots {
		r := t.CellRect(i).Scale(pxPerMM)
		r.X += originX
		r.Y += originY
		geom.Slots[i] = r
	}
	return geom
}

// PhotoBox returns the live photo box of a slot inside its container, the
// part above the caption box.
func (t *Template) PhotoBox(index int) Rect {
	r := t.CellRect(index)
	r.H -= t.captionMargin(index) + t.Slot.CaptionHeight
	if r.H < 0 {
		r.H = 0
	}
	return r
}

// CaptionBox returns the live caption box of a slot.
func (t *Template) CaptionBox(index int) Rect {
	cell := t.CellRect(index)
	photo := t.PhotoBox(index)
	return Rect{
		X: cell.X,
		Y: photo.Y + photo.H + t.captionMargin(index),
		W: cell.W,
		H: t.Slot.CaptionHeight,
	}
}

func (t *Template) captionMargin(index int) float64 {
	if index == constants.FeatureSlotIndex {
		return t.Slot.FeatureCaptionMargin
	}
	return t.Slot.CaptionMargin
}
