package layout

// FitContain returns the largest rect with the aspect ratio of a srcW x srcH
// image that fits inside box, centred. A source wider than the box fills
// the box width and is letterboxed; otherwise it fills the height and is
// pillarboxed.
func FitContain(srcW, srcH float64, box Rect) Rect {
	if srcW <= 0 || srcH <= 0 || box.Empty() {
		return Rect{X: box.X, Y: box.Y}
	}
	srcAspect := srcW / srcH
	boxAspect := box.W / box.H

	var w, h float64
	if srcAspect > boxAspect {
		w = box.W
		h = box.W / srcAspect
	} else {
		h = box.H
		w = box.H * srcAspect
	}
	return Rect{
		X: box.X + (box.W-w)/2,
		Y: box.Y + (box.H-h)/2,
		W: w,
		H: h,
	}
}
