package layout

import (
	"fmt"
	"image"

	"github.com/kozaktomas/photo-panel/internal/constants"
)

// SlotState is what a scene needs to know about one operator slot.
type SlotState struct {
	Occupied bool
	Photo    image.Image // decoded preview, optional
	Caption  string
}

// Label is a centred line of text.
type Label struct {
	Text  string
	Size  float64
	Color string
}

type CaptionView struct {
	Box    Rect
	Text   string
	Size   float64
	Border *Border
	Radius float64
}

// Control is the round remove button over an occupied photo box.
type Control struct {
	Box   Rect
	Color string
}

// SlotView is one slot as drawn. Pointer fields are nil when the part is
// not drawn.
type SlotView struct {
	Index       int
	Feature     bool
	Occupied    bool
	Box         Rect
	Fill        string
	Border      *Border
	Radius      float64
	Placeholder *Label
	Photo       image.Image
	Caption     *CaptionView
	Remove      *Control
}

// Scene is a drawable description of the panel. Content is laid out on the
// design page (DesignW x DesignH mm) and stretched to Width x Height mm.
type Scene struct {
	DesignW     float64
	DesignH     float64
	Width       float64
	Height      float64
	Background  string
	Frame       *Border
	Decorations []Element
	Slots       []SlotView
}

// Scene builds the live operator surface. controls toggles the remove
// buttons on occupied slots.
func (t *Template) Scene(states [constants.SlotCount]SlotState, controls bool) *Scene {
	s := &Scene{
		DesignW:     t.Width,
		DesignH:     t.Height,
		Width:       t.Width,
		Height:      t.Height,
		Background:  t.Background,
		Decorations: t.Decorations,
	}
	if t.Frame.Width > 0 {
		s.Frame = &Border{Width: t.Frame.Width, Color: t.Frame.Color}
	}

	st := t.Slot
	for i, state := range states {
		v := SlotView{
			Index:    i,
			Feature:  i == constants.FeatureSlotIndex,
			Occupied: state.Occupied,
			Box:      t.PhotoBox(i),
			Fill:     st.Fill,
			Radius:   st.Radius,
			Caption: &CaptionView{
				Box:    t.CaptionBox(i),
				Text:   state.Caption,
				Size:   st.CaptionSize,
				Radius: st.CaptionRadius,
			},
		}
		if st.BorderWidth > 0 {
			v.Border = &Border{Width: st.BorderWidth, Color: st.BorderColor}
		}
		if st.CaptionBorderWidth > 0 {
			v.Caption.Border = &Border{Width: st.CaptionBorderWidth, Color: st.CaptionBorderColor}
		}
		if state.Occupied {
			v.Photo = state.Photo
			if controls && st.RemoveSize > 0 {
				v.Remove = &Control{
					Box:   removeBox(v.Box, st.RemoveInset, st.RemoveSize),
					Color: st.RemoveColor,
				}
			}
		} else {
			v.Placeholder = &Label{Text: t.placeholderText(i), Size: st.PlaceholderSize, Color: st.PlaceholderColor}
		}
		s.Slots = append(s.Slots, v)
	}
	return s
}

func (t *Template) placeholderText(index int) string {
	format := t.Slot.Placeholder
	if index == constants.FeatureSlotIndex && t.Slot.FeaturePlaceholder != "" {
		format = t.Slot.FeaturePlaceholder
	}
	if format == "" {
		return ""
	}
	return fmt.Sprintf(format, index+1)
}

// removeBox anchors a square control at the top-right corner of box, shrunk
// to fit small boxes.
func removeBox(box Rect, inset, size float64) Rect {
	if limit := min(box.W, box.H) / 3; size > limit {
		size = limit
		inset = size / 4
	}
	return Rect{X: box.X + box.W - inset - size, Y: box.Y + inset, W: size, H: size}
}

// Duplicate returns a deep copy that can be modified without touching s.
// Photo images are shared, they are never written to.
func (s *Scene) Duplicate() *Scene {
	d := *s
	d.Decorations = cloneElements(s.Decorations)
	if s.Frame != nil {
		f := *s.Frame
		d.Frame = &f
	}
	d.Slots = make([]SlotView, len(s.Slots))
	for i, v := range s.Slots {
		if v.Border != nil {
			b := *v.Border
			v.Border = &b
		}
		if v.Placeholder != nil {
			l := *v.Placeholder
			v.Placeholder = &l
		}
		if v.Caption != nil {
			c := *v.Caption
			if c.Border != nil {
				b := *c.Border
				c.Border = &b
			}
			v.Caption = &c
		}
		if v.Remove != nil {
			r := *v.Remove
			v.Remove = &r
		}
		d.Slots[i] = v
	}
	return &d
}

func cloneElements(elems []Element) []Element {
	if elems == nil {
		return nil
	}
	out := make([]Element, len(elems))
	for i, e := range elems {
		e.Children = cloneElements(e.Children)
		out[i] = e
	}
	return out
}

// PrepareCapture turns a duplicate into the background layer of a page of
// width x height mm: photos, captions, remove controls, the page frame,
// slot borders and corner rounding are dropped. Empty slots keep their
// placeholder.
func (s *Scene) PrepareCapture(width, height float64) {
	s.Width = width
	s.Height = height
	s.Frame = nil
	for i := range s.Slots {
		v := &s.Slots[i]
		v.Photo = nil
		v.Caption = nil
		v.Remove = nil
		v.Border = nil
		v.Radius = 0
		if v.Occupied {
			v.Placeholder = nil
		}
	}
}

// Release drops the scene contents.
func (s *Scene) Release() {
	s.Decorations = nil
	s.Slots = nil
	s.Frame = nil
}
