// Package panel holds the operator's session state: seven slots, each with
// an optional photo and caption.
package panel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/imageio"
	"github.com/kozaktomas/photo-panel/internal/layout"
)

var (
	ErrControlsLocked    = errors.New("panel is locked while an export is running")
	ErrSlotOutOfRange    = errors.New("slot index out of range")
	ErrResetNotConfirmed = errors.New("reset must be confirmed")
	ErrEmptyPhoto        = errors.New("photo has no data")
)

// Photo is an image supplied by the operator. Raw is never modified after
// creation. Width and Height are the stored dimensions, zero when the
// header could not be read; such photos fail at export time.
type Photo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     string    `json:"format,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Size       int       `json:"size"`
	AssignedAt time.Time `json:"assigned_at"`
	Raw        []byte    `json:"-"`
}

// NewPhoto wraps raw image bytes.
func NewPhoto(name string, raw []byte) (*Photo, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPhoto
	}
	p := &Photo{
		ID:         uuid.New().String(),
		Name:       name,
		Size:       len(raw),
		AssignedAt: time.Now(),
		Raw:        raw,
	}
	if cfg, format, err := imageio.Config(raw); err == nil {
		p.Width, p.Height, p.Format = cfg.Width, cfg.Height, format
	}
	return p, nil
}

// Slot is one position of the template.
type Slot struct {
	Index   int    `json:"index"`
	Photo   *Photo `json:"photo"`
	Caption string `json:"caption"`
}

// IsFeature reports whether this is the enlarged centre slot.
func (s Slot) IsFeature() bool {
	return s.Index == constants.FeatureSlotIndex
}

func (s Slot) HasPhoto() bool {
	return s.Photo != nil
}

// Panel is the mutable operator surface. It is safe for concurrent use.
type Panel struct {
	mu     sync.RWMutex
	slots  [constants.SlotCount]Slot
	hidden bool
}

func New() *Panel {
	p := &Panel{}
	for i := range p.slots {
		p.slots[i].Index = i
	}
	return p
}

func checkIndex(index int) error {
	if index < 0 || index >= constants.SlotCount {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	return nil
}

// mutate runs fn under the write lock unless the controls are hidden.
func (p *Panel) mutate(index int, fn func(s *Slot)) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hidden {
		return ErrControlsLocked
	}
	fn(&p.slots[index])
	return nil
}

// AssignPhoto places photo in a slot, releasing any previous photo. The
// caption is kept.
func (p *Panel) AssignPhoto(index int, photo *Photo) error {
	if photo == nil {
		return ErrEmptyPhoto
	}
	return p.mutate(index, func(s *Slot) { s.Photo = photo })
}

// SetCaption replaces the caption of a slot, photo or not.
func (p *Panel) SetCaption(index int, caption string) error {
	return p.mutate(index, func(s *Slot) { s.Caption = caption })
}

// ClearSlot removes the photo and caption of a slot.
func (p *Panel) ClearSlot(index int) error {
	return p.mutate(index, func(s *Slot) {
		s.Photo = nil
		s.Caption = ""
	})
}

// Reset empties every slot. It does nothing unless confirmed.
func (p *Panel) Reset(confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hidden {
		return ErrControlsLocked
	}
	for i := range p.slots {
		p.slots[i] = Slot{Index: i}
	}
	return nil
}

// Slot returns a copy of one slot.
func (p *Panel) Slot(index int) (Slot, error) {
	if err := checkIndex(index); err != nil {
		return Slot{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.slots[index], nil
}

// PhotoByID finds an assigned photo by its preview handle.
func (p *Panel) PhotoByID(id string) (*Photo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.slots {
		if s.Photo != nil && s.Photo.ID == id {
			return s.Photo, true
		}
	}
	return nil, false
}

// HideControls locks the panel against edits and hides the remove controls.
func (p *Panel) HideControls() {
	p.mu.Lock()
	p.hidden = true
	p.mu.Unlock()
}

// RestoreControls reverses HideControls.
func (p *Panel) RestoreControls() {
	p.mu.Lock()
	p.hidden = false
	p.mu.Unlock()
}

func (p *Panel) ControlsHidden() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hidden
}

// Snapshot copies the current slot state.
func (p *Panel) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Snapshot{Slots: p.slots, TakenAt: time.Now()}
}

// Snapshot is an immutable view of the panel at one instant.
type Snapshot struct {
	Slots   [constants.SlotCount]Slot `json:"slots"`
	TakenAt time.Time                 `json:"taken_at"`
}

// Occupied returns the indices of slots holding a photo, in index order.
func (s Snapshot) Occupied() []int {
	var out []int
	for _, slot := range s.Slots {
		if slot.Photo != nil {
			out = append(out, slot.Index)
		}
	}
	return out
}

func (s Snapshot) PhotoCount() int {
	return len(s.Occupied())
}

// States converts the snapshot for scene building. Photos are not decoded.
func (s Snapshot) States() [constants.SlotCount]layout.SlotState {
	var out [constants.SlotCount]layout.SlotState
	for i, slot := range s.Slots {
		out[i] = layout.SlotState{Occupied: slot.Photo != nil, Caption: slot.Caption}
	}
	return out
}
