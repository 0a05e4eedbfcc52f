// Package status carries short operator-facing messages.
package status

import (
	"sync"
	"time"

	"github.com/kozaktomas/photo-panel/internal/constants"
)

// Kind classifies a message.
type Kind string

const (
	KindOK    Kind = "ok"
	KindError Kind = "error"
)

// Operator messages.
const (
	MsgPhotoAdded    = "Photo added successfully!"
	MsgNoPhotos      = "Add at least one photo before generating the PDF"
	MsgGenerating    = "Generating PDF at maximum quality..."
	MsgGenerated     = "PDF generated successfully at maximum quality!"
	MsgExportFailed  = "Failed to generate PDF. Please try again."
	MsgPanelCleared  = "All photos cleared."
	MsgExportRunning = "An export is already running."
)

type Message struct {
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier receives operator messages.
type Notifier interface {
	OK(text string)
	Error(text string)
}

// Board holds the current message. OK messages disappear after a delay,
// error messages stay until replaced.
type Board struct {
	mu         sync.Mutex
	current    *Message
	generation uint64
	clearAfter time.Duration
}

// NewBoard returns a board that clears OK messages after
// constants.StatusAutoClear.
func NewBoard() *Board {
	return NewBoardWithDelay(constants.StatusAutoClear)
}

func NewBoardWithDelay(clearAfter time.Duration) *Board {
	return &Board{clearAfter: clearAfter}
}

func (b *Board) OK(text string) {
	gen := b.set(KindOK, text)
	time.AfterFunc(b.clearAfter, func() { b.clear(gen) })
}

func (b *Board) Error(text string) {
	b.set(KindError, text)
}

func (b *Board) set(kind Kind, text string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.current = &Message{Kind: kind, Text: text, CreatedAt: time.Now()}
	return b.generation
}

// clear removes the message only if nothing replaced it in the meantime.
func (b *Board) clear(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation == gen {
		b.current = nil
	}
}

// Current returns the visible message, if any.
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

// Discard is a Notifier that drops every message.
type Discard struct{}

func (Discard) OK(string)    {}
func (Discard) Error(string) {}
