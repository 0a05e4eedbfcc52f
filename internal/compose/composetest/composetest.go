// Package composetest provides in-memory document and rasterizer fakes for
// testing the export pipeline.
package composetest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kozaktomas/photo-panel/internal/layout"
)

// Op kinds recorded by Recorder.
const (
	OpImage   = "image"
	OpFill    = "fill"
	OpStroke  = "stroke"
	OpSetFont = "font"
	OpText    = "text"
)

// Op is one recorded drawing call.
type Op struct {
	Kind      string
	Rect      layout.Rect
	Data      []byte
	LineWidth float64
	Color     color.NRGBA
	Size      float64
	Text      string
	X, Y      float64
}

// Recorder is a Document that records calls. Text is measured as
// CharWidth mm per rune (2mm when zero).
type Recorder struct {
	CharWidth float64
	// PlaceErr, when set, is consulted before every PlaceImage.
	PlaceErr func(r layout.Rect) error
	WriteErr error

	mu  sync.Mutex
	ops []Op
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

// Ops returns a copy of the recorded calls.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpsOf returns the recorded calls of one kind.
func (r *Recorder) OpsOf(kind string) []Op {
	var out []Op
	for _, op := range r.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func (r *Recorder) PlaceImage(data []byte, rect layout.Rect) error {
	if r.PlaceErr != nil {
		if err := r.PlaceErr(rect); err != nil {
			return err
		}
	}
	r.record(Op{Kind: OpImage, Rect: rect, Data: data})
	return nil
}

func (r *Recorder) FillRect(rect layout.Rect, c color.NRGBA) error {
	r.record(Op{Kind: OpFill, Rect: rect, Color: c})
	return nil
}

func (r *Recorder) StrokeRect(rect layout.Rect, lineWidth float64, c color.NRGBA) error {
	r.record(Op{Kind: OpStroke, Rect: rect, LineWidth: lineWidth, Color: c})
	return nil
}

func (r *Recorder) SetFont(sizePt float64, c color.NRGBA) error {
	r.record(Op{Kind: OpSetFont, Size: sizePt, Color: c})
	return nil
}

func (r *Recorder) TextWidth(text string) (float64, error) {
	cw := r.CharWidth
	if cw == 0 {
		cw = 2
	}
	return float64(utf8.RuneCountInString(text)) * cw, nil
}

func (r *Recorder) DrawText(text string, x, baselineY float64) error {
	r.record(Op{Kind: OpText, Text: text, X: x, Y: baselineY})
	return nil
}

func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	if r.WriteErr != nil {
		return 0, r.WriteErr
	}
	n, err := fmt.Fprintf(w, "%%PDF-fake ops=%d\n", len(r.Ops()))
	return int64(n), err
}

// Rasterizer is a layout.Rasterizer that returns a small uniform image.
// Each Prepare records a copy of the scene as it was handed over.
type Rasterizer struct {
	// SettleAfter delays the settle signal; negative never settles.
	SettleAfter time.Duration
	RenderErr   error
	Color       color.Color
	// Hook runs at the start of every Render.
	Hook func()

	mu        sync.Mutex
	scenes    []*layout.Scene
	densities []float64
	open      int
}

func (f *Rasterizer) Prepare(ctx context.Context, scene *layout.Scene) layout.Pass {
	f.mu.Lock()
	f.scenes = append(f.scenes, scene.Duplicate())
	f.open++
	f.mu.Unlock()

	p := &fakePass{f: f, settled: make(chan struct{})}
	switch {
	case f.SettleAfter == 0:
		close(p.settled)
	case f.SettleAfter > 0:
		time.AfterFunc(f.SettleAfter, func() { close(p.settled) })
	}
	return p
}

// Scenes returns the scenes seen by Prepare.
func (f *Rasterizer) Scenes() []*layout.Scene {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*layout.Scene(nil), f.scenes...)
}

// Densities returns the px/mm of every Render call.
func (f *Rasterizer) Densities() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.densities...)
}

// Open returns the number of passes not yet closed.
func (f *Rasterizer) Open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

type fakePass struct {
	f       *Rasterizer
	settled chan struct{}
	once    sync.Once
	closed  bool
}

func (p *fakePass) Settled() <-chan struct{} {
	return p.settled
}

func (p *fakePass) Render(ctx context.Context, pxPerMM float64) (image.Image, error) {
	if p.f.Hook != nil {
		p.f.Hook()
	}
	if p.closed {
		return nil, errors.New("render after close")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.f.mu.Lock()
	p.f.densities = append(p.f.densities, pxPerMM)
	p.f.mu.Unlock()
	if p.f.RenderErr != nil {
		return nil, p.f.RenderErr
	}
	c := p.f.Color
	if c == nil {
		c = color.White
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	return img, nil
}

func (p *fakePass) Close() {
	p.once.Do(func() {
		p.closed = true
		p.f.mu.Lock()
		p.f.open--
		p.f.mu.Unlock()
	})
}
