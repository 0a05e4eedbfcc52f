// Package raster draws layout scenes into images with fogleman/gg.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/imageio"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
)

// maxCanvasPixels bounds a single raster (A2 at 600dpi fits).
const maxCanvasPixels = 200_000_000

// qrSourceSize is the pixel size QR codes are generated at before scaling.
const qrSourceSize = 1024

var ErrCanvasTooLarge = errors.New("canvas too large")

// Renderer implements layout.Rasterizer.
type Renderer struct {
	fonts  *FontManager
	logger *slog.Logger
}

func New(fonts *FontManager, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{fonts: fonts, logger: logger}
}

// Prepare starts one goroutine per image or QR asset of the scene.
func (r *Renderer) Prepare(ctx context.Context, scene *layout.Scene) layout.Pass {
	ctx, cancel := context.WithCancel(ctx)
	p := &pass{
		r:       r,
		scene:   scene,
		settled: make(chan struct{}),
		assets:  make(map[string]image.Image),
		errs:    make(map[string]error),
		cancel:  cancel,
	}

	var wg sync.WaitGroup
	seen := make(map[string]bool)
	for _, e := range layout.Assets(scene.Decorations) {
		key := assetKey(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		wg.Add(1)
		go func(e layout.Element) {
			defer wg.Done()
			img, err := loadAsset(ctx, e)
			p.mu.Lock()
			defer p.mu.Unlock()
			if err != nil {
				p.errs[key] = err
				return
			}
			p.assets[key] = img
		}(e)
	}
	go func() {
		wg.Wait()
		close(p.settled)
	}()
	return p
}

func assetKey(e layout.Element) string {
	if e.Kind == layout.KindQR {
		return "qr:" + e.Content
	}
	return "img:" + e.Src
}

func loadAsset(ctx context.Context, e layout.Element) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch e.Kind {
	case layout.KindQR:
		q, err := qrcode.New(e.Content, qrcode.Medium)
		if err != nil {
			return nil, fmt.Errorf("qr %q: %w", e.Content, err)
		}
		q.DisableBorder = true
		return q.Image(qrSourceSize), nil
	default:
		data, err := os.ReadFile(e.Src)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", e.Src, err)
		}
		img, err := imageio.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", e.Src, err)
		}
		return img, nil
	}
}

type pass struct {
	r       *Renderer
	scene   *layout.Scene
	settled chan struct{}
	cancel  context.CancelFunc

	mu     sync.Mutex
	assets map[string]image.Image
	errs   map[string]error
	closed bool
}

func (p *pass) Settled() <-chan struct{} {
	return p.settled
}

func (p *pass) Close() {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.assets = map[string]image.Image{}
}

func (p *pass) asset(key string) (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.errs[key]; ok {
		return nil, err
	}
	return p.assets[key], nil
}

// Render draws the scene. Assets still loading are skipped; assets that
// failed to load fail the render.
func (p *pass) Render(ctx context.Context, pxPerMM float64) (image.Image, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.New("render after close")
	}

	s := p.scene
	if s.DesignW <= 0 || s.DesignH <= 0 || pxPerMM <= 0 {
		return nil, fmt.Errorf("invalid scene size %.1fx%.1fmm at %.2fpx/mm", s.Width, s.Height, pxPerMM)
	}
	w := int(math.Round(s.Width * pxPerMM))
	h := int(math.Round(s.Height * pxPerMM))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", w, h)
	}
	if w*h > maxCanvasPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, w, h)
	}

	d := &drawer{
		dc:    gg.NewContext(w, h),
		faces: p.r.fonts.NewCache(),
		pass:  p,
	}
	defer d.faces.Close()

	d.dc.SetColor(config.ColorOrBlack(s.Background))
	d.dc.Clear()

	root := frame{kx: float64(w) / s.DesignW, ky: float64(h) / s.DesignH, alpha: 1}
	if err := d.elements(ctx, root, s.Decorations); err != nil {
		return nil, err
	}
	for _, v := range s.Slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.slot(root, v); err != nil {
			return nil, fmt.Errorf("slot %d: %w", v.Index, err)
		}
	}
	if s.Frame != nil && s.Frame.Width > 0 {
		d.pageFrame(root, s)
	}

	p.r.logger.Debug("scene rendered", "width_px", w, "height_px", h, "px_per_mm", pxPerMM)
	return d.dc.Image(), nil
}

// frame maps local element coordinates to canvas pixels.
type frame struct {
	ox, oy float64
	kx, ky float64
	alpha  float64
}

func (f frame) x(v float64) float64 { return f.ox + v*f.kx }
func (f frame) y(v float64) float64 { return f.oy + v*f.ky }
func (f frame) k() float64          { return (f.kx + f.ky) / 2 }

func (f frame) rect(r layout.Rect) (x, y, w, h float64) {
	return f.x(r.X), f.y(r.Y), r.W * f.kx, r.H * f.ky
}

func (f frame) child(e layout.Element) frame {
	vw, vh := e.ViewW, e.ViewH
	if vw <= 0 {
		vw = e.W
	}
	if vh <= 0 {
		vh = e.H
	}
	return frame{
		ox:    f.x(e.X),
		oy:    f.y(e.Y),
		kx:    f.kx * e.W / vw,
		ky:    f.ky * e.H / vh,
		alpha: f.alpha * e.Alpha(),
	}
}

type drawer struct {
	dc    *gg.Context
	faces *FaceCache
	pass  *pass
}

func fade(hex string, alpha float64) color.NRGBA {
	c := config.ColorOrBlack(hex)
	c.A = uint8(math.Round(float64(c.A) * alpha))
	return c
}

// paint fills and/or strokes the current path.
func (d *drawer) paint(f frame, fill, stroke string, strokeWidth float64) {
	if fill != "" {
		d.dc.SetColor(fade(fill, f.alpha))
		if stroke != "" {
			d.dc.FillPreserve()
		} else {
			d.dc.Fill()
		}
	}
	if stroke != "" {
		d.dc.SetColor(fade(stroke, f.alpha))
		d.dc.SetLineWidth(max(strokeWidth*f.k(), 1))
		d.dc.Stroke()
	}
}

func (d *drawer) elements(ctx context.Context, f frame, elems []layout.Element) error {
	for _, e := range elems {
		if err := ctx.Err(); err != nil {
			return err
		}
		ef := f
		ef.alpha = f.alpha * e.Alpha()
		switch e.Kind {
		case layout.KindRect:
			x, y, w, h := ef.rect(layout.Rect{X: e.X, Y: e.Y, W: e.W, H: e.H})
			if e.R > 0 {
				d.dc.DrawRoundedRectangle(x, y, w, h, e.R*ef.k())
			} else {
				d.dc.DrawRectangle(x, y, w, h)
			}
			d.paint(ef, e.Fill, e.Stroke, e.StrokeWidth)
		case layout.KindCircle:
			d.dc.DrawEllipse(ef.x(e.X), ef.y(e.Y), e.R*ef.kx, e.R*ef.ky)
			d.paint(ef, e.Fill, e.Stroke, e.StrokeWidth)
		case layout.KindEllipse:
			d.dc.DrawEllipse(ef.x(e.X), ef.y(e.Y), e.RX*ef.kx, e.RY*ef.ky)
			d.paint(ef, e.Fill, e.Stroke, e.StrokeWidth)
		case layout.KindLine:
			d.dc.DrawLine(ef.x(e.X), ef.y(e.Y), ef.x(e.X2), ef.y(e.Y2))
			d.paint(ef, "", firstColor(e.Stroke, e.Fill), e.StrokeWidth)
		case layout.KindCurve:
			d.dc.MoveTo(ef.x(e.X), ef.y(e.Y))
			d.dc.QuadraticTo(ef.x(e.CX), ef.y(e.CY), ef.x(e.X2), ef.y(e.Y2))
			d.paint(ef, "", firstColor(e.Stroke, e.Fill), e.StrokeWidth)
		case layout.KindText:
			if err := d.text(ef, e); err != nil {
				return err
			}
		case layout.KindImage, layout.KindQR:
			if err := d.image(ef, e); err != nil {
				return err
			}
		case layout.KindGroup:
			if err := d.elements(ctx, f.child(e), e.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

func firstColor(colors ...string) string {
	for _, c := range colors {
		if c != "" {
			return c
		}
	}
	return "#000000"
}

func anchorX(anchor string) float64 {
	switch anchor {
	case "middle":
		return 0.5
	case "end":
		return 1
	default:
		return 0
	}
}

func (d *drawer) text(f frame, e layout.Element) error {
	face, err := d.faces.Face(e.Font, e.Size*f.ky)
	if err != nil {
		return err
	}
	d.dc.SetFontFace(face)
	d.dc.SetColor(fade(firstColor(e.Fill), f.alpha))

	lines := []string{e.Text}
	if e.MaxWidth > 0 {
		lines = layout.Wrap(e.Text, e.MaxWidth*f.kx, measurer(face))
	}
	lineHeight := e.LineHeight
	if lineHeight <= 0 {
		lineHeight = e.Size * 1.2
	}
	ay := 0.0
	if e.Baseline == "middle" {
		ay = 0.5
	}
	for i, line := range lines {
		d.dc.DrawStringAnchored(line, f.x(e.X), f.y(e.Y+float64(i)*lineHeight), anchorX(e.Anchor), ay)
	}
	return nil
}

func measurer(face font.Face) func(string) float64 {
	return func(s string) float64 {
		return float64(font.MeasureString(face, s)) / 64
	}
}

func (d *drawer) image(f frame, e layout.Element) error {
	img, err := d.pass.asset(assetKey(e))
	if err != nil {
		return err
	}
	if img == nil {
		// not loaded before the settle deadline
		return nil
	}
	h := e.H
	if e.Kind == layout.KindQR && h <= 0 {
		h = e.W
	}
	x, y, w, hh := f.rect(layout.Rect{X: e.X, Y: e.Y, W: e.W, H: h})
	interp := draw.Interpolator(draw.CatmullRom)
	if e.Kind == layout.KindQR {
		interp = draw.NearestNeighbor
	}
	d.placeImage(img, layout.Rect{X: x, Y: y, W: w, H: hh}, interp, f.alpha)
	return nil
}

// placeImage scales img into dst (canvas pixels) and composites it.
func (d *drawer) placeImage(img image.Image, dst layout.Rect, interp draw.Interpolator, alpha float64) {
	r := image.Rect(
		int(math.Round(dst.X)), int(math.Round(dst.Y)),
		int(math.Round(dst.X+dst.W)), int(math.Round(dst.Y+dst.H)),
	)
	if r.Empty() {
		return
	}
	canvas, ok := d.dc.Image().(*image.RGBA)
	if !ok {
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	interp.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	if alpha >= 1 {
		draw.Draw(canvas, r, scaled, image.Point{}, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))})
	draw.DrawMask(canvas, r, scaled, image.Point{}, mask, image.Point{}, draw.Over)
}

func (d *drawer) slot(f frame, v layout.SlotView) error {
	x, y, w, h := f.rect(v.Box)
	k := f.k()

	if v.Radius > 0 {
		d.dc.DrawRoundedRectangle(x, y, w, h, v.Radius*k)
	} else {
		d.dc.DrawRectangle(x, y, w, h)
	}
	d.paint(f, v.Fill, "", 0)

	inner := v.Box
	if v.Border != nil {
		bw := v.Border.Width
		inner = layout.Rect{X: inner.X + bw, Y: inner.Y + bw, W: inner.W - 2*bw, H: inner.H - 2*bw}
	}
	if v.Photo != nil && !inner.Empty() {
		b := v.Photo.Bounds()
		fx, fy, fw, fh := f.rect(inner)
		fit := layout.FitContain(float64(b.Dx()), float64(b.Dy()), layout.Rect{X: fx, Y: fy, W: fw, H: fh})
		d.placeImage(v.Photo, fit, draw.CatmullRom, 1)
	}
	if v.Border != nil {
		bw := v.Border.Width
		bx, by, bW, bH := f.rect(layout.Rect{X: v.Box.X + bw/2, Y: v.Box.Y + bw/2, W: v.Box.W - bw, H: v.Box.H - bw})
		if v.Radius > 0 {
			d.dc.DrawRoundedRectangle(bx, by, bW, bH, max(v.Radius-bw/2, 0)*k)
		} else {
			d.dc.DrawRectangle(bx, by, bW, bH)
		}
		d.paint(f, "", v.Border.Color, bw)
	}

	if v.Placeholder != nil && v.Placeholder.Text != "" {
		face, err := d.faces.Face(layout.FontBold, v.Placeholder.Size*f.ky)
		if err != nil {
			return err
		}
		d.dc.SetFontFace(face)
		d.dc.SetColor(fade(v.Placeholder.Color, f.alpha))
		d.dc.DrawStringAnchored(v.Placeholder.Text, x+w/2, y+h/2, 0.5, 0.5)
	}

	if v.Caption != nil {
		if err := d.captionBox(f, v.Caption); err != nil {
			return err
		}
	}

	if v.Remove != nil {
		rx, ry, rw, rh := f.rect(v.Remove.Box)
		d.dc.DrawEllipse(rx+rw/2, ry+rh/2, rw/2, rh/2)
		d.paint(f, v.Remove.Color, "", 0)
		face, err := d.faces.Face(layout.FontRegular, rh*0.8)
		if err != nil {
			return err
		}
		d.dc.SetFontFace(face)
		d.dc.SetColor(color.White)
		d.dc.DrawStringAnchored("×", rx+rw/2, ry+rh/2, 0.5, 0.35)
	}
	return nil
}

func (d *drawer) captionBox(f frame, c *layout.CaptionView) error {
	x, y, w, h := f.rect(c.Box)
	k := f.k()
	if c.Radius > 0 {
		d.dc.DrawRoundedRectangle(x, y, w, h, c.Radius*k)
	} else {
		d.dc.DrawRectangle(x, y, w, h)
	}
	stroke, sw := "", 0.0
	if c.Border != nil {
		stroke, sw = c.Border.Color, c.Border.Width
	}
	d.paint(f, "#ffffff", stroke, sw)

	if c.Text == "" || c.Size <= 0 {
		return nil
	}
	face, err := d.faces.Face(layout.FontRegular, c.Size*f.ky)
	if err != nil {
		return err
	}
	d.dc.SetFontFace(face)
	d.dc.SetColor(color.Black)
	lines := layout.Wrap(c.Text, w*0.9, measurer(face))
	lineHeight := c.Size * 1.2 * f.ky
	top := y + h/2 - float64(len(lines)-1)*lineHeight/2
	for i, line := range lines {
		d.dc.DrawStringAnchored(line, x+w/2, top+float64(i)*lineHeight, 0.5, 0.35)
	}
	return nil
}

// pageFrame strokes the page border inside the canvas edge.
func (d *drawer) pageFrame(f frame, s *layout.Scene) {
	bw := s.Frame.Width
	x, y, w, h := f.rect(layout.Rect{X: bw / 2, Y: bw / 2, W: s.DesignW - bw, H: s.DesignH - bw})
	d.dc.DrawRectangle(x, y, w, h)
	d.paint(f, "", s.Frame.Color, bw)
}
