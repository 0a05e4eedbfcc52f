// Package pdfdoc implements the single page print document on gopdf.
package pdfdoc

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	captionFamily = "caption"
	producer      = "photo-panel"
)

var ErrNoFont = errors.New("no font selected")

// Options describes the page and its metadata.
type Options struct {
	WidthMM   float64
	HeightMM  float64
	FontTTF   []byte // caption font, Go Regular when empty
	Title     string
	Author    string
	Subject   string
	Creator   string
	CreatedAt time.Time
}

// Writer is one page document measured in millimetres.
type Writer struct {
	pdf     gopdf.GoPdf
	fontSet bool
}

func New(opts Options) (*Writer, error) {
	if opts.WidthMM <= 0 || opts.HeightMM <= 0 {
		return nil, fmt.Errorf("invalid page size %.1fx%.1fmm", opts.WidthMM, opts.HeightMM)
	}
	w := &Writer{}
	w.pdf.Start(gopdf.Config{
		Unit:     gopdf.UnitMM,
		PageSize: gopdf.Rect{W: opts.WidthMM, H: opts.HeightMM},
	})
	w.pdf.SetCompressLevel(6)

	created := opts.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	w.pdf.SetInfo(gopdf.PdfInfo{
		Title:        opts.Title,
		Author:       opts.Author,
		Subject:      opts.Subject,
		Creator:      opts.Creator,
		Producer:     producer,
		CreationDate: created,
	})

	ttf := opts.FontTTF
	if len(ttf) == 0 {
		ttf = goregular.TTF
	}
	if err := w.pdf.AddTTFFontData(captionFamily, ttf); err != nil {
		return nil, fmt.Errorf("failed to load caption font: %w", err)
	}
	w.pdf.AddPage()
	return w, nil
}

func (w *Writer) PlaceImage(data []byte, r layout.Rect) error {
	holder, err := gopdf.ImageHolderByBytes(data)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	return w.pdf.ImageByHolder(holder, r.X, r.Y, &gopdf.Rect{W: r.W, H: r.H})
}

func (w *Writer) FillRect(r layout.Rect, c color.NRGBA) error {
	w.pdf.SetFillColor(c.R, c.G, c.B)
	w.pdf.RectFromUpperLeftWithStyle(r.X, r.Y, r.W, r.H, "F")
	return nil
}

func (w *Writer) StrokeRect(r layout.Rect, lineWidth float64, c color.NRGBA) error {
	w.pdf.SetStrokeColor(c.R, c.G, c.B)
	w.pdf.SetLineWidth(lineWidth)
	w.pdf.RectFromUpperLeftWithStyle(r.X, r.Y, r.W, r.H, "D")
	return nil
}

func (w *Writer) SetFont(sizePt float64, c color.NRGBA) error {
	if err := w.pdf.SetFont(captionFamily, "", sizePt); err != nil {
		return err
	}
	w.pdf.SetTextColor(c.R, c.G, c.B)
	w.fontSet = true
	return nil
}

func (w *Writer) TextWidth(text string) (float64, error) {
	if !w.fontSet {
		return 0, ErrNoFont
	}
	return w.pdf.MeasureTextWidth(text)
}

func (w *Writer) DrawText(text string, x, baselineY float64) error {
	if !w.fontSet {
		return ErrNoFont
	}
	w.pdf.SetXY(x, baselineY)
	return w.pdf.Text(text)
}

func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	return w.pdf.WriteTo(out)
}
