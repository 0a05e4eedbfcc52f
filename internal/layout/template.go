// Package layout describes the poster template: decorative elements, the
// slot grid and the scenes a rasterizer draws from it.
package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed template.yaml
var templateYAML []byte

// Element kinds understood by the rasterizer.
const (
	KindRect    = "rect"
	KindCircle  = "circle"
	KindEllipse = "ellipse"
	KindLine    = "line"
	KindCurve   = "curve"
	KindText    = "text"
	KindImage   = "image"
	KindQR      = "qr"
	KindGroup   = "group"
)

// Font names map to the Go font family.
const (
	FontRegular    = "regular"
	FontBold       = "bold"
	FontItalic     = "italic"
	FontBoldItalic = "bold_italic"
)

// Element is one decorative item of the template. Coordinates are in the
// units of the enclosing group (millimetres at the top level).
type Element struct {
	Kind        string  `yaml:"kind"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	W           float64 `yaml:"w"`
	H           float64 `yaml:"h"`
	X2          float64 `yaml:"x2"`
	Y2          float64 `yaml:"y2"`
	CX          float64 `yaml:"cx"` // curve control point
	CY          float64 `yaml:"cy"`
	R           float64 `yaml:"r"` // circle radius, rect corner radius
	RX          float64 `yaml:"rx"`
	RY          float64 `yaml:"ry"`
	Fill        string  `yaml:"fill"`
	Stroke      string  `yaml:"stroke"`
	StrokeWidth float64 `yaml:"stroke_width"`
	Opacity     float64 `yaml:"opacity"` // 0 means opaque

	Text       string  `yaml:"text"`
	Size       float64 `yaml:"size"`
	Font       string  `yaml:"font"`
	Anchor     string  `yaml:"anchor"`   // start, middle, end
	Baseline   string  `yaml:"baseline"` // alphabetic (default), middle
	MaxWidth   float64 `yaml:"max_width"`
	LineHeight float64 `yaml:"line_height"`

	Src     string `yaml:"src"`     // image file
	Content string `yaml:"content"` // QR payload

	ViewW    float64   `yaml:"view_w"`
	ViewH    float64   `yaml:"view_h"`
	Children []Element `yaml:"children"`
}

// Alpha returns the element opacity in [0,1].
func (e Element) Alpha() float64 {
	if e.Opacity <= 0 || e.Opacity > 1 {
		return 1
	}
	return e.Opacity
}

type Border struct {
	Width float64 `yaml:"width"`
	Color string  `yaml:"color"`
}

// Cell places one slot in the grid.
type Cell struct {
	Row  int `yaml:"row"`
	Col  int `yaml:"col"`
	Span int `yaml:"span"`
}

type Grid struct {
	X       float64   `yaml:"x"`
	Y       float64   `yaml:"y"`
	W       float64   `yaml:"w"`
	H       float64   `yaml:"h"`
	PadX    float64   `yaml:"pad_x"`
	PadY    float64   `yaml:"pad_y"`
	Gap     float64   `yaml:"gap"`
	Columns int       `yaml:"columns"`
	Rows    []float64 `yaml:"rows"` // fractional row weights
	Cells   []Cell    `yaml:"cells"`
}

// SlotStyle is the live appearance of a slot: photo box, placeholder,
// caption box and remove control.
type SlotStyle struct {
	Fill                 string  `yaml:"fill"`
	BorderWidth          float64 `yaml:"border_width"`
	BorderColor          string  `yaml:"border_color"`
	Radius               float64 `yaml:"radius"`
	Placeholder          string  `yaml:"placeholder"`
	FeaturePlaceholder   string  `yaml:"feature_placeholder"`
	PlaceholderSize      float64 `yaml:"placeholder_size"`
	PlaceholderColor     string  `yaml:"placeholder_color"`
	CaptionHeight        float64 `yaml:"caption_height"`
	CaptionMargin        float64 `yaml:"caption_margin"`
	FeatureCaptionMargin float64 `yaml:"feature_caption_margin"`
	CaptionSize          float64 `yaml:"caption_size"`
	CaptionBorderWidth   float64 `yaml:"caption_border_width"`
	CaptionBorderColor   string  `yaml:"caption_border_color"`
	CaptionRadius        float64 `yaml:"caption_radius"`
	RemoveInset          float64 `yaml:"remove_inset"`
	RemoveSize           float64 `yaml:"remove_size"`
	RemoveColor          string  `yaml:"remove_color"`
}

// Template is the declarative poster layout.
type Template struct {
	Name        string    `yaml:"name"`
	Width       float64   `yaml:"width"`
	Height      float64   `yaml:"height"`
	Background  string    `yaml:"background"`
	Frame       Border    `yaml:"frame"`
	Decorations []Element `yaml:"decorations"`
	Grid        Grid      `yaml:"grid"`
	Slot        SlotStyle `yaml:"slot"`
}

// Default returns the embedded template.
func Default() (*Template, error) {
	return Parse(templateYAML, "")
}

// Load reads a template file, or the embedded template when path is empty.
// Relative image sources resolve against the template's directory.
func Load(path string) (*Template, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes and validates a template. baseDir anchors relative image
// sources; empty leaves them as given.
func Parse(data []byte, baseDir string) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if baseDir != "" {
		resolveSources(t.Decorations, baseDir)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func resolveSources(elems []Element, dir string) {
	for i := range elems {
		if elems[i].Kind == KindImage && elems[i].Src != "" && !filepath.IsAbs(elems[i].Src) {
			elems[i].Src = filepath.Join(dir, elems[i].Src)
		}
		resolveSources(elems[i].Children, dir)
	}
}

// Raw returns the embedded template source.
func Raw() []byte {
	return templateYAML
}

// Validate checks the template for a well-formed seven-slot grid and
// renderable decorations.
func (t *Template) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return errors.New("template: page size must be positive")
	}
	for _, c := range []string{t.Background, t.Slot.Fill, t.Slot.PlaceholderColor} {
		if _, err := config.ParseColor(c); err != nil {
			return fmt.Errorf("template: %w", err)
		}
	}
	if err := t.Grid.validate(); err != nil {
		return fmt.Errorf("template grid: %w", err)
	}
	if err := validateElements(t.Decorations, "decorations"); err != nil {
		return fmt.Errorf("template: %w", err)
	}
	return nil
}

func (g Grid) validate() error {
	if g.W <= 0 || g.H <= 0 {
		return errors.New("size must be positive")
	}
	if g.Columns <= 0 || len(g.Rows) == 0 {
		return errors.New("columns and rows are required")
	}
	if g.columnWidth() <= 0 || g.rowUnit() <= 0 {
		return errors.New("padding and gaps leave no room for cells")
	}
	for _, w := range g.Rows {
		if w <= 0 {
			return errors.New("row weights must be positive")
		}
	}
	if len(g.Cells) != constants.SlotCount {
		return fmt.Errorf("expected %d cells, got %d", constants.SlotCount, len(g.Cells))
	}
	used := make(map[[2]int]int)
	for i, c := range g.Cells {
		span := c.span()
		if c.Row < 0 || c.Row >= len(g.Rows) || c.Col < 0 || c.Col+span > g.Columns {
			return fmt.Errorf("cell %d outside the grid", i)
		}
		for col := c.Col; col < c.Col+span; col++ {
			if other, ok := used[[2]int{c.Row, col}]; ok {
				return fmt.Errorf("cell %d overlaps cell %d", i, other)
			}
			used[[2]int{c.Row, col}] = i
		}
	}
	return nil
}

func validateElements(elems []Element, path string) error {
	for i, e := range elems {
		where := fmt.Sprintf("%s[%d]", path, i)
		switch e.Kind {
		case KindRect, KindCircle, KindEllipse, KindLine, KindCurve:
			if e.Fill == "" && e.Stroke == "" {
				return fmt.Errorf("%s: %s needs a fill or a stroke", where, e.Kind)
			}
		case KindText:
			if e.Size <= 0 {
				return fmt.Errorf("%s: text size must be positive", where)
			}
		case KindImage:
			if e.Src == "" || e.W <= 0 || e.H <= 0 {
				return fmt.Errorf("%s: image needs src and a positive size", where)
			}
		case KindQR:
			if e.Content == "" || e.W <= 0 {
				return fmt.Errorf("%s: qr needs content and a positive size", where)
			}
		case KindGroup:
			if e.W <= 0 || e.H <= 0 {
				return fmt.Errorf("%s: group needs a positive size", where)
			}
			if err := validateElements(e.Children, where); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unknown kind %q", where, e.Kind)
		}
		for _, c := range []string{e.Fill, e.Stroke} {
			if c == "" {
				continue
			}
			if _, err := config.ParseColor(c); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
	}
	return nil
}

// Assets returns every element that needs loading before it can be drawn
// (images and QR codes), including those nested in groups.
func Assets(elems []Element) []Element {
	var out []Element
	for _, e := range elems {
		switch e.Kind {
		case KindImage, KindQR:
			out = append(out, e)
		case KindGroup:
			out = append(out, Assets(e.Children)...)
		}
	}
	return out
}
