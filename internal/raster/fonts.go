package raster

import (
	"fmt"
	"math"
	"os"

	"github.com/kozaktomas/photo-panel/internal/layout"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontManager holds the parsed font family. Parsed fonts are safe for
// concurrent use; faces are not, so each render gets its own FaceCache.
type FontManager struct {
	regularData []byte
	fonts       map[string]*opentype.Font
}

// NewFontManager parses the Go font family. If customPath names a readable
// TTF it replaces the regular face.
func NewFontManager(customPath string) (*FontManager, error) {
	data := map[string][]byte{
		layout.FontRegular:    goregular.TTF,
		layout.FontBold:       gobold.TTF,
		layout.FontItalic:     goitalic.TTF,
		layout.FontBoldItalic: gobolditalic.TTF,
	}
	if customPath != "" {
		custom, err := os.ReadFile(customPath)
		if err != nil {
			fmt.Printf("Warning: could not load custom font '%s', using default\n", customPath)
		} else {
			data[layout.FontRegular] = custom
		}
	}

	fm := &FontManager{regularData: data[layout.FontRegular], fonts: make(map[string]*opentype.Font)}
	for name, ttf := range data {
		parsed, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
		}
		fm.fonts[name] = parsed
	}
	return fm, nil
}

// RegularTTF returns the raw regular font, for embedding in documents.
func (fm *FontManager) RegularTTF() []byte {
	return fm.regularData
}

func (fm *FontManager) NewCache() *FaceCache {
	return &FaceCache{fm: fm, faces: make(map[faceKey]font.Face)}
}

type faceKey struct {
	name string
	size int // hundredths of a pixel
}

// FaceCache creates faces on demand. Not safe for concurrent use.
type FaceCache struct {
	fm    *FontManager
	faces map[faceKey]font.Face
}

// Face returns the named font at sizePx pixels. Unknown names fall back to
// the regular face.
func (c *FaceCache) Face(name string, sizePx float64) (font.Face, error) {
	if _, ok := c.fm.fonts[name]; !ok {
		name = layout.FontRegular
	}
	if sizePx < 1 {
		sizePx = 1
	}
	key := faceKey{name: name, size: int(math.Round(sizePx * 100))}
	if face, ok := c.faces[key]; ok {
		return face, nil
	}

	face, err := opentype.NewFace(c.fm.fonts[name], &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	c.faces[key] = face
	return face, nil
}

// Close releases every cached face.
func (c *FaceCache) Close() {
	for k, face := range c.faces {
		face.Close()
		delete(c.faces, k)
	}
}
