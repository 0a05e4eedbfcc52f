package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

// ErrUnknownProfile is returned when a profile name is not in the profile set.
var ErrUnknownProfile = errors.New("unknown export profile")

// ExportProfile holds every per-variant constant of the export pipeline:
// physical page size, print densities, caption geometry and enlargement.
type ExportProfile struct {
	Name          string        `yaml:"-"`
	Description   string        `yaml:"description"`
	PageWidthMM   float64       `yaml:"page_width_mm"`
	PageHeightMM  float64       `yaml:"page_height_mm"`
	DPI           float64       `yaml:"dpi"`
	BackgroundDPI float64       `yaml:"background_dpi"`
	SettleTimeout time.Duration `yaml:"settle_timeout"`
	FilePrefix    string        `yaml:"file_prefix"`
	PhotoFill     string        `yaml:"photo_fill"`
	Frame         FrameStyle    `yaml:"frame"`
	Caption       CaptionStyle  `yaml:"caption"`
	Regular       SlotClass     `yaml:"regular"`
	Feature       SlotClass     `yaml:"feature"`
}

// FrameStyle is the page border drawn on top of the background layer.
type FrameStyle struct {
	WidthMM float64 `yaml:"width_mm"`
	Color   string  `yaml:"color"`
}

type CaptionStyle struct {
	FontSizePt   float64 `yaml:"font_size_pt"`
	LineHeightMM float64 `yaml:"line_height_mm"`
	SideMarginMM float64 `yaml:"side_margin_mm"` // subtracted from the photo width before wrapping
	Color        string  `yaml:"color"`
}

// SlotClass groups the values that differ between the feature slot and
// the regular slots.
type SlotClass struct {
	CaptionReserveMM float64 `yaml:"caption_reserve_mm"`
	CaptionMarginMM  float64 `yaml:"caption_margin_mm"`
	CaptionSpacingMM float64 `yaml:"caption_spacing_mm"` // photo bottom edge to first baseline
	Enlargement      float64 `yaml:"enlargement"`        // 0.25 grows both dimensions by 25%
}

// Class returns the slot class for the feature slot or a regular slot.
func (p ExportProfile) Class(feature bool) SlotClass {
	if feature {
		return p.Feature
	}
	return p.Regular
}

// PxPerMM returns the photo buffer density in pixels per millimetre.
func (p ExportProfile) PxPerMM() float64 {
	return p.DPI / 25.4
}

// BackgroundPxPerMM returns the background raster density in pixels per millimetre.
func (p ExportProfile) BackgroundPxPerMM() float64 {
	return p.BackgroundDPI / 25.4
}

// Validate checks that the profile describes a printable page.
func (p ExportProfile) Validate() error {
	if p.PageWidthMM <= 0 || p.PageHeightMM <= 0 {
		return fmt.Errorf("profile %s: page size must be positive, got %.1fx%.1fmm", p.Name, p.PageWidthMM, p.PageHeightMM)
	}
	if p.DPI <= 0 {
		return fmt.Errorf("profile %s: dpi must be positive", p.Name)
	}
	if p.BackgroundDPI < p.DPI {
		return fmt.Errorf("profile %s: background_dpi %.0f is below photo dpi %.0f", p.Name, p.BackgroundDPI, p.DPI)
	}
	if p.SettleTimeout < 0 {
		return fmt.Errorf("profile %s: settle_timeout must not be negative", p.Name)
	}
	if p.Caption.FontSizePt <= 0 || p.Caption.LineHeightMM <= 0 {
		return fmt.Errorf("profile %s: caption font size and line height must be positive", p.Name)
	}
	if p.Caption.SideMarginMM < 0 || p.Frame.WidthMM < 0 {
		return fmt.Errorf("profile %s: margins must not be negative", p.Name)
	}
	for name, c := range map[string]SlotClass{"regular": p.Regular, "feature": p.Feature} {
		if c.CaptionReserveMM < 0 || c.CaptionMarginMM < 0 || c.CaptionSpacingMM < 0 || c.Enlargement < 0 {
			return fmt.Errorf("profile %s: %s slot values must not be negative", p.Name, name)
		}
	}
	if p.Feature.CaptionReserveMM < p.Regular.CaptionReserveMM || p.Feature.Enlargement < p.Regular.Enlargement {
		return fmt.Errorf("profile %s: feature slot reservation and enlargement must be at least the regular values", p.Name)
	}
	for _, c := range []string{p.PhotoFill, p.Frame.Color, p.Caption.Color} {
		if _, err := ParseColor(c); err != nil {
			return fmt.Errorf("profile %s: %w", p.Name, err)
		}
	}
	return nil
}

// Profiles is the set of export profiles loaded from YAML.
type Profiles struct {
	Default  string                   `yaml:"default"`
	Profiles map[string]ExportProfile `yaml:"profiles"`
}

// LoadProfiles decodes the profile set from path, or the embedded
// profiles.yaml when path is empty. Every profile is validated.
func LoadProfiles(path string) (*Profiles, error) {
	data := profilesYAML
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading profiles: %w", err)
		}
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates a YAML profile set.
func ParseProfiles(data []byte) (*Profiles, error) {
	var set Profiles
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if len(set.Profiles) == 0 {
		return nil, errors.New("parsing profiles: no profiles defined")
	}
	for name, p := range set.Profiles {
		p.Name = name
		if p.SettleTimeout == 0 {
			p.SettleTimeout = 500 * time.Millisecond
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		set.Profiles[name] = p
	}
	if _, ok := set.Profiles[set.Default]; !ok {
		return nil, fmt.Errorf("parsing profiles: default %q: %w", set.Default, ErrUnknownProfile)
	}
	return &set, nil
}

// Get returns the named profile. An empty name selects the default.
func (s *Profiles) Get(name string) (ExportProfile, error) {
	if name == "" {
		name = s.Default
	}
	p, ok := s.Profiles[name]
	if !ok {
		return ExportProfile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (s *Profiles) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
