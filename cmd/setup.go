package cmd

import (
	"fmt"
	"time"

	"github.com/kozaktomas/photo-panel/internal/compose"
	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/kozaktomas/photo-panel/internal/pdfdoc"
	"github.com/kozaktomas/photo-panel/internal/raster"
)

// stack is the template, profile and renderer shared by export and serve.
type stack struct {
	template *layout.Template
	profile  config.ExportProfile
	fonts    *raster.FontManager
	renderer *raster.Renderer
}

// loadStack resolves the configured template, profile and fonts. A non-empty
// profileName overrides PANEL_PROFILE.
func loadStack(cfg *config.Config, profileName string) (*stack, error) {
	tmpl, err := layout.Load(cfg.Layout.TemplateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	profiles, err := config.LoadProfiles(cfg.Export.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load export profiles: %w", err)
	}
	if profileName == "" {
		profileName = cfg.Export.Profile
	}
	profile, err := profiles.Get(profileName)
	if err != nil {
		return nil, err
	}

	fonts, err := raster.NewFontManager(cfg.Layout.FontFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	return &stack{
		template: tmpl,
		profile:  profile,
		fonts:    fonts,
		renderer: raster.New(fonts, nil),
	}, nil
}

// newDocument opens an empty PDF page for profile with the caption font
// embedded.
func (s *stack) newDocument(profile config.ExportProfile, createdAt time.Time) (compose.Document, error) {
	doc, err := pdfdoc.New(pdfdoc.Options{
		WidthMM:   profile.PageWidthMM,
		HeightMM:  profile.PageHeightMM,
		FontTTF:   s.fonts.RegularTTF(),
		Title:     s.template.Name,
		Subject:   profile.Description,
		Creator:   "photo-panel " + Version,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
