package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-panel/internal/export"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/spf13/cobra"
)

const lowResProfiles = `default: proof
profiles:
  proof:
    page_width_mm: 594
    page_height_mm: 420
    dpi: 25.4
    background_dpi: 25.4
    file_prefix: Proof
    photo_fill: "#f9f9f9"
    frame: {width_mm: 6, color: "#FFF44F"}
    caption: {font_size_pt: 14, line_height_mm: 6, side_margin_mm: 4, color: "#000000"}
    regular: {caption_reserve_mm: 20, caption_margin_mm: 4, caption_spacing_mm: 8, enlargement: 0.25}
    feature: {caption_reserve_mm: 25, caption_margin_mm: 6, caption_spacing_mm: 10, enlargement: 0.25}
`

func newExportCmd() *cobra.Command {
	c := &cobra.Command{RunE: runExport, SilenceUsage: true, SilenceErrors: true}
	addExportFlags(c)
	return c
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseSlotArg(t *testing.T) {
	tests := []struct {
		arg       string
		wantIndex int
		wantValue string
		wantErr   bool
	}{
		{"1=a.jpg", 0, "a.jpg", false},
		{"4=Family Photo", 3, "Family Photo", false},
		{"7=x=y", 6, "x=y", false},
		{" 2 =", 1, "", false},
		{"0=a.jpg", 0, "", true},
		{"8=a.jpg", 0, "", true},
		{"a.jpg", 0, "", true},
		{"one=a.jpg", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			index, value, err := parseSlotArg(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.arg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if index != tt.wantIndex || value != tt.wantValue {
				t.Errorf("parseSlotArg(%q) = %d, %q", tt.arg, index, value)
			}
		})
	}
}

func TestFillPanel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.jpg")
	if err := os.WriteFile(path, []byte("not really a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := panel.New()
	err := fillPanel(p, []string{"1=" + path}, []string{"1=Team A", "4=Família"})
	if err != nil {
		t.Fatalf("fillPanel: %v", err)
	}
	s, _ := p.Slot(0)
	if s.Photo == nil || s.Photo.Name != "team.jpg" || s.Caption != "Team A" {
		t.Errorf("unexpected slot 1: %+v", s)
	}
	if s, _ := p.Slot(3); s.Photo != nil || s.Caption != "Família" {
		t.Errorf("unexpected slot 4: %+v", s)
	}

	if err := fillPanel(panel.New(), []string{"2=" + filepath.Join(dir, "missing.jpg")}, nil); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestWriteReport(t *testing.T) {
	report := &export.Report{Profile: "a2", PhotoCount: 1, Placed: 1}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeReport(&cobra.Command{}, path, report); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"profile": "a2"`) {
		t.Errorf("unexpected report %s", data)
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := writeReport(cmd, "-", report); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON on stdout, got %q", buf.String())
	}

	if err := writeReport(cmd, "", report); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}

func TestResolveServeHostPort(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		c.Flags().Int("port", 8080, "")
		c.Flags().String("host", "0.0.0.0", "")
		return c
	}

	t.Setenv("WEB_PORT", "")
	t.Setenv("WEB_HOST", "")
	port, host := resolveServeHostPort(newCmd())
	if port != 8080 || host != "0.0.0.0" {
		t.Errorf("expected flag defaults, got %s:%d", host, port)
	}

	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_HOST", "127.0.0.1")
	port, host = resolveServeHostPort(newCmd())
	if port != 9090 || host != "127.0.0.1" {
		t.Errorf("expected env override, got %s:%d", host, port)
	}
}

func TestRunExport_WritesPDF(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PANEL_OUTPUT_DIR", dir)
	t.Setenv("PANEL_PROFILE", "")
	t.Setenv("PANEL_TEMPLATE", "")
	t.Setenv("PANEL_FONT", "")

	photo := filepath.Join(dir, "a.png")
	if err := os.WriteFile(photo, tinyPNG(t), 0o644); err != nil {
		t.Fatal(err)
	}
	profiles := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(profiles, []byte(lowResProfiles), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PANEL_PROFILES_FILE", profiles)

	c := newExportCmd()
	c.SetArgs([]string{"--photo", "1=" + photo, "--caption", "1=Team A", "--report", filepath.Join(dir, "r.json")})
	if err := c.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if len(matches) != 1 {
		t.Fatalf("expected one PDF, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(matches[0]), "Proof_") {
		t.Errorf("unexpected file name %s", matches[0])
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
	if _, err := os.Stat(filepath.Join(dir, "r.json")); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestRunExport_NoPhotos(t *testing.T) {
	t.Setenv("PANEL_PROFILE", "")
	t.Setenv("PANEL_PROFILES_FILE", "")
	t.Setenv("PANEL_TEMPLATE", "")
	c := newExportCmd()
	c.SetArgs([]string{})
	if err := c.Execute(); err != export.ErrNoPhotos {
		t.Errorf("expected ErrNoPhotos, got %v", err)
	}
}
