package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/export"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/kozaktomas/photo-panel/internal/status"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a photo panel as a print-ready PDF",
	Long: `Fill the panel template with photos and captions and write one PDF page.

Slots are numbered 1 to 7 as on the panel, slot 4 is the enlarged feature
slot. Each --photo and --caption takes N=value and may be repeated.

Example:
  photo-panel export --photo 1=team.jpg --caption 1="Team A" --photo 4=family.jpg
  photo-panel export --profile a3 --out ./prints --report report.json --photo 2=a.png`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addExportFlags(exportCmd)
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("photo", nil, "Photo for a slot as N=path (repeatable)")
	cmd.Flags().StringArray("caption", nil, "Caption for a slot as N=text (repeatable)")
	cmd.Flags().String("profile", "", "Export profile (default from PANEL_PROFILE or the profiles file)")
	cmd.Flags().String("out", "", "Output directory (default from PANEL_OUTPUT_DIR)")
	cmd.Flags().String("report", "", "Write the export report as JSON to this file, - for stdout")
}

// parseSlotArg splits "N=value" into a zero-based slot index and the value.
func parseSlotArg(arg string) (int, string, error) {
	num, value, ok := strings.Cut(arg, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid slot argument %q, expected N=value", arg)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 1 || n > constants.SlotCount {
		return 0, "", fmt.Errorf("invalid slot number %q, expected 1-%d", num, constants.SlotCount)
	}
	return n - 1, value, nil
}

// fillPanel assigns the --photo files and --caption texts.
func fillPanel(p *panel.Panel, photos, captions []string) error {
	for _, arg := range photos {
		index, path, err := parseSlotArg(arg)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read photo for slot %d: %w", index+1, err)
		}
		photo, err := panel.NewPhoto(filepath.Base(path), raw)
		if err != nil {
			return fmt.Errorf("slot %d: %w", index+1, err)
		}
		if err := p.AssignPhoto(index, photo); err != nil {
			return err
		}
	}
	for _, arg := range captions {
		index, text, err := parseSlotArg(arg)
		if err != nil {
			return err
		}
		if err := p.SetCaption(index, text); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(cmd *cobra.Command, path string, report *export.Report) error {
	if path == "" || report == nil {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	st, err := loadStack(cfg, mustGetString(cmd, "profile"))
	if err != nil {
		return err
	}

	outDir := mustGetString(cmd, "out")
	if outDir == "" {
		outDir = cfg.Export.OutputDir
	}

	p := panel.New()
	if err := fillPanel(p, mustGetStringArray(cmd, "photo"), mustGetStringArray(cmd, "caption")); err != nil {
		return err
	}
	count := p.Snapshot().PhotoCount()
	if count == 0 {
		return export.ErrNoPhotos
	}

	exporter, err := export.New(export.Options{
		Template:     st.template,
		Profile:      st.profile,
		Rasterizer:   st.renderer,
		NewDocument:  st.newDocument,
		Sink:         export.DirSink{Dir: outDir},
		Notifier:     status.Discard{},
		PreviewScale: cfg.Export.PreviewScale,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Exporting %d photo(s) with profile %s (%.0fx%.0fmm at %.0f dpi)\n\n",
		count, st.profile.Name, st.profile.PageWidthMM, st.profile.PageHeightMM, st.profile.DPI)

	bar := progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Capturing background"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	observe := func(ev export.Event) {
		switch ev.Type {
		case export.EventStatus:
			switch ev.Status {
			case export.StatusPlacingPhotos:
				bar.Describe("Placing photos")
			case export.StatusFinalizing:
				bar.Describe("Finalizing")
			}
		case export.EventSlot:
			bar.Add(1)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	job, err := exporter.Run(ctx, p, observe)
	fmt.Println()
	if job.Report != nil {
		for _, w := range job.Report.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err := writeReport(cmd, mustGetString(cmd, "report"), job.Report); err != nil {
		return err
	}
	fmt.Printf("\nPDF written to %s (%d of %d photos placed)\n", job.Location, job.Report.Placed, count)
	return nil
}
