package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/photo-panel/internal/compose"
	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/imageio"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Show the slot placements of the panel template",
	Long: `Print where each slot's photo lands on the page of the selected profile.
With --preview the empty operator panel is rendered to a PNG file.

Example:
  photo-panel template --profile a3
  photo-panel template --preview panel.png --scale 2`,
	Args: cobra.NoArgs,
	RunE: runTemplate,
}

func init() {
	rootCmd.AddCommand(templateCmd)

	templateCmd.Flags().String("profile", "", "Export profile (default from PANEL_PROFILE or the profiles file)")
	templateCmd.Flags().String("preview", "", "Render the empty panel to this PNG file")
	templateCmd.Flags().Float64("scale", 0, "Preview density in px per mm (default from PANEL_PREVIEW_SCALE)")
	templateCmd.Flags().Bool("controls", false, "Draw remove controls in the preview")
}

func allSlots() []int {
	out := make([]int, constants.SlotCount)
	for i := range out {
		out[i] = i
	}
	return out
}

func runTemplate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	st, err := loadStack(cfg, mustGetString(cmd, "profile"))
	if err != nil {
		return err
	}

	geom := st.template.Layout(0, 0, cfg.Export.PreviewScale)
	rects, err := compose.Resolve(geom, st.profile, allSlots())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Template %s on profile %s (%.0fx%.0fmm)\n\n",
		st.template.Name, st.profile.Name, st.profile.PageWidthMM, st.profile.PageHeightMM)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tX\tY\tWIDTH\tHEIGHT\tPIXELS")
	for _, r := range rects {
		name := fmt.Sprintf("%d", r.Index+1)
		if r.Feature {
			name += " (feature)"
		}
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%dx%d\n",
			name, r.X, r.Y, r.W, r.H,
			int(r.W*st.profile.PxPerMM()+0.5), int(r.H*st.profile.PxPerMM()+0.5))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	path := mustGetString(cmd, "preview")
	if path == "" {
		return nil
	}
	scale := mustGetFloat64(cmd, "scale")
	if scale <= 0 {
		scale = cfg.Export.PreviewScale
	}
	var states [constants.SlotCount]layout.SlotState
	scene := st.template.Scene(states, mustGetBool(cmd, "controls"))
	if err := renderPreview(st.renderer, scene, scale, path); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPreview written to %s\n", path)
	return nil
}

// renderPreview waits for the scene assets before rendering, like an export
// does.
func renderPreview(r layout.Rasterizer, scene *layout.Scene, scale float64, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pass := r.Prepare(ctx, scene)
	defer pass.Close()
	select {
	case <-pass.Settled():
	case <-ctx.Done():
		return fmt.Errorf("template assets did not load: %w", ctx.Err())
	}

	img, err := pass.Render(ctx, scale)
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}
	data, err := imageio.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}
