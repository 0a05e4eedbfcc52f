package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the export profiles",
	Long: `List the export profiles of the embedded profiles file, or of
PANEL_PROFILES_FILE when set. The default profile is marked with *.`,
	Args: cobra.NoArgs,
	RunE: runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	profiles, err := config.LoadProfiles(cfg.Export.ProfilesFile)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPAGE\tDPI\tBACKGROUND DPI\tDESCRIPTION")
	for _, name := range profiles.Names() {
		p, _ := profiles.Get(name)
		marker := " "
		if name == profiles.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%s\t%.0fx%.0fmm\t%.0f\t%.0f\t%s\n",
			marker, name, p.PageWidthMM, p.PageHeightMM, p.DPI, p.BackgroundDPI, p.Description)
	}
	return w.Flush()
}
