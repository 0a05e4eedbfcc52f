package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-panel",
	Short: "Compose photo panels and export them as print-ready PDFs",
	Long: `Photo Panel fills a fixed poster template with up to seven photos and
captions and exports it as a single-page PDF sized for print (A2 by default).

Use "export" for one-shot exports from the command line or "serve" for the
browser-based operator panel.`,
	SilenceUsage: true,
}

// NewRootCmd returns the command tree.
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
