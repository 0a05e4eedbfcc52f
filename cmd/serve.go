package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/export"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/kozaktomas/photo-panel/internal/status"
	"github.com/kozaktomas/photo-panel/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Panel web server.
The web server provides the operator panel: assign photos to slots, edit
captions, watch the live preview and download the generated PDF.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("profile", "", "Export profile (default from PANEL_PROFILE or the profiles file)")
	serveCmd.Flags().Int("keep", 5, "Number of generated PDFs kept for download")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	st, err := loadStack(cfg, mustGetString(cmd, "profile"))
	if err != nil {
		return err
	}

	board := status.NewBoard()
	downloads := &export.MemorySink{Keep: mustGetInt(cmd, "keep")}
	exporter, err := export.New(export.Options{
		Template:     st.template,
		Profile:      st.profile,
		Rasterizer:   st.renderer,
		NewDocument:  st.newDocument,
		Sink:         downloads,
		Notifier:     board,
		PreviewScale: cfg.Export.PreviewScale,
	})
	if err != nil {
		return err
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, web.Session{
		Panel:      panel.New(),
		Board:      board,
		Exporter:   exporter,
		Downloads:  downloads,
		Template:   st.template,
		Rasterizer: st.renderer,
	}, port, host)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Panel on http://%s:%d (profile %s)\n", host, port, st.profile.Name)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
