package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/photo-panel/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	sess := s.session

	// Create handlers
	slotsHandler := handlers.NewSlotsHandler(sess.Panel, sess.Board)
	exportHandler := handlers.NewExportHandler(sess.Exporter, sess.Panel, s.jobManager, sess.Downloads)
	statusHandler := handlers.NewStatusHandler(sess.Board, sess.Exporter, sess.Panel)
	previewHandler := handlers.NewPreviewHandler(sess.Panel, sess.Template, sess.Rasterizer, s.config.Export.PreviewScale)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// SSE streams stay open for the whole export
		r.Get("/export/{jobId}/events", exportHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(time.Minute))

			// Slots
			r.Get("/slots", slotsHandler.List)
			r.Put("/slots/{index}/photo", slotsHandler.UploadPhoto)
			r.Put("/slots/{index}/caption", slotsHandler.SetCaption)
			r.Delete("/slots/{index}", slotsHandler.Clear)
			r.Post("/reset", slotsHandler.Reset)
			r.Get("/photos/{id}/thumb", slotsHandler.Thumbnail)

			// Export
			r.Post("/export", exportHandler.Start)
			r.Get("/export/{jobId}", exportHandler.Status)
			r.Get("/export/{jobId}/download", exportHandler.Download)

			// Status and live preview
			r.Get("/status", statusHandler.Get)
			r.Get("/preview", previewHandler.Get)
		})
	})

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves a placeholder page pointing at the API.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Photo Panel</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #fffbe0; color: #222; }
        .container { text-align: center; }
        img { max-width: 90vw; border: 1px solid #ddd; }
        a { color: #7a6a00; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Photo Panel</h1>
        <p><img src="/api/v1/preview" alt="panel preview"></p>
        <p>API is available at <a href="/api/v1/status">/api/v1/status</a></p>
    </div>
</body>
</html>`))
}
