package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-panel/internal/export"
	"github.com/kozaktomas/photo-panel/internal/panel"
)

// ExportHandler starts exports and serves their results.
type ExportHandler struct {
	exporter   *export.Exporter
	panel      *panel.Panel
	jobManager *JobManager
	downloads  *export.MemorySink
}

// NewExportHandler creates a new export handler.
func NewExportHandler(e *export.Exporter, p *panel.Panel, jm *JobManager, downloads *export.MemorySink) *ExportHandler {
	return &ExportHandler{
		exporter:   e,
		panel:      p,
		jobManager: jm,
		downloads:  downloads,
	}
}

// Start starts a new export job.
func (h *ExportHandler) Start(w http.ResponseWriter, r *http.Request) {
	job := &ExportJob{exporter: h.exporter}

	// The export outlives the request, so it does not inherit its context.
	started, err := h.exporter.Start(context.Background(), h.panel, job.Observe)
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, export.ErrNoPhotos):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job.ID = started.ID
	h.jobManager.Register(job)
	log.Printf("Export job %s started", started.ID)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id": started.ID,
		"status": started.Status,
	})
}

// Status returns the state of an export job.
func (h *ExportHandler) Status(w http.ResponseWriter, r *http.Request) {
	job, ok := h.exporter.Job(chi.URLParam(r, "jobId"))
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// Events streams job events via SSE.
func (h *ExportHandler) Events(w http.ResponseWriter, r *http.Request) {
	lookup := func(id string) SSEJob {
		if job := h.jobManager.GetJob(id); job != nil {
			return job
		}
		return nil
	}
	streamSSEEvents(w, r, lookup, func(SSEJob) any {
		job, _ := h.exporter.Job(chi.URLParam(r, "jobId"))
		return job
	})
}

// Download serves the document of a finished job.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	job, ok := h.exporter.Job(chi.URLParam(r, "jobId"))
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != export.StatusDone {
		respondError(w, http.StatusConflict, fmt.Sprintf("job is %s", job.Status))
		return
	}
	data, ok := h.downloads.Get(job.FileName)
	if !ok {
		respondError(w, http.StatusGone, "document no longer available")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
