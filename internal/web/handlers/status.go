package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-panel/internal/export"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/kozaktomas/photo-panel/internal/status"
)

// StatusHandler reports the operator status line and the export state.
type StatusHandler struct {
	board    *status.Board
	exporter *export.Exporter
	panel    *panel.Panel
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(b *status.Board, e *export.Exporter, p *panel.Panel) *StatusHandler {
	return &StatusHandler{board: b, exporter: e, panel: p}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Message        *status.Message `json:"message,omitempty"`
	Export         export.Status   `json:"export"`
	ControlsHidden bool            `json:"controls_hidden"`
	Photos         int             `json:"photos"`
	LastJob        *export.Job     `json:"last_job,omitempty"`
}

// Get returns the current status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Export:         h.exporter.Status(),
		ControlsHidden: h.panel.ControlsHidden(),
		Photos:         h.panel.Snapshot().PhotoCount(),
	}
	if msg, ok := h.board.Current(); ok {
		resp.Message = &msg
	}
	if job, ok := h.exporter.LastJob(); ok {
		resp.LastJob = &job
	}
	respondJSON(w, http.StatusOK, resp)
}
