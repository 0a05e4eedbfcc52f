package handlers

import (
	"context"
	"image"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/photo-panel/internal/imageio"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/kozaktomas/photo-panel/internal/panel"
)

const (
	previewThumbSize  = 1024
	maxPreviewScale   = 8.0
	previewSettleWait = 2 * time.Second
)

// PreviewHandler renders the operator surface as PNG.
type PreviewHandler struct {
	panel      *panel.Panel
	template   *layout.Template
	rasterizer layout.Rasterizer
	scale      float64

	mu     sync.Mutex
	thumbs map[string]image.Image
}

// NewPreviewHandler creates a new preview handler rendering at scale px per mm.
func NewPreviewHandler(p *panel.Panel, tmpl *layout.Template, r layout.Rasterizer, scale float64) *PreviewHandler {
	return &PreviewHandler{
		panel:      p,
		template:   tmpl,
		rasterizer: r,
		scale:      scale,
		thumbs:     make(map[string]image.Image),
	}
}

// thumbnail decodes a photo once and keeps a bounded copy.
func (h *PreviewHandler) thumbnail(photo *panel.Photo) image.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	if img, ok := h.thumbs[photo.ID]; ok {
		return img
	}
	img, err := imageio.Decode(photo.Raw)
	if err != nil {
		h.thumbs[photo.ID] = nil
		return nil
	}
	thumb := imageio.Thumbnail(img, previewThumbSize)
	h.thumbs[photo.ID] = thumb
	return thumb
}

// prune drops thumbnails of photos no longer on the panel.
func (h *PreviewHandler) prune(snap panel.Snapshot) {
	live := make(map[string]bool)
	for _, s := range snap.Slots {
		if s.Photo != nil {
			live[s.Photo.ID] = true
		}
	}
	h.mu.Lock()
	for id := range h.thumbs {
		if !live[id] {
			delete(h.thumbs, id)
		}
	}
	h.mu.Unlock()
}

// Get renders the live scene, ?scale= overrides the px per mm.
func (h *PreviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	scale := h.scale
	if raw := r.URL.Query().Get("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > maxPreviewScale {
			respondError(w, http.StatusBadRequest, "invalid scale")
			return
		}
		scale = v
	}

	snap := h.panel.Snapshot()
	h.prune(snap)
	states := snap.States()
	for i, s := range snap.Slots {
		if s.Photo != nil {
			states[i].Photo = h.thumbnail(s.Photo)
		}
	}
	scene := h.template.Scene(states, !h.panel.ControlsHidden())

	ctx, cancel := context.WithTimeout(r.Context(), previewSettleWait)
	defer cancel()
	pass := h.rasterizer.Prepare(ctx, scene)
	defer pass.Close()
	select {
	case <-pass.Settled():
	case <-ctx.Done():
	}

	img, err := pass.Render(r.Context(), scale)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := imageio.EncodePNG(img)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
