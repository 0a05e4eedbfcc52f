package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/imageio"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/kozaktomas/photo-panel/internal/status"
)

const (
	defaultThumbSize = 512
	maxThumbSize     = 2048
)

// SlotsHandler handles the operator's slot edits.
type SlotsHandler struct {
	panel  *panel.Panel
	status status.Notifier
}

// NewSlotsHandler creates a new slots handler.
func NewSlotsHandler(p *panel.Panel, n status.Notifier) *SlotsHandler {
	return &SlotsHandler{panel: p, status: n}
}

// SlotResponse is one slot in API responses.
type SlotResponse struct {
	Index    int          `json:"index"`
	Feature  bool         `json:"feature"`
	Photo    *panel.Photo `json:"photo,omitempty"`
	Caption  string       `json:"caption"`
	ThumbURL string       `json:"thumb_url,omitempty"`
}

func slotResponse(s panel.Slot) SlotResponse {
	resp := SlotResponse{Index: s.Index, Feature: s.IsFeature(), Photo: s.Photo, Caption: s.Caption}
	if s.Photo != nil {
		resp.ThumbURL = "/api/v1/photos/" + s.Photo.ID + "/thumb"
	}
	return resp
}

// List returns all slots.
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.panel.Snapshot()
	slots := make([]SlotResponse, 0, constants.SlotCount)
	for _, s := range snap.Slots {
		slots = append(slots, slotResponse(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"slots":           slots,
		"controls_hidden": h.panel.ControlsHidden(),
	})
}

// UploadPhoto assigns the multipart "file" to a slot, replacing any photo
// already there.
func (h *SlotsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	photo, err := panel.NewPhoto(header.Filename, raw)
	if err != nil {
		respondPanelError(w, err)
		return
	}
	if err := h.panel.AssignPhoto(index, photo); err != nil {
		respondPanelError(w, err)
		return
	}

	log.Printf("Photo %s assigned to slot %d", sanitizeForLog(header.Filename), index)
	h.status.OK(status.MsgPhotoAdded)
	slot, _ := h.panel.Slot(index)
	respondJSON(w, http.StatusOK, slotResponse(slot))
}

// CaptionRequest is the body of a caption update.
type CaptionRequest struct {
	Caption string `json:"caption"`
}

// SetCaption replaces the caption of a slot.
func (h *SlotsHandler) SetCaption(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req CaptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.panel.SetCaption(index, req.Caption); err != nil {
		respondPanelError(w, err)
		return
	}
	slot, _ := h.panel.Slot(index)
	respondJSON(w, http.StatusOK, slotResponse(slot))
}

// Clear removes the photo and caption of a slot.
func (h *SlotsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.panel.ClearSlot(index); err != nil {
		respondPanelError(w, err)
		return
	}
	slot, _ := h.panel.Slot(index)
	respondJSON(w, http.StatusOK, slotResponse(slot))
}

// ResetRequest is the body of a reset; Confirm must be true.
type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

// Reset clears every slot.
func (h *SlotsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.panel.Reset(req.Confirm); err != nil {
		respondPanelError(w, err)
		return
	}
	log.Println("Panel reset")
	h.status.OK(status.MsgPanelCleared)
	respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// Thumbnail serves a downscaled PNG of a photo, ?size= bounds the long side.
func (h *SlotsHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	photo, ok := h.panel.PhotoByID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}

	size := defaultThumbSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxThumbSize {
			respondError(w, http.StatusBadRequest, "invalid size")
			return
		}
		size = n
	}

	img, err := imageio.Decode(photo.Raw)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	data, err := imageio.EncodePNG(imageio.Thumbnail(img, size))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
