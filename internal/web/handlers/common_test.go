package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-panel/internal/panel"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", rec.Body.String(), err)
	}
}

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]any{"count": 7})

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
	var result map[string]any
	decodeBody(t, recorder, &result)
	if result["count"] != float64(7) {
		t.Errorf("expected count 7, got %v", result["count"])
	}

	empty := httptest.NewRecorder()
	respondJSON(empty, http.StatusNoContent, nil)
	if empty.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", empty.Body.String())
	}
}

func TestRespondPanelError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{panel.ErrControlsLocked, http.StatusLocked},
		{fmt.Errorf("wrapped: %w", panel.ErrControlsLocked), http.StatusLocked},
		{panel.ErrSlotOutOfRange, http.StatusBadRequest},
		{panel.ErrResetNotConfirmed, http.StatusBadRequest},
		{panel.ErrEmptyPhoto, http.StatusBadRequest},
		{errors.New("disk"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondPanelError(recorder, tc.err)
			if recorder.Code != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, recorder.Code)
			}
			var result map[string]string
			decodeBody(t, recorder, &result)
			if result["error"] != tc.err.Error() {
				t.Errorf("expected error '%s', got '%s'", tc.err.Error(), result["error"])
			}
		})
	}
}

func TestSlotIndex(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"6", 6, false},
		{"7", 0, true},
		{"-1", 0, true},
		{"three", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"index": tc.raw})
			got, err := slotIndex(req)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("slotIndex(%q) = %d, %v", tc.raw, got, err)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\r\nb\nc"); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	var result map[string]string
	decodeBody(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}
