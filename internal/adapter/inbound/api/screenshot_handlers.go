package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/plutodesk/plutodesk/internal/port/inbound"
)

func (h *Handler) handleSaveScreenshot(w http.ResponseWriter, r *http.Request) {
	if h.screenshots == nil {
		h.respondError(w, http.StatusServiceUnavailable, "screenshot capture not configured")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
			return
		}
		h.respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	if len(data) == 0 {
		h.respondError(w, http.StatusBadRequest, "empty image")
		return
	}

	p, err := h.screenshots.SaveScreenshot(r.Context(), inbound.ScreenshotRequest{
		ProblemName: r.URL.Query().Get("name"),
		Image:       data,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, p)
}
