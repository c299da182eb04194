package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/plutodesk/plutodesk/internal/adapter/inbound/hotkey"
	"github.com/plutodesk/plutodesk/internal/adapter/inbound/tray"
)

// keepAliveInterval spaces SSE comment lines on idle streams.
const keepAliveInterval = 15 * time.Second

// HotkeyRequest is the body of POST /api/hotkey.
type HotkeyRequest struct {
	State string `json:"state"`
}

// HotkeyResponse reports what a key transition did.
type HotkeyResponse struct {
	Outcome hotkey.Outcome `json:"outcome"`
}

func (h *Handler) handleTrayEvent(w http.ResponseWriter, r *http.Request) {
	if h.tray == nil {
		h.respondError(w, http.StatusServiceUnavailable, "tray not configured")
		return
	}
	if err := h.tray.HandleEvent(r.Context(), r.PathValue("item")); err != nil {
		if errors.Is(err, tray.ErrUnknownItem) {
			h.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHotkey(w http.ResponseWriter, r *http.Request) {
	if h.hotkey == nil {
		h.respondError(w, http.StatusServiceUnavailable, "hotkey not configured")
		return
	}
	var req HotkeyRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	state, ok := hotkey.ParseState(req.State)
	if !ok {
		h.respondError(w, http.StatusBadRequest, `state must be "pressed" or "released"`)
		return
	}

	outcome, err := h.hotkey.Handle(r.Context(), state)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, HotkeyResponse{Outcome: outcome})
}

func (h *Handler) handleOverlayClose(w http.ResponseWriter, r *http.Request) {
	if h.hotkey == nil {
		h.respondError(w, http.StatusServiceUnavailable, "hotkey not configured")
		return
	}
	h.hotkey.OverlayClosed()
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams broker events as Server-Sent Events until the client
// goes away or the server shuts down.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.respondError(w, http.StatusServiceUnavailable, "event stream not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, cancel := h.events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("failed to encode event", "event", ev.Name, "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
			flusher.Flush()
		}
	}
}
