package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
)

// recordDTO is the JSON shape of an unresolved session record.
type recordDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FolderID  uuid.UUID `json:"folder_id"`
	CourseID  uuid.UUID `json:"course_id"`
	SetID     uuid.UUID `json:"set_id"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

func toRecordDTO(r *session.Record) *recordDTO {
	if r == nil {
		return nil
	}
	return &recordDTO{
		ID:        r.ID,
		Name:      r.Name,
		FolderID:  r.FolderID,
		CourseID:  r.CourseID,
		SetID:     r.SetID,
		CreatedAt: r.CreatedAt,
		LastUsed:  r.LastUsed,
	}
}

// EndResponse is the body of POST /api/sessions/end.
type EndResponse struct {
	Ended *recordDTO `json:"ended"`
}

// etagFor returns a strong validator for a response body.
func etagFor(body []byte) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%016x", xxhash.Sum64(body)))
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	views, err := h.sessions.List(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(views)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to encode sessions")
		return
	}
	etag := etagFor(body)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Active(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req inbound.CreateRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := h.sessions.CreateAndStart(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := h.sessions.Start(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	ended, err := h.sessions.End(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, EndResponse{Ended: toRecordDTO(ended)})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
