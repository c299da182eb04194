// Package api serves the localhost JSON and event-stream API used by the UI
// shell, the native tray and hotkey bridges, and the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/plutodesk/plutodesk/internal/adapter/inbound/hotkey"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/desktop"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/screenshots"
	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/service"
)

// defaultMaxUploadBytes caps screenshot uploads when no limit is configured.
const defaultMaxUploadBytes = 20 << 20

// TrayHandler runs tray menu actions.
type TrayHandler interface {
	HandleEvent(ctx context.Context, id string) error
}

// HotkeyHandler reacts to the global screenshot shortcut.
type HotkeyHandler interface {
	Handle(ctx context.Context, state hotkey.State) (hotkey.Outcome, error)
	OverlayClosed()
}

// EventSource hands out event subscriptions.
type EventSource interface {
	Subscribe() (<-chan desktop.Event, func())
}

// Handler provides the /api endpoints.
type Handler struct {
	sessions       inbound.SessionCommands
	screenshots    inbound.ScreenshotSaver
	tray           TrayHandler
	hotkey         HotkeyHandler
	events         EventSource
	maxUploadBytes int64
	logger         *slog.Logger
}

// Option configures a Handler dependency.
type Option func(*Handler)

// WithScreenshotSaver enables POST /api/screenshots.
func WithScreenshotSaver(s inbound.ScreenshotSaver) Option {
	return func(h *Handler) { h.screenshots = s }
}

// WithTray enables POST /api/tray/{item}.
func WithTray(t TrayHandler) Option {
	return func(h *Handler) { h.tray = t }
}

// WithHotkey enables the hotkey and overlay endpoints.
func WithHotkey(k HotkeyHandler) Option {
	return func(h *Handler) { h.hotkey = k }
}

// WithEventSource enables GET /api/events.
func WithEventSource(s EventSource) Option {
	return func(h *Handler) { h.events = s }
}

// WithMaxUploadBytes sets the screenshot upload limit.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a Handler serving sessions and the given options.
func NewHandler(sessions inbound.SessionCommands, opts ...Option) *Handler {
	h := &Handler{
		sessions:       sessions,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API mux. Every route is restricted to loopback clients.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", h.handleListSessions)
	mux.HandleFunc("GET /api/sessions/active", h.handleActiveSession)
	mux.HandleFunc("POST /api/sessions", h.handleCreateSession)
	mux.HandleFunc("POST /api/sessions/end", h.handleEndSession)
	mux.HandleFunc("POST /api/sessions/{id}/start", h.handleStartSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleDeleteSession)

	mux.HandleFunc("POST /api/screenshots", h.handleSaveScreenshot)

	mux.HandleFunc("POST /api/tray/{item}", h.handleTrayEvent)
	mux.HandleFunc("POST /api/hotkey", h.handleHotkey)
	mux.HandleFunc("POST /api/overlay/close", h.handleOverlayClose)
	mux.HandleFunc("GET /api/events", h.handleEvents)

	return h.localhostOnly(mux)
}

// isLocalhost checks if the request originates from a loopback address.
// X-Forwarded-For is not trusted.
func isLocalhost(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host == "127.0.0.1" || host == "::1" || host == "localhost"
}

func (h *Handler) localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isLocalhost(r) {
			next.ServeHTTP(w, r)
			return
		}
		h.respondError(w, http.StatusForbidden, "API requires localhost access")
	})
}

// --- JSON helpers ---

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) readJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// respondServiceError maps a service error to a status code.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if errors.Is(err, session.ErrIO) {
		msg = "saved in memory but not on disk: " + msg
	}
	if status >= http.StatusInternalServerError {
		LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.respondError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrRelatedNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrContextExists), errors.Is(err, session.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, screenshots.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
