// Package hotkey handles the global screenshot shortcut.
package hotkey

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

// State is the key transition reported by the shortcut backend.
type State int

const (
	Pressed State = iota
	Released
)

func (s State) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// ParseState maps "pressed" and "released" to a State.
func ParseState(s string) (State, bool) {
	switch s {
	case "pressed":
		return Pressed, true
	case "released":
		return Released, true
	default:
		return 0, false
	}
}

// Outcome reports what a key press did.
type Outcome string

const (
	OutcomeIgnored       Outcome = "ignored"
	OutcomeNoUI          Outcome = "no_ui"
	OutcomeNoSession     Outcome = "no_session"
	OutcomeOverlayOpened Outcome = "overlay_opened"
)

// Handler opens the screenshot overlay for the active session. With no
// window visible a press only notifies, even if the overlay flag is set.
// Otherwise presses that arrive while the overlay is open are ignored until
// OverlayClosed.
type Handler struct {
	sessions inbound.SessionCommands
	notifier outbound.Notifier
	events   outbound.EventEmitter
	windows  outbound.WindowManager
	logger   *slog.Logger

	overlayOpen atomic.Bool
}

// NewHandler creates a hotkey handler.
func NewHandler(sessions inbound.SessionCommands, notifier outbound.Notifier, events outbound.EventEmitter, windows outbound.WindowManager, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		notifier: notifier,
		events:   events,
		windows:  windows,
		logger:   logger,
	}
}

// Handle processes one key transition. Only presses act.
func (h *Handler) Handle(ctx context.Context, state State) (Outcome, error) {
	if state != Pressed {
		return OutcomeIgnored, nil
	}
	if !h.windows.AnyVisible() {
		h.notifier.Notify("PlutoDesk", "Open PlutoDesk to capture screenshots.")
		return OutcomeNoUI, nil
	}
	if !h.overlayOpen.CompareAndSwap(false, true) {
		h.logger.Debug("screenshot overlay already open, ignoring hotkey")
		return OutcomeIgnored, nil
	}

	outcome, err := h.open(ctx)
	if outcome != OutcomeOverlayOpened {
		h.overlayOpen.Store(false)
	}
	return outcome, err
}

func (h *Handler) open(ctx context.Context) (Outcome, error) {
	active, err := h.sessions.Active(ctx)
	if err != nil {
		return OutcomeIgnored, err
	}
	if active == nil {
		h.notifier.Notify("No Active Session", "Start a session before capturing a screenshot.")
		h.events.Emit(outbound.EventOpenSessionModal, nil)
		return OutcomeNoSession, nil
	}

	h.logger.Debug("opening screenshot overlay", "session_id", active.ID)
	h.events.Emit(outbound.EventOpenScreenshotOverlay, active)
	return OutcomeOverlayOpened, nil
}

// OverlayClosed re-arms the hotkey after the overlay window goes away.
func (h *Handler) OverlayClosed() {
	h.overlayOpen.Store(false)
}

// OverlayOpen reports whether the overlay is currently open.
func (h *Handler) OverlayOpen() bool {
	return h.overlayOpen.Load()
}
