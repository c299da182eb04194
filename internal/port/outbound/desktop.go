// Package outbound defines the ports the session core uses to reach the
// desktop shell.
package outbound

// Event names emitted to the UI.
const (
	EventSessionStateChanged   = "session-state-changed"
	EventOpenSessionModal      = "open-session-modal"
	EventOpenScreenshotOverlay = "open-screenshot-overlay"
	EventProblemSaved          = "problem-saved"
	EventNotification          = "notification"
)

// Notifier shows a system notification.
type Notifier interface {
	Notify(title, body string)
}

// EventEmitter delivers named events to UI windows. Emit must not block.
type EventEmitter interface {
	Emit(name string, payload any)
}

// WindowManager reports on and controls the main UI window.
type WindowManager interface {
	// AnyVisible reports whether any UI window is showing.
	AnyVisible() bool
	// FocusMain shows and focuses the main window.
	FocusMain() error
}
