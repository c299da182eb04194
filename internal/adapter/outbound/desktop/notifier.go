package desktop

import (
	"log/slog"

	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

// Notification is the payload of a notification event.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// LogNotifier logs notifications and forwards them to the UI as events, for
// shells that render notifications themselves.
type LogNotifier struct {
	emitter outbound.EventEmitter
	logger  *slog.Logger
}

// NewLogNotifier creates a notifier. emitter may be nil.
func NewLogNotifier(emitter outbound.EventEmitter, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{emitter: emitter, logger: logger}
}

// Notify implements outbound.Notifier.
func (n *LogNotifier) Notify(title, body string) {
	n.logger.Info("notification", "title", title, "body", body)
	if n.emitter != nil {
		n.emitter.Emit(outbound.EventNotification, Notification{Title: title, Body: body})
	}
}

var _ outbound.Notifier = (*LogNotifier)(nil)
