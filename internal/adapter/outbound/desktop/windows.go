package desktop

import "github.com/plutodesk/plutodesk/internal/port/outbound"

// focusEvent asks a connected UI to bring its main window forward.
const focusEvent = "focus-main-window"

// HeadlessWindows implements outbound.WindowManager for a UI attached over
// the event stream: a window is visible while it holds a subscription.
type HeadlessWindows struct {
	broker *Broker
}

// NewHeadlessWindows creates a window manager backed by broker subscriptions.
func NewHeadlessWindows(broker *Broker) *HeadlessWindows {
	return &HeadlessWindows{broker: broker}
}

// AnyVisible reports whether any UI is subscribed to events.
func (w *HeadlessWindows) AnyVisible() bool {
	return w.broker.Subscribers() > 0
}

// FocusMain asks connected UIs to focus their main window.
func (w *HeadlessWindows) FocusMain() error {
	w.broker.Emit(focusEvent, nil)
	return nil
}

var _ outbound.WindowManager = (*HeadlessWindows)(nil)
