// Package tray handles clicks on the system tray menu.
package tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

// Menu item ids.
const (
	ItemStartSession = "start_session"
	ItemEndSession   = "end_session"
	ItemQuit         = "quit"
)

// ErrUnknownItem is returned for menu ids the tray does not define.
var ErrUnknownItem = errors.New("unknown tray menu item")

// Menu dispatches tray menu events.
type Menu struct {
	sessions inbound.SessionCommands
	notifier outbound.Notifier
	events   outbound.EventEmitter
	windows  outbound.WindowManager
	quit     func()
	logger   *slog.Logger
}

// NewMenu creates a tray menu handler. quit is called for the quit item.
func NewMenu(sessions inbound.SessionCommands, notifier outbound.Notifier, events outbound.EventEmitter, windows outbound.WindowManager, quit func(), logger *slog.Logger) *Menu {
	return &Menu{
		sessions: sessions,
		notifier: notifier,
		events:   events,
		windows:  windows,
		quit:     quit,
		logger:   logger,
	}
}

// Items lists the menu ids in display order.
func (m *Menu) Items() []string {
	return []string{ItemStartSession, ItemEndSession, ItemQuit}
}

// HandleEvent runs the action for a menu item id.
func (m *Menu) HandleEvent(ctx context.Context, id string) error {
	switch id {
	case ItemStartSession:
		if err := m.windows.FocusMain(); err != nil {
			m.logger.Warn("failed to focus main window", "error", err)
		}
		m.events.Emit(outbound.EventOpenSessionModal, nil)
		return nil

	case ItemEndSession:
		m.endSession(ctx)
		return nil

	case ItemQuit:
		m.logger.Info("quit requested from tray")
		if m.quit != nil {
			m.quit()
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
}

// endSession never fails towards the tray: write errors are logged and the
// user is still told the session ended, since it has in memory.
func (m *Menu) endSession(ctx context.Context) {
	ended, err := m.sessions.End(ctx)
	if err != nil {
		m.logger.Error("failed to save sessions after ending from tray", "error", err)
	}
	if ended == nil {
		m.notifier.Notify("No Active Session", "There was no active session to end.")
		return
	}
	m.notifier.Notify("Session Ended", "Ended: "+ended.Name)
}
