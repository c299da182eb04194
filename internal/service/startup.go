package service

import (
	"errors"
	"log/slog"

	"github.com/plutodesk/plutodesk/internal/domain/session"
)

// quarantiner is implemented by repositories that can move an unreadable
// file aside.
type quarantiner interface {
	Quarantine() (string, error)
}

// OpenSessionStore loads the session store for startup. It never fails:
// corrupt data is moved aside (when the repository supports it) and an
// unreadable file is skipped, both logged as warnings, and an empty store is
// returned in their place.
func OpenSessionStore(repo session.Repository, logger *slog.Logger) *session.Store {
	store, err := repo.Load()
	if err == nil {
		logger.Info("sessions loaded", "count", store.Len(), "active", store.ActiveID().Valid)
		return store
	}

	switch {
	case errors.Is(err, session.ErrCorruptData):
		attrs := []any{"error", err}
		if q, ok := repo.(quarantiner); ok {
			if dest, qErr := q.Quarantine(); qErr != nil {
				attrs = append(attrs, "quarantine_error", qErr)
			} else {
				attrs = append(attrs, "moved_to", dest)
			}
		}
		logger.Warn("sessions file is corrupt, starting with no sessions", attrs...)
	default:
		logger.Warn("sessions file could not be read, starting with no sessions", "error", err)
	}
	return session.NewStore()
}
