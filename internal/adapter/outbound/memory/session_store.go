// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"fmt"
	"sync"

	"github.com/plutodesk/plutodesk/internal/domain/session"
)

// SessionRepository implements session.Repository by keeping the last saved
// snapshot in memory. Thread-safe. For development/testing only.
type SessionRepository struct {
	mu      sync.Mutex
	snap    session.Snapshot
	saves   int
	saveErr error
}

// NewSessionRepository creates an empty in-memory session repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Load restores a store from the last saved snapshot.
func (r *SessionRepository) Load() (*session.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return session.Restore(copySnapshot(r.snap))
}

// Save stores a copy of snap. Returns the injected error, wrapped in
// session.ErrIO, if one is set.
func (r *SessionRepository) Save(snap session.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return fmt.Errorf("%w: %v", session.ErrIO, r.saveErr)
	}
	r.snap = copySnapshot(snap)
	r.saves++
	return nil
}

// FailSaves makes every following Save fail with err. Pass nil to recover.
func (r *SessionRepository) FailSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// Saved returns the last successfully saved snapshot and the number of saves.
func (r *SessionRepository) Saved() (session.Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySnapshot(r.snap), r.saves
}

func copySnapshot(s session.Snapshot) session.Snapshot {
	records := make([]session.Record, len(s.Records))
	copy(records, s.Records)
	return session.Snapshot{Records: records, Active: s.Active}
}

// Compile-time interface verification.
var _ session.Repository = (*SessionRepository)(nil)
