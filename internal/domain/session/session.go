package session

import (
	"fmt"

	"github.com/google/uuid"
)

// Store holds all sessions in creation order and at most one active session.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	records []Record
	active  uuid.NullUUID
}

// NewStore returns an empty store with no active session.
func NewStore() *Store {
	return &Store{}
}

// Restore rebuilds a store from a snapshot. Duplicate ids and records whose
// LastUsed precedes CreatedAt are rejected with ErrCorruptData. An active id
// that names no record is dropped.
func Restore(snap Snapshot) (*Store, error) {
	seen := make(map[uuid.UUID]struct{}, len(snap.Records))
	records := make([]Record, 0, len(snap.Records))
	for _, r := range snap.Records {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate session id %s", ErrCorruptData, r.ID)
		}
		if r.LastUsed.Before(r.CreatedAt) {
			return nil, fmt.Errorf("%w: session %s last used before it was created", ErrCorruptData, r.ID)
		}
		seen[r.ID] = struct{}{}
		records = append(records, r)
	}

	s := &Store{records: records}
	if snap.Active.Valid {
		if _, ok := seen[snap.Active.UUID]; ok {
			s.active = snap.Active
		}
	}
	return s, nil
}

// Create appends a new session and, if startNow is set, makes it active.
// Duplicate contexts are allowed here; callers that forbid them check
// ExistsForContext first.
func (s *Store) Create(name string, c Context, startNow bool) Record {
	r := NewRecord(name, c)
	s.records = append(s.records, r)
	if startNow {
		s.active = uuid.NullUUID{UUID: r.ID, Valid: true}
	}
	return r
}

// Start makes the session with the given id active and marks it used.
// Returns ErrNotFound, leaving the store untouched, if the id is unknown.
func (s *Store) Start(id uuid.UUID) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: session with id %s", ErrNotFound, id)
	}
	s.records[i].MarkUsed()
	s.active = uuid.NullUUID{UUID: id, Valid: true}
	return nil
}

// End clears the active session. It returns the session that was active, if any.
// Ending with no active session is a no-op.
func (s *Store) End() (Record, bool) {
	ended, ok := s.Active()
	s.active = uuid.NullUUID{}
	return ended, ok
}

// Delete removes the session with the given id, clearing the active session
// if it was the one removed. Returns ErrNotFound if the id is unknown.
func (s *Store) Delete(id uuid.UUID) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: session with id %s", ErrNotFound, id)
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	if s.active.Valid && s.active.UUID == id {
		s.active = uuid.NullUUID{}
	}
	return nil
}

// Active returns the active session. The second result is false when no
// session is active or the active id no longer names a record.
func (s *Store) Active() (Record, bool) {
	if !s.active.Valid {
		return Record{}, false
	}
	return s.Get(s.active.UUID)
}

// ActiveID returns the raw active pointer.
func (s *Store) ActiveID() uuid.NullUUID {
	return s.active
}

// All returns a copy of every session in creation order. Never nil.
func (s *Store) All() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the session with the given id.
func (s *Store) Get(id uuid.UUID) (Record, bool) {
	i := s.index(id)
	if i < 0 {
		return Record{}, false
	}
	return s.records[i], true
}

// ExistsForContext reports whether any session targets exactly c.
func (s *Store) ExistsForContext(c Context) bool {
	for i := range s.records {
		if s.records[i].Context == c {
			return true
		}
	}
	return false
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	return len(s.records)
}

// Snapshot returns a detached copy of the store contents.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Records: s.All(), Active: s.active}
}

func (s *Store) index(id uuid.UUID) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}
