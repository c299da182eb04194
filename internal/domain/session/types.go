// Package session models study sessions: the persisted context triple a
// student is working in and the state machine selecting the active one.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Context identifies the folder, course and set a session files work under.
type Context struct {
	FolderID uuid.UUID
	CourseID uuid.UUID
	SetID    uuid.UUID
}

// Record is a named, persisted study context.
type Record struct {
	// ID is assigned at creation and never changes.
	ID uuid.UUID
	// Name is the display label, typically "<folder> / <course> / <set>".
	Name string
	// Context is the folder/course/set triple the session targets.
	Context
	// CreatedAt is when the session was created (UTC).
	CreatedAt time.Time
	// LastUsed is the last time the session was started (UTC).
	// Always >= CreatedAt.
	LastUsed time.Time
}

// NewRecord creates a record with a fresh identifier and both timestamps set
// to the current time.
func NewRecord(name string, c Context) Record {
	now := nowUTC()
	return Record{
		ID:        uuid.New(),
		Name:      name,
		Context:   c,
		CreatedAt: now,
		LastUsed:  now,
	}
}

// MarkUsed sets LastUsed to the current time. LastUsed never moves backwards,
// even if the wall clock does.
func (r *Record) MarkUsed() {
	now := nowUTC()
	if !now.After(r.LastUsed) {
		now = r.LastUsed.Add(time.Nanosecond)
	}
	r.LastUsed = now
}

// nowUTC strips the monotonic reading so that values survive a JSON round trip
// unchanged.
func nowUTC() time.Time {
	return time.Now().UTC().Round(0)
}
