// Package state persists the session store to a JSON file on disk.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the sessions.json format written by this build.
const CurrentVersion = 1

// SessionFile is the root structure of sessions.json.
type SessionFile struct {
	// Version is the file format version. Absent in files written before
	// versioning was introduced; those are read as version 1.
	Version int `json:"version"`
	// Sessions lists every session in creation order.
	Sessions []SessionEntry `json:"sessions"`
	// ActiveSessionID is the currently active session, or null.
	ActiveSessionID uuid.NullUUID `json:"active_session_id"`
}

// SessionEntry is a persisted session record.
type SessionEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FolderID  uuid.UUID `json:"folder_id"`
	CourseID  uuid.UUID `json:"course_id"`
	SetID     uuid.UUID `json:"set_id"`
	CreatedAt Timestamp `json:"created_at"`
	LastUsed  Timestamp `json:"last_used"`
}

// fileKeys and entryKeys must appear in every sessions.json. "version" is
// optional for files written before versioning.
var (
	fileKeys  = []string{"sessions", "active_session_id"}
	entryKeys = []string{"id", "name", "folder_id", "course_id", "set_id", "created_at", "last_used"}
)

func (e SessionEntry) validate() error {
	switch {
	case e.ID == uuid.Nil:
		return errors.New("id is nil")
	case e.FolderID == uuid.Nil:
		return errors.New("folder_id is nil")
	case e.CourseID == uuid.Nil:
		return errors.New("course_id is nil")
	case e.SetID == uuid.Nil:
		return errors.New("set_id is nil")
	case e.CreatedAt.Time().IsZero():
		return errors.New("created_at is empty")
	case e.LastUsed.Time().IsZero():
		return errors.New("last_used is empty")
	}
	return nil
}

// legacyLayout is the zone-less layout used by files from the earlier
// desktop build, e.g. "2024-03-09 14:02:11.482913".
const legacyLayout = "2006-01-02 15:04:05.999999999"

// Timestamp is a UTC instant written as RFC 3339 with nanoseconds.
// On read it also accepts the legacy zone-less layout, interpreted as UTC.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var legacyErr error
		parsed, legacyErr = time.ParseInLocation(legacyLayout, s, time.UTC)
		if legacyErr != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	*t = Timestamp(parsed.UTC())
	return nil
}

// Time returns the timestamp as a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
