package session

import "errors"

var (
	// ErrNotFound is returned when an operation names an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrCorruptData is returned when the persisted sessions file exists but
	// cannot be decoded.
	ErrCorruptData = errors.New("corrupt session data")

	// ErrIO is returned when the sessions file cannot be read or written.
	ErrIO = errors.New("session storage i/o failure")

	// ErrRelatedNotFound is returned when a session's folder, course or set no
	// longer exists in the catalog.
	ErrRelatedNotFound = errors.New("related data not found")

	// ErrContextExists is returned when a session for the same folder, course
	// and set already exists.
	ErrContextExists = errors.New("session already exists for this context")

	// ErrNoActiveSession is returned by operations that require an active session.
	ErrNoActiveSession = errors.New("no active session")
)
