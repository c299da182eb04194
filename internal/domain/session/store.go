package session

import "github.com/google/uuid"

// Snapshot is a detached copy of the store contents, used for persistence.
type Snapshot struct {
	Records []Record
	Active  uuid.NullUUID
}

// Repository loads and saves the session store.
// This interface is defined in the domain to avoid circular imports.
// Implementations: JSON file (prod), in-memory fakes (test).
type Repository interface {
	// Load reads the persisted store. A missing file yields an empty store.
	// Returns an error wrapping ErrCorruptData or ErrIO on failure.
	Load() (*Store, error)

	// Save writes the snapshot, replacing any previous contents.
	// Returns an error wrapping ErrIO on failure.
	Save(snap Snapshot) error
}

// SharedRepository is a Repository that other processes may write too.
// A caller that holds Lock across load, change and save cannot overwrite
// another writer's changes.
type SharedRepository interface {
	Repository

	// Lock takes the cross-process lock and returns the function releasing
	// it. While held, only the holder may call Save.
	// Returns an error wrapping ErrIO on failure.
	Lock() (unlock func(), err error)

	// Modified reports whether the stored contents differ from what this
	// repository last loaded or saved.
	Modified() bool
}
