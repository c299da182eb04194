// Package catalog defines the entity persistence port: the user's folders,
// courses, sets and the problems filed under them.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultUserEmail identifies the single local user on this machine.
const DefaultUserEmail = "local@plutodesk.local"

// DefaultUserName is the display name of the local user.
const DefaultUserName = "Local User"

// ErrNotFound is returned when a folder, course, set or problem id is unknown.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is a folder, course or set.
type Entry struct {
	ID uuid.UUID `json:"id"`
	// ParentID is the owning user (folders), folder (courses) or course (sets).
	ParentID uuid.UUID `json:"parent_id"`
	Name     string    `json:"name"`
	// SortOrder is one past the highest sibling at creation time, starting at 0.
	SortOrder int `json:"sort_order"`
}

// Problem is a captured screenshot filed under a set.
type Problem struct {
	ID    uuid.UUID `json:"id"`
	SetID uuid.UUID `json:"set_id"`
	Title string    `json:"title"`
	// ImagePath is relative to the screenshots directory.
	ImagePath       string    `json:"image_path"`
	ConfidenceLevel int       `json:"confidence_level"`
	AttemptCount    int       `json:"attempt_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Catalog stores the folder > course > set > problem hierarchy.
// Implementations: SQLite (prod), in-memory (test).
type Catalog interface {
	// DefaultUser returns the local user's id, creating the user on first use.
	DefaultUser(ctx context.Context) (uuid.UUID, error)

	// FindOrCreateFolder returns the folder named name under userID, creating it if needed.
	FindOrCreateFolder(ctx context.Context, userID uuid.UUID, name string) (Entry, error)

	// FindOrCreateCourse returns the course named name under folderID, creating it if needed.
	FindOrCreateCourse(ctx context.Context, folderID uuid.UUID, name string) (Entry, error)

	// FindOrCreateSet returns the set named name under courseID, creating it if needed.
	FindOrCreateSet(ctx context.Context, courseID uuid.UUID, name string) (Entry, error)

	// Folder returns the folder with the given id or ErrNotFound.
	Folder(ctx context.Context, id uuid.UUID) (Entry, error)

	// Course returns the course with the given id or ErrNotFound.
	Course(ctx context.Context, id uuid.UUID) (Entry, error)

	// Set returns the set with the given id or ErrNotFound.
	Set(ctx context.Context, id uuid.UUID) (Entry, error)

	// CreateProblem files a new problem under setID. Returns ErrNotFound if the set is gone.
	CreateProblem(ctx context.Context, setID uuid.UUID, title, imagePath string) (Problem, error)

	// ProblemsBySet lists problems under setID, oldest first.
	ProblemsBySet(ctx context.Context, setID uuid.UUID) ([]Problem, error)
}
