package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plutodesk/plutodesk/internal/domain/catalog"
)

// Catalog implements catalog.Catalog with in-memory maps.
// Thread-safe for concurrent access via sync.RWMutex.
// Entries are returned by value so callers cannot mutate stored data.
type Catalog struct {
	mu       sync.RWMutex
	userID   uuid.UUID
	folders  map[uuid.UUID]catalog.Entry
	courses  map[uuid.UUID]catalog.Entry
	sets     map[uuid.UUID]catalog.Entry
	problems map[uuid.UUID][]catalog.Problem
}

// NewCatalog creates an empty in-memory catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		folders:  make(map[uuid.UUID]catalog.Entry),
		courses:  make(map[uuid.UUID]catalog.Entry),
		sets:     make(map[uuid.UUID]catalog.Entry),
		problems: make(map[uuid.UUID][]catalog.Problem),
	}
}

// DefaultUser returns the local user id, assigning one on first use.
func (c *Catalog) DefaultUser(ctx context.Context) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.userID == uuid.Nil {
		c.userID = uuid.New()
	}
	return c.userID, nil
}

// FindOrCreateFolder returns the folder named name under userID, creating it if needed.
func (c *Catalog) FindOrCreateFolder(ctx context.Context, userID uuid.UUID, name string) (catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return findOrCreate(c.folders, userID, name), nil
}

// FindOrCreateCourse returns the course named name under folderID.
// Returns catalog.ErrNotFound if the folder does not exist.
func (c *Catalog) FindOrCreateCourse(ctx context.Context, folderID uuid.UUID, name string) (catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.folders[folderID]; !ok {
		return catalog.Entry{}, fmt.Errorf("%w: folder %s", catalog.ErrNotFound, folderID)
	}
	return findOrCreate(c.courses, folderID, name), nil
}

// FindOrCreateSet returns the set named name under courseID.
// Returns catalog.ErrNotFound if the course does not exist.
func (c *Catalog) FindOrCreateSet(ctx context.Context, courseID uuid.UUID, name string) (catalog.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.courses[courseID]; !ok {
		return catalog.Entry{}, fmt.Errorf("%w: course %s", catalog.ErrNotFound, courseID)
	}
	return findOrCreate(c.sets, courseID, name), nil
}

// Folder returns the folder with the given id.
func (c *Catalog) Folder(ctx context.Context, id uuid.UUID) (catalog.Entry, error) {
	return c.get(c.folders, "folder", id)
}

// Course returns the course with the given id.
func (c *Catalog) Course(ctx context.Context, id uuid.UUID) (catalog.Entry, error) {
	return c.get(c.courses, "course", id)
}

// Set returns the set with the given id.
func (c *Catalog) Set(ctx context.Context, id uuid.UUID) (catalog.Entry, error) {
	return c.get(c.sets, "set", id)
}

// CreateProblem files a new problem under setID.
func (c *Catalog) CreateProblem(ctx context.Context, setID uuid.UUID, title, imagePath string) (catalog.Problem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sets[setID]; !ok {
		return catalog.Problem{}, fmt.Errorf("%w: set %s", catalog.ErrNotFound, setID)
	}
	p := catalog.Problem{
		ID:        uuid.New(),
		SetID:     setID,
		Title:     title,
		ImagePath: imagePath,
		CreatedAt: time.Now().UTC().Round(0),
	}
	c.problems[setID] = append(c.problems[setID], p)
	return p, nil
}

// ProblemsBySet lists problems under setID, oldest first.
func (c *Catalog) ProblemsBySet(ctx context.Context, setID uuid.UUID) ([]catalog.Problem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]catalog.Problem, len(c.problems[setID]))
	copy(result, c.problems[setID])
	return result, nil
}

// DeleteFolder removes a folder and everything under it.
func (c *Catalog) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.folders[id]; !ok {
		return fmt.Errorf("%w: folder %s", catalog.ErrNotFound, id)
	}
	delete(c.folders, id)
	for cid, course := range c.courses {
		if course.ParentID == id {
			c.deleteCourseLocked(cid)
		}
	}
	return nil
}

// DeleteSet removes a set and its problems.
func (c *Catalog) DeleteSet(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sets[id]; !ok {
		return fmt.Errorf("%w: set %s", catalog.ErrNotFound, id)
	}
	delete(c.sets, id)
	delete(c.problems, id)
	return nil
}

func (c *Catalog) deleteCourseLocked(id uuid.UUID) {
	delete(c.courses, id)
	for sid, set := range c.sets {
		if set.ParentID == id {
			delete(c.sets, sid)
			delete(c.problems, sid)
		}
	}
}

func (c *Catalog) get(m map[uuid.UUID]catalog.Entry, kind string, id uuid.UUID) (catalog.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := m[id]
	if !ok {
		return catalog.Entry{}, fmt.Errorf("%w: %s %s", catalog.ErrNotFound, kind, id)
	}
	return e, nil
}

// findOrCreate must be called with the write lock held.
func findOrCreate(m map[uuid.UUID]catalog.Entry, parentID uuid.UUID, name string) catalog.Entry {
	next := 0
	for _, e := range m {
		if e.ParentID != parentID {
			continue
		}
		if e.Name == name {
			return e
		}
		if e.SortOrder >= next {
			next = e.SortOrder + 1
		}
	}
	e := catalog.Entry{ID: uuid.New(), ParentID: parentID, Name: name, SortOrder: next}
	m[e.ID] = e
	return e
}

// Compile-time interface verification.
var _ catalog.Catalog = (*Catalog)(nil)
