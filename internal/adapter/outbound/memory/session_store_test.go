package memory

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/plutodesk/plutodesk/internal/domain/session"
)

func TestSessionRepository_RoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewSessionRepository()

	empty, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("Len() = %d, want 0", empty.Len())
	}

	s := session.NewStore()
	r := s.Create("A", session.Context{FolderID: uuid.New(), CourseID: uuid.New(), SetID: uuid.New()}, true)
	if err := repo.Save(s.Snapshot()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	got, ok := loaded.Active()
	if !ok || got.ID != r.ID {
		t.Errorf("Active() = %v, %v, want %s", got.ID, ok, r.ID)
	}
	if _, saves := repo.Saved(); saves != 1 {
		t.Errorf("saves = %d, want 1", saves)
	}
}

func TestSessionRepository_FailSaves(t *testing.T) {
	t.Parallel()

	repo := NewSessionRepository()
	repo.FailSaves(errors.New("disk full"))

	err := repo.Save(session.NewStore().Snapshot())
	if !errors.Is(err, session.ErrIO) {
		t.Fatalf("Save() error = %v, want ErrIO", err)
	}

	repo.FailSaves(nil)
	if err := repo.Save(session.NewStore().Snapshot()); err != nil {
		t.Fatalf("Save() after recovery error = %v", err)
	}
}
