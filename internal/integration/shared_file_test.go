package integration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/plutodesk/plutodesk/internal/adapter/outbound/state"
	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/inbound"
	"github.com/plutodesk/plutodesk/internal/service"
)

// process is one program's view of the data dir: its own sessions file
// handle, catalog connection and in-memory store.
type process struct {
	files *state.FileSessionStore
	svc   *service.SessionService
}

func openProcess(t *testing.T, dir string) *process {
	t.Helper()
	logger := testLogger()
	files := state.NewFileSessionStore(filepath.Join(dir, "sessions.json"), logger)
	cat := openCatalog(t, filepath.Join(dir, "plutodesk.db"))
	store := service.OpenSessionStore(files, logger)
	return &process{files: files, svc: service.NewSessionService(store, files, cat, logger)}
}

func loadFromDisk(t *testing.T, dir string) *session.Store {
	t.Helper()
	store, err := state.NewFileSessionStore(filepath.Join(dir, "sessions.json"), testLogger()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return store
}

// TestSharedFile_InterleavedWritersKeepBothChanges runs a server and a
// one-shot command against the same files, both opened before either writes.
func TestSharedFile_InterleavedWritersKeepBothChanges(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	server := openProcess(t, dir)
	cli := openProcess(t, dir)

	first, err := server.svc.CreateAndStart(ctx, inbound.CreateRequest{FolderName: "F1", CourseName: "C1", SetName: "S1"})
	if err != nil {
		t.Fatalf("server CreateAndStart: %v", err)
	}
	second, err := cli.svc.CreateAndStart(ctx, inbound.CreateRequest{FolderName: "F2", CourseName: "C2", SetName: "S2"})
	if err != nil {
		t.Fatalf("cli CreateAndStart: %v", err)
	}

	if got := cli.svc.Count(); got != 2 {
		t.Errorf("cli in-memory count = %d, want 2", got)
	}
	disk := loadFromDisk(t, dir)
	if disk.Len() != 2 {
		t.Fatalf("sessions on disk = %d, want 2", disk.Len())
	}
	if disk.ActiveID().UUID != second.ID {
		t.Errorf("active on disk = %v, want %s", disk.ActiveID(), second.ID)
	}

	// The server's next change starts from what the cli wrote.
	if err := server.svc.Start(ctx, first.ID); err != nil {
		t.Fatalf("server Start: %v", err)
	}
	if got := server.svc.Count(); got != 2 {
		t.Errorf("server in-memory count = %d, want 2", got)
	}
	disk = loadFromDisk(t, dir)
	if disk.Len() != 2 || disk.ActiveID().UUID != first.ID {
		t.Errorf("disk after server Start: %d sessions, active %v; want 2, %s", disk.Len(), disk.ActiveID(), first.ID)
	}

	if err := server.svc.Reload(ctx); err != nil {
		t.Fatalf("server Reload: %v", err)
	}
	if got := server.svc.Count(); got != 2 {
		t.Errorf("server count after Reload = %d, want 2", got)
	}
}

// TestSharedFile_DuplicateContextSeenAcrossProcesses checks the duplicate
// guard uses the other process's sessions, not a stale copy.
func TestSharedFile_DuplicateContextSeenAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	server := openProcess(t, dir)
	cli := openProcess(t, dir)

	req := inbound.CreateRequest{FolderName: "Physics", CourseName: "Mechanics", SetName: "Set A"}
	if _, err := cli.svc.CreateAndStart(ctx, req); err != nil {
		t.Fatalf("cli CreateAndStart: %v", err)
	}
	if _, err := server.svc.CreateAndStart(ctx, req); !errors.Is(err, session.ErrContextExists) {
		t.Errorf("server CreateAndStart error = %v, want ErrContextExists", err)
	}
	if disk := loadFromDisk(t, dir); disk.Len() != 1 {
		t.Errorf("sessions on disk = %d, want 1", disk.Len())
	}
}

// TestSharedFile_ConcurrentWriters has two processes creating sessions at
// the same time; every one of them must reach the file.
func TestSharedFile_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	procs := []*process{openProcess(t, dir), openProcess(t, dir)}

	const perProcess = 15
	var wg sync.WaitGroup
	errs := make(chan error, len(procs)*perProcess)
	for i, p := range procs {
		wg.Add(1)
		go func(i int, p *process) {
			defer wg.Done()
			for n := 0; n < perProcess; n++ {
				c := session.Context{FolderID: uuid.New(), CourseID: uuid.New(), SetID: uuid.New()}
				if _, err := p.svc.CreateSession(ctx, fmt.Sprintf("p%d-%d", i, n), c, n%2 == 0); err != nil {
					errs <- err
				}
			}
		}(i, p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("CreateSession: %v", err)
	}

	want := len(procs) * perProcess
	if disk := loadFromDisk(t, dir); disk.Len() != want {
		t.Errorf("sessions on disk = %d, want %d", disk.Len(), want)
	}
}
