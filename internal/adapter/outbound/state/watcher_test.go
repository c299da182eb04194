package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/plutodesk/plutodesk/internal/domain/session"
)

func TestWatcher_ReportsExternalWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "sessions.json")
	changed := make(chan struct{}, 10)

	w, err := NewWatcher(path, 20*time.Millisecond, func() { changed <- struct{}{} }, testLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	store := session.NewStore()
	store.Create("A", testContext(), true)
	if err := NewFileSessionStore(path, testLogger()).Save(store.Snapshot()); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")
	changed := make(chan struct{}, 10)

	w, err := NewWatcher(path, 20*time.Millisecond, func() { changed <- struct{}{} }, testLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.Start(context.Background())
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Fatal("unexpected change notification")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotentAndHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "nested", "sessions.json")
	w, err := NewWatcher(path, 0, func() {}, testLogger())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	w.Stop()
	w.Stop()
}
