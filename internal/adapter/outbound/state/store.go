package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/plutodesk/plutodesk/internal/domain/session"
)

// FileSessionStore reads and writes sessions.json.
// It provides atomic writes (write-tmp-then-rename), automatic backups and
// file locking (flock for cross-process, mutex for in-process).
type FileSessionStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger

	// lockMu is held together with the flock between Lock and its unlock.
	lockMu sync.Mutex
	// held is set while Lock is held; Save then reuses that flock.
	held bool

	// lastSum is the xxhash of the content last read or written by this
	// process. Zero means none.
	lastSum uint64
}

// NewFileSessionStore creates a FileSessionStore for the given file path.
func NewFileSessionStore(path string, logger *slog.Logger) *FileSessionStore {
	return &FileSessionStore{
		path:   path,
		logger: logger,
	}
}

// Load reads and decodes sessions.json.
// A missing file yields an empty store. Read failures wrap session.ErrIO;
// undecodable content wraps session.ErrCorruptData.
func (s *FileSessionStore) Load() (*session.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("sessions file not found, starting with no sessions", "path", s.path)
			return session.NewStore(), nil
		}
		return nil, fmt.Errorf("%w: read sessions file: %v", session.ErrIO, err)
	}

	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				s.logger.Warn("sessions file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	s.mu.Lock()
	s.lastSum = xxhash.Sum64(data)
	s.mu.Unlock()

	snap, err := decode(data)
	if err != nil {
		return nil, err
	}

	store, err := session.Restore(snap)
	if err != nil {
		return nil, err
	}
	if snap.Active.Valid && !store.ActiveID().Valid {
		s.logger.Warn("active session id names no session, clearing it",
			"path", s.path, "session_id", snap.Active.UUID)
	}
	return store, nil
}

// Save writes the snapshot to disk atomically.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Create the parent directory if missing
//  3. Acquire flock on path+".lock", unless Lock already holds it
//  4. Copy current file to path+".bak" (skipped if no current file)
//  5. Write indented JSON to path+".tmp", fsync, rename over path
//
// Every failure wraps session.ErrIO.
func (s *FileSessionStore) Save(snap session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(snap)
	if err != nil {
		return fmt.Errorf("%w: marshal sessions: %v", session.ErrIO, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("%w: create sessions directory: %v", session.ErrIO, err)
	}

	if !s.held {
		unlock, err := lockPath(s.path + ".lock")
		if err != nil {
			return fmt.Errorf("%w: acquire file lock: %v", session.ErrIO, err)
		}
		defer unlock()
	}

	if current, readErr := os.ReadFile(s.path); readErr == nil {
		if writeErr := os.WriteFile(s.path+".bak", current, 0600); writeErr != nil {
			s.logger.Warn("failed to create backup", "error", writeErr)
		}
	}

	if err := s.writeAtomic(data); err != nil {
		return fmt.Errorf("%w: %v", session.ErrIO, err)
	}
	s.lastSum = xxhash.Sum64(data)

	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on sessions file", "error", err)
	}

	s.logger.Debug("sessions saved", "path", s.path, "count", len(snap.Records))
	return nil
}

// Lock takes the flock on path+".lock" until the returned function is
// called, so a load, change and save cycle is not interleaved with another
// process's write. Saves made while it is held reuse it.
func (s *FileSessionStore) Lock() (func(), error) {
	s.lockMu.Lock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.lockMu.Unlock()
		return nil, fmt.Errorf("%w: create sessions directory: %v", session.ErrIO, err)
	}
	release, err := lockPath(s.path + ".lock")
	if err != nil {
		s.lockMu.Unlock()
		return nil, fmt.Errorf("%w: acquire file lock: %v", session.ErrIO, err)
	}

	s.mu.Lock()
	s.held = true
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.held = false
			s.mu.Unlock()
			release()
			s.lockMu.Unlock()
		})
	}, nil
}

// Quarantine moves an unreadable sessions file aside so a fresh one can be
// written, returning the new location.
func (s *FileSessionStore) Quarantine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dest := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.path, dest); err != nil {
		return "", fmt.Errorf("%w: quarantine sessions file: %v", session.ErrIO, err)
	}
	return dest, nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileSessionStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to sessions file: %w", err)
	}
	return nil
}

// Modified reports whether the file on disk differs from what this process
// last read or wrote. A missing or unreadable file counts as unmodified.
func (s *FileSessionStore) Modified() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return xxhash.Sum64(data) != s.lastSum
}

// Exists returns true if the sessions file exists on disk.
func (s *FileSessionStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileSessionStore) Path() string {
	return s.path
}

func encode(snap session.Snapshot) ([]byte, error) {
	file := SessionFile{
		Version:         CurrentVersion,
		Sessions:        make([]SessionEntry, 0, len(snap.Records)),
		ActiveSessionID: snap.Active,
	}
	for _, r := range snap.Records {
		file.Sessions = append(file.Sessions, SessionEntry{
			ID:        r.ID,
			Name:      r.Name,
			FolderID:  r.FolderID,
			CourseID:  r.CourseID,
			SetID:     r.SetID,
			CreatedAt: Timestamp(r.CreatedAt),
			LastUsed:  Timestamp(r.LastUsed),
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// decode parses sessions.json. Every key the format defines must be present
// and every id and timestamp set; a document that merely parses is not
// enough.
func decode(data []byte) (session.Snapshot, error) {
	if err := checkShape(data); err != nil {
		return session.Snapshot{}, err
	}

	var file SessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return session.Snapshot{}, fmt.Errorf("%w: parse sessions file: %v", session.ErrCorruptData, err)
	}
	for i, e := range file.Sessions {
		if err := e.validate(); err != nil {
			return session.Snapshot{}, fmt.Errorf("%w: session %d: %v", session.ErrCorruptData, i, err)
		}
	}

	version := file.Version
	if version == 0 {
		version = 1
	}
	if version != CurrentVersion {
		return session.Snapshot{}, fmt.Errorf("%w: unsupported sessions file version %d", session.ErrCorruptData, file.Version)
	}

	snap := session.Snapshot{
		Records: make([]session.Record, 0, len(file.Sessions)),
		Active:  file.ActiveSessionID,
	}
	for _, e := range file.Sessions {
		snap.Records = append(snap.Records, session.Record{
			ID:   e.ID,
			Name: e.Name,
			Context: session.Context{
				FolderID: e.FolderID,
				CourseID: e.CourseID,
				SetID:    e.SetID,
			},
			CreatedAt: e.CreatedAt.Time(),
			LastUsed:  e.LastUsed.Time(),
		})
	}
	return snap, nil
}

// checkShape verifies the root object and each session entry carry every
// required key.
func checkShape(data []byte) error {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("%w: parse sessions file: %v", session.ErrCorruptData, err)
	}
	if root == nil {
		return fmt.Errorf("%w: sessions file is null", session.ErrCorruptData)
	}
	if err := requireKeys(root, "sessions file", fileKeys); err != nil {
		return err
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(root["sessions"], &entries); err != nil {
		return fmt.Errorf("%w: parse sessions list: %v", session.ErrCorruptData, err)
	}
	if entries == nil {
		return fmt.Errorf("%w: sessions is null", session.ErrCorruptData)
	}
	for i, e := range entries {
		if e == nil {
			return fmt.Errorf("%w: session %d is null", session.ErrCorruptData, i)
		}
		if err := requireKeys(e, fmt.Sprintf("session %d", i), entryKeys); err != nil {
			return err
		}
	}
	return nil
}

func requireKeys(obj map[string]json.RawMessage, where string, keys []string) error {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("%w: %s has no %q", session.ErrCorruptData, where, k)
		}
	}
	return nil
}

// Compile-time interface verification.
var _ session.SharedRepository = (*FileSessionStore)(nil)
