//go:build windows

package state

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockPath takes an exclusive LockFileEx lock on path, creating it if needed,
// and returns a function releasing it. Blocks until the lock is available.
func lockPath(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	h := windows.Handle(f.Fd())
	var ol windows.Overlapped
	if err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		var ol windows.Overlapped
		_ = windows.UnlockFileEx(h, 0, 1, 0, &ol)
		_ = f.Close()
	}, nil
}
