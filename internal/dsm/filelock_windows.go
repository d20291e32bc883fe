//go:build windows

package dsm

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// ErrTableLocked is returned by OpenTable when another process already
// holds the table file's advisory lock.
var ErrTableLocked = errors.New("dsm: table file is locked by another process")

func lockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
	if err != nil {
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return ErrTableLocked
		}
		return err
	}
	return nil
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}
