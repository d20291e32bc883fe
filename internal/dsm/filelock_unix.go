//go:build !windows

package dsm

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ErrTableLocked signals that some other process already has this table
// file open. One table file belongs to at most one process at a time;
// an advisory flock is what turns that rule into an enforced one.
var ErrTableLocked = errors.New("dsm: table file is locked by another process")

// lockFile takes a non-blocking exclusive flock on f, failing fast with
// ErrTableLocked instead of waiting if someone else already holds it.
func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrTableLocked
		}
		return err
	}
	return nil
}

// unlockFile drops the flock taken by lockFile.
func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
