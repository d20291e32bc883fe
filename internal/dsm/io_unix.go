//go:build !windows

package dsm

import (
	"io"
	"os"

	"coredb/internal/page"
	"golang.org/x/sys/unix"
)

// readAt and writeAt perform positional I/O via pread/pwrite directly,
// rather than os.File's ReadAt/WriteAt, so a short read or write is
// surfaced as an explicit error rather than silently retried.
func readAt(f *os.File, pageNum uint64, buf []byte) error {
	n, err := unix.Pread(int(f.Fd()), buf, int64(pageNum)*page.Size)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func writeAt(f *os.File, pageNum uint64, buf []byte) error {
	n, err := unix.Pwrite(int(f.Fd()), buf, int64(pageNum)*page.Size)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

func syncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
