//go:build windows

package dsm

import (
	"io"
	"os"

	"coredb/internal/page"
)

// Windows has no direct pread/pwrite syscall wrapper in golang.org/x/sys
// worth preferring over the standard library here: os.File.ReadAt and
// WriteAt already compile down to ReadFile/WriteFile with an OVERLAPPED
// offset, which is exactly pread/pwrite semantics on this platform.
func readAt(f *os.File, pageNum uint64, buf []byte) error {
	n, err := f.ReadAt(buf, int64(pageNum)*page.Size)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func writeAt(f *os.File, pageNum uint64, buf []byte) error {
	n, err := f.WriteAt(buf, int64(pageNum)*page.Size)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

func syncFile(f *os.File) error {
	return f.Sync()
}
