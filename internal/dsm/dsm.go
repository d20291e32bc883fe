// Package dsm is the disk space manager: byte-addressed, page-aligned
// positional I/O on one file per table, a free-page list, and lazy file
// extension. It knows nothing about B+ trees or transactions — callers
// hand it page numbers and 4096-byte buffers.
package dsm

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"coredb/internal/page"
)

var (
	// ErrTooManyTables is returned by OpenTable once MaxTables distinct
	// files are already open in this process.
	ErrTooManyTables = errors.New("dsm: too many open tables")
	// ErrBadPageSize is returned when a caller supplies a buffer that is
	// not exactly page.Size bytes.
	ErrBadPageSize = errors.New("dsm: buffer is not one page")
	// ErrTableClosed is returned by any operation on a table after Close.
	ErrTableClosed = errors.New("dsm: table is closed")
)

// Table is one open table file: its descriptor and a cached copy of its
// file-header page (page 0), guarded by mu.
type Table struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	header [page.Size]byte
	closed bool
}

// Manager tracks every table file currently open in this process,
// deduplicating by absolute path and enforcing page.MaxTables.
type Manager struct {
	mu     sync.Mutex
	tables map[string]*Table
}

// NewManager returns an empty table manager.
func NewManager() *Manager {
	return &Manager{tables: make(map[string]*Table)}
}

// OpenTable resolves path to its absolute form (filepath.Abs; symbolic
// links are not resolved) and returns the Table for it, creating and
// initializing the file if it does not yet exist. Reopening an
// already-open path returns the same *Table.
func (m *Manager) OpenTable(path string) (*Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tables[abs]; ok {
		return t, nil
	}
	if len(m.tables) >= page.MaxTables {
		return nil, ErrTooManyTables
	}

	existed := true
	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		existed = false
	}

	f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}

	t := &Table{path: abs, file: f}

	if !existed {
		page.InitFileHeader(t.header[:])
		if err := writeAt(t.file, 0, t.header[:]); err != nil {
			f.Close()
			return nil, err
		}
		if err := syncFile(t.file); err != nil {
			f.Close()
			return nil, err
		}
		if err := t.extendCapacityLocked(page.InitialPageCount); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		if err := readAt(t.file, 0, t.header[:]); err != nil {
			f.Close()
			return nil, err
		}
	}

	m.tables[abs] = t
	return t, nil
}

// Close fsyncs, unlocks, and closes every open table.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for path, t := range m.tables {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.tables, path)
	}
	return firstErr
}

// Close fsyncs, unlocks, and closes the underlying file. Safe to call
// more than once.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	syncFile(t.file)
	unlockFile(t.file)
	return t.file.Close()
}

// Sync fsyncs the table file. Page writes do not fsync; the façade
// calls Sync at transaction commit, while header updates and Close
// fsync on their own.
func (t *Table) Sync() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	return syncFile(t.file)
}

// PageCount returns the table's current page count from the cached header.
func (t *Table) PageCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return page.NewFileHeader(t.header[:]).PageCount()
}

// RootPage returns the table's B+ tree root page number (0 if the tree
// is empty).
func (t *Table) RootPage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return page.NewFileHeader(t.header[:]).RootPage()
}

// SetRootPage records a new tree root and flushes the header.
func (t *Table) SetRootPage(root uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	page.NewFileHeader(t.header[:]).SetRootPage(root)
	if err := writeAt(t.file, 0, t.header[:]); err != nil {
		return err
	}
	return syncFile(t.file)
}
