// Package disk implements the buffer pool's out-of-scope collaborator: page
// allocation and block I/O. It is deliberately simple — a single page file
// per pool, addressed by PageID * page size — because the buffer pool core
// treats it purely through the common.DiskManager interface.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/clockhand-db/buffercore/src/pkg/common"
)

// ErrNoSuchPage is returned by ReadPage when the requested page was never
// allocated (InMemoryManager also returns it for a deallocated page).
var ErrNoSuchPage = errors.New("disk: no such page")

const pageFileName = "pages.db"

// Manager is a filesystem-backed common.DiskManager. It stores pages in a
// single flat file under dataDir, one page-sized slot per PageID, accessed
// through an afero.Fs so the exact same code path runs against a real disk
// in production and against afero.NewMemMapFs() in tests.
type Manager struct {
	mu       sync.RWMutex
	fs       afero.Fs
	path     string
	pageSize int
	nextID   atomic.Int64
	freed    map[common.PageID]struct{}
}

var _ common.DiskManager = (*Manager)(nil)

// New creates a Manager rooted at dataDir/pages.db, creating the directory
// if necessary.
func New(fs afero.Fs, dataDir string, pageSize int) (*Manager, error) {
	if err := fs.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: creating data dir: %w", err)
	}

	m := &Manager{
		fs:       fs,
		path:     filepath.Join(dataDir, pageFileName),
		pageSize: pageSize,
		freed:    make(map[common.PageID]struct{}),
	}
	return m, nil
}

// AllocatePage returns a fresh page id and extends the page file with a
// zeroed page for it, so the new page reads back as zeros until it is first
// written. Ids are dense and monotonically increasing; deallocated ids are
// never reissued, matching the reference's monotonic allocator.
func (m *Manager) AllocatePage() (common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := common.PageID(m.nextID.Add(1) - 1)

	file, err := m.fs.OpenFile(m.path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return common.InvalidPageID, fmt.Errorf("disk: opening page file for allocation: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteAt(make([]byte, m.pageSize), m.offset(id)); err != nil {
		return common.InvalidPageID, fmt.Errorf("disk: extending page file for page %d: %w", id, err)
	}
	return id, nil
}

// DeallocatePage records pageID as deallocated. Ids are never reissued and
// this implementation does not reclaim disk space.
func (m *Manager) DeallocatePage(pageID common.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freed[pageID] = struct{}{}
	return nil
}

func (m *Manager) offset(pageID common.PageID) int64 {
	return int64(pageID) * int64(m.pageSize)
}

// ReadPage reads a page-sized block into dst. Reading a page id past the
// end of the file (never allocated) yields ErrNoSuchPage.
func (m *Manager) ReadPage(pageID common.PageID, dst common.Page) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := m.fs.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoSuchPage
		}
		return fmt.Errorf("disk: opening page file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, m.pageSize)
	n, err := file.ReadAt(buf, m.offset(pageID))
	if err != nil && n != m.pageSize {
		return fmt.Errorf("disk: reading page %d: %w", pageID, ErrNoSuchPage)
	}

	dst.SetData(buf)
	return nil
}

// WritePage writes a page-sized block from src to disk.
func (m *Manager) WritePage(pageID common.PageID, src common.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.fs.OpenFile(m.path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("disk: opening page file for write: %w", err)
	}
	defer file.Close()

	data := src.GetData()
	if len(data) != m.pageSize {
		return fmt.Errorf("disk: writing page %d: data size %d != page size %d", pageID, len(data), m.pageSize)
	}

	if _, err := file.WriteAt(data, m.offset(pageID)); err != nil {
		return fmt.Errorf("disk: writing page %d: %w", pageID, err)
	}
	return nil
}
