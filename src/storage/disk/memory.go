package disk

import (
	"sync"
	"sync/atomic"

	"github.com/clockhand-db/buffercore/src/pkg/common"
)

// InMemoryManager is a common.DiskManager backed by a plain map, used by
// tests that want a working disk manager without touching a filesystem at
// all. It does not count or record calls.
type InMemoryManager struct {
	mu       sync.RWMutex
	pages    map[common.PageID][]byte
	pageSize int
	nextID   atomic.Int64
}

var _ common.DiskManager = (*InMemoryManager)(nil)

func NewInMemoryManager(pageSize int) *InMemoryManager {
	return &InMemoryManager{
		pages:    make(map[common.PageID][]byte),
		pageSize: pageSize,
	}
}

// AllocatePage returns a fresh page id and stores a zeroed page for it, so
// the new page reads back as zeros until it is first written.
func (m *InMemoryManager) AllocatePage() (common.PageID, error) {
	id := common.PageID(m.nextID.Add(1) - 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[id] = make([]byte, m.pageSize)
	return id, nil
}

func (m *InMemoryManager) DeallocatePage(pageID common.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, pageID)
	return nil
}

func (m *InMemoryManager) ReadPage(pageID common.PageID, dst common.Page) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.pages[pageID]
	if !ok {
		return ErrNoSuchPage
	}

	buf := make([]byte, m.pageSize)
	copy(buf, stored)
	dst.SetData(buf)
	return nil
}

func (m *InMemoryManager) WritePage(pageID common.PageID, src common.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data := src.GetData()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.pages[pageID] = buf
	return nil
}
