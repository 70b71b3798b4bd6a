// Package page defines the in-memory frame slot that a buffer pool
// multiplexes page ids across. A Frame is a passive data holder: it does not
// know about the page table, the free list, or the replacer.
package page

import (
	"sync"

	"github.com/clockhand-db/buffercore/src/pkg/assert"
	"github.com/clockhand-db/buffercore/src/pkg/common"
)

// Frame is a fixed-size byte buffer plus the metadata the buffer pool
// manager needs to track residency, pinning, and dirtiness.
type Frame struct {
	mu sync.RWMutex // latches page content

	pageID   common.PageID
	pinCount uint32
	dirty    bool
	data     []byte
}

var _ common.Page = (*Frame)(nil)

// NewFrame allocates a zeroed frame of the given page size, starting out
// non-resident (InvalidPageID, pin count 0, clean).
func NewFrame(pageSize int) *Frame {
	return &Frame{
		pageID: common.InvalidPageID,
		data:   make([]byte, pageSize),
	}
}

func (f *Frame) Lock()    { f.mu.Lock() }
func (f *Frame) Unlock()  { f.mu.Unlock() }
func (f *Frame) RLock()   { f.mu.RLock() }
func (f *Frame) RUnlock() { f.mu.RUnlock() }

// GetData returns the frame's backing buffer by reference; callers sharing
// a pin on the same page observe each other's writes, by design.
func (f *Frame) GetData() []byte { return f.data }

// SetData overwrites the frame's buffer in place.
func (f *Frame) SetData(d []byte) {
	assert.Assert(len(d) == len(f.data), "page data size mismatch: got %d, want %d", len(d), len(f.data))
	copy(f.data, d)
}

// GetPageID returns the id currently resident in this frame, or
// InvalidPageID.
func (f *Frame) GetPageID() common.PageID { return f.pageID }

// GetPinCount returns the frame's current pin count.
func (f *Frame) GetPinCount() uint32 { return f.pinCount }

// IsDirty reports whether the frame's buffer may differ from the on-disk
// page.
func (f *Frame) IsDirty() bool { return f.dirty }

// IncPin increments the pin count by one.
func (f *Frame) IncPin() { f.pinCount++ }

// DecPin decrements the pin count by one. A pin count of 0 on entry is a
// programmer error (double-unpin).
func (f *Frame) DecPin() {
	assert.Assert(f.pinCount > 0, "pin count underflow on page %d", f.pageID)
	f.pinCount--
}

// MarkDirty ORs dirty into the sticky dirty flag: a dirty flag once set
// survives until the next flush or reset.
func (f *Frame) MarkDirty(dirty bool) { f.dirty = f.dirty || dirty }

// ClearDirty clears the dirty flag, called once the frame's bytes have been
// durably written back to disk.
func (f *Frame) ClearDirty() { f.dirty = false }

// Reset overwrites the resident page id, zeroes the buffer, and clears pin
// count and dirty flag. Called immediately before the frame is repopulated
// from disk or handed out as a new page.
func (f *Frame) Reset(pageID common.PageID) {
	f.pageID = pageID
	for i := range f.data {
		f.data[i] = 0
	}
	f.pinCount = 0
	f.dirty = false
}
