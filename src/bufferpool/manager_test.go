package bufferpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clockhand-db/buffercore/src/pkg/common"
	"github.com/clockhand-db/buffercore/src/replacer"
	"github.com/clockhand-db/buffercore/src/storage/disk"
)

type MockReplacer struct{ mock.Mock }

func (m *MockReplacer) Pin(frameID common.FrameID)   { m.Called(frameID) }
func (m *MockReplacer) Unpin(frameID common.FrameID) { m.Called(frameID) }
func (m *MockReplacer) Size() int                    { return m.Called().Int(0) }
func (m *MockReplacer) Victim() (common.FrameID, bool) {
	args := m.Called()
	return args.Get(0).(common.FrameID), args.Bool(1)
}

var _ replacer.Replacer = (*MockReplacer)(nil)

type MockDiskManager struct{ mock.Mock }

func (m *MockDiskManager) AllocatePage() (common.PageID, error) {
	args := m.Called()
	return args.Get(0).(common.PageID), args.Error(1)
}

func (m *MockDiskManager) DeallocatePage(pageID common.PageID) error {
	return m.Called(pageID).Error(0)
}

func (m *MockDiskManager) ReadPage(pageID common.PageID, dst common.Page) error {
	return m.Called(pageID, dst).Error(0)
}

func (m *MockDiskManager) WritePage(pageID common.PageID, src common.Page) error {
	return m.Called(pageID, src).Error(0)
}

var _ common.DiskManager = (*MockDiskManager)(nil)

func TestFetchPage_Cached(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(2, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[5] = 0
	m.frames[0].Reset(5)

	mockReplacer.On("Pin", common.FrameID(0)).Return()

	handle, err := m.FetchPage(5)
	require.NoError(t, err)
	assert.Equal(t, common.PageID(5), handle.GetPageID())
	assert.Equal(t, uint32(1), handle.GetPinCount())

	mockDisk.AssertNotCalled(t, "ReadPage", mock.Anything, mock.Anything)
	mockReplacer.AssertExpectations(t)
}

func TestFetchPage_LoadsFromDiskOnMiss(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})

	mockDisk.On("ReadPage", common.PageID(7), mock.Anything).
		Run(func(args mock.Arguments) {
			dst := args.Get(1).(common.Page)
			buf := make([]byte, common.DefaultPageSize)
			buf[0] = 0xAB
			dst.SetData(buf)
		}).
		Return(nil)
	mockReplacer.On("Pin", common.FrameID(0)).Return()

	handle, err := m.FetchPage(7)
	require.NoError(t, err)
	assert.Equal(t, common.PageID(7), handle.GetPageID())
	assert.Equal(t, byte(0xAB), handle.GetData()[0])

	mockDisk.AssertExpectations(t)
	mockReplacer.AssertExpectations(t)
}

func TestFetchPage_ExhaustedPoolReturnsErrNoSpaceLeft(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].IncPin() // sole frame is pinned, nothing in free list or replacer
	m.free.pop()

	mockReplacer.On("Victim").Return(common.FrameID(0), false)

	_, err := m.FetchPage(2)
	assert.ErrorIs(t, err, common.ErrNoSpaceLeft)

	mockDisk.AssertNotCalled(t, "ReadPage", mock.Anything, mock.Anything)
}

func TestFetchPage_EvictsDirtyVictimAndWritesBack(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].MarkDirty(true)
	m.free.pop()

	mockReplacer.On("Victim").Return(common.FrameID(0), true)
	mockDisk.On("WritePage", common.PageID(1), mock.Anything).Return(nil)
	mockDisk.On("ReadPage", common.PageID(9), mock.Anything).Return(nil)
	mockReplacer.On("Pin", common.FrameID(0)).Return()

	handle, err := m.FetchPage(9)
	require.NoError(t, err)
	assert.Equal(t, common.PageID(9), handle.GetPageID())
	assert.False(t, handle.IsDirty())

	_, stillResident := m.pageTable[1]
	assert.False(t, stillResident)

	mockDisk.AssertExpectations(t)
	mockReplacer.AssertExpectations(t)
}

func TestUnpinPage_UnknownPageReturnsFalse(t *testing.T) {
	m := New(1, common.DefaultPageSize, replacer.NewClockReplacer(1), disk.NewInMemoryManager(common.DefaultPageSize), common.NoOpLogManager{})
	assert.False(t, m.UnpinPage(42, false))
}

func TestUnpinPage_AdmitsToReplacerOnlyAtZero(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].IncPin()
	m.frames[0].IncPin()

	assert.True(t, m.UnpinPage(1, true))
	mockReplacer.AssertNotCalled(t, "Unpin", mock.Anything)

	mockReplacer.On("Unpin", common.FrameID(0)).Return()
	assert.True(t, m.UnpinPage(1, false))
	assert.True(t, m.frames[0].IsDirty(), "dirty flag set by the first unpin must stick")

	mockReplacer.AssertExpectations(t)
}

func TestDeletePage_PinnedPageFails(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].IncPin()

	ok, err := m.DeletePage(1)
	require.NoError(t, err)
	assert.False(t, ok)

	mockDisk.AssertNotCalled(t, "DeallocatePage", mock.Anything)
}

func TestDeletePage_UnpinnedPageSucceedsAndFreesFrame(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.free.pop() // frame 0 is "in use", mirror that it isn't in the free list

	mockDisk.On("DeallocatePage", common.PageID(1)).Return(nil)
	mockReplacer.On("Pin", common.FrameID(0)).Return()

	ok, err := m.DeletePage(1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, resident := m.pageTable[1]
	assert.False(t, resident)
	assert.Equal(t, 1, m.free.len())
	assert.Equal(t, common.InvalidPageID, m.frames[0].GetPageID())

	mockDisk.AssertExpectations(t)
	mockReplacer.AssertExpectations(t)
}

func TestFlushPage_ClearsDirtyAndIsIdempotent(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].MarkDirty(true)

	mockDisk.On("WritePage", common.PageID(1), mock.Anything).Return(nil).Twice()

	assert.True(t, m.FlushPage(1))
	assert.False(t, m.frames[0].IsDirty())

	// A second flush with nothing dirty still writes and still reports
	// success; it is a no-op on content, not a no-op on disk I/O.
	assert.True(t, m.FlushPage(1))

	mockDisk.AssertExpectations(t)
}

func TestFlushPage_UnknownPageReturnsFalse(t *testing.T) {
	m := New(1, common.DefaultPageSize, replacer.NewClockReplacer(1), disk.NewInMemoryManager(common.DefaultPageSize), common.NoOpLogManager{})
	assert.False(t, m.FlushPage(99))
}

func TestFlushAllPages_WritesOnlyDirtyPagesAndClearsThem(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(3, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})

	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].MarkDirty(true)

	m.pageTable[2] = 1
	m.frames[1].Reset(2) // clean, should not be flushed

	m.pageTable[3] = 2
	m.frames[2].Reset(3)
	m.frames[2].MarkDirty(true)

	mockDisk.On("WritePage", common.PageID(1), mock.Anything).Return(nil)
	mockDisk.On("WritePage", common.PageID(3), mock.Anything).Return(nil)

	require.NoError(t, m.FlushAllPages())

	assert.False(t, m.frames[0].IsDirty())
	assert.False(t, m.frames[2].IsDirty())
	mockDisk.AssertExpectations(t)
	mockDisk.AssertNotCalled(t, "WritePage", common.PageID(2), mock.Anything)
}

func TestFlushAllPages_NoDirtyPagesIsNoop(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	require.NoError(t, m.FlushAllPages())
	mockDisk.AssertNotCalled(t, "WritePage", mock.Anything, mock.Anything)
}

func TestNewPage_ReturnsDistinctZeroedPages(t *testing.T) {
	m := New(2, common.DefaultPageSize, replacer.NewClockReplacer(2), disk.NewInMemoryManager(common.DefaultPageSize), common.NoOpLogManager{})

	h1, id1, err := m.NewPage()
	require.NoError(t, err)
	h2, id2, err := m.NewPage()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, uint32(1), h1.GetPinCount())
	assert.Equal(t, uint32(1), h2.GetPinCount())
	for _, b := range h1.GetData() {
		require.Equal(t, byte(0), b)
	}
}

func TestNewPage_FailsWhenFullyPinnedWithoutTouchingDisk(t *testing.T) {
	mockDisk := new(MockDiskManager)
	mockReplacer := new(MockReplacer)

	m := New(1, common.DefaultPageSize, mockReplacer, mockDisk, common.NoOpLogManager{})
	m.pageTable[1] = 0
	m.frames[0].Reset(1)
	m.frames[0].IncPin()
	m.free.pop()

	mockReplacer.On("Size").Return(0)

	_, _, err := m.NewPage()
	assert.ErrorIs(t, err, common.ErrNoSpaceLeft)
	mockDisk.AssertNotCalled(t, "AllocatePage")
}

// TestManager_ConcurrentFetchUnpin hammers a small pool with many more
// distinct pages than frames, using the real clock replacer and an
// in-memory disk manager, checking only that no fetch ever errors and every
// unpin is honored. Each worker holds at most one pin at a time, so with
// numWorkers <= poolSize some frame is always unpinned and a fetch never
// runs out of frames.
func TestManager_ConcurrentFetchUnpin(t *testing.T) {
	const poolSize = 8
	const numPages = 32
	const numWorkers = 8
	const opsPerWorker = 200

	m := New(poolSize, common.DefaultPageSize, replacer.NewClockReplacer(poolSize), disk.NewInMemoryManager(common.DefaultPageSize), common.NoOpLogManager{})

	// Allocate every page id up front, unpinning each immediately so the
	// pool (only poolSize frames) never has to hold more than it can fit
	// while seeding the disk.
	for i := 0; i < numPages; i++ {
		_, pageID, err := m.NewPage()
		require.NoError(t, err)
		m.UnpinPage(pageID, false)
	}

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		workerID := w
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				pageID := common.PageID((i*7 + workerID*3) % numPages)

				handle, err := m.FetchPage(pageID)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, pageID, handle.GetPageID())
				time.Sleep(50 * time.Microsecond)
				assert.True(t, m.UnpinPage(pageID, false))
			}
		}()
	}
	wg.Wait()
}
