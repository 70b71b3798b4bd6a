// Package bufferpool implements the fixed-capacity page cache: a pinned
// working set backed by a free list and a clock second-chance replacer, with
// disk reads/writes delegated to a common.DiskManager. Page-table and
// pin/dirty bookkeeping are serialized under the manager's own lock.
// FlushAllPages is the one operation that dispatches its disk writes after
// releasing that lock, to avoid stalling FetchPage/UnpinPage for the
// duration of a large sweep; every place that can still touch a flushed
// frame's bytes concurrently (reclaiming it for a different page) takes the
// frame's own latch around the mutation, so a frame mid-flush cannot be
// reset out from under the in-flight write.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/clockhand-db/buffercore/src/flusher"
	"github.com/clockhand-db/buffercore/src/pkg/common"
	"github.com/clockhand-db/buffercore/src/pkg/logging"
	"github.com/clockhand-db/buffercore/src/replacer"
	"github.com/clockhand-db/buffercore/src/storage/page"
)

// Handle is what FetchPage/NewPage hand back: the resident frame, addressed
// by the caller through the same common.Page capability the disk manager
// uses. Callers read GetPageID/GetPinCount/IsDirty to inspect it and must
// pair every successful fetch with exactly one UnpinPage.
type Handle = *page.Frame

// Manager is the fixed-capacity buffer pool. It owns poolSize frames for the
// lifetime of the pool; PoolSize never changes after New.
type Manager struct {
	id       uuid.UUID
	poolSize uint64
	pageSize int

	mu        sync.Mutex
	pageTable map[common.PageID]common.FrameID
	frames    []*page.Frame
	free      *freeList

	replacer replacer.Replacer
	disk     common.DiskManager
	log      common.LogManager

	logger  logging.Logger
	metrics *poolMetrics
	flush   *flusher.Pool
}

// New constructs a buffer pool of poolSize frames of pageSize bytes each,
// backed by rep for victim selection and disk for block I/O. The log manager
// is accepted but not yet invoked; it is reserved for future write-ahead-log
// integration.
func New(poolSize uint64, pageSize int, rep replacer.Replacer, disk common.DiskManager, log common.LogManager) *Manager {
	frames := make([]*page.Frame, poolSize)
	for i := range frames {
		frames[i] = page.NewFrame(pageSize)
	}

	id := uuid.New()
	return &Manager{
		id:        id,
		poolSize:  poolSize,
		pageSize:  pageSize,
		pageTable: make(map[common.PageID]common.FrameID, poolSize),
		frames:    frames,
		free:      newFreeList(poolSize),
		replacer:  rep,
		disk:      disk,
		log:       log,
		logger:    logging.Nop(),
		metrics:   newPoolMetrics(id.String()),
	}
}

// SetLogger swaps in a real logger for a manager built before its logging
// destination was known.
func (m *Manager) SetLogger(logger logging.Logger) {
	m.logger = logger
}

// SetFlusher installs a bounded worker pool for FlushAllPages' disk writes.
// Without one, FlushAllPages writes pages back serially.
func (m *Manager) SetFlusher(p *flusher.Pool) {
	m.flush = p
}

// ID identifies this pool instance, used to namespace its metrics.
func (m *Manager) ID() uuid.UUID { return m.id }

// PoolSize returns the fixed number of frames this pool was constructed
// with.
func (m *Manager) PoolSize() uint64 { return m.poolSize }

// Stats is a point-in-time snapshot of pool occupancy, for introspection.
type Stats struct {
	PoolSize     uint64
	Resident     int
	FreeListLen  int
	ReplacerSize int
	Hits         uint64
	Misses       uint64
}

// Stats reports the pool's current occupancy and running hit/miss totals.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		PoolSize:     m.poolSize,
		Resident:     len(m.pageTable),
		FreeListLen:  m.free.len(),
		ReplacerSize: m.replacer.Size(),
		Hits:         m.metrics.Hits(),
		Misses:       m.metrics.Misses(),
	}
}

// selectFrame returns a frame already Reset(newPageID) and ready to receive
// newPageID's bytes: either one pulled straight from the free list, or one
// reclaimed from the replacer's victim. A reclaimed victim's dirty bytes are
// written back to disk, the frame is reset, and then the victim's page id is
// dropped from the page table. The whole reclaim — dirty check, write-back, Reset — runs
// under the frame's own latch, the same latch FlushAllPages' background
// writes take, so a frame can never be hijacked for a new page while its
// previous occupant is still being written to disk. Returns
// common.ErrNoSpaceLeft if neither the free list nor the replacer has a
// frame to give.
func (m *Manager) selectFrame(newPageID common.PageID) (common.FrameID, error) {
	if !m.free.empty() {
		frameID := m.free.pop()
		frame := m.frames[frameID]
		frame.Lock()
		frame.Reset(newPageID)
		frame.Unlock()
		return frameID, nil
	}

	victimID, ok := m.replacer.Victim()
	if !ok {
		return 0, common.ErrNoSpaceLeft
	}

	victim := m.frames[victimID]
	victim.Lock()
	victimPageID := victim.GetPageID()
	if victim.IsDirty() {
		if err := m.disk.WritePage(victimPageID, victim); err != nil {
			victim.Unlock()
			// Put the victim back the way we found it rather than losing
			// track of a dirty frame because its write-back failed.
			m.replacer.Unpin(victimID)
			return 0, fmt.Errorf("bufferpool: writing back page %d: %w", victimPageID, err)
		}
		victim.ClearDirty()
		m.metrics.writeBack()
	}
	victim.Reset(newPageID)
	victim.Unlock()

	delete(m.pageTable, victimPageID)
	m.metrics.eviction()
	return victimID, nil
}

// FetchPage returns the frame holding pageID, pinning it. If the page is
// already resident this is a page-table lookup; otherwise a frame is
// reclaimed (possibly evicting and writing back another page) and the
// requested page is read from disk into it.
func (m *Manager) FetchPage(pageID common.PageID) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameID, ok := m.pageTable[pageID]; ok {
		frame := m.frames[frameID]
		frame.IncPin()
		m.replacer.Pin(frameID)
		m.metrics.hit()
		return frame, nil
	}
	m.metrics.miss()

	frameID, err := m.selectFrame(pageID)
	if err != nil {
		m.metrics.exhausted()
		m.logger.Warnf("fetch page=%d failed: %v", pageID, err)
		return nil, err
	}
	m.pageTable[pageID] = frameID

	frame := m.frames[frameID]
	if err := m.disk.ReadPage(pageID, frame); err != nil {
		delete(m.pageTable, pageID)
		m.free.push(frameID)
		m.logger.Errorf("fetch page=%d: disk read failed: %v", pageID, err)
		return nil, fmt.Errorf("bufferpool: reading page %d: %w", pageID, err)
	}

	frame.IncPin()
	m.replacer.Pin(frameID)
	m.logger.Debugf("fetch page=%d loaded into frame=%d", pageID, frameID)
	return frame, nil
}

// NewPage allocates a fresh page id on disk, binds it to a reclaimed frame,
// and returns the pinned, zeroed frame. Fails with common.ErrNoSpaceLeft
// without touching the disk allocator if the pool is already fully pinned.
func (m *Manager) NewPage() (Handle, common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.free.empty() && m.replacer.Size() == 0 {
		m.metrics.exhausted()
		return nil, common.InvalidPageID, common.ErrNoSpaceLeft
	}

	pageID, err := m.disk.AllocatePage()
	if err != nil {
		return nil, common.InvalidPageID, fmt.Errorf("bufferpool: allocating page: %w", err)
	}

	frameID, err := m.selectFrame(pageID)
	if err != nil {
		m.metrics.exhausted()
		return nil, common.InvalidPageID, err
	}
	m.pageTable[pageID] = frameID

	frame := m.frames[frameID]
	frame.IncPin()
	m.replacer.Pin(frameID)

	m.logger.Debugf("new page=%d in frame=%d", pageID, frameID)
	return frame, pageID, nil
}

// UnpinPage decrements pageID's pin count and ORs isDirty into its sticky
// dirty flag. Once the pin count reaches zero the frame becomes eligible for
// eviction. Returns false if pageID is not currently resident.
func (m *Manager) UnpinPage(pageID common.PageID, isDirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return false
	}

	frame := m.frames[frameID]
	frame.DecPin()
	frame.MarkDirty(isDirty)

	if frame.GetPinCount() == 0 {
		m.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage writes pageID's current bytes to disk and clears its dirty
// flag, regardless of pin state. Returns false if pageID is not resident or
// the write fails.
func (m *Manager) FlushPage(pageID common.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return false
	}

	frame := m.frames[frameID]
	if err := m.disk.WritePage(pageID, frame); err != nil {
		m.logger.Errorf("flush page=%d: %v", pageID, err)
		return false
	}
	frame.ClearDirty()
	m.metrics.writeBack()
	return true
}

// FlushAllPages writes every dirty resident page back to disk. The dirty
// set is snapshotted under the pool's lock, then the actual writes run
// after that lock is released — fanned out across the flusher worker pool
// if one was installed via SetFlusher, otherwise serially — so a large
// sweep does not stall concurrent FetchPage/UnpinPage calls for its whole
// duration. Each write re-checks, under the target frame's own latch, that
// the frame still holds the page it was snapshotted for; a frame reclaimed
// for a different page in the meantime is simply skipped, since by
// definition it is no longer carrying the dirty bytes this sweep set out to
// persist. Page-table and pin/dirty mutations remain fully serialized
// through the pool's lock throughout; only the byte-level disk I/O runs
// outside it.
func (m *Manager) FlushAllPages() error {
	type target struct {
		pageID  common.PageID
		frameID common.FrameID
	}

	m.mu.Lock()
	var targets []target
	for pid, fid := range m.pageTable {
		if m.frames[fid].IsDirty() {
			targets = append(targets, target{pid, fid})
		}
	}
	m.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	jobs := make([]flusher.Job, len(targets))
	for i, t := range targets {
		t := t
		jobs[i] = flusher.Job{
			Label: fmt.Sprintf("page-%d", t.pageID),
			Write: func() error {
				return m.writeBackIfStillResident(t.pageID, t.frameID)
			},
		}
	}

	var runErr error
	if m.flush != nil {
		runErr = m.flush.Run(jobs)
	} else {
		for _, j := range jobs {
			if err := j.Write(); err != nil {
				runErr = err
				break
			}
		}
	}

	if runErr != nil {
		m.logger.Errorf("flush all pages: %v", runErr)
		return fmt.Errorf("bufferpool: flush all pages: %w", runErr)
	}
	m.logger.Debugf("flushed %d dirty pages", len(targets))
	return nil
}

// writeBackIfStillResident writes frameID's bytes to disk under pageID and
// clears its dirty flag, unless the frame has since been reclaimed for a
// different page. The check and the write happen under the frame's own
// latch so a concurrent reclaim can't interleave with the write byte for
// byte.
func (m *Manager) writeBackIfStillResident(pageID common.PageID, frameID common.FrameID) error {
	frame := m.frames[frameID]
	frame.Lock()
	defer frame.Unlock()

	if frame.GetPageID() != pageID {
		return nil
	}
	if err := m.disk.WritePage(pageID, frame); err != nil {
		return err
	}
	frame.ClearDirty()
	m.metrics.writeBack()
	return nil
}

// DeletePage removes pageID from the pool and deallocates it on disk.
// Returns (false, nil) without touching disk if the page is resident and
// still pinned. A non-resident page id is deallocated directly.
func (m *Manager) DeletePage(pageID common.PageID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, resident := m.pageTable[pageID]
	if !resident {
		if err := m.disk.DeallocatePage(pageID); err != nil {
			return true, fmt.Errorf("bufferpool: deallocating page %d: %w", pageID, err)
		}
		return true, nil
	}

	frame := m.frames[frameID]
	if frame.GetPinCount() > 0 {
		return false, nil
	}

	if err := m.disk.DeallocatePage(pageID); err != nil {
		return false, fmt.Errorf("bufferpool: deallocating page %d: %w", pageID, err)
	}

	// The frame sat in the replacer while unpinned; Pin clears that
	// membership unconditionally before the frame goes back to the free
	// list, so it can't be handed out as a victim by a stale replacer entry.
	m.replacer.Pin(frameID)
	delete(m.pageTable, pageID)

	// Reset under the frame's own latch: a FlushAllPages write dispatched
	// before this delete may still be in flight for this exact page/frame,
	// and must see either the old, unmodified bytes or nothing at all.
	frame.Lock()
	frame.Reset(common.InvalidPageID)
	frame.Unlock()
	m.free.push(frameID)

	m.logger.Debugf("deleted page=%d, freed frame=%d", pageID, frameID)
	return true, nil
}
