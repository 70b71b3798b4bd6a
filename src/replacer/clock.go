package replacer

import (
	"sync"

	"github.com/clockhand-db/buffercore/src/pkg/assert"
	"github.com/clockhand-db/buffercore/src/pkg/common"
)

// slot tracks one frame's membership and second-chance state in the clock
// ring.
type slot struct {
	inReplacer bool
	chance     uint8
}

// ClockReplacer implements second-chance clock replacement: every newly
// unpinned frame gets one chance before it can be chosen as a victim, and
// the scan cursor ("hand") advances circularly across poolSize slots.
type ClockReplacer struct {
	mu    sync.Mutex
	slots []slot
	hand  int
	size  int
}

var _ Replacer = (*ClockReplacer)(nil)

// NewClockReplacer creates a clock replacer over poolSize frames, all
// initially absent from the replacer (the pool starts them in the free
// list, not in the replacer).
func NewClockReplacer(poolSize int) *ClockReplacer {
	assert.Assert(poolSize > 0, "clock replacer size must be positive, got %d", poolSize)
	return &ClockReplacer{
		slots: make([]slot, poolSize),
	}
}

func (c *ClockReplacer) checkRange(frameID common.FrameID) {
	assert.Assert(
		int(frameID) >= 0 && int(frameID) < len(c.slots),
		"frame id %d out of range [0, %d)", frameID, len(c.slots),
	)
}

// Pin removes frameID from eviction eligibility. Does not move the hand.
func (c *ClockReplacer) Pin(frameID common.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkRange(frameID)
	s := &c.slots[frameID]
	if s.inReplacer {
		s.inReplacer = false
		c.size--
	}
}

// Unpin admits frameID to eviction eligibility with a fresh second chance.
// Does not move the hand.
func (c *ClockReplacer) Unpin(frameID common.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkRange(frameID)
	s := &c.slots[frameID]
	if !s.inReplacer {
		s.inReplacer = true
		s.chance = 1
		c.size++
	}
}

// Victim sweeps clockwise from the current hand: slots outside the replacer
// are skipped, slots with a remaining chance get it decremented and are
// passed over, and the first slot found with chance already exhausted is
// evicted. The hand is left parked on the evicted slot, not advanced past
// it, so the next sweep resumes there.
func (c *ClockReplacer) Victim() (common.FrameID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return 0, false
	}

	for {
		s := &c.slots[c.hand]
		if s.inReplacer {
			if s.chance > 0 {
				s.chance--
			} else {
				s.inReplacer = false
				c.size--
				victim := common.FrameID(c.hand)
				return victim, true
			}
		}
		c.hand = (c.hand + 1) % len(c.slots)
	}
}

// Size returns the number of frames currently eligible for eviction.
func (c *ClockReplacer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
