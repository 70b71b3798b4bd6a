package replacer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockhand-db/buffercore/src/pkg/common"
)

func TestClockReplacer_EmptyHasNoVictim(t *testing.T) {
	c := NewClockReplacer(3)

	assert.Equal(t, 0, c.Size())

	_, ok := c.Victim()
	assert.False(t, ok)
}

func TestClockReplacer_UnpinIsIdempotent(t *testing.T) {
	c := NewClockReplacer(3)

	c.Unpin(0)
	c.Unpin(0)

	assert.Equal(t, 1, c.Size())
}

func TestClockReplacer_PinRemovesFromEligibility(t *testing.T) {
	c := NewClockReplacer(3)

	c.Unpin(0)
	c.Unpin(1)
	require.Equal(t, 2, c.Size())

	c.Pin(0)
	assert.Equal(t, 1, c.Size())

	// Pinning an already-pinned (or never-unpinned) frame is a no-op.
	c.Pin(0)
	assert.Equal(t, 1, c.Size())
}

func TestClockReplacer_SecondChanceBeforeEviction(t *testing.T) {
	c := NewClockReplacer(2)

	c.Unpin(0)
	c.Unpin(1)

	// Both frames start with chance=1. The first sweep over frame 0 finds
	// chance=1 and spends it without evicting; the hand then reaches frame
	// 1, also chance=1, spent too; the hand wraps back to frame 0, which
	// now has chance=0, and is evicted.
	victim, ok := c.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(0), victim)
	assert.Equal(t, 1, c.Size())

	victim, ok = c.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(1), victim)
	assert.Equal(t, 0, c.Size())
}

func TestClockReplacer_HandParksOnVictimNotPastIt(t *testing.T) {
	c := NewClockReplacer(3)
	c.Unpin(0)

	victim, ok := c.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(0), victim)

	// Re-admitting the same frame: the hand never advanced past the frame
	// it just evicted, so with no other frame in the replacer this one is
	// the only possible victim again (after spending its fresh chance).
	c.Unpin(0)
	victim, ok = c.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(0), victim)
}

func TestClockReplacer_SkipsFramesNotInReplacer(t *testing.T) {
	c := NewClockReplacer(4)
	c.Unpin(2)

	victim, ok := c.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(2), victim)
}

func TestClockReplacer_ConvergesWithinTwoSweeps(t *testing.T) {
	const size = 16
	c := NewClockReplacer(size)
	for i := 0; i < size; i++ {
		c.Unpin(common.FrameID(i))
	}

	for i := 0; i < size; i++ {
		_, ok := c.Victim()
		require.True(t, ok, "victim %d should have been available", i)
	}

	assert.Equal(t, 0, c.Size())
	_, ok := c.Victim()
	assert.False(t, ok)
}
