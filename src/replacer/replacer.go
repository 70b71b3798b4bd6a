// Package replacer implements victim selection among the buffer pool's
// currently-unpinned, resident frames. The manager uses it purely through
// the Replacer interface so the policy can be swapped without touching
// bufferpool.Manager; only the clock second-chance policy is implemented
// here.
package replacer

import "github.com/clockhand-db/buffercore/src/pkg/common"

// Replacer tracks which frames are eviction-eligible and produces victims
// on demand. Implementations must be safe to call from a single caller at a
// time; the buffer pool manager serializes all access under its own lock.
type Replacer interface {
	// Pin marks a frame as ineligible for eviction. No-op if the frame is
	// not currently tracked.
	Pin(frameID common.FrameID)

	// Unpin marks a frame as eligible for eviction. No-op if the frame is
	// already tracked.
	Unpin(frameID common.FrameID)

	// Victim selects and removes one eligible frame, or reports false if
	// none is available.
	Victim() (common.FrameID, bool)

	// Size returns the number of frames currently eligible for eviction.
	Size() int
}
