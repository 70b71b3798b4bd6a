package bufferpool

import "github.com/clockhand-db/buffercore/src/pkg/common"

// freeList is an ordered reservoir of frame ids that are not currently
// resident and not tracked by the replacer. Pop removes from the tail (LIFO)
// to match the reference implementation's deterministic ordering.
type freeList struct {
	ids []common.FrameID
}

func newFreeList(poolSize uint64) *freeList {
	ids := make([]common.FrameID, poolSize)
	for i := range ids {
		ids[i] = common.FrameID(i)
	}
	return &freeList{ids: ids}
}

func (l *freeList) empty() bool {
	return len(l.ids) == 0
}

func (l *freeList) len() int {
	return len(l.ids)
}

// pop removes and returns the tail frame id. Callers must check empty()
// first; popping an empty list is a programmer error.
func (l *freeList) pop() common.FrameID {
	id := l.ids[len(l.ids)-1]
	l.ids = l.ids[:len(l.ids)-1]
	return id
}

func (l *freeList) push(id common.FrameID) {
	l.ids = append(l.ids, id)
}
