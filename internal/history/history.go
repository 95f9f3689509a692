package history

import (
	"sync"

	"ipdrop/internal/network"
)

// DefaultSize is the number of snapshots kept
const DefaultSize = 4

// History keeps the most recent snapshots, oldest first
type History struct {
	mu        sync.RWMutex
	size      int
	snapshots []network.Snapshot
}

// New creates a history holding at most size snapshots
func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{
		size:      size,
		snapshots: make([]network.Snapshot, 0, size+1),
	}
}

// Push appends a snapshot, evicting the oldest ones beyond the size
func (h *History) Push(s network.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snapshots = append(h.snapshots, s)
	if n := len(h.snapshots); n > h.size {
		h.snapshots = append(h.snapshots[:0], h.snapshots[n-h.size:]...)
	}
}

// Snapshots returns a copy of the retained snapshots, oldest first
func (h *History) Snapshots() []network.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]network.Snapshot, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

// Latest returns the most recent snapshot
func (h *History) Latest() (network.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.snapshots) == 0 {
		return nil, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

// Len returns the number of retained snapshots
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.snapshots)
}

// Size returns the capacity
func (h *History) Size() int {
	return h.size
}
