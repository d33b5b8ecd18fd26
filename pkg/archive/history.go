package archive

import (
	"sync"
	"time"
)

// Entry is a patch kept in History.
type Entry struct {
	Seq    uint64    // Patch sequence number
	Patch  []byte    // Encoded patch
	SentAt time.Time // When the patch was sent
}

// History is a thread-safe ring buffer of recently sent patches.
//
// The ring overwrites the oldest entries when full, maintaining a sliding
// window of recent patches.
type History struct {
	mu       sync.RWMutex
	entries  []*Entry
	head     int    // Next write position (circular)
	count    int    // Current number of entries
	capacity int    // Max entries
	minSeq   uint64 // Lowest sequence in buffer
	maxSeq   uint64 // Highest sequence in buffer
	bytes    int64  // Total payload bytes currently held
}

var _ Recorder = (*History)(nil)

// NewHistory creates a ring buffer with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{
		entries:  make([]*Entry, capacity),
		capacity: capacity,
	}
}

// Record implements Recorder.
func (h *History) Record(r Record) {
	h.add(r.Seq, r.Patch, r.SentAt)
}

// Add stores a patch. The bytes are copied.
func (h *History) Add(seq uint64, patch []byte) {
	h.add(seq, patch, time.Now())
}

func (h *History) add(seq uint64, patch []byte, sentAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cp := make([]byte, len(patch))
	copy(cp, patch)

	if old := h.entries[h.head]; old != nil {
		h.bytes -= int64(len(old.Patch))
	}
	h.entries[h.head] = &Entry{Seq: seq, Patch: cp, SentAt: sentAt}
	h.bytes += int64(len(cp))
	h.head = (h.head + 1) % h.capacity

	if h.count < h.capacity {
		h.count++
	}

	h.maxSeq = seq
	if h.count == 1 {
		h.minSeq = seq
	} else if h.count == h.capacity {
		// After the increment head points at the oldest entry.
		if oldest := h.entries[h.head]; oldest != nil {
			h.minSeq = oldest.Seq
		}
	}
}

// Range returns the patches for sequences (afterSeq, toSeq] in order, or nil
// if any of them is no longer held.
func (h *History) Range(afterSeq, toSeq uint64) [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil
	}
	if afterSeq+1 < h.minSeq || toSeq > h.maxSeq {
		return nil
	}

	bySeq := make(map[uint64][]byte, h.count)
	for _, e := range h.orderedLocked() {
		bySeq[e.Seq] = e.Patch
	}

	var out [][]byte
	for seq := afterSeq + 1; seq <= toSeq; seq++ {
		p, ok := bySeq[seq]
		if !ok {
			return nil
		}
		out = append(out, p)
	}
	return out
}

// Entries returns the held entries from oldest to newest.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ordered := h.orderedLocked()
	out := make([]Entry, len(ordered))
	for i, e := range ordered {
		out[i] = *e
	}
	return out
}

func (h *History) orderedLocked() []*Entry {
	out := make([]*Entry, 0, h.count)
	for i := 0; i < h.count; i++ {
		idx := (h.head - h.count + i + h.capacity) % h.capacity
		if e := h.entries[idx]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// CanRecover reports whether every patch after lastSeq is still held.
func (h *History) CanRecover(lastSeq uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return false
	}
	return lastSeq+1 >= h.minSeq && lastSeq < h.maxSeq
}

// MinSeq returns the lowest held sequence.
func (h *History) MinSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.minSeq
}

// MaxSeq returns the highest held sequence.
func (h *History) MaxSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.maxSeq
}

// Count returns the number of held entries.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Bytes returns the total size of the held patches.
func (h *History) Bytes() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bytes
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.entries {
		h.entries[i] = nil
	}
	h.head = 0
	h.count = 0
	h.minSeq = 0
	h.maxSeq = 0
	h.bytes = 0
}
