// Package id provides the identifier handles used to name elements,
// listeners, components, events, blobs and services.
package id

import (
	"strconv"
	"sync/atomic"
)

// ID is an opaque 64-bit handle. The zero value is Empty and means
// "no stable identity".
type ID uint64

// Empty is the identifier carried by nodes that need no identity.
const Empty ID = 0

// IsEmpty reports whether the identifier is Empty.
func (i ID) IsEmpty() bool {
	return i == Empty
}

// String returns the string representation of the ID (e.g., "id(7)").
func (i ID) String() string {
	if i.IsEmpty() {
		return "id(empty)"
	}
	return "id(" + strconv.FormatUint(uint64(i), 10) + ")"
}

// Allocator hands out monotonically increasing identifiers.
// It is safe for concurrent use.
type Allocator struct {
	counter atomic.Uint64
}

// NewAllocator creates an allocator whose first identifier is 1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// NewAllocatorFrom creates an allocator whose next identifier is start+1.
func NewAllocatorFrom(start uint64) *Allocator {
	a := &Allocator{}
	a.counter.Store(start)
	return a
}

// Next returns a fresh identifier.
func (a *Allocator) Next() ID {
	return ID(a.counter.Add(1))
}

// Current returns the last identifier handed out without allocating.
func (a *Allocator) Current() ID {
	return ID(a.counter.Load())
}
