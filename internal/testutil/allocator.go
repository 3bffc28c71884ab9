package testutil

import (
	"fmt"
	"sync"
)

// SequentialAllocator hands out bbids that are valid UUIDs and sort in
// allocation order:
//
//	00000000-0000-0000-0000-000000000001
//	00000000-0000-0000-0000-000000000002
//
// This enables deterministic test execution and golden trace comparison.
//
// Thread-safety: SequentialAllocator is safe for concurrent use via internal mutex.
type SequentialAllocator struct {
	mu   sync.Mutex
	next int64
}

// NewSequentialAllocator creates an allocator whose first bbid ends in 1.
func NewSequentialAllocator() *SequentialAllocator {
	return &SequentialAllocator{}
}

// NewBBID returns the next bbid.
//
// Implements revision.Allocator.
func (a *SequentialAllocator) NewBBID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return BBID(a.next)
}

// BBID returns the n-th bbid a fresh SequentialAllocator hands out.
func BBID(n int64) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}
