package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAllocator_Sequence(t *testing.T) {
	alloc := NewSequentialAllocator()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", alloc.NewBBID())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", alloc.NewBBID())
	assert.Equal(t, BBID(3), alloc.NewBBID())
}

func TestSequentialAllocator_ValidUUIDs(t *testing.T) {
	alloc := NewSequentialAllocator()
	for i := 0; i < 5; i++ {
		bbid := alloc.NewBBID()
		u, err := uuid.Parse(bbid)
		require.NoError(t, err)
		assert.Equal(t, bbid, u.String(), "canonical form must round-trip")
	}
}

func TestSequentialAllocator_ConcurrentUnique(t *testing.T) {
	alloc := NewSequentialAllocator()
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bbid := alloc.NewBBID()
			mu.Lock()
			seen[bbid] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
}
