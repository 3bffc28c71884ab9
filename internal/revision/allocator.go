package revision

import (
	"time"

	"github.com/google/uuid"
)

// Allocator hands out bbids for newly created entities.
// Implemented by UUIDAllocator (production) and testutil.SequentialAllocator.
type Allocator interface {
	NewBBID() string
}

// UUIDAllocator generates random UUIDv4 bbids.
//
// Thread-safety: UUIDAllocator is stateless and safe for concurrent use.
type UUIDAllocator struct{}

// NewBBID returns a hyphenated UUIDv4.
//
// Panics if the system random source fails (should never happen in practice).
func (UUIDAllocator) NewBBID() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// Clock supplies revision timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
