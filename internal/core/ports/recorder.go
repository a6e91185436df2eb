package ports

import (
	"context"
)

// Recorder is the storage contract behind the query cache.
// Values are opaque serialized payloads; typing happens at the call site.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Get returns the payload stored under key. ok=false on a miss, which is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Record stores value under key, replacing any previous payload.
	// The write is visible to Get immediately but may not be durable until Save.
	Record(ctx context.Context, key string, value []byte) error
	// Save makes every recorded entry durable.
	Save(ctx context.Context) error
	// Close releases resources. It does not imply Save.
	Close() error
}
