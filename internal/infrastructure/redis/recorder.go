package redis

import (
	"context"
	"fmt"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// Recorder implements ports.Recorder on Redis. Entries never expire.
type Recorder struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix string
	closer func() error
}

// NewRecorder creates a Redis-backed recorder. If r is a *redis.Client, Close closes it.
func NewRecorder(r redis.Cmdable, prefix string) *Recorder {
	rec := &Recorder{r: r, prefix: prefix}
	if c, ok := r.(interface{ Close() error }); ok {
		rec.closer = c.Close
	}
	return rec
}

func (c *Recorder) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements Recorder.Get.
func (c *Recorder) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Record implements Recorder.Record.
func (c *Recorder) Record(ctx context.Context, key string, value []byte) error {
	return c.r.Set(ctx, c.namespaced(key), value, 0).Err()
}

// Save asks the server for a synchronous RDB snapshot.
func (c *Recorder) Save(ctx context.Context) error {
	if err := c.r.Save(ctx).Err(); err != nil {
		return fmt.Errorf("redis SAVE: %w", err)
	}
	return nil
}

func (c *Recorder) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

var _ ports.Recorder = (*Recorder)(nil)
