package pebblestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/cockroachdb/pebble"
)

// Recorder implements ports.Recorder on a Pebble LSM store. Record appends to the
// write-ahead log without fsync; Save flushes memtables so every entry is on disk.
type Recorder struct {
	db *pebble.DB
}

// Open creates or opens the store at dir.
func Open(dir string) (*Recorder, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db: %w", err)
	}
	return &Recorder{db: db}, nil
}

func (r *Recorder) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, closer, err := r.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get %q: %w", key, err)
	}
	defer closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (r *Recorder) Record(_ context.Context, key string, value []byte) error {
	return r.db.Set([]byte(key), value, pebble.NoSync)
}

func (r *Recorder) Save(context.Context) error {
	if err := r.db.Flush(); err != nil {
		return fmt.Errorf("pebble flush: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}

var _ ports.Recorder = (*Recorder)(nil)
