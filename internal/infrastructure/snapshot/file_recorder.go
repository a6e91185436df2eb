package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Mirror copies the snapshot file to and from remote storage.
type Mirror interface {
	// Fetch downloads the remote snapshot to path. found=false when no remote copy exists.
	Fetch(ctx context.Context, path string) (found bool, err error)
	// Publish uploads the file at path.
	Publish(ctx context.Context, path string) error
}

// Options configures a FileRecorder.
type Options struct {
	// Compress writes snapshots as zstd. Compressed snapshots are always readable.
	Compress bool
	// Mirror, if set, seeds a missing local file and receives every saved snapshot.
	Mirror Mirror
	// LockTimeout bounds the wait for the cross-process file lock during Save.
	LockTimeout time.Duration
}

// FileRecorder keeps every entry in memory and writes the whole map to one file on Save.
// A single RWMutex covers the map: Get takes the read lock, Record and Save the write lock.
// Save holds the map lock only while encoding; disk and mirror I/O run outside it.
type FileRecorder struct {
	path    string
	opts    Options
	logger  *logrus.Logger
	lock    *flock.Flock
	saveMu  sync.Mutex
	mu      sync.RWMutex
	entries map[string]json.RawMessage
}

// Open loads the snapshot at path. A missing or empty file yields an empty recorder;
// an unreadable one is an error, so a corrupt snapshot is never silently overwritten.
func Open(ctx context.Context, path string, opts Options, logger *logrus.Logger) (*FileRecorder, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	r := &FileRecorder{
		path:    abs,
		opts:    opts,
		logger:  logger,
		lock:    flock.New(abs + ".lock"),
		entries: make(map[string]json.RawMessage),
	}

	if opts.Mirror != nil {
		if _, statErr := os.Stat(abs); errors.Is(statErr, os.ErrNotExist) {
			found, err := opts.Mirror.Fetch(ctx, abs)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch snapshot from mirror: %w", err)
			}
			logger.WithFields(logrus.Fields{"path": abs, "found": found}).Info("Checked snapshot mirror")
		}
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": abs, "entries": len(r.entries)}).Info("Snapshot loaded")
	return r, nil
}

func (r *FileRecorder) load() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("failed to decompress snapshot %s: %w", r.path, err)
		}
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", r.path, err)
	}
	if r.entries == nil {
		r.entries = make(map[string]json.RawMessage)
	}
	return nil
}

// Path returns the absolute snapshot path.
func (r *FileRecorder) Path() string { return r.path }

// Len returns the number of entries held in memory.
func (r *FileRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *FileRecorder) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (r *FileRecorder) Record(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	v := append(json.RawMessage(nil), value...)
	r.mu.Lock()
	r.entries[key] = v
	r.mu.Unlock()
	return nil
}

// Save rewrites the whole snapshot from one consistent state of the map. Saves are
// serialized so a later snapshot never lands before an earlier one. A mirror upload
// failure is logged; the local file is already durable by then.
func (r *FileRecorder) Save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	data, err := json.Marshal(r.entries)
	count := len(r.entries)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if r.opts.Compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}

	if err := r.writeLocked(ctx, data); err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{"path": r.path, "entries": count, "bytes": len(data)}).Debug("Snapshot written")

	if r.opts.Mirror != nil {
		if err := r.opts.Mirror.Publish(ctx, r.path); err != nil {
			r.logger.WithFields(logrus.Fields{"path": r.path}).WithError(err).Warn("Failed to publish snapshot to mirror")
		}
	}
	return nil
}

// writeLocked replaces the snapshot file under the cross-process lock.
func (r *FileRecorder) writeLocked(ctx context.Context, data []byte) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.opts.LockTimeout)
	defer cancel()
	locked, err := r.lock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock snapshot: %w", err)
	}
	if !locked {
		return fmt.Errorf("snapshot %s is locked by another process", r.path)
	}
	defer r.lock.Unlock()
	if err := renameio.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Close is a no-op; entries not saved are dropped.
func (r *FileRecorder) Close() error { return nil }

var _ ports.Recorder = (*FileRecorder)(nil)
