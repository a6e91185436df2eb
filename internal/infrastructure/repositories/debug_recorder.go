package repositories

import (
	"context"
	"time"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// DebugRecorder wraps any Recorder and logs every operation at debug level.
type DebugRecorder struct {
	next   ports.Recorder
	logger *logrus.Logger
}

// NewDebugRecorder creates a new debug wrapper around an existing recorder.
func NewDebugRecorder(next ports.Recorder, logger *logrus.Logger) *DebugRecorder {
	return &DebugRecorder{next: next, logger: logger}
}

func (d *DebugRecorder) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := d.next.Get(ctx, key)
	entry := d.logger.WithFields(logrus.Fields{"op": "get", "key": key})
	switch {
	case err != nil:
		entry.WithError(err).Debug("Recorder error")
	case !ok:
		entry.Debug("Recorder miss")
	default:
		entry.WithField("bytes", len(value)).Debug("Recorder hit")
	}
	return value, ok, err
}

func (d *DebugRecorder) Record(ctx context.Context, key string, value []byte) error {
	err := d.next.Record(ctx, key, value)
	entry := d.logger.WithFields(logrus.Fields{"op": "record", "key": key, "bytes": len(value)})
	if err != nil {
		entry.WithError(err).Debug("Recorder error")
		return err
	}
	entry.Debug("Recorded")
	return nil
}

func (d *DebugRecorder) Save(ctx context.Context) error {
	start := time.Now()
	err := d.next.Save(ctx)
	entry := d.logger.WithFields(logrus.Fields{"op": "save", "duration": time.Since(start).String()})
	if err != nil {
		entry.WithError(err).Debug("Recorder error")
		return err
	}
	entry.Debug("Saved")
	return nil
}

func (d *DebugRecorder) Close() error {
	d.logger.WithField("op", "close").Debug("Closing recorder")
	return d.next.Close()
}

var _ ports.Recorder = (*DebugRecorder)(nil)
