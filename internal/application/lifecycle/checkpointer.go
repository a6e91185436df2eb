package lifecycle

import (
	"context"
	"time"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Checkpointer saves the recorder periodically so a crash loses at most one interval of entries.
type Checkpointer struct {
	recorder ports.Recorder
	saves    SaveReporter
	interval time.Duration
	logger   *logrus.Logger
}

func NewCheckpointer(recorder ports.Recorder, saves SaveReporter, interval time.Duration, logger *logrus.Logger) *Checkpointer {
	return &Checkpointer{recorder: recorder, saves: saves, interval: interval, logger: logger}
}

// Run saves every interval until ctx is done. A non-positive interval disables it.
// The final save belongs to the Coordinator, not to Run.
func (c *Checkpointer) Run(ctx context.Context) {
	if c.interval <= 0 {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.recorder.Save(ctx)
			if c.saves != nil {
				c.saves.ObserveSave(err)
			}
			if err != nil {
				c.logger.WithError(err).Warn("Periodic recorder save failed")
				continue
			}
			c.logger.Debug("Periodic recorder save completed")
		}
	}
}
