package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// State is a shutdown phase. Phases only move forward.
type State int32

const (
	Running State = iota
	Draining
	Flushing
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Flushing:
		return "flushing"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Drainer stops accepting work and waits for in-flight requests.
type Drainer interface {
	Shutdown(ctx context.Context) error
}

// SaveReporter receives the outcome of the final flush. ports.CacheMetrics satisfies it.
type SaveReporter interface {
	ObserveSave(err error)
}

// Config controls how long draining may take.
type Config struct {
	DrainTimeout time.Duration
}

// Coordinator drives the process from Running to Terminated exactly once:
// stop the listener, wait for in-flight requests, save the recorder, close it.
type Coordinator struct {
	server   Drainer
	recorder ports.Recorder
	saves    SaveReporter
	cfg      Config
	logger   *logrus.Logger

	mu    sync.Mutex
	state State
	once  sync.Once
	err   error
	done  chan struct{}
}

func NewCoordinator(server Drainer, recorder ports.Recorder, saves SaveReporter, cfg Config, logger *logrus.Logger) *Coordinator {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	return &Coordinator{
		server:   server,
		recorder: recorder,
		saves:    saves,
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// State returns the current phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the coordinator reaches Terminated.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Run blocks until ctx is cancelled and then shuts down.
func (c *Coordinator) Run(ctx context.Context) error {
	<-ctx.Done()
	c.logger.Info("Shutdown signal received")
	return c.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown performs the shutdown sequence. Later calls wait for the first one and return its result.
// The returned error is the save error, if any; drain and close failures are only logged.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		defer close(c.done)
		c.err = c.shutdown(ctx)
	})
	<-c.done
	return c.err
}

func (c *Coordinator) shutdown(ctx context.Context) error {
	c.transition(Draining)
	if c.server != nil {
		drainCtx, cancel := context.WithTimeout(ctx, c.cfg.DrainTimeout)
		err := c.server.Shutdown(drainCtx)
		cancel()
		if err != nil {
			c.logger.WithError(err).Warn("Server did not drain cleanly")
		}
	}

	c.transition(Flushing)
	start := time.Now()
	saveErr := c.recorder.Save(ctx)
	if c.saves != nil {
		c.saves.ObserveSave(saveErr)
	}
	if saveErr != nil {
		c.logger.WithError(saveErr).Error("Failed to save recorder, unsaved cache entries are lost")
	} else {
		c.logger.WithField("duration", time.Since(start).String()).Info("Recorder saved")
	}

	if err := c.recorder.Close(); err != nil {
		c.logger.WithError(err).Warn("Failed to close recorder")
	}

	c.transition(Terminated)
	if saveErr != nil {
		return errors.Join(ErrFlushFailed, saveErr)
	}
	return nil
}

// ErrFlushFailed marks a shutdown whose final save did not complete.
var ErrFlushFailed = errors.New("final recorder save failed")

func (c *Coordinator) transition(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	c.logger.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Info("Lifecycle transition")
}
