package main

import (
	"context"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	config "github.com/avatarctic/node-cache/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run registers process-wide prometheus collectors, so it is exercised once per binary.
func TestRun_ReturnsErrorWhenPortIsTaken(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         strconv.Itoa(taken.Addr().(*net.TCPAddr).Port),
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Recorder: config.RecorderConfig{
			Backend:  config.BackendFile,
			FilePath: filepath.Join(t.TempDir(), "cache.db"),
		},
		Cache:    config.CacheConfig{Record: true, ChainID: 31337},
		Log:      config.LogConfig{Level: "panic", Format: "json"},
		Shutdown: config.ShutdownConfig{DrainTimeout: time.Second},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server failed")
	case <-ctx.Done():
		t.Fatal("run did not return after the listener failed to bind")
	}
}
