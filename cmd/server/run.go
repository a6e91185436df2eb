package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	config "github.com/avatarctic/node-cache/configs"
	"github.com/avatarctic/node-cache/internal/application/lifecycle"
	"github.com/avatarctic/node-cache/internal/application/services"
	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/avatarctic/node-cache/internal/infrastructure/db"
	"github.com/avatarctic/node-cache/internal/infrastructure/health"
	"github.com/avatarctic/node-cache/internal/infrastructure/httpserver"
	"github.com/avatarctic/node-cache/internal/infrastructure/metrics"
	"github.com/avatarctic/node-cache/internal/infrastructure/pebblestore"
	"github.com/avatarctic/node-cache/internal/infrastructure/redis"
	"github.com/avatarctic/node-cache/internal/infrastructure/repositories"
	"github.com/avatarctic/node-cache/internal/infrastructure/s3mirror"
	"github.com/avatarctic/node-cache/internal/infrastructure/snapshot"
	"github.com/avatarctic/node-cache/internal/infrastructure/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := newLogger(cfg.Log)
	logger.Info("Starting node cache...")

	latency := metrics.NewLatencyTracker(0.01)
	cacheMetrics := metrics.NewCacheMetrics(prometheus.DefaultRegisterer, latency)

	recorder, checkers, err := openRecorder(parent, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open recorder: %w", err)
	}
	if cfg.Recorder.Debug {
		recorder = repositories.NewDebugRecorder(recorder, logger)
	}

	// Leave the interface nil in replay mode; a typed nil would look like a live upstream.
	var node ports.UpstreamClient
	if cfg.Upstream.URL != "" {
		client, err := upstream.Dial(parent, cfg.Upstream.URL, cfg.Upstream.DialTimeout)
		if err != nil {
			_ = recorder.Close()
			return err
		}
		defer client.Close()
		node = client
		checkers = append(checkers, health.NewNodeHealthChecker(client, cfg.Cache.ChainID))
		logger.WithField("node", cfg.Upstream.URL).Info("Connected to upstream node")
	} else {
		logger.Warn("No upstream node configured, serving from cache only")
	}

	queryService := services.NewQueryService(recorder, node, &services.QueryServiceConfig{
		Record:       cfg.Cache.Record,
		SingleFlight: cfg.Cache.SingleFlight,
		ChainID:      cfg.Cache.ChainID,
	}, cacheMetrics, logger)

	server := httpserver.NewServer(&httpserver.ServerConfig{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
		TLSCertFile:      cfg.Server.TLSCertFile,
		TLSKeyFile:       cfg.Server.TLSKeyFile,
		BodyLimit:        "32M",
		MaxBatchSize:     1000,
		BatchConcurrency: 16,
	}, logger, httpserver.ServerDeps{
		QueryService:   queryService,
		HealthCheckers: checkers,
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in a goroutine; a failure to serve still goes through the flush.
	startErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil {
			logger.WithError(err).Error("Server stopped unexpectedly")
			err = fmt.Errorf("server failed: %w", err)
			stop()
		}
		startErr <- err
	}()

	go lifecycle.NewCheckpointer(recorder, cacheMetrics, cfg.Cache.AutosaveInterval, logger).Run(ctx)

	coordinator := lifecycle.NewCoordinator(server, recorder, cacheMetrics, lifecycle.Config{
		DrainTimeout: cfg.Shutdown.DrainTimeout,
	}, logger)
	err = coordinator.Run(ctx)
	// Start has returned by now: either it failed, or the drain closed the listener.
	err = errors.Join(<-startErr, err)

	for _, s := range latency.GetAllStats() {
		logger.WithField("latency", s.String()).Info("Upstream latency")
	}
	if err != nil {
		return err
	}
	logger.Info("Server exited")
	return nil
}

// openRecorder builds the configured backend and the health checkers for its dependencies.
func openRecorder(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ports.Recorder, []ports.HealthChecker, error) {
	switch cfg.Recorder.Backend {
	case config.BackendRedis:
		client, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to Redis successfully")
		return redis.NewRecorder(client, cfg.Redis.KeyPrefix), []ports.HealthChecker{health.NewRedisHealthChecker(client)}, nil

	case config.BackendPebble:
		rec, err := pebblestore.Open(cfg.Recorder.PebbleDir)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("dir", cfg.Recorder.PebbleDir).Info("Opened pebble recorder")
		return rec, nil, nil

	case config.BackendSQL:
		database, err := db.NewDatabaseWithConfig(&cfg.SQL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(); err != nil {
			_ = database.Close()
			return nil, nil, err
		}
		logger.WithField("driver", cfg.SQL.Driver).Info("Connected to database successfully")
		return repositories.NewSQLRecorder(database), []ports.HealthChecker{health.NewDBHealthChecker(database)}, nil

	default:
		opts := snapshot.Options{Compress: cfg.Recorder.Compress}
		if cfg.S3.Enabled() {
			mirror, err := s3mirror.New(ctx, s3mirror.Config{
				Bucket:    cfg.S3.Bucket,
				Key:       cfg.S3.Key,
				Region:    cfg.S3.Region,
				Endpoint:  cfg.S3.Endpoint,
				AccessKey: cfg.S3.AccessKey,
				SecretKey: cfg.S3.SecretKey,
			}, logger)
			if err != nil {
				return nil, nil, err
			}
			opts.Mirror = mirror
		}
		rec, err := snapshot.Open(ctx, cfg.Recorder.FilePath, opts, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", rec.Path()).Info("Using cache file")
		return rec, nil, nil
	}
}
