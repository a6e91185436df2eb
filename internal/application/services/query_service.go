package services

import (
	"context"
	"fmt"
	"time"

	"github.com/avatarctic/node-cache/internal/core/domain/cachekey"
	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// QueryServiceConfig groups the cache policy switches.
type QueryServiceConfig struct {
	// Record controls whether upstream results are written to the recorder.
	Record bool
	// SingleFlight collapses concurrent misses on the same key into one upstream call.
	SingleFlight bool
	// ChainID is answered locally for eth_chainId.
	ChainID uint64
}

// QueryService implements ports.QueryService with a cache-aside policy over a Recorder.
type QueryService struct {
	recorder ports.Recorder
	upstream ports.UpstreamClient
	metrics  ports.CacheMetrics
	flight   *singleflight.Group
	record   bool
	chainID  uint64
	logger   *logrus.Logger
}

// NewQueryService wires the service. upstream may be nil, which puts the service in replay mode.
func NewQueryService(recorder ports.Recorder, upstream ports.UpstreamClient, cfg *QueryServiceConfig, metrics ports.CacheMetrics, logger *logrus.Logger) *QueryService {
	s := &QueryService{
		recorder: recorder,
		upstream: upstream,
		metrics:  metrics,
		record:   true,
		chainID:  1,
		logger:   logger,
	}
	if cfg != nil {
		s.record = cfg.Record
		if cfg.ChainID > 0 {
			s.chainID = cfg.ChainID
		}
		if cfg.SingleFlight {
			s.flight = &singleflight.Group{}
		}
	}
	return s
}

// ReplayOnly reports whether no upstream is configured.
func (s *QueryService) ReplayOnly() bool { return s.upstream == nil }

// query describes one cache-aside method: identity, arguments, upstream call and replay default.
type query[T any] struct {
	method   jsonrpc.Method
	args     []cachekey.Part
	fetch    func(ctx context.Context, up ports.UpstreamClient) (T, error)
	fallback func() T
	// skip reports results that are returned to the caller but not recorded.
	skip func(T) bool
}

func resolve[T any](ctx context.Context, s *QueryService, q query[T]) (T, error) {
	var zero T
	key := cachekey.New(q.method, q.args...).String()

	v, ok, err := lookup[T](ctx, s.recorder, key)
	if err != nil {
		return zero, &jsonrpc.RecorderError{Op: "get", Key: key, Err: err}
	}
	if ok {
		s.observeLookup(q.method, ports.LookupHit)
		return v, nil
	}
	if s.upstream == nil {
		s.observeLookup(q.method, ports.LookupDefault)
		return q.fallback(), nil
	}
	s.observeLookup(q.method, ports.LookupMiss)

	if s.flight == nil {
		return fill(ctx, s, q, key)
	}
	// The flight outlives any one caller; each caller still honours its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		// A flight that finished just before this one may already have recorded the key.
		if v, ok, err := lookup[T](flightCtx, s.recorder, key); err == nil && ok {
			return v, nil
		}
		return fill(flightCtx, s, q, key)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	if res.Err != nil {
		return zero, res.Err
	}
	if res.Shared && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"method": q.method, "key": key}).Debug("joined in-flight upstream call")
	}
	out, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type %T from in-flight call", res)
	}
	return out, nil
}

// fill calls upstream and records the result. A recording failure is logged, never returned.
func fill[T any](ctx context.Context, s *QueryService, q query[T], key string) (T, error) {
	var zero T
	start := time.Now()
	v, err := q.fetch(ctx, s.upstream)
	if s.metrics != nil {
		s.metrics.ObserveUpstream(q.method, time.Since(start).Seconds(), err)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"method": q.method}).WithError(err).Warn("upstream call failed")
		}
		return zero, &jsonrpc.UpstreamError{Method: q.method, Err: err}
	}
	if !s.record || (q.skip != nil && q.skip(v)) {
		return v, nil
	}
	if err := store(ctx, s.recorder, key, v); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveRecordError(q.method)
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"method": q.method, "key": key}).WithError(err).Error("failed to record upstream result")
		}
	}
	return v, nil
}

func (s *QueryService) observeLookup(method jsonrpc.Method, result ports.LookupResult) {
	if s.metrics != nil {
		s.metrics.ObserveLookup(method, result)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"method": method, "result": result}).Debug("cache lookup")
	}
}

var _ ports.QueryService = (*QueryService)(nil)
