package health

import (
	"context"
	"fmt"
	"math/big"

	"github.com/avatarctic/node-cache/internal/core/ports"
	infraDB "github.com/avatarctic/node-cache/internal/infrastructure/db"
	"github.com/go-redis/redis/v8"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// ChainIDSource is the part of the upstream client the node checker needs.
type ChainIDSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// nodeHealthChecker asks the upstream node for its chain id and compares it with the configured one.
type nodeHealthChecker struct {
	node    ChainIDSource
	chainID uint64
}

func (n *nodeHealthChecker) Name() string { return "upstream" }

func (n *nodeHealthChecker) Check(ctx context.Context) error {
	id, err := n.node.ChainID(ctx)
	if err != nil {
		return err
	}
	if n.chainID != 0 && (!id.IsUint64() || id.Uint64() != n.chainID) {
		return fmt.Errorf("upstream chain id %s does not match configured %d", id, n.chainID)
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewNodeHealthChecker creates a health checker for the upstream node. chainID 0 skips the comparison.
func NewNodeHealthChecker(node ChainIDSource, chainID uint64) ports.HealthChecker {
	return &nodeHealthChecker{node: node, chainID: chainID}
}
