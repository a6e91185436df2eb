package health_test

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/avatarctic/node-cache/internal/infrastructure/db"
	"github.com/avatarctic/node-cache/internal/infrastructure/health"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chainIDFunc func(ctx context.Context) (*big.Int, error)

func (f chainIDFunc) ChainID(ctx context.Context) (*big.Int, error) { return f(ctx) }

func TestNodeHealthChecker(t *testing.T) {
	ctx := context.Background()
	ok := health.NewNodeHealthChecker(chainIDFunc(func(context.Context) (*big.Int, error) { return big.NewInt(31337), nil }), 31337)
	assert.Equal(t, "upstream", ok.Name())
	require.NoError(t, ok.Check(ctx))

	mismatch := health.NewNodeHealthChecker(chainIDFunc(func(context.Context) (*big.Int, error) { return big.NewInt(1), nil }), 31337)
	require.Error(t, mismatch.Check(ctx))

	anyChain := health.NewNodeHealthChecker(chainIDFunc(func(context.Context) (*big.Int, error) { return big.NewInt(1), nil }), 0)
	require.NoError(t, anyChain.Check(ctx))

	down := errors.New("dial tcp: connection refused")
	unreachable := health.NewNodeHealthChecker(chainIDFunc(func(context.Context) (*big.Int, error) { return nil, down }), 1)
	require.ErrorIs(t, unreachable.Check(ctx), down)
}

func TestDBHealthChecker(t *testing.T) {
	database, err := db.NewSQLiteDatabase(filepath.Join(t.TempDir(), "health.sqlite"))
	require.NoError(t, err)
	hc := health.NewDBHealthChecker(database)
	assert.Equal(t, "database", hc.Name())
	require.NoError(t, hc.Check(context.Background()))

	require.NoError(t, database.Close())
	require.Error(t, hc.Check(context.Background()))
}

type pingRedis struct {
	redis.Cmdable
	err error
}

func (p pingRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", p.err)
}

func TestRedisHealthChecker(t *testing.T) {
	hc := health.NewRedisHealthChecker(pingRedis{})
	assert.Equal(t, "redis", hc.Name())
	require.NoError(t, hc.Check(context.Background()))
	require.Error(t, health.NewRedisHealthChecker(pingRedis{err: errors.New("LOADING")}).Check(context.Background()))
}
