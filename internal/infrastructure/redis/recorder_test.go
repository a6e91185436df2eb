package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	rediscache "github.com/avatarctic/node-cache/internal/infrastructure/redis"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the handful of commands the recorder issues.
type fakeRedis struct {
	redis.Cmdable
	data    map[string]string
	ttls    map[string]time.Duration
	saves   int
	saveErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Save(ctx context.Context) *redis.StatusCmd {
	f.saves++
	if f.saveErr != nil {
		return redis.NewStatusResult("", f.saveErr)
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRecorder_GetRecordSave(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := rediscache.NewRecorder(fake, "nodecache")

	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Record(ctx, "k", []byte(`"0x1"`)))
	assert.Equal(t, `"0x1"`, fake.data["nodecache:k"])
	assert.Zero(t, fake.ttls["nodecache:k"], "entries never expire")

	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"0x1"`, string(v))

	require.NoError(t, r.Save(ctx))
	assert.Equal(t, 1, fake.saves)
	require.NoError(t, r.Close())
}

func TestRecorder_SaveErrorIsWrapped(t *testing.T) {
	fake := newFakeRedis()
	fake.saveErr = errors.New("MISCONF")
	r := rediscache.NewRecorder(fake, "")

	err := r.Save(context.Background())
	require.ErrorIs(t, err, fake.saveErr)
}

func TestRecorder_NoPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := rediscache.NewRecorder(fake, "")
	require.NoError(t, r.Record(ctx, "k", []byte(`1`)))
	assert.Contains(t, fake.data, "k")
}
