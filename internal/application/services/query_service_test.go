package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/avatarctic/node-cache/internal/application/services"
	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
	tmocks "github.com/avatarctic/node-cache/test/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addrA = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newService(rec ports.Recorder, up ports.UpstreamClient, cfg *services.QueryServiceConfig, m ports.CacheMetrics) *services.QueryService {
	if cfg == nil {
		cfg = &services.QueryServiceConfig{Record: true, ChainID: 1}
	}
	return services.NewQueryService(rec, up, cfg, m, quietLogger())
}

func blockPtr(b jsonrpc.BlockRef) *jsonrpc.BlockRef { return &b }

func TestGetBalance_MissFetchesRecordsThenHits(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	metrics := &tmocks.MetricsMock{}
	up := &tmocks.UpstreamMock{GetBalanceFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error) {
		return (*hexutil.Big)(big.NewInt(100)), nil
	}}
	svc := newService(rec, up, nil, metrics)

	got, err := svc.GetBalance(ctx, addrA, blockPtr(jsonrpc.BlockAt(5)))
	require.NoError(t, err)
	require.Equal(t, int64(100), got.ToInt().Int64())
	require.Len(t, rec.Entries(), 1)

	got, err = svc.GetBalance(ctx, addrA, blockPtr(jsonrpc.BlockAt(5)))
	require.NoError(t, err)
	require.Equal(t, int64(100), got.ToInt().Int64())
	require.Equal(t, 1, up.Calls(jsonrpc.MethodGetBalance))
	require.Equal(t, []ports.LookupResult{ports.LookupMiss, ports.LookupHit}, metrics.LookupResults(jsonrpc.MethodGetBalance))
}

func TestRecordedValueTakesPrecedenceOverUpstream(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	first := &tmocks.UpstreamMock{GetCodeFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
		return hexutil.Bytes{0x60, 0x80}, nil
	}}
	_, err := newService(rec, first, nil, nil).GetCode(ctx, addrA, nil)
	require.NoError(t, err)

	second := &tmocks.UpstreamMock{GetCodeFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
		return hexutil.Bytes{0xff}, nil
	}}
	got, err := newService(rec, second, nil, nil).GetCode(ctx, addrA, nil)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Bytes{0x60, 0x80}, got)
	assert.Zero(t, second.Calls(jsonrpc.MethodGetCode))
}

func TestReplayMode_ServesRecordedValues(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	up := &tmocks.UpstreamMock{GetTransactionCountFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error) {
		return 7, nil
	}}
	_, err := newService(rec, up, nil, nil).GetTransactionCount(ctx, addrA, blockPtr(jsonrpc.LatestBlock()))
	require.NoError(t, err)

	replay := newService(rec, nil, nil, nil)
	require.True(t, replay.ReplayOnly())
	got, err := replay.GetTransactionCount(ctx, addrA, blockPtr(jsonrpc.LatestBlock()))
	require.NoError(t, err)
	assert.Equal(t, hexutil.Uint64(7), got)
}

func TestReplayMode_MissReturnsDefaults(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	metrics := &tmocks.MetricsMock{}
	svc := newService(rec, nil, &services.QueryServiceConfig{Record: true, ChainID: 31337}, metrics)

	bal, err := svc.GetBalance(ctx, addrA, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x0", bal.String())

	slot, err := svc.GetStorageAt(ctx, addrA, common.Hash{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{}, slot)

	nonce, err := svc.GetTransactionCount(ctx, addrA, nil)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Uint64(0), nonce)

	code, err := svc.GetCode(ctx, addrA, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x", code.String())

	account, err := svc.GetAccount(ctx, addrA, jsonrpc.LatestBlock())
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(account))

	block, err := svc.GetBlockByNumber(ctx, jsonrpc.BlockAt(10), false)
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(block))

	tx, err := svc.GetTransactionByHash(ctx, common.Hash{2})
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(tx))

	traces, err := svc.TraceBlockByNumber(ctx, jsonrpc.BlockAt(10), nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(traces))

	frame, err := svc.TraceCall(ctx, json.RawMessage(`{"to":"0x00000000000000000000000000000000000000aa"}`), nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"failed":false,"gas":0,"returnValue":"0x","structLogs":[]}`, string(frame))

	head, err := svc.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Uint64(1), head)

	price, err := svc.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), price.ToInt().Int64())

	chainID, err := svc.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), chainID.ToInt().Int64())

	assert.Empty(t, rec.Entries(), "defaults must not be recorded")
	assert.Equal(t, []ports.LookupResult{ports.LookupDefault}, metrics.LookupResults(jsonrpc.MethodGetBalance))
}

func TestUpstreamErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	fail := true
	up := &tmocks.UpstreamMock{GetBalanceFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error) {
		if fail {
			return nil, errors.New("connection refused")
		}
		return (*hexutil.Big)(big.NewInt(3)), nil
	}}
	svc := newService(rec, up, nil, nil)

	_, err := svc.GetBalance(ctx, addrA, nil)
	require.Error(t, err)
	var upErr *jsonrpc.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, jsonrpc.MethodGetBalance, upErr.Method)
	assert.Equal(t, "Provider error: connection refused", jsonrpc.ToError(err).Message)
	assert.Empty(t, rec.Entries())

	fail = false
	got, err := svc.GetBalance(ctx, addrA, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ToInt().Int64())
	assert.Equal(t, 2, up.Calls(jsonrpc.MethodGetBalance))
}

func TestRecordFailureDoesNotMaskResult(t *testing.T) {
	ctx := context.Background()
	metrics := &tmocks.MetricsMock{}
	rec := &tmocks.RecorderMock{RecordFn: func(ctx context.Context, key string, value []byte) error {
		return errors.New("disk full")
	}}
	up := &tmocks.UpstreamMock{GetStorageAtFn: func(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error) {
		return common.Hash{9}, nil
	}}
	svc := newService(rec, up, nil, metrics)

	got, err := svc.GetStorageAt(ctx, addrA, common.Hash{}, nil)
	require.NoError(t, err)
	assert.Equal(t, common.Hash{9}, got)
	assert.Equal(t, 1, metrics.RecordErrorCount(jsonrpc.MethodGetStorageAt))
}

func TestRecorderGetErrorIsReturned(t *testing.T) {
	rec := &tmocks.RecorderMock{GetFn: func(ctx context.Context, key string) ([]byte, bool, error) {
		return nil, false, errors.New("io error")
	}}
	up := &tmocks.UpstreamMock{}
	svc := newService(rec, up, nil, nil)

	_, err := svc.GetCode(context.Background(), addrA, nil)
	var recErr *jsonrpc.RecorderError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "Recorder error: io error", jsonrpc.ToError(err).Message)
	assert.Zero(t, up.Calls(jsonrpc.MethodGetCode))
}

func TestRecordDisabled_ServesHitsWithoutRecording(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	up := &tmocks.UpstreamMock{}
	svc := newService(rec, up, &services.QueryServiceConfig{Record: false, ChainID: 1}, nil)

	_, err := svc.GetBalance(ctx, addrA, nil)
	require.NoError(t, err)
	_, err = svc.GetBalance(ctx, addrA, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Entries())
	assert.Equal(t, 2, up.Calls(jsonrpc.MethodGetBalance))
}

func TestNullBlockIsNotRecordedButNullTransactionIs(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	up := &tmocks.UpstreamMock{}
	svc := newService(rec, up, nil, nil)

	block, err := svc.GetBlockByNumber(ctx, jsonrpc.BlockAt(1<<40), true)
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(block))
	assert.Empty(t, rec.Entries())

	tx, err := svc.GetTransactionByHash(ctx, common.Hash{7})
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(tx))
	assert.Len(t, rec.Entries(), 1)

	_, err = svc.GetTransactionByHash(ctx, common.Hash{7})
	require.NoError(t, err)
	assert.Equal(t, 1, up.Calls(jsonrpc.MethodGetTransactionByHash))
}

func TestOmittedBlockIsDistinctFromLatest(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	up := &tmocks.UpstreamMock{}
	svc := newService(rec, up, nil, nil)

	_, err := svc.GetBalance(ctx, addrA, nil)
	require.NoError(t, err)
	_, err = svc.GetBalance(ctx, addrA, blockPtr(jsonrpc.LatestBlock()))
	require.NoError(t, err)
	assert.Len(t, rec.Entries(), 2)
	assert.Equal(t, 2, up.Calls(jsonrpc.MethodGetBalance))
}

func TestTraceOptionsAreCanonicalized(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	up := &tmocks.UpstreamMock{TraceBlockByNumberFn: func(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`[{"txHash":"0x01"}]`), nil
	}}
	svc := newService(rec, up, nil, nil)

	_, err := svc.TraceBlockByNumber(ctx, jsonrpc.BlockAt(3), json.RawMessage(`{"tracer":"callTracer","timeout":"5s"}`))
	require.NoError(t, err)
	got, err := svc.TraceBlockByNumber(ctx, jsonrpc.BlockAt(3), json.RawMessage(`{ "timeout": "5s",  "tracer": "callTracer" }`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"txHash":"0x01"}]`, string(got))
	assert.Equal(t, 1, up.Calls(jsonrpc.MethodTraceBlockByNumber))

	_, err = svc.TraceBlockByNumber(ctx, jsonrpc.BlockAt(3), json.RawMessage(`{"tracer":"prestateTracer"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, up.Calls(jsonrpc.MethodTraceBlockByNumber))
}

func TestConcurrentMissesShareOneUpstreamCall(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	release := make(chan struct{})
	up := &tmocks.UpstreamMock{GetCodeFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
		<-release
		return hexutil.Bytes{0x01}, nil
	}}
	svc := newService(rec, up, &services.QueryServiceConfig{Record: true, SingleFlight: true, ChainID: 1}, nil)

	const workers = 16
	var wg sync.WaitGroup
	results := make([]hexutil.Bytes, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetCode(ctx, addrA, nil)
		}(i)
	}
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, hexutil.Bytes{0x01}, results[i])
	}
	assert.Equal(t, 1, up.Calls(jsonrpc.MethodGetCode))
}

func TestSharedMissSurvivesFirstCallerCancel(t *testing.T) {
	rec := &tmocks.RecorderMock{}
	release := make(chan struct{})
	up := &tmocks.UpstreamMock{GetCodeFn: func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return hexutil.Bytes{0x02}, nil
	}}
	svc := newService(rec, up, &services.QueryServiceConfig{Record: true, SingleFlight: true, ChainID: 1}, nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.GetCode(leaderCtx, addrA, nil)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return up.Calls(jsonrpc.MethodGetCode) == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		code hexutil.Bytes
		err  error
	}
	follower := make(chan outcome, 1)
	go func() {
		code, err := svc.GetCode(context.Background(), addrA, nil)
		follower <- outcome{code, err}
	}()
	// leader: lookup and in-flight re-check; follower: lookup before joining.
	require.Eventually(t, func() bool { return rec.Calls("get") == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, hexutil.Bytes{0x02}, got.code)
	assert.Equal(t, 1, up.Calls(jsonrpc.MethodGetCode))
	assert.Len(t, rec.Entries(), 1, "the shared result is still recorded")
}

func TestLiveMethodsAreNeverCached(t *testing.T) {
	ctx := context.Background()
	rec := &tmocks.RecorderMock{}
	head := uint64(10)
	up := &tmocks.UpstreamMock{BlockNumberFn: func(ctx context.Context) (uint64, error) {
		head++
		return head, nil
	}}
	svc := newService(rec, up, nil, nil)

	first, err := svc.BlockNumber(ctx)
	require.NoError(t, err)
	second, err := svc.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Uint64(11), first)
	assert.Equal(t, hexutil.Uint64(12), second)
	assert.Empty(t, rec.Entries())
	assert.Zero(t, rec.Calls("get"))

	id, err := svc.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.ToInt().Int64())
	assert.Zero(t, up.Calls(jsonrpc.MethodChainID))
}
