package mocks

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RecorderMock is an in-memory Recorder. Fn fields override the map-backed defaults.
type RecorderMock struct {
	GetFn    func(ctx context.Context, key string) ([]byte, bool, error)
	RecordFn func(ctx context.Context, key string, value []byte) error
	SaveFn   func(ctx context.Context) error
	CloseFn  func() error

	mu      sync.Mutex
	entries map[string][]byte
	calls   map[string]int
}

func (m *RecorderMock) count(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op ("get", "record", "save", "close") was invoked.
func (m *RecorderMock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Entries returns a copy of the map-backed contents.
func (m *RecorderMock) Entries() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Put seeds an entry directly.
func (m *RecorderMock) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = value
}

func (m *RecorderMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.count("get")
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *RecorderMock) Record(ctx context.Context, key string, value []byte) error {
	m.count("record")
	if m.RecordFn != nil {
		return m.RecordFn(ctx, key, value)
	}
	m.Put(key, append([]byte(nil), value...))
	return nil
}

func (m *RecorderMock) Save(ctx context.Context) error {
	m.count("save")
	if m.SaveFn != nil {
		return m.SaveFn(ctx)
	}
	return nil
}

func (m *RecorderMock) Close() error {
	m.count("close")
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// UpstreamMock is a lightweight mock for UpstreamClient that counts calls per method.
type UpstreamMock struct {
	BlockNumberFn          func(ctx context.Context) (uint64, error)
	GasPriceFn             func(ctx context.Context) (*big.Int, error)
	ChainIDFn              func(ctx context.Context) (*big.Int, error)
	GetBalanceFn           func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error)
	GetStorageAtFn         func(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error)
	GetTransactionCountFn  func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error)
	GetCodeFn              func(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error)
	GetAccountFn           func(ctx context.Context, address common.Address, block jsonrpc.BlockRef) (json.RawMessage, error)
	GetBlockByNumberFn     func(ctx context.Context, number jsonrpc.BlockRef, fullTx bool) (json.RawMessage, error)
	GetTransactionByHashFn func(ctx context.Context, hash common.Hash) (json.RawMessage, error)
	TraceBlockByNumberFn   func(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error)
	TraceCallFn            func(ctx context.Context, call json.RawMessage, block *jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error)

	mu    sync.Mutex
	calls map[jsonrpc.Method]int
}

func (m *UpstreamMock) count(method jsonrpc.Method) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[jsonrpc.Method]int)
	}
	m.calls[method]++
}

// Calls returns how many times method reached the upstream.
func (m *UpstreamMock) Calls(method jsonrpc.Method) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *UpstreamMock) BlockNumber(ctx context.Context) (uint64, error) {
	m.count(jsonrpc.MethodBlockNumber)
	if m.BlockNumberFn != nil {
		return m.BlockNumberFn(ctx)
	}
	return 0, nil
}

func (m *UpstreamMock) GasPrice(ctx context.Context) (*big.Int, error) {
	m.count(jsonrpc.MethodGasPrice)
	if m.GasPriceFn != nil {
		return m.GasPriceFn(ctx)
	}
	return new(big.Int), nil
}

func (m *UpstreamMock) ChainID(ctx context.Context) (*big.Int, error) {
	m.count(jsonrpc.MethodChainID)
	if m.ChainIDFn != nil {
		return m.ChainIDFn(ctx)
	}
	return big.NewInt(1), nil
}

func (m *UpstreamMock) GetBalance(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error) {
	m.count(jsonrpc.MethodGetBalance)
	if m.GetBalanceFn != nil {
		return m.GetBalanceFn(ctx, address, block)
	}
	return (*hexutil.Big)(new(big.Int)), nil
}

func (m *UpstreamMock) GetStorageAt(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error) {
	m.count(jsonrpc.MethodGetStorageAt)
	if m.GetStorageAtFn != nil {
		return m.GetStorageAtFn(ctx, address, slot, block)
	}
	return common.Hash{}, nil
}

func (m *UpstreamMock) GetTransactionCount(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error) {
	m.count(jsonrpc.MethodGetTransactionCount)
	if m.GetTransactionCountFn != nil {
		return m.GetTransactionCountFn(ctx, address, block)
	}
	return 0, nil
}

func (m *UpstreamMock) GetCode(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
	m.count(jsonrpc.MethodGetCode)
	if m.GetCodeFn != nil {
		return m.GetCodeFn(ctx, address, block)
	}
	return hexutil.Bytes{}, nil
}

func (m *UpstreamMock) GetAccount(ctx context.Context, address common.Address, block jsonrpc.BlockRef) (json.RawMessage, error) {
	m.count(jsonrpc.MethodGetAccount)
	if m.GetAccountFn != nil {
		return m.GetAccountFn(ctx, address, block)
	}
	return json.RawMessage("null"), nil
}

func (m *UpstreamMock) GetBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, fullTx bool) (json.RawMessage, error) {
	m.count(jsonrpc.MethodGetBlockByNumber)
	if m.GetBlockByNumberFn != nil {
		return m.GetBlockByNumberFn(ctx, number, fullTx)
	}
	return json.RawMessage("null"), nil
}

func (m *UpstreamMock) GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	m.count(jsonrpc.MethodGetTransactionByHash)
	if m.GetTransactionByHashFn != nil {
		return m.GetTransactionByHashFn(ctx, hash)
	}
	return json.RawMessage("null"), nil
}

func (m *UpstreamMock) TraceBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
	m.count(jsonrpc.MethodTraceBlockByNumber)
	if m.TraceBlockByNumberFn != nil {
		return m.TraceBlockByNumberFn(ctx, number, opts)
	}
	return json.RawMessage("[]"), nil
}

func (m *UpstreamMock) TraceCall(ctx context.Context, call json.RawMessage, block *jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
	m.count(jsonrpc.MethodTraceCall)
	if m.TraceCallFn != nil {
		return m.TraceCallFn(ctx, call, block, opts)
	}
	return jsonrpc.EmptyTrace(), nil
}

func (m *UpstreamMock) Close() {}

// MetricsMock records observations for assertions.
type MetricsMock struct {
	mu           sync.Mutex
	Lookups      map[jsonrpc.Method][]ports.LookupResult
	Upstream     map[jsonrpc.Method]int
	RecordErrors map[jsonrpc.Method]int
	Saves        []error
}

func (m *MetricsMock) ObserveLookup(method jsonrpc.Method, result ports.LookupResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Lookups == nil {
		m.Lookups = make(map[jsonrpc.Method][]ports.LookupResult)
	}
	m.Lookups[method] = append(m.Lookups[method], result)
}

func (m *MetricsMock) ObserveUpstream(method jsonrpc.Method, seconds float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Upstream == nil {
		m.Upstream = make(map[jsonrpc.Method]int)
	}
	m.Upstream[method]++
}

func (m *MetricsMock) ObserveRecordError(method jsonrpc.Method) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErrors == nil {
		m.RecordErrors = make(map[jsonrpc.Method]int)
	}
	m.RecordErrors[method]++
}

func (m *MetricsMock) ObserveSave(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves = append(m.Saves, err)
}

// LookupResults returns the observed lookups for method.
func (m *MetricsMock) LookupResults(method jsonrpc.Method) []ports.LookupResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.LookupResult(nil), m.Lookups[method]...)
}

// RecordErrorCount returns the record failures observed for method.
func (m *MetricsMock) RecordErrorCount(method jsonrpc.Method) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RecordErrors[method]
}

var (
	_ ports.Recorder       = (*RecorderMock)(nil)
	_ ports.UpstreamClient = (*UpstreamMock)(nil)
	_ ports.CacheMetrics   = (*MetricsMock)(nil)
)
