package ports

import (
	"context"
	"encoding/json"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// QueryService answers node queries from the recorder first and the upstream second.
type QueryService interface {
	BlockNumber(ctx context.Context) (hexutil.Uint64, error)
	GasPrice(ctx context.Context) (*hexutil.Big, error)
	ChainID(ctx context.Context) (*hexutil.Big, error)

	GetBalance(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error)
	GetStorageAt(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error)
	GetTransactionCount(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error)
	GetCode(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error)
	GetAccount(ctx context.Context, address common.Address, block jsonrpc.BlockRef) (json.RawMessage, error)
	GetBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, fullTx bool) (json.RawMessage, error)
	GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error)

	TraceBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error)
	TraceCall(ctx context.Context, call json.RawMessage, block *jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error)

	// ReplayOnly reports that no upstream is configured and misses answer with defaults.
	ReplayOnly() bool
}

// CacheMetrics receives cache and upstream observations. Implementations must be concurrency-safe.
type CacheMetrics interface {
	ObserveLookup(method jsonrpc.Method, result LookupResult)
	ObserveUpstream(method jsonrpc.Method, seconds float64, err error)
	ObserveRecordError(method jsonrpc.Method)
	ObserveSave(err error)
}

// LookupResult classifies how a cached query was answered.
type LookupResult string

const (
	LookupHit     LookupResult = "hit"
	LookupMiss    LookupResult = "miss"
	LookupDefault LookupResult = "default"
)
