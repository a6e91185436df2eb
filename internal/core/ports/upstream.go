package ports

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UpstreamClient is the real node behind the cache. Each operation maps to one
// JSON-RPC method. A nil block means the caller omitted it.
type UpstreamClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)

	GetBalance(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error)
	GetStorageAt(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error)
	GetTransactionCount(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error)
	GetCode(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error)
	GetAccount(ctx context.Context, address common.Address, block jsonrpc.BlockRef) (json.RawMessage, error)
	GetBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, fullTx bool) (json.RawMessage, error)
	GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error)

	TraceBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error)
	TraceCall(ctx context.Context, call json.RawMessage, block *jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error)

	Close()
}
