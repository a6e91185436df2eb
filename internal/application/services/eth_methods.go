package services

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/avatarctic/node-cache/internal/core/domain/cachekey"
	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
)

// Values answered for live-only methods when no upstream is configured.
var (
	replayBlockNumber = hexutil.Uint64(1)
	replayGasPrice    = big.NewInt(params.GWei)
)

var nullResult = json.RawMessage("null")

// BlockNumber is never cached: the chain head moves.
func (s *QueryService) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	if s.upstream == nil {
		return replayBlockNumber, nil
	}
	n, err := s.upstream.BlockNumber(ctx)
	if err != nil {
		return 0, &jsonrpc.UpstreamError{Method: jsonrpc.MethodBlockNumber, Err: err}
	}
	return hexutil.Uint64(n), nil
}

// GasPrice is never cached.
func (s *QueryService) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	if s.upstream == nil {
		return (*hexutil.Big)(new(big.Int).Set(replayGasPrice)), nil
	}
	p, err := s.upstream.GasPrice(ctx)
	if err != nil {
		return nil, &jsonrpc.UpstreamError{Method: jsonrpc.MethodGasPrice, Err: err}
	}
	return (*hexutil.Big)(p), nil
}

// ChainID answers from configuration so replay sessions keep a stable identity.
func (s *QueryService) ChainID(context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(new(big.Int).SetUint64(s.chainID)), nil
}

func (s *QueryService) GetBalance(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error) {
	return resolve(ctx, s, query[*hexutil.Big]{
		method: jsonrpc.MethodGetBalance,
		args:   []cachekey.Part{cachekey.Address(address), cachekey.OptionalBlock(block)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (*hexutil.Big, error) {
			return up.GetBalance(ctx, address, block)
		},
		fallback: func() *hexutil.Big { return (*hexutil.Big)(new(big.Int)) },
	})
}

func (s *QueryService) GetStorageAt(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error) {
	return resolve(ctx, s, query[common.Hash]{
		method: jsonrpc.MethodGetStorageAt,
		args:   []cachekey.Part{cachekey.Address(address), cachekey.Hash(slot), cachekey.OptionalBlock(block)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (common.Hash, error) {
			return up.GetStorageAt(ctx, address, slot, block)
		},
		fallback: func() common.Hash { return common.Hash{} },
	})
}

func (s *QueryService) GetTransactionCount(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error) {
	return resolve(ctx, s, query[hexutil.Uint64]{
		method: jsonrpc.MethodGetTransactionCount,
		args:   []cachekey.Part{cachekey.Address(address), cachekey.OptionalBlock(block)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (hexutil.Uint64, error) {
			return up.GetTransactionCount(ctx, address, block)
		},
		fallback: func() hexutil.Uint64 { return 0 },
	})
}

func (s *QueryService) GetCode(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
	return resolve(ctx, s, query[hexutil.Bytes]{
		method: jsonrpc.MethodGetCode,
		args:   []cachekey.Part{cachekey.Address(address), cachekey.OptionalBlock(block)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (hexutil.Bytes, error) {
			return up.GetCode(ctx, address, block)
		},
		fallback: func() hexutil.Bytes { return hexutil.Bytes{} },
	})
}

func (s *QueryService) GetAccount(ctx context.Context, address common.Address, block jsonrpc.BlockRef) (json.RawMessage, error) {
	return resolve(ctx, s, query[json.RawMessage]{
		method: jsonrpc.MethodGetAccount,
		args:   []cachekey.Part{cachekey.Address(address), cachekey.Block(block)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (json.RawMessage, error) {
			return orNull(up.GetAccount(ctx, address, block))
		},
		fallback: func() json.RawMessage { return nullResult },
	})
}

// GetBlockByNumber does not record a null result: the block may simply not exist yet.
func (s *QueryService) GetBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, fullTx bool) (json.RawMessage, error) {
	return resolve(ctx, s, query[json.RawMessage]{
		method: jsonrpc.MethodGetBlockByNumber,
		args:   []cachekey.Part{cachekey.Block(number), cachekey.Bool(fullTx)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (json.RawMessage, error) {
			return orNull(up.GetBlockByNumber(ctx, number, fullTx))
		},
		fallback: func() json.RawMessage { return nullResult },
		skip:     jsonrpc.IsNull,
	})
}

func (s *QueryService) GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	return resolve(ctx, s, query[json.RawMessage]{
		method: jsonrpc.MethodGetTransactionByHash,
		args:   []cachekey.Part{cachekey.Hash(hash)},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (json.RawMessage, error) {
			return orNull(up.GetTransactionByHash(ctx, hash))
		},
		fallback: func() json.RawMessage { return nullResult },
	})
}

func orNull(raw json.RawMessage, err error) (json.RawMessage, error) {
	if err == nil && len(raw) == 0 {
		return nullResult, nil
	}
	return raw, err
}
