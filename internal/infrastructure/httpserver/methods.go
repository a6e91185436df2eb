package httpserver

import (
	"context"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
)

type methodHandler func(ctx context.Context, svc ports.QueryService, p *params) (any, error)

var methods = map[jsonrpc.Method]methodHandler{
	jsonrpc.MethodBlockNumber: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.BlockNumber(ctx)
	},
	jsonrpc.MethodGasPrice: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GasPrice(ctx)
	},
	jsonrpc.MethodChainID: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.ChainID(ctx)
	},
	jsonrpc.MethodGetBalance: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		addr, err := p.address("address")
		if err != nil {
			return nil, err
		}
		block, err := p.optionalBlockRef("block")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetBalance(ctx, addr, block)
	},
	jsonrpc.MethodGetStorageAt: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		addr, err := p.address("address")
		if err != nil {
			return nil, err
		}
		slot, err := p.hash("slot")
		if err != nil {
			return nil, err
		}
		block, err := p.optionalBlockRef("block")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetStorageAt(ctx, addr, slot, block)
	},
	jsonrpc.MethodGetTransactionCount: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		addr, err := p.address("address")
		if err != nil {
			return nil, err
		}
		block, err := p.optionalBlockRef("block")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetTransactionCount(ctx, addr, block)
	},
	jsonrpc.MethodGetCode: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		addr, err := p.address("address")
		if err != nil {
			return nil, err
		}
		block, err := p.optionalBlockRef("block")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetCode(ctx, addr, block)
	},
	jsonrpc.MethodGetAccount: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		addr, err := p.address("address")
		if err != nil {
			return nil, err
		}
		block, err := p.blockRef("block")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetAccount(ctx, addr, block)
	},
	jsonrpc.MethodGetBlockByNumber: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		number, err := p.blockNumber("number")
		if err != nil {
			return nil, err
		}
		fullTx, err := p.boolean("fullTx")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetBlockByNumber(ctx, number, fullTx)
	},
	jsonrpc.MethodGetTransactionByHash: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		hash, err := p.hash("hash")
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.GetTransactionByHash(ctx, hash)
	},
	jsonrpc.MethodTraceBlockByNumber: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		number, err := p.blockNumber("number")
		if err != nil {
			return nil, err
		}
		opts, err := p.object("options", false)
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.TraceBlockByNumber(ctx, number, opts)
	},
	jsonrpc.MethodTraceCall: func(ctx context.Context, svc ports.QueryService, p *params) (any, error) {
		call, err := p.object("call", true)
		if err != nil {
			return nil, err
		}
		block, err := p.optionalBlockRef("block")
		if err != nil {
			return nil, err
		}
		opts, err := p.object("options", false)
		if err != nil {
			return nil, err
		}
		if err := p.done(); err != nil {
			return nil, err
		}
		return svc.TraceCall(ctx, call, block, opts)
	},
}
