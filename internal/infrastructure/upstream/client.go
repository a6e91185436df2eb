package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

var emptyObject = json.RawMessage("{}")

// Client talks to the real node over JSON-RPC.
type Client struct {
	rpc *gethrpc.Client
	eth *ethclient.Client
}

// Dial connects to url (http, ws or ipc).
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	c, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial node %s: %w", url, err)
	}
	return NewClient(c), nil
}

// NewClient wraps an existing RPC client. Close closes it.
func NewClient(c *gethrpc.Client) *Client {
	return &Client{rpc: c, eth: ethclient.NewClient(c)}
}

func (c *Client) Close() { c.rpc.Close() }

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *Client) GetBalance(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (*hexutil.Big, error) {
	var out hexutil.Big
	if err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetBalance.String(), address, orLatest(block)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetStorageAt(ctx context.Context, address common.Address, slot common.Hash, block *jsonrpc.BlockRef) (common.Hash, error) {
	var out common.Hash
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetStorageAt.String(), address, slot, orLatest(block))
	return out, err
}

func (c *Client) GetTransactionCount(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Uint64, error) {
	var out hexutil.Uint64
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetTransactionCount.String(), address, orLatest(block))
	return out, err
}

func (c *Client) GetCode(ctx context.Context, address common.Address, block *jsonrpc.BlockRef) (hexutil.Bytes, error) {
	var out hexutil.Bytes
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetCode.String(), address, orLatest(block))
	return out, err
}

func (c *Client) GetAccount(ctx context.Context, address common.Address, block jsonrpc.BlockRef) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetAccount.String(), address, block)
	return out, err
}

func (c *Client) GetBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, fullTx bool) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetBlockByNumber.String(), number, fullTx)
	return out, err
}

func (c *Client) GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodGetTransactionByHash.String(), hash)
	return out, err
}

func (c *Client) TraceBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodTraceBlockByNumber.String(), number, orEmpty(opts))
	return out, err
}

func (c *Client) TraceCall(ctx context.Context, call json.RawMessage, block *jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.rpc.CallContext(ctx, &out, jsonrpc.MethodTraceCall.String(), call, orLatest(block), orEmpty(opts))
	return out, err
}

func orLatest(block *jsonrpc.BlockRef) jsonrpc.BlockRef {
	if block == nil {
		return jsonrpc.LatestBlock()
	}
	return *block
}

func orEmpty(opts json.RawMessage) json.RawMessage {
	if jsonrpc.IsNull(opts) {
		return emptyObject
	}
	return opts
}

var _ ports.UpstreamClient = (*Client)(nil)
