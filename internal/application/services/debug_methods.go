package services

import (
	"context"
	"encoding/json"

	"github.com/avatarctic/node-cache/internal/core/domain/cachekey"
	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/avatarctic/node-cache/internal/core/ports"
)

var emptyTraceList = json.RawMessage("[]")

// TraceBlockByNumber keys on the block and the tracer options, so the same block traced
// with different tracers is cached separately.
func (s *QueryService) TraceBlockByNumber(ctx context.Context, number jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
	optsPart, err := cachekey.JSON(opts)
	if err != nil {
		return nil, jsonrpc.NewInvalidParams("tracer options: %v", err)
	}
	return resolve(ctx, s, query[json.RawMessage]{
		method: jsonrpc.MethodTraceBlockByNumber,
		args:   []cachekey.Part{cachekey.Block(number), optsPart},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (json.RawMessage, error) {
			return orNull(up.TraceBlockByNumber(ctx, number, opts))
		},
		fallback: func() json.RawMessage { return emptyTraceList },
	})
}

func (s *QueryService) TraceCall(ctx context.Context, call json.RawMessage, block *jsonrpc.BlockRef, opts json.RawMessage) (json.RawMessage, error) {
	callPart, err := cachekey.JSON(call)
	if err != nil {
		return nil, jsonrpc.NewInvalidParams("call object: %v", err)
	}
	optsPart, err := cachekey.JSON(opts)
	if err != nil {
		return nil, jsonrpc.NewInvalidParams("tracer options: %v", err)
	}
	return resolve(ctx, s, query[json.RawMessage]{
		method: jsonrpc.MethodTraceCall,
		args:   []cachekey.Part{callPart, cachekey.OptionalBlock(block), optsPart},
		fetch: func(ctx context.Context, up ports.UpstreamClient) (json.RawMessage, error) {
			return orNull(up.TraceCall(ctx, call, block, opts))
		},
		fallback: jsonrpc.EmptyTrace,
	})
}
