package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// rpcEndpoint serves single and batch JSON-RPC 2.0 requests.
func (s *Server) rpcEndpoint(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError(err)))
	}
	body = bytes.TrimSpace(body)
	ctx := c.Request().Context()

	if len(body) > 0 && body[0] == '[' {
		return s.serveBatch(c, ctx, body)
	}
	if !json.Valid(body) {
		return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError(errors.New("invalid JSON"))))
	}
	resp := s.dispatch(ctx, body)
	if resp == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) serveBatch(c echo.Context, ctx context.Context, body []byte) error {
	var calls []json.RawMessage
	if err := json.Unmarshal(body, &calls); err != nil {
		return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError(err)))
	}
	if len(calls) == 0 {
		return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest("empty batch")))
	}
	if s.config.MaxBatchSize > 0 && len(calls) > s.config.MaxBatchSize {
		return c.JSON(http.StatusOK, jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest("batch too large")))
	}

	batchSize.Observe(float64(len(calls)))

	results := make([]*jsonrpc.Response, len(calls))
	var g errgroup.Group
	if s.config.BatchConcurrency > 0 {
		g.SetLimit(s.config.BatchConcurrency)
	}
	for i, call := range calls {
		g.Go(func() error {
			results[i] = s.dispatch(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*jsonrpc.Response, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, out)
}

// dispatch runs one call. It returns nil for notifications.
func (s *Server) dispatch(ctx context.Context, raw json.RawMessage) *jsonrpc.Response {
	var req jsonrpc.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		resp := jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest("invalid request object"))
		return &resp
	}
	if req.JSONRPC != jsonrpc.Version || req.Method == "" {
		resp := jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewInvalidRequest("invalid request"))
		return &resp
	}

	result, err := s.call(ctx, &req)
	if req.IsNotification() {
		return nil
	}
	var resp jsonrpc.Response
	if err != nil {
		rpcErr := jsonrpc.ToError(err)
		entry := s.logger.WithFields(logrus.Fields{"rpc_method": req.Method, "code": rpcErr.Code})
		if rpcErr.Code == jsonrpc.CodeInternalError {
			entry.WithError(err).Warn("RPC call failed")
		} else {
			entry.WithError(err).Debug("RPC call rejected")
		}
		resp = jsonrpc.NewErrorResponse(req.ID, rpcErr)
	} else {
		resp = jsonrpc.NewResult(req.ID, result)
	}
	return &resp
}

func (s *Server) call(ctx context.Context, req *jsonrpc.Request) (any, error) {
	handler, ok := methods[jsonrpc.Method(req.Method)]
	if !ok {
		return nil, jsonrpc.NewMethodNotFound(req.Method)
	}
	p, err := newParams(req.Params)
	if err != nil {
		return nil, err
	}
	return handler(ctx, s.queryService, p)
}
