package jsonrpc_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToError(t *testing.T) {
	up := fmt.Errorf("wrapped: %w", &jsonrpc.UpstreamError{Method: jsonrpc.MethodGetCode, Err: errors.New("timeout")})
	assert.Equal(t, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "Provider error: timeout"}, jsonrpc.ToError(up))

	rec := &jsonrpc.RecorderError{Op: "get", Key: "k", Err: errors.New("closed")}
	assert.Equal(t, "Recorder error: closed", jsonrpc.ToError(rec).Message)

	params := jsonrpc.NewInvalidParams("missing %s", "address")
	assert.Same(t, params, jsonrpc.ToError(params))
	assert.Equal(t, jsonrpc.CodeInvalidParams, params.Code)
	assert.Equal(t, "Invalid params: missing address", params.Message)

	assert.Equal(t, jsonrpc.CodeInternalError, jsonrpc.ToError(errors.New("x")).Code)
}

func TestResponseEncoding(t *testing.T) {
	out, err := json.Marshal(jsonrpc.NewResult(json.RawMessage(`1`), nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":null}`, string(out))

	out, err = json.Marshal(jsonrpc.NewErrorResponse(nil, jsonrpc.NewMethodNotFound("eth_foo")))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Nil(t, decoded["id"])
	assert.Contains(t, decoded, "id")
	assert.Equal(t, float64(jsonrpc.CodeMethodNotFound), decoded["error"].(map[string]any)["code"])
}

func TestEmptyTrace(t *testing.T) {
	assert.JSONEq(t, `{"failed":false,"gas":0,"returnValue":"0x","structLogs":[]}`, string(jsonrpc.EmptyTrace()))
}
