package jsonrpc

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const Version = "2.0"

// Request is a single JSON-RPC call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the caller expects no response.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response carries either a result or an error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

var nullID = json.RawMessage("null")

// NewResult builds a success response. A nil result is sent as JSON null.
func NewResult(id json.RawMessage, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(id, &Error{Code: CodeInternalError, Message: err.Error()})
	}
	return Response{JSONRPC: Version, ID: orNull(id), Result: raw}
}

func NewErrorResponse(id json.RawMessage, err *Error) Response {
	return Response{JSONRPC: Version, ID: orNull(id), Error: err}
}

func orNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

// DefaultFrame is the empty struct-logger trace returned by debug_traceCall in replay mode.
type DefaultFrame struct {
	Failed      bool              `json:"failed"`
	Gas         uint64            `json:"gas"`
	ReturnValue hexutil.Bytes     `json:"returnValue"`
	StructLogs  []json.RawMessage `json:"structLogs"`
}

// EmptyTrace returns DefaultFrame encoded as JSON.
func EmptyTrace() json.RawMessage {
	raw, _ := json.Marshal(DefaultFrame{ReturnValue: hexutil.Bytes{}, StructLogs: []json.RawMessage{}})
	return raw
}

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
