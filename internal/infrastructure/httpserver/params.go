package httpserver

import (
	"bytes"
	"encoding/json"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
)

// params reads positional JSON-RPC arguments in order.
type params struct {
	args []json.RawMessage
	pos  int
}

func newParams(raw json.RawMessage) (*params, error) {
	p := &params{}
	if jsonrpc.IsNull(raw) {
		return p, nil
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, jsonrpc.NewInvalidParams("expected positional params array")
	}
	if err := json.Unmarshal(raw, &p.args); err != nil {
		return nil, jsonrpc.NewInvalidParams("%v", err)
	}
	return p, nil
}

// next returns the next argument, or nil when it is missing or JSON null.
func (p *params) next() json.RawMessage {
	if p.pos >= len(p.args) {
		p.pos++
		return nil
	}
	arg := p.args[p.pos]
	p.pos++
	if jsonrpc.IsNull(arg) {
		return nil
	}
	return arg
}

func (p *params) required(name string) (json.RawMessage, error) {
	arg := p.next()
	if arg == nil {
		return nil, jsonrpc.NewInvalidParams("missing value for required argument %d (%s)", p.pos-1, name)
	}
	return arg, nil
}

func (p *params) address(name string) (common.Address, error) {
	var a common.Address
	arg, err := p.required(name)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(arg, &a); err != nil {
		return a, jsonrpc.NewInvalidParams("invalid argument %d (%s): %v", p.pos-1, name, err)
	}
	return a, nil
}

func (p *params) hash(name string) (common.Hash, error) {
	var h common.Hash
	arg, err := p.required(name)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(arg, &h); err != nil {
		return h, jsonrpc.NewInvalidParams("invalid argument %d (%s): %v", p.pos-1, name, err)
	}
	return h, nil
}

func (p *params) boolean(name string) (bool, error) {
	var b bool
	arg, err := p.required(name)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(arg, &b); err != nil {
		return b, jsonrpc.NewInvalidParams("invalid argument %d (%s): %v", p.pos-1, name, err)
	}
	return b, nil
}

// blockNumber reads a tag or number. Hashes are rejected.
func (p *params) blockNumber(name string) (jsonrpc.BlockRef, error) {
	arg, err := p.required(name)
	if err != nil {
		return jsonrpc.BlockRef{}, err
	}
	ref, err := jsonrpc.ParseBlockNumber(arg)
	if err != nil {
		return ref, jsonrpc.NewInvalidParams("invalid argument %d (%s): %v", p.pos-1, name, err)
	}
	return ref, nil
}

// blockRef reads a tag, number, hash or EIP-1898 object.
func (p *params) blockRef(name string) (jsonrpc.BlockRef, error) {
	arg, err := p.required(name)
	if err != nil {
		return jsonrpc.BlockRef{}, err
	}
	ref, err := jsonrpc.ParseBlockRef(arg)
	if err != nil {
		return ref, jsonrpc.NewInvalidParams("invalid argument %d (%s): %v", p.pos-1, name, err)
	}
	return ref, nil
}

// optionalBlockRef returns nil when the block was omitted, which is kept distinct from "latest".
func (p *params) optionalBlockRef(name string) (*jsonrpc.BlockRef, error) {
	arg := p.next()
	if arg == nil {
		return nil, nil
	}
	ref, err := jsonrpc.ParseBlockRef(arg)
	if err != nil {
		return nil, jsonrpc.NewInvalidParams("invalid argument %d (%s): %v", p.pos-1, name, err)
	}
	return &ref, nil
}

// object reads a JSON object argument verbatim.
func (p *params) object(name string, required bool) (json.RawMessage, error) {
	var arg json.RawMessage
	if required {
		var err error
		if arg, err = p.required(name); err != nil {
			return nil, err
		}
	} else if arg = p.next(); arg == nil {
		return nil, nil
	}
	if trimmed := bytes.TrimSpace(arg); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, jsonrpc.NewInvalidParams("invalid argument %d (%s): expected object", p.pos-1, name)
	}
	return arg, nil
}

// done fails when more arguments were passed than the method takes.
func (p *params) done() error {
	if len(p.args) > p.pos {
		return jsonrpc.NewInvalidParams("too many arguments, want at most %d", p.pos)
	}
	return nil
}
