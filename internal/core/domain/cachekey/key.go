// Package cachekey builds the composite keys under which query results are recorded.
//
// A key is the method name followed by each argument as "|<len>:<value>", where value is
// the canonical encoding of the argument prefixed by a one-letter type tag. Length
// prefixes make the encoding injective: two different argument lists can never produce the
// same key, whatever characters the arguments contain.
package cachekey

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
)

// Part is one canonically encoded argument.
type Part string

// absent marks an omitted optional argument. No other encoder produces it.
const absent Part = "~"

// Key identifies one (method, arguments) pair.
type Key struct {
	method jsonrpc.Method
	parts  []Part
}

// New builds a key from a method and its ordered arguments.
func New(method jsonrpc.Method, parts ...Part) Key {
	return Key{method: method, parts: parts}
}

func (k Key) Method() jsonrpc.Method { return k.method }

func (k Key) Parts() []Part { return append([]Part(nil), k.parts...) }

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.method))
	for _, p := range k.parts {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(string(p))
	}
	return b.String()
}

// Parse decodes a key produced by Key.String.
func Parse(s string) (Key, error) {
	head, rest, _ := strings.Cut(s, "|")
	if head == "" {
		return Key{}, fmt.Errorf("cache key %q has no method", s)
	}
	k := Key{method: jsonrpc.Method(head)}
	if rest == "" && !strings.Contains(s, "|") {
		return k, nil
	}
	for {
		lenStr, after, ok := strings.Cut(rest, ":")
		if !ok {
			return Key{}, fmt.Errorf("cache key %q: missing length separator", s)
		}
		n, err := strconv.Atoi(lenStr)
		if err != nil || n < 0 || n > len(after) {
			return Key{}, fmt.Errorf("cache key %q: bad part length %q", s, lenStr)
		}
		k.parts = append(k.parts, Part(after[:n]))
		rest = after[n:]
		if rest == "" {
			return k, nil
		}
		if rest[0] != '|' {
			return Key{}, fmt.Errorf("cache key %q: missing part separator", s)
		}
		rest = rest[1:]
	}
}

func Address(a common.Address) Part { return Part("a" + strings.ToLower(a.Hex())) }

func Hash(h common.Hash) Part { return Part("h" + h.Hex()) }

func Bool(v bool) Part { return Part("b" + strconv.FormatBool(v)) }

func Block(b jsonrpc.BlockRef) Part { return Part("n" + b.Canonical()) }

// OptionalBlock encodes an omitted block distinctly from any explicit block, "latest" included.
func OptionalBlock(b *jsonrpc.BlockRef) Part {
	if b == nil {
		return absent
	}
	return Block(*b)
}

// JSON encodes an arbitrary JSON value canonically: object keys sorted,
// insignificant whitespace removed, numbers kept verbatim.
func JSON(raw json.RawMessage) (Part, error) {
	if jsonrpc.IsNull(raw) {
		return absent, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("canonicalize argument: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("canonicalize argument: trailing data after JSON value")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize argument: %w", err)
	}
	return Part("j" + string(out)), nil
}

// Raw is an escape hatch for tests and callers that already hold a canonical string.
func Raw(s string) Part { return Part("s" + s) }
