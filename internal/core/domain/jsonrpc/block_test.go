package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/avatarctic/node-cache/internal/core/domain/jsonrpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hashHex = "0x0102030405060708091011121314151617181920212223242526272829303132"

func TestParseBlockRef(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"latest tag", `"latest"`, "latest"},
		{"upper-case tag", `"FINALIZED"`, "finalized"},
		{"hex number", `"0x1b4"`, "0x1b4"},
		{"leading zeros", `"0x00ff"`, "0xff"},
		{"hash", `"` + hashHex + `"`, hashHex},
		{"eip-1898 number", `{"blockNumber":"0x10"}`, "0x10"},
		{"eip-1898 hash", `{"blockHash":"` + hashHex + `"}`, hashHex},
		{"eip-1898 canonical hash", `{"blockHash":"` + hashHex + `","requireCanonical":true}`, hashHex + "!canonical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := jsonrpc.ParseBlockRef([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.Canonical())
		})
	}
}

func TestParseBlockRefRejectsInvalidInput(t *testing.T) {
	for _, input := range []string{`null`, `""`, `"0x"`, `"12"`, `"tomorrow"`, `7`, `{}`, `{"blockNumber":"0x1","blockHash":"` + hashHex + `"}`} {
		_, err := jsonrpc.ParseBlockRef([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestParseBlockNumberRejectsHash(t *testing.T) {
	_, err := jsonrpc.ParseBlockNumber([]byte(`"` + hashHex + `"`))
	require.Error(t, err)

	ref, err := jsonrpc.ParseBlockNumber([]byte(`"pending"`))
	require.NoError(t, err)
	tag, ok := ref.Tag()
	require.True(t, ok)
	assert.Equal(t, jsonrpc.TagPending, tag)
}

func TestBlockRefZeroValueIsLatest(t *testing.T) {
	var ref jsonrpc.BlockRef
	assert.Equal(t, jsonrpc.LatestBlock().Canonical(), ref.Canonical())
}

func TestBlockRefMarshalJSON(t *testing.T) {
	out, err := json.Marshal(jsonrpc.BlockAt(16))
	require.NoError(t, err)
	assert.JSONEq(t, `"0x10"`, string(out))

	out, err = json.Marshal(jsonrpc.BlockWithHash(common.HexToHash(hashHex), true))
	require.NoError(t, err)
	assert.JSONEq(t, `{"blockHash":"`+hashHex+`","requireCanonical":true}`, string(out))

	var back jsonrpc.BlockRef
	require.NoError(t, json.Unmarshal(out, &back))
	h, ok := back.Hash()
	require.True(t, ok)
	assert.Equal(t, common.HexToHash(hashHex), h)
}
